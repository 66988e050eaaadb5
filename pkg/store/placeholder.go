package store

import "sync"

// PlaceholderStore tracks loading messages by placeholder-link id. The
// binding maps the link id to the concrete message id currently shown in
// chat; the waiting flag is held while that message is still being animated
// and gates replacement edits.
type PlaceholderStore struct {
	mu       sync.Mutex
	bindings map[string]string
	waiting  map[string]bool
}

// NewPlaceholderStore creates an empty placeholder store.
func NewPlaceholderStore() *PlaceholderStore {
	return &PlaceholderStore{
		bindings: make(map[string]string),
		waiting:  make(map[string]bool),
	}
}

// Bind records the chat message currently backing a placeholder link.
func (s *PlaceholderStore) Bind(placeholderID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[placeholderID] = messageID
}

// Message returns the bound message id for a placeholder link.
func (s *PlaceholderStore) Message(placeholderID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.bindings[placeholderID]
	return id, ok
}

// Unbind removes the binding for a placeholder link. Removing the binding
// is also the external cancellation path for execution-status polling. The
// waiting flag is left alone: the loader that set it clears it when its
// last edit lands, and replacement waits poll it until then.
func (s *PlaceholderStore) Unbind(placeholderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bindings, placeholderID)
}

// Bound reports whether a placeholder link still has a message binding.
func (s *PlaceholderStore) Bound(placeholderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bindings[placeholderID]
	return ok
}

// SetWaiting marks or clears the animation-in-progress flag for a link.
func (s *PlaceholderStore) SetWaiting(placeholderID string, waiting bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if waiting {
		s.waiting[placeholderID] = true
	} else {
		delete(s.waiting, placeholderID)
	}
}

// Waiting reports whether the loading message for a link is still being
// updated.
func (s *PlaceholderStore) Waiting(placeholderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting[placeholderID]
}
