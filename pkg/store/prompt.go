// Package store holds the bridge's in-memory state: waiting prompts,
// execution contexts and placeholder bindings. All state is rebuilt from
// protocol traffic after a restart; nothing here persists.
package store

import (
	"sync"

	"github.com/vanlueckn/n8n-nodes-discord/pkg/message"
)

// PromptData is the live record of a sent prompt, keyed by the id of the
// message carrying it. Value stays empty until a user interaction resolves
// the prompt; at most one resolution is ever accepted.
type PromptData struct {
	Content                  string
	ExecutionID              string
	MentionRoles             []string
	RestrictToRoles          bool
	RestrictToTriggeringUser bool
	Components               message.Components

	// Filled on resolution.
	Value     string
	UserID    string
	ChannelID string

	done chan struct{}
}

// Done is closed once the prompt has been resolved by an interaction.
func (p *PromptData) Done() <-chan struct{} { return p.done }

// Resolved reports whether a value has been accepted.
func (p *PromptData) Resolved() bool { return p.Value != "" }

// PromptStore maps prompt message ids to their live prompt data.
type PromptStore struct {
	mu      sync.Mutex
	prompts map[string]*PromptData
}

// NewPromptStore creates an empty prompt store.
func NewPromptStore() *PromptStore {
	return &PromptStore{prompts: make(map[string]*PromptData)}
}

// Put registers prompt data under a message id.
func (s *PromptStore) Put(messageID string, pd *PromptData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pd.done = make(chan struct{})
	s.prompts[messageID] = pd
}

// Get returns the prompt data for a message id without removing it.
func (s *PromptStore) Get(messageID string) (*PromptData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pd, ok := s.prompts[messageID]
	return pd, ok
}

// Resolve records the first accepted interaction for a prompt. It returns
// false when the prompt is unknown or already resolved; the check and the
// write happen under one lock so two racing interactions cannot both win.
func (s *PromptStore) Resolve(messageID, value, userID, channelID string) (*PromptData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pd, ok := s.prompts[messageID]
	if !ok || pd.Value != "" {
		return nil, false
	}
	pd.Value = value
	pd.UserID = userID
	pd.ChannelID = channelID
	close(pd.done)
	return pd, true
}

// Take removes and returns the prompt data exactly once. The second caller
// for the same message id gets ok=false, which is how the interaction and
// timeout paths agree on a single cleanup.
func (s *PromptStore) Take(messageID string) (*PromptData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pd, ok := s.prompts[messageID]
	if ok {
		delete(s.prompts, messageID)
	}
	return pd, ok
}
