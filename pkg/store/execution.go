package store

import "sync"

// ExecutionContext binds a workflow execution id to the conversation it
// runs in. PlaceholderID links the execution to a loading message, when one
// was requested.
type ExecutionContext struct {
	ChannelID     string
	UserID        string
	PlaceholderID string
}

// ExecutionStore maps execution ids to their contexts.
type ExecutionStore struct {
	mu         sync.RWMutex
	executions map[string]*ExecutionContext
}

// NewExecutionStore creates an empty execution store.
func NewExecutionStore() *ExecutionStore {
	return &ExecutionStore{executions: make(map[string]*ExecutionContext)}
}

// Put registers the context for an execution id, replacing any prior entry.
func (s *ExecutionStore) Put(executionID string, ctx *ExecutionContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.executions[executionID] = ctx
}

// Get returns the context for an execution id.
func (s *ExecutionStore) Get(executionID string) (*ExecutionContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctx, ok := s.executions[executionID]
	return ctx, ok
}

// Remove deletes the context for an execution id.
func (s *ExecutionStore) Remove(executionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.executions, executionID)
}
