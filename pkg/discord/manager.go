package discord

import (
	"sync"

	"github.com/vanlueckn/n8n-nodes-discord/pkg/logger"
)

// Status is the outcome of a credential negotiation, reported verbatim to
// the requesting workflow process.
type Status string

const (
	StatusReady   Status = "ready"
	StatusError   Status = "error"
	StatusMissing Status = "missing"
	StatusLogin   Status = "login"
	StatusAlready Status = "already"
)

type connState int

const (
	stateIdle connState = iota
	stateLoggingIn
	stateReady
)

// Manager owns the login lifecycle. It guarantees a single in-flight login,
// rejects duplicate credentials with a distinct status, and tears down the
// old session before attempting a login with different credentials.
type Manager struct {
	mu      sync.Mutex
	factory Factory

	state    connState
	token    string
	clientID string
	session  Session

	onMessage     []func(MessageEvent)
	onInteraction []func(InteractionEvent)
}

// NewManager creates a manager that builds sessions with factory.
func NewManager(factory Factory) *Manager {
	return &Manager{factory: factory}
}

// HandleMessages registers a handler attached to every future session.
func (m *Manager) HandleMessages(fn func(MessageEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onMessage = append(m.onMessage, fn)
}

// HandleInteractions registers a handler attached to every future session.
func (m *Manager) HandleInteractions(fn func(InteractionEvent)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onInteraction = append(m.onInteraction, fn)
}

// Negotiate processes a credentials request and returns its status.
func (m *Manager) Negotiate(token, clientID string) Status {
	m.mu.Lock()

	switch {
	case m.state == stateLoggingIn:
		m.mu.Unlock()
		logger.InfoC("manager", "Credentials rejected, login in flight")
		return StatusLogin

	case m.state == stateReady && m.token == token && m.clientID == clientID:
		m.mu.Unlock()
		return StatusAlready
	}

	if token == "" || clientID == "" {
		m.mu.Unlock()
		logger.WarnC("manager", "Credentials missing")
		return StatusMissing
	}

	// New or changed credentials: tear down whatever we had and log in.
	old := m.session
	m.session = nil
	m.state = stateLoggingIn
	m.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			logger.WarnCF("manager", "Closing previous session failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	session, err := m.login(token)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = stateIdle
		logger.ErrorCF("manager", "Login failed", map[string]interface{}{
			"error": err.Error(),
		})
		return StatusError
	}

	m.state = stateReady
	m.token = token
	m.clientID = clientID
	m.session = session
	logger.InfoC("manager", "Credentials ready")
	return StatusReady
}

func (m *Manager) login(token string) (Session, error) {
	session, err := m.factory(token)
	if err != nil {
		return nil, err
	}

	session.OnMessage(m.dispatchMessage)
	session.OnInteraction(m.dispatchInteraction)

	if err := session.Open(); err != nil {
		return nil, err
	}
	return session, nil
}

// Ready reports whether the connection is established and authenticated.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == stateReady
}

// Session returns the current session, or false when not ready.
func (m *Manager) Session() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != stateReady || m.session == nil {
		return nil, false
	}
	return m.session, true
}

// Close tears down the current session, if any.
func (m *Manager) Close() {
	m.mu.Lock()
	session := m.session
	m.session = nil
	m.state = stateIdle
	m.mu.Unlock()

	if session != nil {
		session.Close()
	}
}

// Event handlers run on the SDK's dispatch goroutine; a panic in one
// handler must not take down the connection.
func (m *Manager) dispatchMessage(ev MessageEvent) {
	m.mu.Lock()
	handlers := m.onMessage
	m.mu.Unlock()
	for _, fn := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorCF("manager", "Message handler panicked", map[string]interface{}{
						"panic": r,
					})
				}
			}()
			fn(ev)
		}()
	}
}

func (m *Manager) dispatchInteraction(ev InteractionEvent) {
	m.mu.Lock()
	handlers := m.onInteraction
	m.mu.Unlock()
	for _, fn := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorCF("manager", "Interaction handler panicked", map[string]interface{}{
						"panic": r,
					})
				}
			}()
			fn(ev)
		}()
	}
}
