// Package session holds the authentication state machine observed by the
// rest of the application. It owns the current state and profile
// exclusively and drives the auth service on startup, login, logout, and
// refresh.
package session

import (
	"context"
	"sync"

	"github.com/evergrove/authfront/internal/auth"
	"github.com/evergrove/authfront/internal/log"
)

// State is the session's authentication status.
type State string

const (
	StateInitializing    State = "initializing"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
	StateLoggingOut      State = "logging_out"
)

// Snapshot is the observable session state handed to subscribers. User is
// nil unless State is StateAuthenticated.
type Snapshot struct {
	State State
	User  *auth.UserProfile
}

// Authenticated reports whether the snapshot represents a signed-in session.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated
}

// AuthService is the slice of the auth service the state machine drives.
// Narrowed to an interface so tests can substitute doubles.
type AuthService interface {
	InitiateLogin(ctx context.Context) error
	Logout(ctx context.Context) error
	ValidateSession(ctx context.Context) bool
	CurrentUser(ctx context.Context) *auth.UserProfile
}

// Manager is the session state machine.
type Manager struct {
	svc AuthService

	mu        sync.RWMutex
	state     State
	user      *auth.UserProfile
	observers []func(Snapshot)
}

// NewManager creates a manager in the initializing state.
func NewManager(svc AuthService) *Manager {
	return &Manager{
		svc:   svc,
		state: StateInitializing,
	}
}

// OnChange registers an observer invoked with a snapshot after every state
// transition. Observers are called outside the manager's lock.
func (m *Manager) OnChange(fn func(Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

// Snapshot returns the current state and profile.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{State: m.state, User: m.user}
}

func (m *Manager) transition(state State, user *auth.UserProfile) {
	m.mu.Lock()
	m.state = state
	m.user = user
	observers := append([]func(Snapshot){}, m.observers...)
	snap := Snapshot{State: state, User: user}
	m.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

// Start establishes the initial session state: it validates any stored
// session, resolves the profile, and lands on authenticated or
// unauthenticated.
func (m *Manager) Start(ctx context.Context) Snapshot {
	m.transition(StateInitializing, nil)

	if m.svc.ValidateSession(ctx) {
		if user := m.svc.CurrentUser(ctx); user != nil {
			log.LogInfoWithFields("session", "Session restored", map[string]any{
				"subject": user.Subject,
			})
			m.transition(StateAuthenticated, user)
			return m.Snapshot()
		}
	}

	m.transition(StateUnauthenticated, nil)
	return m.Snapshot()
}

// Login starts the login flow. On success the browser navigates away; the
// state machine observes no transition until the callback is processed.
func (m *Manager) Login(ctx context.Context) error {
	return m.svc.InitiateLogin(ctx)
}

// Logout ends the session. Even when the remote logout fails, the local
// state is forced to unauthenticated: an unrevoked-but-locally-cleared
// session is treated as logged out.
func (m *Manager) Logout(ctx context.Context) error {
	m.transition(StateLoggingOut, nil)

	err := m.svc.Logout(ctx)
	if err != nil {
		log.LogWarnWithFields("session", "Logout failed, clearing local state anyway", map[string]any{
			"error": err.Error(),
		})
	}

	m.transition(StateUnauthenticated, nil)
	return err
}

// RefreshUser re-resolves the profile and updates the state in place,
// without passing through initializing.
func (m *Manager) RefreshUser(ctx context.Context) Snapshot {
	if user := m.svc.CurrentUser(ctx); user != nil {
		m.transition(StateAuthenticated, user)
	} else {
		m.transition(StateUnauthenticated, nil)
	}
	return m.Snapshot()
}
