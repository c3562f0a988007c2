package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/mindshift/internal/common"
	"github.com/dmitrijs2005/mindshift/internal/logging"
)

// State is the session state.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IdentityListener is told about every change of the identity value, "" for
// signed out. Listeners run synchronously in transition order and may block
// the transition; they must not call back into the Manager.
type IdentityListener func(prev, next string)

type Manager struct {
	provider IdentityProvider
	tokens   TokenStore
	logger   logging.Logger

	// opMu serializes transitions, including provider-reported ones.
	opMu sync.Mutex

	mu        sync.Mutex
	state     State
	identity  string
	anonymous bool
	listeners map[uint64]IdentityListener
	nextID    uint64

	unsubscribe func()
}

func NewManager(provider IdentityProvider, tokens TokenStore, logger logging.Logger) *Manager {
	m := &Manager{
		provider:  provider,
		tokens:    tokens,
		logger:    logger.With("component", "auth"),
		listeners: map[uint64]IdentityListener{},
	}
	m.unsubscribe = provider.OnAuthStateChanged(m.providerChanged)
	return m
}

// Close detaches the manager from its provider.
func (m *Manager) Close() {
	m.unsubscribe()
}

// Start signs in silently with the stored token, falling back to a new
// anonymous identity. On failure the manager stays unauthenticated and the
// error wraps common.ErrAuthFailure.
func (m *Manager) Start(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	prev := m.setState(StateAuthenticating)

	token, err := m.tokens.Load(ctx)
	if err != nil {
		m.logger.Warn(ctx, "stored session unreadable", "error", err)
		token = ""
	}

	if token != "" {
		cred, err := m.provider.SignInWithToken(ctx, token)
		if err == nil {
			m.commit(ctx, cred)
			return nil
		}
		m.logger.Info(ctx, "stored session rejected", "error", err)
		if err := m.tokens.Clear(ctx); err != nil {
			m.logger.Warn(ctx, "clear stored session", "error", err)
		}
	}

	cred, err := m.provider.SignInAnonymously(ctx)
	if err != nil {
		m.restore(prev)
		return fmt.Errorf("%w: %w", common.ErrAuthFailure, err)
	}
	m.commit(ctx, cred)
	return nil
}

// SignInWithToken switches to the identity token vouches for. A failed
// attempt leaves the current session untouched.
func (m *Manager) SignInWithToken(ctx context.Context, token string) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	prev := m.setState(StateAuthenticating)
	cred, err := m.provider.SignInWithToken(ctx, token)
	if err != nil {
		m.restore(prev)
		return fmt.Errorf("%w: %w", common.ErrAuthFailure, err)
	}
	m.commit(ctx, cred)
	return nil
}

// SignInAnonymously switches to a fresh anonymous identity.
func (m *Manager) SignInAnonymously(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	prev := m.setState(StateAuthenticating)
	cred, err := m.provider.SignInAnonymously(ctx)
	if err != nil {
		m.restore(prev)
		return fmt.Errorf("%w: %w", common.ErrAuthFailure, err)
	}
	m.commit(ctx, cred)
	return nil
}

// Logout signs out and forgets the stored token.
func (m *Manager) Logout(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Warn(ctx, "provider sign out", "error", err)
	}
	if err := m.tokens.Clear(ctx); err != nil {
		m.logger.Warn(ctx, "clear stored session", "error", err)
	}
	m.transition(ctx, StateUnauthenticated, "", false)
	return nil
}

// CurrentIdentity returns the authenticated identity. While a sign-in is in
// progress the previous identity is still reported.
func (m *Manager) CurrentIdentity() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity, m.identity != ""
}

// Anonymous reports whether the current identity is anonymous.
func (m *Manager) Anonymous() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.anonymous
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) OnIdentityChange(l IdentityListener) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) providerChanged(identity string) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	ctx := context.Background()
	cur, _ := m.CurrentIdentity()
	if identity == cur {
		return
	}
	if identity == "" {
		m.logger.Info(ctx, "session invalidated", "identity", cur)
		if err := m.tokens.Clear(ctx); err != nil {
			m.logger.Warn(ctx, "clear stored session", "error", err)
		}
		m.transition(ctx, StateUnauthenticated, "", false)
		return
	}
	// A provider switching identity on its own has no token to hand over;
	// follow it so scopes stay consistent.
	m.transition(ctx, StateAuthenticated, identity, false)
}

func (m *Manager) commit(ctx context.Context, cred Credential) {
	if err := m.tokens.Save(ctx, cred.Token); err != nil {
		m.logger.Warn(ctx, "session token not stored", "error", err)
	}
	m.transition(ctx, StateAuthenticated, cred.Identity, cred.Anonymous)
}

func (m *Manager) setState(s State) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.state
	m.state = s
	return prev
}

func (m *Manager) restore(prev State) {
	m.setState(prev)
}

func (m *Manager) transition(ctx context.Context, s State, identity string, anonymous bool) {
	m.mu.Lock()
	prev := m.identity
	m.state = s
	m.identity = identity
	m.anonymous = anonymous
	var listeners []IdentityListener
	if prev != identity {
		for id := uint64(0); id < m.nextID; id++ {
			if l, ok := m.listeners[id]; ok {
				listeners = append(listeners, l)
			}
		}
	}
	m.mu.Unlock()

	if prev == identity {
		return
	}
	m.logger.Info(ctx, "identity changed", "from", prev, "to", identity, "state", s.String())
	for _, l := range listeners {
		l(prev, identity)
	}
}
