// Package auth tracks the authenticated identity of the client.
//
// An IdentityProvider establishes identities; the Manager drives it through
// the session state machine, remembers the session token and tells
// listeners whenever the identity value changes.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Credential is the outcome of a successful sign-in.
type Credential struct {
	Identity  string
	Token     string
	Anonymous bool
	ExpiresAt time.Time
}

// IdentityProvider is the opaque capability that establishes identities.
//
// OnAuthStateChanged reports changes the provider observes on its own, such
// as a token expiring, with "" meaning signed out. Providers never invoke the
// callback from inside SignIn* or SignOut.
type IdentityProvider interface {
	SignInAnonymously(ctx context.Context) (Credential, error)
	SignInWithToken(ctx context.Context, token string) (Credential, error)
	SignOut(ctx context.Context) error
	OnAuthStateChanged(func(identity string)) (unsubscribe func())
}

// TokenProvider is a self-contained IdentityProvider issuing HS256 tokens.
// Anonymous identities are random UUIDs; the token keeps them stable across
// restarts until it expires.
type TokenProvider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	current   string
	timer     *time.Timer
	session   uint64
	listeners map[uint64]func(string)
	nextID    uint64
}

var _ IdentityProvider = (*TokenProvider)(nil)

func NewTokenProvider(secret []byte, ttl time.Duration) *TokenProvider {
	return &TokenProvider{
		secret:    secret,
		ttl:       ttl,
		now:       time.Now,
		listeners: map[uint64]func(string){},
	}
}

// Issue signs a token for a named account. It is how non-anonymous tokens
// come into existence in a deployment without an external identity service.
func (p *TokenProvider) Issue(userID string) (string, error) {
	return GenerateToken(userID, false, p.secret, p.now(), p.ttl)
}

func (p *TokenProvider) SignInAnonymously(ctx context.Context) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	id := uuid.NewString()
	now := p.now()
	token, err := GenerateToken(id, true, p.secret, now, p.ttl)
	if err != nil {
		return Credential{}, err
	}
	cred := Credential{Identity: id, Token: token, Anonymous: true, ExpiresAt: now.Add(p.ttl)}
	p.begin(cred)
	return cred, nil
}

func (p *TokenProvider) SignInWithToken(ctx context.Context, token string) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	claims, err := ParseToken(token, p.secret, p.now())
	if err != nil {
		return Credential{}, err
	}
	cred := Credential{
		Identity:  claims.UserID,
		Token:     token,
		Anonymous: claims.Anonymous,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	p.begin(cred)
	return cred, nil
}

func (p *TokenProvider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.current = ""
	return nil
}

func (p *TokenProvider) OnAuthStateChanged(fn func(identity string)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.listeners, id)
			p.mu.Unlock()
		})
	}
}

// Identity returns the identity of the live session or "".
func (p *TokenProvider) Identity() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *TokenProvider) begin(cred Credential) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.current = cred.Identity
	session := p.session

	wait := cred.ExpiresAt.Sub(p.now())
	p.timer = time.AfterFunc(max(wait, 0), func() { p.expire(session) })
}

func (p *TokenProvider) stopLocked() {
	p.session++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *TokenProvider) expire(session uint64) {
	p.mu.Lock()
	if session != p.session || p.current == "" {
		p.mu.Unlock()
		return
	}
	p.current = ""
	p.timer = nil
	listeners := make([]func(string), 0, len(p.listeners))
	for id := uint64(0); id < p.nextID; id++ {
		if l, ok := p.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	p.mu.Unlock()

	for _, l := range listeners {
		l("")
	}
}
