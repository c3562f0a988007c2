package auth

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/mindshift/internal/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenProvider_AnonymousIdentitySurvivesRestart(t *testing.T) {
	secret := []byte("s3cret")
	p := NewTokenProvider(secret, time.Hour)

	cred, err := p.SignInAnonymously(context.Background())
	require.NoError(t, err)
	assert.True(t, cred.Anonymous)
	_, err = uuid.Parse(cred.Identity)
	require.NoError(t, err)
	require.NoError(t, p.SignOut(context.Background()))

	restarted := NewTokenProvider(secret, time.Hour)
	again, err := restarted.SignInWithToken(context.Background(), cred.Token)
	require.NoError(t, err)
	assert.Equal(t, cred.Identity, again.Identity)
	assert.True(t, again.Anonymous)
	assert.Equal(t, cred.Identity, restarted.Identity())
	require.NoError(t, restarted.SignOut(context.Background()))
}

func TestTokenProvider_IssuedTokenNamesAccount(t *testing.T) {
	p := NewTokenProvider([]byte("k"), time.Hour)

	tok, err := p.Issue("alice")
	require.NoError(t, err)

	cred, err := p.SignInWithToken(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "alice", cred.Identity)
	assert.False(t, cred.Anonymous)
	require.NoError(t, p.SignOut(context.Background()))
}

func TestTokenProvider_RejectsForeignToken(t *testing.T) {
	other := NewTokenProvider([]byte("other"), time.Hour)
	tok, err := other.Issue("mallory")
	require.NoError(t, err)

	p := NewTokenProvider([]byte("mine"), time.Hour)
	_, err = p.SignInWithToken(context.Background(), tok)
	require.ErrorIs(t, err, common.ErrInvalidToken)
	assert.Empty(t, p.Identity())
}

func TestTokenProvider_ExpiryReportedAsynchronously(t *testing.T) {
	p := NewTokenProvider([]byte("k"), time.Hour)
	base := time.Now().Truncate(time.Second)
	p.now = func() time.Time { return base }

	got := make(chan string, 1)
	unsubscribe := p.OnAuthStateChanged(func(identity string) { got <- identity })
	defer unsubscribe()

	tok, err := p.Issue("bob")
	require.NoError(t, err)

	// Verification happens at base; the timer is armed for the remaining
	// lifetime as seen from a clock that has almost run out.
	p.now = func() time.Time { return base.Add(time.Hour - 20*time.Millisecond) }
	_, err = p.SignInWithToken(context.Background(), tok)
	require.NoError(t, err)

	select {
	case id := <-got:
		assert.Empty(t, id)
	case <-time.After(2 * time.Second):
		t.Fatal("expiry not reported")
	}
	assert.Empty(t, p.Identity())
}

func TestTokenProvider_SignOutDisarmsExpiry(t *testing.T) {
	p := NewTokenProvider([]byte("k"), 20*time.Millisecond)
	fired := make(chan string, 1)
	defer p.OnAuthStateChanged(func(identity string) { fired <- identity })()

	_, err := p.SignInAnonymously(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.SignOut(context.Background()))

	select {
	case <-fired:
		t.Fatal("expiry fired after sign out")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestTokenProvider_CancelledContext(t *testing.T) {
	p := NewTokenProvider([]byte("k"), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.SignInAnonymously(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
