package models

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func TestUserPatch_Create(t *testing.T) {
	p, err := UserPatch{ID: Ptr("u-1"), Email: Ptr("a@b.c")}.Create(t0)
	require.NoError(t, err)

	assert.Equal(t, "u-1", p.ID)
	assert.Equal(t, "a@b.c", p.Email)
	assert.Equal(t, t0, p.CreatedAt)
	assert.Equal(t, VoiceNeutral, p.VoicePreference)

	_, err = UserPatch{Email: Ptr("a@b.c")}.Create(t0)
	require.ErrorIs(t, err, ErrInvalidPatch)
}

func TestUserPatch_ApplyMergesNamedFields(t *testing.T) {
	base := NewUserProfile("u-1", t0)
	base.DisplayName = "Ann"

	got, err := UserPatch{Email: Ptr("ann@example.com"), OnboardingComplete: Ptr(true)}.Apply(base)
	require.NoError(t, err)

	want := base.Clone()
	want.Email = "ann@example.com"
	want.OnboardingComplete = true
	assert.Empty(t, cmp.Diff(want, got))
}

func TestUserPatch_IDIsImmutable(t *testing.T) {
	base := NewUserProfile("u-1", t0)
	_, err := UserPatch{ID: Ptr("u-2")}.Apply(base)
	require.ErrorIs(t, err, ErrInvalidPatch)

	_, err = UserPatch{ID: Ptr("u-1")}.Apply(base)
	require.NoError(t, err)
}

func TestUserPatch_CreatedAtKeepsEarliest(t *testing.T) {
	base := NewUserProfile("u-1", t0)

	later, err := UserPatch{CreatedAt: Ptr(t0.Add(time.Hour))}.Apply(base)
	require.NoError(t, err)
	assert.Equal(t, t0, later.CreatedAt)

	earlier, err := UserPatch{CreatedAt: Ptr(t0.Add(-time.Hour))}.Apply(base)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(-time.Hour), earlier.CreatedAt)
}

func TestUserPatch_CheckPremiumHistory(t *testing.T) {
	base := NewUserProfile("u-1", t0)
	exp := t0.Add(30 * 24 * time.Hour)

	require.ErrorIs(t, UserPatch{PremiumExpiresAt: &exp}.CheckPremiumHistory(base), ErrInvalidPatch)
	require.ErrorIs(t, UserPatch{IsPremium: Ptr(false), PremiumExpiresAt: &exp}.CheckPremiumHistory(base), ErrInvalidPatch)
	require.NoError(t, UserPatch{DisplayName: Ptr("Bo")}.CheckPremiumHistory(base))

	upgrade := UserPatch{IsPremium: Ptr(true), PremiumExpiresAt: &exp}
	require.NoError(t, upgrade.CheckPremiumHistory(base))
	premium, err := upgrade.Apply(base)
	require.NoError(t, err)
	assert.True(t, premium.IsPremium)
	assert.Equal(t, exp, *premium.PremiumExpiresAt)

	// A lapsed subscriber keeps the expiry it once had and may get a new one.
	lapsed, err := UserPatch{IsPremium: Ptr(false)}.Apply(premium)
	require.NoError(t, err)
	require.NoError(t, UserPatch{PremiumExpiresAt: Ptr(exp.Add(time.Hour))}.CheckPremiumHistory(lapsed))
}

func TestUserPatch_CreateLapsedPremium(t *testing.T) {
	exp := t0.Add(-24 * time.Hour)
	p, err := UserPatch{
		ID:               Ptr("u-1"),
		CreatedAt:        Ptr(t0.Add(-48 * time.Hour)),
		DisplayName:      Ptr("Bea"),
		IsPremium:        Ptr(false),
		PremiumExpiresAt: &exp,
	}.Create(t0)
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.ID)
	assert.Equal(t, "Bea", p.DisplayName)
	assert.False(t, p.IsPremium)
	require.NotNil(t, p.PremiumExpiresAt)
	assert.Equal(t, exp, *p.PremiumExpiresAt)
}

func TestUserPatch_RejectsUnknownVoice(t *testing.T) {
	base := NewUserProfile("u-1", t0)
	got, err := UserPatch{VoicePreference: Ptr(VoicePreference("robot"))}.Apply(base)
	require.ErrorIs(t, err, ErrInvalidPatch)
	assert.Equal(t, base, got)
}

func TestUserPatch_Idempotent(t *testing.T) {
	base := NewUserProfile("u-1", t0)
	p := UserPatch{DisplayName: Ptr("Bo"), PhotoURL: Ptr("https://img/1.png"), CreatedAt: Ptr(t0.Add(-time.Minute))}

	once, err := p.Apply(base)
	require.NoError(t, err)
	twice, err := p.Apply(once)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(once, twice))
}

func TestUserProfile_CloneIsDeep(t *testing.T) {
	p := NewUserProfile("u-1", t0)
	p.PhotoURL = Ptr("a")
	c := p.Clone()
	*c.PhotoURL = "b"
	assert.Equal(t, "a", *p.PhotoURL)
}

func TestUserPatch_IsEmpty(t *testing.T) {
	assert.True(t, UserPatch{}.IsEmpty())
	assert.False(t, UserPatch{Email: Ptr("")}.IsEmpty())
}
