// Package models defines the client-side records of the mindshift app and
// their field-level merge rules.
package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPatch is returned when a patch fails validation. The whole patch
// is rejected in that case.
var ErrInvalidPatch = errors.New("invalid patch")

// VoicePreference selects the narration voice of guided meditations.
type VoicePreference string

const (
	VoiceMasculine VoicePreference = "masculine"
	VoiceFeminine  VoicePreference = "feminine"
	VoiceNeutral   VoicePreference = "neutral"
)

func (v VoicePreference) Valid() bool {
	switch v {
	case VoiceMasculine, VoiceFeminine, VoiceNeutral:
		return true
	}
	return false
}

// UserProfile is the identity and subscription state of the signed-in user.
//
// A profile with IsPremium set and a PremiumExpiresAt in the past is expired,
// not premium; expiry is evaluated lazily by readers (see package paywall).
type UserProfile struct {
	ID                 string          `json:"id"`
	Email              string          `json:"email"`
	DisplayName        string          `json:"displayName"`
	PhotoURL           *string         `json:"photoURL,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	IsPremium          bool            `json:"isPremium"`
	PremiumExpiresAt   *time.Time      `json:"premiumExpiresAt,omitempty"`
	VoicePreference    VoicePreference `json:"voicePreference"`
	OnboardingComplete bool            `json:"onboardingComplete"`
}

// NewUserProfile returns the profile created on first authentication.
func NewUserProfile(id string, createdAt time.Time) UserProfile {
	return UserProfile{
		ID:              id,
		CreatedAt:       createdAt.UTC(),
		VoicePreference: VoiceNeutral,
	}
}

// Clone returns a deep copy of p.
func (p UserProfile) Clone() UserProfile {
	out := p
	if p.PhotoURL != nil {
		v := *p.PhotoURL
		out.PhotoURL = &v
	}
	if p.PremiumExpiresAt != nil {
		v := *p.PremiumExpiresAt
		out.PremiumExpiresAt = &v
	}
	return out
}

// Validate checks the invariants a stored or merged profile must hold.
func (p UserProfile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: profile without id", ErrInvalidPatch)
	}
	if !p.VoicePreference.Valid() {
		return fmt.Errorf("%w: voice preference %q", ErrInvalidPatch, p.VoicePreference)
	}
	return nil
}

// UserPatch names the profile fields to change. Nil fields are left alone.
// The JSON form is the remote wire shape of the "profile" document.
type UserPatch struct {
	ID                 *string          `json:"id,omitempty"`
	Email              *string          `json:"email,omitempty"`
	DisplayName        *string          `json:"displayName,omitempty"`
	PhotoURL           *string          `json:"photoURL,omitempty"`
	CreatedAt          *time.Time       `json:"createdAt,omitempty"`
	IsPremium          *bool            `json:"isPremium,omitempty"`
	PremiumExpiresAt   *time.Time       `json:"premiumExpiresAt,omitempty"`
	VoicePreference    *VoicePreference `json:"voicePreference,omitempty"`
	OnboardingComplete *bool            `json:"onboardingComplete,omitempty"`
}

// IsEmpty reports whether the patch names no field.
func (u UserPatch) IsEmpty() bool {
	return u == UserPatch{}
}

// Create builds a profile from a patch when none exists yet. The patch must
// carry an id; a missing creation time defaults to now.
func (u UserPatch) Create(now time.Time) (UserProfile, error) {
	if u.ID == nil || *u.ID == "" {
		return UserProfile{}, fmt.Errorf("%w: new profile requires an id", ErrInvalidPatch)
	}
	created := now
	if u.CreatedAt != nil {
		created = *u.CreatedAt
	}
	base := NewUserProfile(*u.ID, created)
	patch := u
	patch.ID, patch.CreatedAt = nil, nil
	return patch.Apply(base)
}

// Apply merges the named fields into p and returns the result; p is not
// modified.
//
// The id never changes once set. The creation time is immutable in the sense
// that only an earlier value may replace it: two replicas that each stamped a
// creation time converge on the first one regardless of merge order.
func (u UserPatch) Apply(p UserProfile) (UserProfile, error) {
	out := p.Clone()

	if u.ID != nil && *u.ID != p.ID {
		return p, fmt.Errorf("%w: profile id is immutable", ErrInvalidPatch)
	}
	if u.CreatedAt != nil && (out.CreatedAt.IsZero() || u.CreatedAt.Before(out.CreatedAt)) {
		out.CreatedAt = u.CreatedAt.UTC()
	}
	if u.Email != nil {
		out.Email = *u.Email
	}
	if u.DisplayName != nil {
		out.DisplayName = *u.DisplayName
	}
	if u.PhotoURL != nil {
		v := *u.PhotoURL
		out.PhotoURL = &v
	}
	if u.IsPremium != nil {
		out.IsPremium = *u.IsPremium
	}
	if u.PremiumExpiresAt != nil {
		v := u.PremiumExpiresAt.UTC()
		out.PremiumExpiresAt = &v
	}
	if u.VoicePreference != nil {
		if !u.VoicePreference.Valid() {
			return p, fmt.Errorf("%w: voice preference %q", ErrInvalidPatch, *u.VoicePreference)
		}
		out.VoicePreference = *u.VoicePreference
	}
	if u.OnboardingComplete != nil {
		out.OnboardingComplete = *u.OnboardingComplete
	}

	return out, nil
}

// CheckPremiumHistory rejects a patch that sets a premium expiry on a profile
// that has never been premium and does not become premium with this patch.
//
// Only local updates go through it. A merged remote document already carries
// whatever history its writer had, so a lapsed profile (isPremium false with
// an expiry kept) is accepted as it is.
func (u UserPatch) CheckPremiumHistory(p UserProfile) error {
	if u.PremiumExpiresAt == nil {
		return nil
	}
	if p.IsPremium || p.PremiumExpiresAt != nil || (u.IsPremium != nil && *u.IsPremium) {
		return nil
	}
	return fmt.Errorf("%w: premium expiry on a non-premium profile", ErrInvalidPatch)
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
