// Package paywall decides whether premium content may be shown.
//
// The decision depends on the clock, so callers evaluate it on every check
// and never cache the result.
package paywall

import (
	"time"

	"github.com/dmitrijs2005/mindshift/internal/client/models"
)

// Reason explains a locked decision.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonNoProfile  Reason = "no_profile"
	ReasonNotPremium Reason = "not_premium"
	ReasonExpired    Reason = "expired"
)

type Decision struct {
	Unlocked bool
	Reason   Reason
}

// IsUnlocked reports whether profile grants premium access at now. A
// premium flag whose expiry has passed counts as expired, not premium.
func IsUnlocked(profile *models.UserProfile, now time.Time) bool {
	return Check(profile, now).Unlocked
}

func Check(profile *models.UserProfile, now time.Time) Decision {
	switch {
	case profile == nil:
		return Decision{Reason: ReasonNoProfile}
	case !profile.IsPremium:
		return Decision{Reason: ReasonNotPremium}
	case profile.PremiumExpiresAt != nil && !profile.PremiumExpiresAt.After(now):
		return Decision{Reason: ReasonExpired}
	}
	return Decision{Unlocked: true}
}
