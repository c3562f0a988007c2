package paywall

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/mindshift/internal/client/models"
	"github.com/stretchr/testify/assert"
)

func TestCheck(t *testing.T) {
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(24 * time.Hour)

	tests := []struct {
		name    string
		profile *models.UserProfile
		want    Decision
	}{
		{"no profile", nil, Decision{Reason: ReasonNoProfile}},
		{"not premium", &models.UserProfile{ID: "u"}, Decision{Reason: ReasonNotPremium}},
		{"premium without expiry", &models.UserProfile{ID: "u", IsPremium: true}, Decision{Unlocked: true}},
		{"premium expired", &models.UserProfile{ID: "u", IsPremium: true, PremiumExpiresAt: &past}, Decision{Reason: ReasonExpired}},
		{"premium expiring now", &models.UserProfile{ID: "u", IsPremium: true, PremiumExpiresAt: &now}, Decision{Reason: ReasonExpired}},
		{"premium in future", &models.UserProfile{ID: "u", IsPremium: true, PremiumExpiresAt: &future}, Decision{Unlocked: true}},
		{"lapsed flag with future expiry", &models.UserProfile{ID: "u", IsPremium: false, PremiumExpiresAt: &future}, Decision{Reason: ReasonNotPremium}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Check(tt.profile, now))
			assert.Equal(t, tt.want.Unlocked, IsUnlocked(tt.profile, now))
		})
	}
}

func TestIsUnlocked_IsReevaluatedAgainstTheClock(t *testing.T) {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	exp := start.Add(time.Hour)
	p := &models.UserProfile{ID: "u", IsPremium: true, PremiumExpiresAt: &exp}

	assert.True(t, IsUnlocked(p, start))
	assert.False(t, IsUnlocked(p, start.Add(2*time.Hour)))
	assert.True(t, p.IsPremium, "expiry is lazy: the profile is not modified")
}
