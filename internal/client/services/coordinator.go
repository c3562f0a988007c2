// Package services wires the client components together and holds the
// user-facing account operations.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/mindshift/internal/client/auth"
	"github.com/dmitrijs2005/mindshift/internal/client/models"
	"github.com/dmitrijs2005/mindshift/internal/client/remote"
	"github.com/dmitrijs2005/mindshift/internal/client/remotesync"
	"github.com/dmitrijs2005/mindshift/internal/client/store"
	"github.com/dmitrijs2005/mindshift/internal/logging"
)

const reconcileTimeout = 10 * time.Second

// Syncer is the part of the sync adapter the coordinator drives.
type Syncer interface {
	Attach(identity string) error
	Detach()
	Push(docID string, fields remote.Fields) error
	Fetch(ctx context.Context, docID string) (remote.Fields, error)
}

var _ Syncer = (*remotesync.Adapter)(nil)

// IdentitySource is the part of the auth manager the coordinator listens to.
type IdentitySource interface {
	OnIdentityChange(auth.IdentityListener) (unsubscribe func())
}

// Coordinator moves the sync scope and the store along with the identity.
//
// On every identity change it detaches the old scope, clears the store
// unless the state already belongs to the new identity, attaches the new
// scope and makes sure the remote profile exists.
type Coordinator struct {
	store  *store.Store
	sync   Syncer
	logger logging.Logger
	now    func() time.Time

	unsubscribe func()
}

func NewCoordinator(st *store.Store, s Syncer, logger logging.Logger) *Coordinator {
	return &Coordinator{
		store:  st,
		sync:   s,
		logger: logger.With("component", "coordinator"),
		now:    time.Now,
	}
}

// Bind starts following src. Call it before src can change identity.
func (c *Coordinator) Bind(src IdentitySource) {
	c.unsubscribe = src.OnIdentityChange(c.HandleIdentityChange)
}

// Close stops following identity changes and detaches the sync scope.
func (c *Coordinator) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.sync.Detach()
}

// HandleIdentityChange is the auth.IdentityListener of the coordinator.
func (c *Coordinator) HandleIdentityChange(prev, next string) {
	ctx := context.Background()

	c.sync.Detach()

	// Rehydrated state of the same identity survives startup; anything else
	// is cleared before the new scope can deliver.
	cur := c.store.Get()
	if prev != "" || next == "" || (cur.User != nil && cur.User.ID != next) {
		c.store.Reset()
	}
	if next == "" {
		return
	}

	if err := c.sync.Attach(next); err != nil {
		c.logger.Error(ctx, "attach sync scope", "identity", next, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()
	c.reconcile(ctx, next)
}

// reconcile seeds the remote profile and settings of a scope that has
// none. A missing local profile is created first. A remote profile without
// an id cannot create a local one, so it is repaired the same way.
func (c *Coordinator) reconcile(ctx context.Context, identity string) {
	c.setLoading(true)
	defer c.setLoading(false)

	fields, err := c.sync.Fetch(ctx, remote.DocProfile)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		if !c.seedProfile(ctx, identity, nil) {
			return
		}
	case err != nil:
		c.logger.Warn(ctx, "fetch profile", "identity", identity, "error", err)
		return
	default:
		if id, _ := fields["id"].(string); id == "" {
			c.logger.Warn(ctx, "remote profile without id", "identity", identity)
			if !c.seedProfile(ctx, identity, fields) {
				return
			}
		}
	}

	_, err = c.sync.Fetch(ctx, remote.DocSettings)
	switch {
	case errors.Is(err, remote.ErrNotFound):
		c.push(ctx, remote.DocSettings, settingsPatch(c.store.Get().Settings))
	case err != nil:
		c.logger.Warn(ctx, "fetch settings", "identity", identity, "error", err)
	}
}

// seedProfile makes sure the store holds a profile for identity, built from
// remote fields when given, and pushes the full profile.
func (c *Coordinator) seedProfile(ctx context.Context, identity string, fields remote.Fields) bool {
	st := c.store.Get()
	if st.User == nil {
		var u models.UserPatch
		if fields != nil {
			p, err := PatchFromDocument(remote.DocProfile, fields)
			if err != nil {
				c.logger.Warn(ctx, "decode remote profile", "identity", identity, "error", err)
			} else if p.User != nil {
				u = *p.User
			}
		}
		u.ID = &identity
		if u.CreatedAt == nil {
			now := c.now().UTC()
			u.CreatedAt = &now
		}
		var err error
		st, err = c.store.Set(store.Patch{User: &u})
		if err != nil {
			c.logger.Error(ctx, "create profile", "identity", identity, "error", err)
			return false
		}
		c.logger.Info(ctx, "profile created", "identity", identity)
	}
	c.push(ctx, remote.DocProfile, profilePatch(*st.User))
	return true
}

func (c *Coordinator) push(ctx context.Context, docID string, patch any) {
	fields, err := remote.Encode(patch)
	if err != nil {
		c.logger.Error(ctx, "encode document", "doc", docID, "error", err)
		return
	}
	if err := c.sync.Push(docID, fields); err != nil {
		c.logger.Warn(ctx, "push document", "doc", docID, "error", err)
	}
}

func (c *Coordinator) setLoading(v bool) {
	if _, err := c.store.Set(store.Patch{Loading: &v}); err != nil {
		c.logger.Error(context.Background(), "set loading", "error", err)
	}
}

// SyncingReporter returns a remotesync.Options.OnBusy callback mirroring the
// adapter's activity into the store's Syncing flag.
func SyncingReporter(st *store.Store) func(bool) {
	return func(busy bool) {
		_, _ = st.Set(store.Patch{Syncing: &busy})
	}
}

func profilePatch(p models.UserProfile) models.UserPatch {
	u := models.UserPatch{
		ID:                 &p.ID,
		Email:              &p.Email,
		DisplayName:        &p.DisplayName,
		PhotoURL:           p.PhotoURL,
		CreatedAt:          &p.CreatedAt,
		IsPremium:          &p.IsPremium,
		PremiumExpiresAt:   p.PremiumExpiresAt,
		VoicePreference:    &p.VoicePreference,
		OnboardingComplete: &p.OnboardingComplete,
	}
	return u
}

func settingsPatch(s models.UserSettings) models.SettingsPatch {
	return models.SettingsPatch{
		Notifications: &models.NotificationsPatch{
			DailyReminder:      &s.Notifications.DailyReminder,
			StreakAlerts:       &s.Notifications.StreakAlerts,
			WeeklyReport:       &s.Notifications.WeeklyReport,
			MeditationReminder: &s.Notifications.MeditationReminder,
		},
		DailyRhythm: &models.DailyRhythmPatch{
			WakeTime:     &s.DailyRhythm.WakeTime,
			WindDownTime: &s.DailyRhythm.WindDownTime,
			ActiveDays:   &s.DailyRhythm.ActiveDays,
		},
		Preferences: &models.PreferencesPatch{
			Theme:          &s.Preferences.Theme,
			HapticFeedback: &s.Preferences.HapticFeedback,
			SoundEffects:   &s.Preferences.SoundEffects,
		},
	}
}
