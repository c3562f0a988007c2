package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mindshift/internal/client/models"
	"github.com/dmitrijs2005/mindshift/internal/client/remote"
	"github.com/dmitrijs2005/mindshift/internal/client/remotesync"
	"github.com/dmitrijs2005/mindshift/internal/client/store"
	"github.com/dmitrijs2005/mindshift/internal/common"
	"github.com/dmitrijs2005/mindshift/internal/logging"
	"github.com/google/uuid"
)

var (
	// ErrNoProfile is returned by profile operations before sign-in.
	ErrNoProfile = errors.New("no user profile")

	// ErrAlreadyCheckedIn is returned by CheckInGoal for a second check-in on
	// the same day.
	ErrAlreadyCheckedIn = errors.New("already checked in today")
)

// AccountService applies user actions to local state and pushes each change
// to the remote document it belongs to. Local state changes first; remote
// delivery is asynchronous.
type AccountService interface {
	UpdateUser(ctx context.Context, patch models.UserPatch) error
	UpgradeToPremium(ctx context.Context, expiresAt *time.Time) error
	CompleteOnboarding(ctx context.Context) error
	SetVoicePreference(ctx context.Context, v models.VoicePreference) error
	UpdateSettings(ctx context.Context, patch models.SettingsPatch) error

	AddGoal(ctx context.Context, title, category string, targetDays int) (models.Goal, error)
	CheckInGoal(ctx context.Context, id string) (models.Goal, error)
	DeleteGoal(ctx context.Context, id string) error

	AddJournalEntry(ctx context.Context, body string, mood int, tags []string) (models.JournalEntry, error)
	DeleteJournalEntry(ctx context.Context, id string) error
}

type accountService struct {
	store  *store.Store
	sync   Syncer
	logger logging.Logger
	now    func() time.Time
	loc    *time.Location
}

func NewAccountService(st *store.Store, s Syncer, logger logging.Logger) AccountService {
	return &accountService{
		store:  st,
		sync:   s,
		logger: logger.With("component", "account"),
		now:    time.Now,
		loc:    time.Local,
	}
}

func (s *accountService) UpdateUser(ctx context.Context, patch models.UserPatch) error {
	cur := s.store.Get().User
	if cur == nil {
		return ErrNoProfile
	}
	if patch.IsEmpty() {
		return nil
	}
	if err := patch.CheckPremiumHistory(*cur); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if _, err := s.store.Set(store.Patch{User: &patch}); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	s.push(ctx, remote.DocProfile, patch)
	return nil
}

// UpgradeToPremium marks the user premium until expiresAt, or indefinitely
// when expiresAt is nil.
func (s *accountService) UpgradeToPremium(ctx context.Context, expiresAt *time.Time) error {
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return fmt.Errorf("%w: premium expiry in the past", models.ErrInvalidPatch)
	}
	return s.UpdateUser(ctx, models.UserPatch{IsPremium: models.Ptr(true), PremiumExpiresAt: expiresAt})
}

func (s *accountService) CompleteOnboarding(ctx context.Context) error {
	return s.UpdateUser(ctx, models.UserPatch{OnboardingComplete: models.Ptr(true)})
}

func (s *accountService) SetVoicePreference(ctx context.Context, v models.VoicePreference) error {
	return s.UpdateUser(ctx, models.UserPatch{VoicePreference: &v})
}

func (s *accountService) UpdateSettings(ctx context.Context, patch models.SettingsPatch) error {
	if patch == (models.SettingsPatch{}) {
		return nil
	}
	if _, err := s.store.Set(store.Patch{Settings: &patch}); err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	s.push(ctx, remote.DocSettings, patch)
	return nil
}

func (s *accountService) AddGoal(ctx context.Context, title, category string, targetDays int) (models.Goal, error) {
	id := uuid.NewString()
	now := s.now().UTC()
	patch := models.GoalPatch{
		Title:      &title,
		Category:   &category,
		TargetDays: &targetDays,
		Streak:     models.Ptr(0),
		BestStreak: models.Ptr(0),
		Completed:  models.Ptr(false),
		CreatedAt:  &now,
	}
	st, err := s.store.Set(store.Patch{Goals: map[string]models.GoalPatch{id: patch}})
	if err != nil {
		return models.Goal{}, fmt.Errorf("add goal: %w", err)
	}
	s.push(ctx, remote.GoalDoc(id), patch)
	return st.Goals[id], nil
}

func (s *accountService) CheckInGoal(ctx context.Context, id string) (models.Goal, error) {
	g, ok := s.store.Get().Goals[id]
	if !ok {
		return models.Goal{}, fmt.Errorf("goal %s: %w", id, common.ErrNotFound)
	}
	patch, ok := g.CheckIn(s.now(), s.loc)
	if !ok {
		return g, ErrAlreadyCheckedIn
	}
	st, err := s.store.Set(store.Patch{Goals: map[string]models.GoalPatch{id: patch}})
	if err != nil {
		return models.Goal{}, fmt.Errorf("check in goal: %w", err)
	}
	s.push(ctx, remote.GoalDoc(id), patch)
	return st.Goals[id], nil
}

func (s *accountService) DeleteGoal(ctx context.Context, id string) error {
	if _, ok := s.store.Get().Goals[id]; !ok {
		return fmt.Errorf("goal %s: %w", id, common.ErrNotFound)
	}
	patch := models.GoalPatch{Deleted: models.Ptr(true)}
	if _, err := s.store.Set(store.Patch{Goals: map[string]models.GoalPatch{id: patch}}); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	s.push(ctx, remote.GoalDoc(id), patch)
	return nil
}

func (s *accountService) AddJournalEntry(ctx context.Context, body string, mood int, tags []string) (models.JournalEntry, error) {
	id := uuid.NewString()
	now := s.now().UTC()
	patch := models.JournalPatch{Body: &body, Mood: &mood, CreatedAt: &now}
	if len(tags) > 0 {
		patch.Tags = &tags
	}
	st, err := s.store.Set(store.Patch{Journal: map[string]models.JournalPatch{id: patch}})
	if err != nil {
		return models.JournalEntry{}, fmt.Errorf("add journal entry: %w", err)
	}
	s.push(ctx, remote.JournalDoc(id), patch)
	return st.Journal[id], nil
}

func (s *accountService) DeleteJournalEntry(ctx context.Context, id string) error {
	if _, ok := s.store.Get().Journal[id]; !ok {
		return fmt.Errorf("journal entry %s: %w", id, common.ErrNotFound)
	}
	patch := models.JournalPatch{Deleted: models.Ptr(true)}
	if _, err := s.store.Set(store.Patch{Journal: map[string]models.JournalPatch{id: patch}}); err != nil {
		return fmt.Errorf("delete journal entry: %w", err)
	}
	s.push(ctx, remote.JournalDoc(id), patch)
	return nil
}

// push hands the patch to the sync adapter. Without an attached scope the
// change stays local.
func (s *accountService) push(ctx context.Context, docID string, patch any) {
	fields, err := remote.Encode(patch)
	if err != nil {
		s.logger.Error(ctx, "encode document", "doc", docID, "error", err)
		return
	}
	err = s.sync.Push(docID, fields)
	switch {
	case errors.Is(err, remotesync.ErrNotAttached):
		s.logger.Debug(ctx, "not attached, change kept local", "doc", docID)
	case err != nil:
		s.logger.Warn(ctx, "push document", "doc", docID, "error", err)
	}
}
