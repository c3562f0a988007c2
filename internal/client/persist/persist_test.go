package persist

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/mindshift/internal/client/localdb"
	"github.com/dmitrijs2005/mindshift/internal/client/models"
	"github.com/dmitrijs2005/mindshift/internal/client/repositories/snapshot"
	"github.com/dmitrijs2005/mindshift/internal/client/store"
	"github.com/dmitrijs2005/mindshift/internal/common"
	"github.com/dmitrijs2005/mindshift/internal/logging"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type memRepo struct {
	mu      sync.Mutex
	data    map[string][]byte
	sets    int
	failSet error
	getErr  error
	block   chan struct{}
}

func newMemRepo() *memRepo { return &memRepo{data: map[string][]byte{}} }

func (m *memRepo) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.data[key], nil
}

func (m *memRepo) Set(ctx context.Context, key string, value []byte) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.failSet != nil {
		return m.failSet
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memRepo) Delete(ctx context.Context, key string) error { return nil }
func (m *memRepo) List(ctx context.Context) (map[string][]byte, error) {
	return nil, nil
}
func (m *memRepo) Clear(ctx context.Context) error { return nil }

func (m *memRepo) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

func newWriter(t *testing.T, repo snapshot.Repository) *Writer {
	t.Helper()
	w := NewWriter(repo, logging.Nop())
	t.Cleanup(func() { _ = w.Close(context.Background()) })
	return w
}

func flush(t *testing.T, w *Writer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, w.Flush(ctx))
}

func TestWriter_RoundTripThroughSQLite(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "state.db")

	db, err := localdb.Open(ctx, dsn)
	require.NoError(t, err)
	repo := snapshot.NewSQLiteRepository(db)

	s := store.New(Load(ctx, repo, logging.Nop()))
	w := NewWriter(repo, logging.Nop())
	w.Seed(s.Get())
	w.Register(s)

	exp := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = s.Set(store.Patch{
		User: &models.UserPatch{
			ID:               models.Ptr("u-1"),
			Email:            models.Ptr("ann@example.com"),
			IsPremium:        models.Ptr(true),
			PremiumExpiresAt: &exp,
			PhotoURL:         models.Ptr("https://img/ann.png"),
		},
		Settings: &models.SettingsPatch{
			DailyRhythm: &models.DailyRhythmPatch{ActiveDays: &[]int{1, 2, 3}},
			Preferences: &models.PreferencesPatch{Theme: models.Ptr(models.ThemeDark)},
		},
		Loading: models.Ptr(true),
	})
	require.NoError(t, err)
	flush(t, w)
	require.NoError(t, w.Close(ctx))
	before := s.Get()
	require.NoError(t, db.Close())

	db2, err := localdb.Open(ctx, dsn)
	require.NoError(t, err)
	defer db2.Close()

	after := Load(ctx, snapshot.NewSQLiteRepository(db2), logging.Nop())
	assert.Empty(t, cmp.Diff(before.PersistedSubset(), after.PersistedSubset()))
	assert.False(t, after.Loading, "transient fields are not persisted")
}

func TestWriter_SkipsMutationsOutsidePersistedSubset(t *testing.T) {
	repo := newMemRepo()
	s := store.New(store.DefaultState())
	w := newWriter(t, repo)
	w.Seed(s.Get())
	w.Register(s)

	_, err := s.Set(store.Patch{Loading: models.Ptr(true)})
	require.NoError(t, err)
	_, err = s.Set(store.Patch{Goals: map[string]models.GoalPatch{"g": {Title: models.Ptr("x")}}})
	require.NoError(t, err)
	flush(t, w)
	assert.Zero(t, repo.setCount())

	_, err = s.Set(store.Patch{Settings: &models.SettingsPatch{
		Preferences: &models.PreferencesPatch{SoundEffects: models.Ptr(false)},
	}})
	require.NoError(t, err)
	flush(t, w)
	assert.Equal(t, 1, repo.setCount())
}

func TestWriter_CoalescesBurstsAndNeverBlocksCaller(t *testing.T) {
	repo := newMemRepo()
	repo.block = make(chan struct{})
	s := store.New(store.DefaultState())
	w := newWriter(t, repo)
	w.Register(s)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, wake := range []string{"05:00", "05:30", "06:00", "06:30"} {
			_, _ = s.Set(store.Patch{Settings: &models.SettingsPatch{
				DailyRhythm: &models.DailyRhythmPatch{WakeTime: models.Ptr(wake)},
			}})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Set blocked on a durable write")
	}

	close(repo.block)
	flush(t, w)

	assert.LessOrEqual(t, repo.setCount(), 2)
	raw, _ := repo.Get(context.Background(), common.StateSnapshotKey)
	p, err := decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "06:30", p.Settings.DailyRhythm.WakeTime)
}

func TestWriter_FailureIsLoggedNotThrown(t *testing.T) {
	repo := newMemRepo()
	repo.failSet = errors.New("disk full")
	s := store.New(store.DefaultState())
	w := newWriter(t, repo)
	w.Register(s)

	snap, err := s.Set(store.Patch{User: &models.UserPatch{ID: models.Ptr("u-1")}})
	require.NoError(t, err)
	flush(t, w)

	assert.Equal(t, 1, repo.setCount())
	assert.Equal(t, "u-1", snap.User.ID)
	assert.Equal(t, "u-1", s.Get().User.ID, "in-memory state unaffected")
}

func TestWriter_IgnoresStaleRevisions(t *testing.T) {
	repo := newMemRepo()
	w := newWriter(t, repo)

	newer := store.DefaultState()
	newer.Revision = 5
	newer.Settings.Preferences.Theme = models.ThemeDark
	older := store.DefaultState()
	older.Revision = 4
	older.Settings.Preferences.Theme = models.ThemeLight

	w.Observe(newer)
	w.Observe(older)
	flush(t, w)

	raw, _ := repo.Get(context.Background(), common.StateSnapshotKey)
	p, err := decode(raw)
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, p.Settings.Preferences.Theme)
}

func TestWriter_CloseStopsGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t)

	w := NewWriter(newMemRepo(), logging.Nop())
	st := store.DefaultState()
	st.Revision = 1
	st.Settings.Notifications.WeeklyReport = true
	w.Observe(st)

	require.NoError(t, w.Close(context.Background()))
	require.NoError(t, w.Close(context.Background()))
}

func TestLoad_MissingOrBrokenStorageYieldsDefaults(t *testing.T) {
	ctx := context.Background()
	defaults := store.DefaultState()

	cases := map[string]func(*memRepo){
		"absent":        func(*memRepo) {},
		"not json":      func(r *memRepo) { r.data[common.StateSnapshotKey] = []byte("{{{garbage") },
		"wrong types":   func(r *memRepo) { r.data[common.StateSnapshotKey] = []byte(`{"settings":{"notifications":"loud"}}`) },
		"invalid theme": func(r *memRepo) { r.data[common.StateSnapshotKey] = []byte(`{"settings":{"preferences":{"theme":"neon"}}}`) },
		"user w/o id":   func(r *memRepo) { r.data[common.StateSnapshotKey] = []byte(`{"user":{"email":"x@y.z"}}`) },
		"read error":    func(r *memRepo) { r.getErr = errors.New("locked") },
	}

	for name, prepare := range cases {
		t.Run(name, func(t *testing.T) {
			repo := newMemRepo()
			prepare(repo)

			var st store.State
			require.NotPanics(t, func() { st = Load(ctx, repo, logging.Nop()) })
			assert.Empty(t, cmp.Diff(defaults, st))
		})
	}
}

func TestLoad_StoredFieldsWinDefaultsFillGaps(t *testing.T) {
	repo := newMemRepo()
	repo.data[common.StateSnapshotKey] = []byte(`{
		"user": {"id": "u-9", "voicePreference": "masculine"},
		"settings": {"notifications": {"weeklyReport": true}, "preferences": {"theme": "light"}}
	}`)

	st := Load(context.Background(), repo, logging.Nop())

	require.NotNil(t, st.User)
	assert.Equal(t, "u-9", st.User.ID)
	assert.Equal(t, models.VoiceMasculine, st.User.VoicePreference)

	want := models.DefaultSettings()
	want.Notifications.WeeklyReport = true
	want.Preferences.Theme = models.ThemeLight
	assert.Empty(t, cmp.Diff(want, st.Settings))
}
