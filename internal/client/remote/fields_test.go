package remote

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/mindshift/internal/client/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten_GroupsBecomeDottedPaths(t *testing.T) {
	got := Flatten(map[string]any{
		"notifications": map[string]any{"dailyReminder": false},
		"dailyRhythm":   map[string]any{"activeDays": []any{1.0, 2.0}},
		"preferences":   map[string]any{},
		"plain":         "x",
	})

	want := Fields{
		"notifications.dailyReminder": false,
		"dailyRhythm.activeDays":      []any{1.0, 2.0},
		"plain":                       "x",
	}
	assert.Empty(t, cmp.Diff(want, got))
}

func TestUnflatten_Conflicts(t *testing.T) {
	_, err := Unflatten(Fields{"a": 1.0, "a.b": 2.0})
	require.Error(t, err)
}

func TestEncodeDecode_SettingsPatchNamesOnlySetFields(t *testing.T) {
	patch := models.SettingsPatch{
		Notifications: &models.NotificationsPatch{DailyReminder: models.Ptr(false)},
		Preferences:   &models.PreferencesPatch{Theme: models.Ptr(models.ThemeDark)},
	}

	f, err := Encode(patch)
	require.NoError(t, err)
	assert.Equal(t, Fields{
		"notifications.dailyReminder": false,
		"preferences.theme":           "dark",
	}, f)

	var back models.SettingsPatch
	require.NoError(t, Decode(f, &back))
	assert.Empty(t, cmp.Diff(patch, back))
}

func TestEncodeDecode_ProfileWithTimes(t *testing.T) {
	created := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	patch := models.UserPatch{ID: models.Ptr("u-1"), CreatedAt: &created, IsPremium: models.Ptr(true)}

	f, err := Encode(patch)
	require.NoError(t, err)

	var back models.UserPatch
	require.NoError(t, Decode(f, &back))
	require.NotNil(t, back.CreatedAt)
	assert.True(t, created.Equal(*back.CreatedAt))
	assert.Equal(t, "u-1", *back.ID)
	assert.True(t, *back.IsPremium)
}

func TestMerge_TopWinsInputsUntouched(t *testing.T) {
	base := Fields{"a": 1.0, "b": 2.0}
	top := Fields{"b": 3.0, "c": 4.0}

	got := Merge(base, top)

	assert.Equal(t, Fields{"a": 1.0, "b": 3.0, "c": 4.0}, got)
	assert.Equal(t, Fields{"a": 1.0, "b": 2.0}, base)
}

func TestMarshalValues_RoundTrip(t *testing.T) {
	in := Fields{"title": "Run", "targetDays": 30.0, "dailyRhythm.activeDays": []any{1.0, 3.0}}

	enc, err := MarshalValues(in)
	require.NoError(t, err)
	assert.Equal(t, `"Run"`, enc["title"])

	out, err := UnmarshalValues(enc)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = UnmarshalValues(map[string]string{"x": "{"})
	require.Error(t, err)
}

func TestParseDocID(t *testing.T) {
	c, id := ParseDocID(GoalDoc("g1"))
	assert.Equal(t, CollectionGoals, c)
	assert.Equal(t, "g1", id)

	c, id = ParseDocID(DocProfile)
	assert.Equal(t, DocProfile, c)
	assert.Empty(t, id)

	c, id = ParseDocID(JournalDoc("j/2"))
	assert.Equal(t, CollectionJournal, c)
	assert.Equal(t, "j/2", id)
}
