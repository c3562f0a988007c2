package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoal_CheckInStreaks(t *testing.T) {
	loc := time.UTC
	day1 := time.Date(2026, 2, 10, 8, 0, 0, 0, loc)

	g := Goal{ID: "g1", Title: "Meditate", TargetDays: 3}

	p, ok := g.CheckIn(day1, loc)
	require.True(t, ok)
	g, _ = p.Apply(g)
	assert.Equal(t, 1, g.Streak)

	_, ok = g.CheckIn(day1.Add(3*time.Hour), loc)
	assert.False(t, ok, "same-day check-in is a no-op")

	p, _ = g.CheckIn(day1.Add(24*time.Hour), loc)
	g, _ = p.Apply(g)
	assert.Equal(t, 2, g.Streak)
	assert.False(t, g.Completed)

	p, _ = g.CheckIn(day1.Add(48*time.Hour), loc)
	g, _ = p.Apply(g)
	assert.Equal(t, 3, g.Streak)
	assert.True(t, g.Completed)
	assert.Equal(t, 3, g.BestStreak)

	p, _ = g.CheckIn(day1.Add(5*24*time.Hour), loc)
	g, _ = p.Apply(g)
	assert.Equal(t, 1, g.Streak, "a gap restarts the streak")
	assert.Equal(t, 3, g.BestStreak)
}

func TestGoalPatch_RequiresTitle(t *testing.T) {
	_, err := GoalPatch{Category: Ptr("sleep")}.Apply(Goal{ID: "g"})
	require.ErrorIs(t, err, ErrInvalidPatch)

	_, err = GoalPatch{Title: Ptr("x"), TargetDays: Ptr(-1)}.Apply(Goal{ID: "g"})
	require.ErrorIs(t, err, ErrInvalidPatch)
}

func TestGoalPatch_BestStreakNeverDecreases(t *testing.T) {
	g := Goal{ID: "g", Title: "Walk", BestStreak: 7}
	got, err := GoalPatch{BestStreak: Ptr(2)}.Apply(g)
	require.NoError(t, err)
	assert.Equal(t, 7, got.BestStreak)
}

func TestJournalPatch_Apply(t *testing.T) {
	j := JournalEntry{ID: "j1", Body: "calm", Mood: 3, Tags: []string{"am"}}

	got, err := JournalPatch{Mood: Ptr(5), Tags: &[]string{"am", "gratitude"}}.Apply(j)
	require.NoError(t, err)
	assert.Equal(t, "calm", got.Body)
	assert.Equal(t, 5, got.Mood)
	assert.Equal(t, []string{"am", "gratitude"}, got.Tags)
	assert.Equal(t, []string{"am"}, j.Tags)

	_, err = JournalPatch{Mood: Ptr(0)}.Apply(j)
	require.ErrorIs(t, err, ErrInvalidPatch)
}

func TestPatches_IsDelete(t *testing.T) {
	assert.True(t, GoalPatch{Deleted: Ptr(true)}.IsDelete())
	assert.False(t, GoalPatch{Deleted: Ptr(false)}.IsDelete())
	assert.True(t, JournalPatch{Deleted: Ptr(true)}.IsDelete())
	assert.False(t, JournalPatch{}.IsDelete())
}
