package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/mindshift/internal/timex"
)

// Goal is a habit the user builds a daily check-in streak on.
type Goal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	TargetDays  int        `json:"targetDays"`
	Streak      int        `json:"streak"`
	BestStreak  int        `json:"bestStreak"`
	LastCheckIn *time.Time `json:"lastCheckIn,omitempty"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func (g Goal) Clone() Goal {
	out := g
	if g.LastCheckIn != nil {
		v := *g.LastCheckIn
		out.LastCheckIn = &v
	}
	return out
}

// GoalPatch names goal fields to change. Deleted removes the goal.
type GoalPatch struct {
	Title       *string    `json:"title,omitempty"`
	Category    *string    `json:"category,omitempty"`
	TargetDays  *int       `json:"targetDays,omitempty"`
	Streak      *int       `json:"streak,omitempty"`
	BestStreak  *int       `json:"bestStreak,omitempty"`
	LastCheckIn *time.Time `json:"lastCheckIn,omitempty"`
	Completed   *bool      `json:"completed,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	Deleted     *bool      `json:"deleted,omitempty"`
}

func (p GoalPatch) IsDelete() bool {
	return p.Deleted != nil && *p.Deleted
}

// Apply merges the patch into g. A goal that does not exist yet is passed as
// the zero value with its id set.
func (p GoalPatch) Apply(g Goal) (Goal, error) {
	out := g.Clone()

	setIf(&out.Title, p.Title)
	setIf(&out.Category, p.Category)
	if p.TargetDays != nil {
		if *p.TargetDays < 0 {
			return g, fmt.Errorf("%w: negative goal target", ErrInvalidPatch)
		}
		out.TargetDays = *p.TargetDays
	}
	if p.Streak != nil {
		out.Streak = *p.Streak
	}
	if p.BestStreak != nil {
		out.BestStreak = max(out.BestStreak, *p.BestStreak)
	}
	if p.LastCheckIn != nil {
		v := p.LastCheckIn.UTC()
		out.LastCheckIn = &v
	}
	setIf(&out.Completed, p.Completed)
	if p.CreatedAt != nil && (out.CreatedAt.IsZero() || p.CreatedAt.Before(out.CreatedAt)) {
		out.CreatedAt = p.CreatedAt.UTC()
	}

	if out.Title == "" {
		return g, fmt.Errorf("%w: goal %s has no title", ErrInvalidPatch, out.ID)
	}
	return out, nil
}

// CheckIn computes the patch recording a check-in at now. Checking in twice
// on the same calendar day changes nothing and returns ok=false; a check-in
// on the day after the previous one extends the streak, a later one restarts
// it at 1. Reaching the target marks the goal completed.
func (g Goal) CheckIn(now time.Time, loc *time.Location) (GoalPatch, bool) {
	streak := 1
	if g.LastCheckIn != nil {
		switch timex.DaysBetween(*g.LastCheckIn, now, loc) {
		case 0:
			return GoalPatch{}, false
		case 1:
			streak = g.Streak + 1
		}
	}

	at := now.UTC()
	patch := GoalPatch{
		Streak:      &streak,
		BestStreak:  Ptr(max(g.BestStreak, streak)),
		LastCheckIn: &at,
	}
	if g.TargetDays > 0 && streak >= g.TargetDays && !g.Completed {
		patch.Completed = Ptr(true)
	}
	return patch, true
}

// JournalEntry is a dated reflection with a 1–5 mood score.
type JournalEntry struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	Mood      int       `json:"mood"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func (j JournalEntry) Clone() JournalEntry {
	out := j
	out.Tags = slices.Clone(j.Tags)
	return out
}

// JournalPatch names journal entry fields to change. Deleted removes the entry.
type JournalPatch struct {
	Body      *string    `json:"body,omitempty"`
	Mood      *int       `json:"mood,omitempty"`
	Tags      *[]string  `json:"tags,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	Deleted   *bool      `json:"deleted,omitempty"`
}

func (p JournalPatch) IsDelete() bool {
	return p.Deleted != nil && *p.Deleted
}

func (p JournalPatch) Apply(j JournalEntry) (JournalEntry, error) {
	out := j.Clone()

	setIf(&out.Body, p.Body)
	if p.Mood != nil {
		if *p.Mood < 1 || *p.Mood > 5 {
			return j, fmt.Errorf("%w: mood %d out of range 1-5", ErrInvalidPatch, *p.Mood)
		}
		out.Mood = *p.Mood
	}
	if p.Tags != nil {
		out.Tags = slices.Clone(*p.Tags)
	}
	if p.CreatedAt != nil && (out.CreatedAt.IsZero() || p.CreatedAt.Before(out.CreatedAt)) {
		out.CreatedAt = p.CreatedAt.UTC()
	}
	return out, nil
}
