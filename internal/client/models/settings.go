package models

import (
	"fmt"
	"slices"
	"time"
)

// ThemeMode is the app colour scheme.
type ThemeMode string

const (
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
	ThemeSystem ThemeMode = "system"
)

func (t ThemeMode) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

type Notifications struct {
	DailyReminder      bool `json:"dailyReminder"`
	StreakAlerts       bool `json:"streakAlerts"`
	WeeklyReport       bool `json:"weeklyReport"`
	MeditationReminder bool `json:"meditationReminder"`
}

// DailyRhythm holds the user's day boundaries in "HH:MM" and the weekdays
// (0 = Sunday … 6 = Saturday) the routine is active on.
type DailyRhythm struct {
	WakeTime     string `json:"wakeTime"`
	WindDownTime string `json:"windDownTime"`
	ActiveDays   []int  `json:"activeDays"`
}

type Preferences struct {
	Theme          ThemeMode `json:"theme"`
	HapticFeedback bool      `json:"hapticFeedback"`
	SoundEffects   bool      `json:"soundEffects"`
}

// UserSettings is the local preference bundle. Its three groups merge
// independently and field by field.
type UserSettings struct {
	Notifications Notifications `json:"notifications"`
	DailyRhythm   DailyRhythm   `json:"dailyRhythm"`
	Preferences   Preferences   `json:"preferences"`
}

// DefaultSettings returns the settings of a first run.
func DefaultSettings() UserSettings {
	return UserSettings{
		Notifications: Notifications{
			DailyReminder:      true,
			StreakAlerts:       true,
			WeeklyReport:       false,
			MeditationReminder: true,
		},
		DailyRhythm: DailyRhythm{
			WakeTime:     "07:00",
			WindDownTime: "22:00",
			ActiveDays:   []int{0, 1, 2, 3, 4, 5, 6},
		},
		Preferences: Preferences{
			Theme:          ThemeSystem,
			HapticFeedback: true,
			SoundEffects:   true,
		},
	}
}

func (s UserSettings) Clone() UserSettings {
	out := s
	out.DailyRhythm.ActiveDays = slices.Clone(s.DailyRhythm.ActiveDays)
	return out
}

// Validate checks time-of-day strings, weekday range and theme.
func (s UserSettings) Validate() error {
	if err := validateClock(s.DailyRhythm.WakeTime); err != nil {
		return err
	}
	if err := validateClock(s.DailyRhythm.WindDownTime); err != nil {
		return err
	}
	if _, err := normalizeDays(s.DailyRhythm.ActiveDays); err != nil {
		return err
	}
	if !s.Preferences.Theme.Valid() {
		return fmt.Errorf("%w: theme %q", ErrInvalidPatch, s.Preferences.Theme)
	}
	return nil
}

type NotificationsPatch struct {
	DailyReminder      *bool `json:"dailyReminder,omitempty"`
	StreakAlerts       *bool `json:"streakAlerts,omitempty"`
	WeeklyReport       *bool `json:"weeklyReport,omitempty"`
	MeditationReminder *bool `json:"meditationReminder,omitempty"`
}

type DailyRhythmPatch struct {
	WakeTime     *string `json:"wakeTime,omitempty"`
	WindDownTime *string `json:"windDownTime,omitempty"`
	ActiveDays   *[]int  `json:"activeDays,omitempty"`
}

type PreferencesPatch struct {
	Theme          *ThemeMode `json:"theme,omitempty"`
	HapticFeedback *bool      `json:"hapticFeedback,omitempty"`
	SoundEffects   *bool      `json:"soundEffects,omitempty"`
}

// SettingsPatch names settings fields to change, grouped like UserSettings.
// The JSON form is the remote wire shape of the "settings" document.
type SettingsPatch struct {
	Notifications *NotificationsPatch `json:"notifications,omitempty"`
	DailyRhythm   *DailyRhythmPatch   `json:"dailyRhythm,omitempty"`
	Preferences   *PreferencesPatch   `json:"preferences,omitempty"`
}

// Apply merges the named fields into s one group level deep. Siblings of a
// changed field keep their values.
func (p SettingsPatch) Apply(s UserSettings) (UserSettings, error) {
	out := s.Clone()

	if n := p.Notifications; n != nil {
		setIf(&out.Notifications.DailyReminder, n.DailyReminder)
		setIf(&out.Notifications.StreakAlerts, n.StreakAlerts)
		setIf(&out.Notifications.WeeklyReport, n.WeeklyReport)
		setIf(&out.Notifications.MeditationReminder, n.MeditationReminder)
	}

	if r := p.DailyRhythm; r != nil {
		if r.WakeTime != nil {
			if err := validateClock(*r.WakeTime); err != nil {
				return s, err
			}
			out.DailyRhythm.WakeTime = *r.WakeTime
		}
		if r.WindDownTime != nil {
			if err := validateClock(*r.WindDownTime); err != nil {
				return s, err
			}
			out.DailyRhythm.WindDownTime = *r.WindDownTime
		}
		if r.ActiveDays != nil {
			days, err := normalizeDays(*r.ActiveDays)
			if err != nil {
				return s, err
			}
			out.DailyRhythm.ActiveDays = days
		}
	}

	if pr := p.Preferences; pr != nil {
		if pr.Theme != nil {
			if !pr.Theme.Valid() {
				return s, fmt.Errorf("%w: theme %q", ErrInvalidPatch, *pr.Theme)
			}
			out.Preferences.Theme = *pr.Theme
		}
		setIf(&out.Preferences.HapticFeedback, pr.HapticFeedback)
		setIf(&out.Preferences.SoundEffects, pr.SoundEffects)
	}

	return out, nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func validateClock(v string) error {
	if len(v) != 5 {
		return fmt.Errorf("%w: time of day %q, want HH:MM", ErrInvalidPatch, v)
	}
	if _, err := time.Parse("15:04", v); err != nil {
		return fmt.Errorf("%w: time of day %q, want HH:MM", ErrInvalidPatch, v)
	}
	return nil
}

// normalizeDays validates weekday numbers and returns them sorted and unique.
func normalizeDays(days []int) ([]int, error) {
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("%w: weekday %d out of range 0-6", ErrInvalidPatch, d)
		}
		out = append(out, d)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}
