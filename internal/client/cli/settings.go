package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mindshift/internal/client/models"
)

func (a *App) Settings(ctx context.Context) error {
	s := a.store.Get().Settings
	n := s.Notifications
	fmt.Fprintln(a.out, "Notifications:")
	fmt.Fprintf(a.out, "  dailyReminder:      %s\n", onOff(n.DailyReminder))
	fmt.Fprintf(a.out, "  streakAlerts:       %s\n", onOff(n.StreakAlerts))
	fmt.Fprintf(a.out, "  weeklyReport:       %s\n", onOff(n.WeeklyReport))
	fmt.Fprintf(a.out, "  meditationReminder: %s\n", onOff(n.MeditationReminder))
	fmt.Fprintln(a.out, "Daily rhythm:")
	fmt.Fprintf(a.out, "  wake %s, wind down %s, days %v\n",
		s.DailyRhythm.WakeTime, s.DailyRhythm.WindDownTime, s.DailyRhythm.ActiveDays)
	fmt.Fprintln(a.out, "Preferences:")
	fmt.Fprintf(a.out, "  theme %s, haptics %s, sound %s\n",
		s.Preferences.Theme, onOff(s.Preferences.HapticFeedback), onOff(s.Preferences.SoundEffects))
	return nil
}

// Notify toggles one notification: notify <name> on|off.
func (a *App) Notify(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("notify dailyReminder|streakAlerts|weeklyReport|meditationReminder on|off")
	}
	v, err := parseOnOff(args[1])
	if err != nil {
		return err
	}
	var p models.NotificationsPatch
	switch strings.ToLower(args[0]) {
	case "dailyreminder", "daily":
		p.DailyReminder = &v
	case "streakalerts", "streak":
		p.StreakAlerts = &v
	case "weeklyreport", "weekly":
		p.WeeklyReport = &v
	case "meditationreminder", "meditation":
		p.MeditationReminder = &v
	default:
		return fmt.Errorf("%w: unknown notification %q", ErrUsage, args[0])
	}
	return a.account.UpdateSettings(ctx, models.SettingsPatch{Notifications: &p})
}

// Rhythm sets the daily rhythm: rhythm wake|winddown HH:MM, rhythm days 1,2,3.
func (a *App) Rhythm(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("rhythm wake|winddown HH:MM | rhythm days 0,1,...,6")
	}
	var p models.DailyRhythmPatch
	switch strings.ToLower(args[0]) {
	case "wake":
		p.WakeTime = &args[1]
	case "winddown":
		p.WindDownTime = &args[1]
	case "days":
		days, err := parseDays(args[1])
		if err != nil {
			return err
		}
		p.ActiveDays = &days
	default:
		return fmt.Errorf("%w: unknown rhythm field %q", ErrUsage, args[0])
	}
	return a.account.UpdateSettings(ctx, models.SettingsPatch{DailyRhythm: &p})
}

// Theme sets the theme, or the haptics and sound toggles:
// theme light|dark|system, theme haptics on|off, theme sound on|off.
func (a *App) Theme(ctx context.Context, args []string) error {
	var p models.PreferencesPatch
	switch {
	case len(args) == 1:
		t := models.ThemeMode(args[0])
		p.Theme = &t
	case len(args) == 2 && (args[0] == "haptics" || args[0] == "sound"):
		v, err := parseOnOff(args[1])
		if err != nil {
			return err
		}
		if args[0] == "haptics" {
			p.HapticFeedback = &v
		} else {
			p.SoundEffects = &v
		}
	default:
		return usage("theme light|dark|system | theme haptics|sound on|off")
	}
	return a.account.UpdateSettings(ctx, models.SettingsPatch{Preferences: &p})
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
