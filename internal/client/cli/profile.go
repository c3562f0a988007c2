package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/mindshift/internal/client/models"
	"github.com/dmitrijs2005/mindshift/internal/client/services"
)

func (a *App) Profile(ctx context.Context) error {
	u := a.store.Get().User
	if u == nil {
		return services.ErrNoProfile
	}
	fmt.Fprintf(a.out, "ID:          %s\n", u.ID)
	fmt.Fprintf(a.out, "Name:        %s\n", u.DisplayName)
	fmt.Fprintf(a.out, "Email:       %s\n", u.Email)
	fmt.Fprintf(a.out, "Created:     %s\n", u.CreatedAt.Local().Format(time.DateTime))
	fmt.Fprintf(a.out, "Voice:       %s\n", u.VoicePreference)
	fmt.Fprintf(a.out, "Onboarded:   %t\n", u.OnboardingComplete)
	switch {
	case u.IsPremium && u.PremiumExpiresAt != nil:
		fmt.Fprintf(a.out, "Premium:     until %s\n", u.PremiumExpiresAt.Local().Format(time.DateTime))
	case u.IsPremium:
		fmt.Fprintln(a.out, "Premium:     lifetime")
	default:
		fmt.Fprintln(a.out, "Premium:     no")
	}
	return nil
}

func (a *App) Name(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usage("name <display name>")
	}
	name := strings.Join(args, " ")
	return a.account.UpdateUser(ctx, models.UserPatch{DisplayName: &name})
}

func (a *App) Voice(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("voice masculine|feminine|neutral")
	}
	return a.account.SetVoicePreference(ctx, models.VoicePreference(args[0]))
}

func (a *App) Onboard(ctx context.Context) error {
	if err := a.account.CompleteOnboarding(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Onboarding complete")
	return nil
}

// Upgrade grants premium, for the given number of days or without expiry.
func (a *App) Upgrade(ctx context.Context, args []string) error {
	var expires *time.Time
	if len(args) > 0 {
		days, err := strconv.Atoi(args[0])
		if err != nil || days <= 0 {
			return usage("upgrade [days]")
		}
		t := a.now().Add(time.Duration(days) * 24 * time.Hour).UTC()
		expires = &t
	}
	if err := a.account.UpgradeToPremium(ctx, expires); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Premium unlocked")
	return nil
}
