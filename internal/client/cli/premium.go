package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mindshift/internal/client/paywall"
)

// premiumTrial is the length of a premium upgrade taken at the paywall.
const premiumTrial = 30 * 24 * time.Hour

var premiumLibrary = []string{
	"Deep Sleep Reset (25 min)",
	"Morning Momentum (12 min)",
	"Confidence Rewire (18 min)",
	"Letting Go of Stress (20 min)",
}

// Premium shows premium content. The gate is evaluated on every call; a
// locked user is offered an upgrade and, on dismissal, returned to the prompt.
func (a *App) Premium(ctx context.Context) error {
	d := paywall.Check(a.store.Get().User, a.now())
	if !d.Unlocked {
		fmt.Fprintln(a.out, lockedMessage(d.Reason))
		if d.Reason == paywall.ReasonNoProfile {
			return nil
		}
		if !a.confirm("Upgrade to premium for 30 days?") {
			fmt.Fprintln(a.out, "Maybe later.")
			return nil
		}
		expires := a.now().Add(premiumTrial).UTC()
		if err := a.account.UpgradeToPremium(ctx, &expires); err != nil {
			return err
		}
	}

	fmt.Fprintln(a.out, "Premium meditations:")
	for _, m := range premiumLibrary {
		fmt.Fprintln(a.out, "  -", m)
	}
	return nil
}

func lockedMessage(r paywall.Reason) string {
	switch r {
	case paywall.ReasonNoProfile:
		return "Sign in to access premium content."
	case paywall.ReasonExpired:
		return "Your premium subscription has expired."
	}
	return "This content is part of mindshift premium."
}
