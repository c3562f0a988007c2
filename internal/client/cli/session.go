package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mindshift/internal/client/paywall"
)

// getToken is an indirection over GetToken so tests avoid the terminal.
var getToken = GetToken

// ErrUsage is returned for malformed command arguments.
var ErrUsage = errors.New("usage")

func usage(format string) error {
	return fmt.Errorf("%w: %s", ErrUsage, format)
}

func (a *App) Status(ctx context.Context) error {
	id, ok := a.session.CurrentIdentity()
	if !ok {
		fmt.Fprintf(a.out, "Signed out (%s)\n", a.session.State())
		return nil
	}
	kind := "account"
	if a.session.Anonymous() {
		kind = "anonymous"
	}
	st := a.store.Get()
	d := paywall.Check(st.User, a.now())
	premium := "yes"
	if !d.Unlocked {
		premium = "no (" + string(d.Reason) + ")"
	}
	fmt.Fprintf(a.out, "Identity: %s (%s)\n", id, kind)
	fmt.Fprintf(a.out, "Premium:  %s\n", premium)
	fmt.Fprintf(a.out, "Goals: %d  Journal: %d  Syncing: %t  Loading: %t\n",
		len(st.Goals), len(st.Journal), st.Syncing, st.Loading)
	return nil
}

// Login signs in with a token given inline or typed at a hidden prompt.
func (a *App) Login(ctx context.Context, args []string) error {
	var token string
	if len(args) > 0 {
		token = args[0]
	} else {
		b, err := getToken(a.out)
		if err != nil {
			return err
		}
		token = strings.TrimSpace(string(b))
	}
	if token == "" {
		return usage("login [token]")
	}
	if err := a.session.SignInWithToken(ctx, token); err != nil {
		return err
	}
	id, _ := a.session.CurrentIdentity()
	fmt.Fprintln(a.out, "Signed in as", id)
	return nil
}

func (a *App) Anon(ctx context.Context) error {
	if err := a.session.SignInAnonymously(ctx); err != nil {
		return err
	}
	id, _ := a.session.CurrentIdentity()
	fmt.Fprintln(a.out, "Signed in anonymously as", id)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

// Issue prints a token for user, standing in for an external identity
// provider during development.
func (a *App) Issue(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("issue <user>")
	}
	token, err := a.issuer.Issue(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, token)
	return nil
}

// notifications and dismiss

func (a *App) Notifications(ctx context.Context) error {
	list := a.pendingNotifications()
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No notifications")
		return nil
	}
	for i, f := range list {
		fmt.Fprintf(a.out, "%d. %s\n", i+1, f.Error())
	}
	return nil
}

func (a *App) Dismiss(ctx context.Context) error {
	a.mu.Lock()
	n := len(a.notifications)
	a.notifications = nil
	a.mu.Unlock()
	fmt.Fprintf(a.out, "Dismissed %d notification(s)\n", n)
	return nil
}
