package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/mindshift/internal/client/auth"
	"github.com/dmitrijs2005/mindshift/internal/client/remotesync"
	"github.com/dmitrijs2005/mindshift/internal/client/services"
	"github.com/dmitrijs2005/mindshift/internal/client/store"
)

// maxNotifications bounds the sync failures kept for the notifications view.
const maxNotifications = 20

// Session is the part of the auth manager the CLI drives.
type Session interface {
	CurrentIdentity() (string, bool)
	Anonymous() bool
	State() auth.State
	SignInWithToken(ctx context.Context, token string) error
	SignInAnonymously(ctx context.Context) error
	Logout(ctx context.Context) error
}

// TokenIssuer mints identity tokens for the login command.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type App struct {
	store   *store.Store
	session Session
	issuer  TokenIssuer
	account services.AccountService

	in  io.Reader
	out io.Writer
	now func() time.Time

	scanner *bufio.Scanner

	mu            sync.Mutex
	notifications []remotesync.SyncFailure
}

func NewApp(st *store.Store, session Session, issuer TokenIssuer, account services.AccountService) *App {
	return &App{
		store:   st,
		session: session,
		issuer:  issuer,
		account: account,
		in:      os.Stdin,
		out:     os.Stdout,
		now:     time.Now,
	}
}

// ReportFailure records a sync failure for the notifications view. It is
// safe to call from any goroutine and is meant for Options.OnFailure.
func (a *App) ReportFailure(f remotesync.SyncFailure) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.notifications = append(a.notifications, f)
	if len(a.notifications) > maxNotifications {
		a.notifications = a.notifications[len(a.notifications)-maxNotifications:]
	}
}

func (a *App) pendingNotifications() []remotesync.SyncFailure {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]remotesync.SyncFailure(nil), a.notifications...)
}

// Run starts the REPL and blocks until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	a.scanner = bufio.NewScanner(a.in)
	fmt.Fprintln(a.out, "mindshift CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.scanner)
}

func (a *App) isSignedIn() bool {
	_, ok := a.session.CurrentIdentity()
	return ok
}

func (a *App) getStatus() string {
	id, ok := a.session.CurrentIdentity()
	if !ok {
		return "(signed out)"
	}
	st := a.store.Get()
	name := id
	if st.User != nil && st.User.DisplayName != "" {
		name = st.User.DisplayName
	} else if len(name) > 8 {
		name = name[:8]
	}
	s := name
	if a.session.Anonymous() {
		s += " anon"
	}
	if st.Syncing {
		s += " syncing"
	}
	if n := len(a.pendingNotifications()); n > 0 {
		s += fmt.Sprintf(" !%d", n)
	}
	return "(" + s + ")"
}

// confirm asks a yes/no question on the REPL input.
func (a *App) confirm(question string) bool {
	fmt.Fprintf(a.out, "%s [y/N] ", question)
	if a.scanner == nil || !a.scanner.Scan() {
		fmt.Fprintln(a.out)
		return false
	}
	switch a.scanner.Text() {
	case "y", "Y", "yes":
		return true
	}
	return false
}
