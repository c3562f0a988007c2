package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isSignedIn() bool

	Status(ctx context.Context) error
	Login(ctx context.Context, args []string) error
	Anon(ctx context.Context) error
	Logout(ctx context.Context) error
	Issue(ctx context.Context, args []string) error

	Profile(ctx context.Context) error
	Name(ctx context.Context, args []string) error
	Voice(ctx context.Context, args []string) error
	Onboard(ctx context.Context) error
	Upgrade(ctx context.Context, args []string) error

	Settings(ctx context.Context) error
	Notify(ctx context.Context, args []string) error
	Rhythm(ctx context.Context, args []string) error
	Theme(ctx context.Context, args []string) error

	Goal(ctx context.Context, args []string) error
	Journal(ctx context.Context, args []string) error

	Premium(ctx context.Context) error
	Notifications(ctx context.Context) error
	Dismiss(ctx context.Context) error
}

const (
	helpSignedOut = "Available commands: status, login [token], anon, issue <user>, exit"
	helpSignedIn  = "Available commands: status, profile, name, voice, onboard, upgrade [days], " +
		"settings, notify, rhythm, theme, goal add|checkin|rm|ls, journal add|rm|ls, " +
		"premium, notifications, dismiss, login, anon, issue, logout, exit"
)

// runREPL reads commands from scanner and dispatches them to a until the
// input ends or the user types "exit" or "quit". A failing command prints
// its error and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("ms %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isSignedIn() {
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpSignedOut)
			}

		case "status":
			err = a.Status(ctx)
		case "login":
			err = a.Login(ctx, args)
		case "anon":
			err = a.Anon(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "issue":
			err = a.Issue(ctx, args)

		case "profile":
			err = a.Profile(ctx)
		case "name":
			err = a.Name(ctx, args)
		case "voice":
			err = a.Voice(ctx, args)
		case "onboard":
			err = a.Onboard(ctx)
		case "upgrade":
			err = a.Upgrade(ctx, args)

		case "settings":
			err = a.Settings(ctx)
		case "notify":
			err = a.Notify(ctx, args)
		case "rhythm":
			err = a.Rhythm(ctx, args)
		case "theme":
			err = a.Theme(ctx, args)

		case "goal":
			err = a.Goal(ctx, args)
		case "journal":
			err = a.Journal(ctx, args)

		case "premium":
			err = a.Premium(ctx)
		case "notifications":
			err = a.Notifications(ctx)
		case "dismiss":
			err = a.Dismiss(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
