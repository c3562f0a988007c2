// Package cli provides the interactive mindshift command-line client.
//
// App drives the auth session, the account operations and the paywall from
// a line-oriented REPL. Commands act on local state at once; remote delivery
// happens in the background and failures show up under "notifications".
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
