// Package cli provides the interactive Miroir command-line client.
//
// App ties the session store, the access gate, the notification hub and
// the profile services to a read-eval-print loop. Every page change goes
// through the gate, so a signed-out user asking for /profil lands on the
// sign in page instead. The prompt shows the signed-in email, the current
// page, the provider connectivity and the number of unread notifications.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App, StartOnlineStatusWatcher, and runREPL for details.
package cli
