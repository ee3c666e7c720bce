package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/miroir/internal/client/client"
	"github.com/dmitrijs2005/miroir/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Reset(ctx context.Context) error
	Verify(ctx context.Context) error
	Resend(ctx context.Context) error
	Edit(ctx context.Context) error
	Photo(ctx context.Context, path string) error
	Upgrade(ctx context.Context, tier string) error
	Open(ctx context.Context, destination string) error
	Notifications(ctx context.Context) error
	OpenNotification(ctx context.Context, id string) error
	ReadAll(ctx context.Context) error
	RemoveNotification(ctx context.Context, id string) error
	Perceive(ctx context.Context, uid, sentiment, text string) error
	Stats(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the Miroir CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF, when ctx is done, or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Always:
//	  - help                  — show available commands
//	  - open <destination>    — go to a page, e.g. open /profil
//	  - reset                 — request a password reset email
//	  - notifications | n     — list notifications
//	  - read <id>             — open a notification
//	  - readall               — mark every notification read
//	  - rm <id>               — remove a notification
//	  - exit | quit           — leave the program
//
//	Not logged in:
//	  - register              — create an account
//	  - login                 — authenticate
//
//	Logged in:
//	  - verify | resend       — confirm the email address
//	  - profile | edit        — show or change the profile
//	  - photo <path>          — upload a profile photo
//	  - subscribe <tier>      — change subscription tier
//	  - perceive <uid> <sentiment> <text>
//	  - stats                 — perception statistics of your profile
//	  - logout                — log out
//
// Errors returned by command handlers are rendered with describe; the loop
// itself never stops on a handler error.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("miroir %s > ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: profile, edit, photo, subscribe, verify, resend, open, (n)otifications, read, readall, rm, perceive, stats, reset, logout, exit")
			} else {
				printlnFn("Available commands: register, login, reset, open, (n)otifications, read, readall, rm, exit")
			}

		case "register":
			cmdErr = a.Register(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "reset":
			cmdErr = a.Reset(ctx)

		case "verify":
			cmdErr = a.Verify(ctx)

		case "resend":
			cmdErr = a.Resend(ctx)

		case "profile":
			cmdErr = a.Open(ctx, "/profil")

		case "edit":
			cmdErr = a.Edit(ctx)

		case "photo":
			if len(args) != 1 {
				printlnFn("Usage: photo <path>")
				continue
			}
			cmdErr = a.Photo(ctx, args[0])

		case "subscribe":
			if len(args) != 1 {
				printlnFn("Usage: subscribe <basic|premium|unlimited>")
				continue
			}
			cmdErr = a.Upgrade(ctx, args[0])

		case "open":
			if len(args) != 1 {
				printlnFn("Usage: open <destination>")
				continue
			}
			cmdErr = a.Open(ctx, args[0])

		case "n", "notifications":
			cmdErr = a.Notifications(ctx)

		case "read":
			if len(args) != 1 {
				printlnFn("Usage: read <id>")
				continue
			}
			cmdErr = a.OpenNotification(ctx, args[0])

		case "readall":
			cmdErr = a.ReadAll(ctx)

		case "rm":
			if len(args) != 1 {
				printlnFn("Usage: rm <id>")
				continue
			}
			cmdErr = a.RemoveNotification(ctx, args[0])

		case "perceive":
			if len(args) < 3 {
				printlnFn("Usage: perceive <uid> <positif|neutre|negatif> <text>")
				continue
			}
			cmdErr = a.Perceive(ctx, args[0], args[1], strings.Join(args[2:], " "))

		case "stats":
			cmdErr = a.Stats(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", describe(cmdErr))
		}
	}
}

// describe turns a service error into a message for the user.
func describe(err error) string {
	switch {
	case errors.Is(err, client.ErrUnavailable):
		return "the service is unavailable, try again later"
	case errors.Is(err, client.ErrAccountExists):
		return "an account already exists for this email"
	case errors.Is(err, common.ErrNotSignedIn):
		return "you need to sign in first (use 'login')"
	case errors.Is(err, common.ErrValidation):
		return "invalid input: " + err.Error()
	case errors.Is(err, common.ErrAuth):
		return "authentication failed: " + err.Error()
	case errors.Is(err, common.ErrStorage):
		return "could not save your data: " + err.Error()
	case errors.Is(err, common.ErrDelivery):
		return "the email could not be sent: " + err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "the operation timed out"
	default:
		return err.Error()
	}
}
