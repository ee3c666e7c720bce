package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/miroir/internal/client/models"
	"github.com/dmitrijs2005/miroir/internal/common"
)

// getSimpleText, getPassword and getList are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword
var getList = GetList

// Register prompts for credentials and the optional profile fields, creates
// the account and sends the verification email.
//
// A failure to send the email does not undo the sign up: the account exists
// and the user is told to run "resend".
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	var p models.Profile
	if p.FirstName, err = getSimpleText(a.reader, "First name (optional)", a.out); err != nil {
		return err
	}
	if p.LastName, err = getSimpleText(a.reader, "Last name (optional)", a.out); err != nil {
		return err
	}
	if p.BirthDate, err = getSimpleText(a.reader, "Birth date YYYY-MM-DD (optional)", a.out); err != nil {
		return err
	}
	if p.Interests, err = getList(a.reader, "Interests (optional)", a.out); err != nil {
		return err
	}

	id, err := a.session.SignUp(ctx, email, string(password), p)
	if err != nil {
		return err
	}
	a.printf("Account created for %s.\n", id.Email)

	if err := a.verifier.Send(ctx, id.Email); err != nil {
		a.logger.Warn(ctx, "verification email after sign up failed", "uid", id.UID, "error", err)
		if errors.Is(err, common.ErrDelivery) {
			a.println("Your account is ready, but the verification email could not be sent. Use 'resend' to try again.")
		} else {
			a.println("Your account is ready, but no verification code could be issued. Use 'resend' to try again.")
		}
	} else {
		a.printf("A verification code was sent to %s. Use 'verify' to enter it.\n", id.Email)
	}

	return a.Open(ctx, "/verification-email")
}

// Login prompts for credentials and signs in. On success the discovery page
// is opened.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	id, err := a.session.SignIn(ctx, email, string(password))
	if err != nil {
		return err
	}

	a.printf("Signed in as %s.\n", id.DisplayName())
	return a.Open(ctx, "/decouverte")
}

// Logout signs out and returns to the home page.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.SignOut(ctx); err != nil {
		return err
	}
	a.println("Signed out.")
	return a.Open(ctx, "/")
}

// Reset asks the provider to email a password reset link. The signed-in
// email is offered when the prompt is left empty.
func (a *App) Reset(ctx context.Context) error {
	prompt := "Enter email"
	current := a.session.Current()
	if current != nil {
		prompt += " (empty for " + current.Email + ")"
	}
	email, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return err
	}
	if email == "" && current != nil {
		email = current.Email
	}

	if err := a.session.ResetPassword(ctx, email); err != nil {
		return err
	}
	a.printf("If an account exists for %s, a reset link is on its way.\n", email)
	return nil
}

// Verify checks a code typed by the user against the signed-in email.
func (a *App) Verify(ctx context.Context) error {
	id := a.session.Current()
	if id == nil {
		return common.ErrNotSignedIn
	}

	code, err := getSimpleText(a.reader, "Enter the 6 digit code", a.out)
	if err != nil {
		return err
	}

	ok, err := a.verifier.Verify(ctx, id.Email, code)
	if err != nil {
		return err
	}
	if !ok {
		a.println("This code is invalid or has expired. Use 'resend' to get a new one.")
		return nil
	}

	a.println("Email address confirmed.")
	return a.Open(ctx, "/decouverte")
}

// Resend issues a new verification code for the signed-in email.
func (a *App) Resend(ctx context.Context) error {
	id := a.session.Current()
	if id == nil {
		return common.ErrNotSignedIn
	}
	if err := a.verifier.Send(ctx, id.Email); err != nil {
		return err
	}
	a.printf("A new code was sent to %s.\n", id.Email)
	return nil
}
