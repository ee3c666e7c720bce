package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/miroir/internal/common"
)

// Open moves to destination if the gate allows it, otherwise to the page
// the gate redirects to. Either way the page that was reached is rendered.
func (a *App) Open(ctx context.Context, destination string) error {
	target := destination
	d := a.gate.CanEnter(destination, a.session.State().Capabilities())
	if !d.Allow {
		a.printf("%s is not available, redirected to %s.\n", destination, d.RedirectTo)
		target = d.RedirectTo
	}
	return a.render(ctx, target)
}

func (a *App) render(ctx context.Context, path string) error {
	dst, ok := a.gate.Lookup(path)
	if !ok {
		return errors.New("no page at " + path)
	}
	a.setPage(dst.Path)
	a.printf("== %s (%s) ==\n", dst.Title, dst.Path)

	switch dst.Path {
	case "/profil":
		return a.showProfile(ctx)
	case "/messages":
		a.println("No conversations yet.")
	case "/verification-email":
		a.println("Enter the code from your inbox with 'verify', or 'resend' for a new one.")
	case "/abonnements":
		a.println("Plans: basic, premium, unlimited. Use 'subscribe <tier>'.")
	}
	return nil
}

func (a *App) showProfile(ctx context.Context) error {
	id := a.session.Current()
	if id == nil {
		return common.ErrNotSignedIn
	}

	a.printf("%s <%s>\n", id.DisplayName(), id.Email)
	if id.BirthDate != "" {
		a.printf("Born:      %s\n", id.BirthDate)
	}
	if len(id.Interests) > 0 {
		a.printf("Interests: %v\n", id.Interests)
	}
	if id.PhotoURL != "" {
		a.printf("Photo:     %s\n", id.PhotoURL)
	}
	a.printf("Tier:      %s\n", id.Tier)

	stats, err := a.perceptionStats(ctx, id.UID)
	if err != nil {
		a.logger.Warn(ctx, "perception stats unavailable", "uid", id.UID, "error", err)
		return nil
	}
	a.printf("Perceptions: %d\n", stats.Total())
	return nil
}
