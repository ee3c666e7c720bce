package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/miroir/internal/client/models"
	"github.com/dmitrijs2005/miroir/internal/client/profiles"
	"github.com/dmitrijs2005/miroir/internal/common"
)

// ErrPhotosDisabled is returned by Photo when no bucket is configured.
var ErrPhotosDisabled = errors.New("photo storage is not configured")

// Edit prompts for each profile field; an empty answer keeps the value.
func (a *App) Edit(ctx context.Context) error {
	if !a.isLoggedIn() {
		return common.ErrNotSignedIn
	}

	var u models.ProfileUpdate
	for _, f := range []struct {
		prompt string
		dst    **string
	}{
		{"First name", &u.FirstName},
		{"Last name", &u.LastName},
		{"Birth date YYYY-MM-DD", &u.BirthDate},
	} {
		v, err := getSimpleText(a.reader, f.prompt+" (empty to keep)", a.out)
		if err != nil {
			return err
		}
		if v != "" {
			*f.dst = &v
		}
	}

	interests, err := getList(a.reader, "Interests (empty to keep)", a.out)
	if err != nil {
		return err
	}
	if interests != nil {
		u.Interests = &interests
	}

	if u.Empty() {
		a.println("Nothing to change.")
		return nil
	}
	if _, err := a.session.UpdateProfile(ctx, u); err != nil {
		return err
	}
	a.println("Profile updated.")
	return nil
}

// Photo uploads the image at path and makes it the profile photo.
func (a *App) Photo(ctx context.Context, path string) error {
	id := a.session.Current()
	if id == nil {
		return common.ErrNotSignedIn
	}
	if a.photos == nil {
		return ErrPhotosDisabled
	}

	url, err := a.photos.Upload(ctx, id.UID, path)
	if err != nil {
		return err
	}
	if _, err := a.session.UpdateProfile(ctx, models.ProfileUpdate{PhotoURL: &url}); err != nil {
		return err
	}
	a.println("Profile photo updated.")
	return nil
}

// Upgrade changes the subscription tier.
func (a *App) Upgrade(ctx context.Context, tier string) error {
	t, err := models.ParseTier(tier)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}
	if _, err := a.session.UpdateProfile(ctx, models.ProfileUpdate{Tier: &t}); err != nil {
		return err
	}
	a.printf("You are now on the %s plan.\n", t)
	return nil
}

// Perceive leaves a perception on another member's profile.
func (a *App) Perceive(ctx context.Context, uid, sentiment, text string) error {
	id := a.session.Current()
	if id == nil {
		return common.ErrNotSignedIn
	}
	s, err := profiles.ParseSentiment(sentiment)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	stats, err := a.profiles.AddPerception(ctx, uid, profiles.Perception{
		Author:    id.UID,
		Text:      text,
		Sentiment: s,
		CreatedAt: a.now().UTC(),
	})
	if err != nil {
		return err
	}
	a.printf("Perception recorded (%d in total on this profile).\n", stats.Total())
	return nil
}

// Stats prints how others perceive the signed-in member.
func (a *App) Stats(ctx context.Context) error {
	id := a.session.Current()
	if id == nil {
		return common.ErrNotSignedIn
	}

	stats, err := a.perceptionStats(ctx, id.UID)
	if err != nil {
		return err
	}
	if stats.Total() == 0 {
		a.println("Nobody has shared a perception yet.")
		return nil
	}

	share := stats.Share()
	a.printf("Positive: %3d (%d%%)\n", stats.Positive, share.Positive)
	a.printf("Neutral:  %3d (%d%%)\n", stats.Neutral, share.Neutral)
	a.printf("Negative: %3d (%d%%)\n", stats.Negative, share.Negative)
	return nil
}

// perceptionStats treats a missing profile document as no perceptions.
func (a *App) perceptionStats(ctx context.Context, uid string) (profiles.Stats, error) {
	doc, err := a.profiles.Get(ctx, uid)
	if errors.Is(err, common.ErrorNotFound) {
		return profiles.Stats{}, nil
	}
	if err != nil {
		return profiles.Stats{}, err
	}
	return doc.Stats, nil
}
