package main

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/miroir/internal/client/cli"
	"github.com/dmitrijs2005/miroir/internal/client/client"
	"github.com/dmitrijs2005/miroir/internal/client/config"
	"github.com/dmitrijs2005/miroir/internal/client/docstore"
	"github.com/dmitrijs2005/miroir/internal/client/gate"
	"github.com/dmitrijs2005/miroir/internal/client/mailer"
	"github.com/dmitrijs2005/miroir/internal/client/media"
	"github.com/dmitrijs2005/miroir/internal/client/notify"
	"github.com/dmitrijs2005/miroir/internal/client/profiles"
	"github.com/dmitrijs2005/miroir/internal/client/session"
	"github.com/dmitrijs2005/miroir/internal/client/verification"
	"github.com/dmitrijs2005/miroir/internal/logging"
)

// build assembles the App from cfg. The returned cleanup closes every
// resource that was opened, in reverse order.
func build(ctx context.Context, cfg *config.Config, logger logging.Logger) (*cli.App, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn(ctx, "close resource", "error", err)
			}
		}
	}
	fail := func(err error) (*cli.App, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	db, err := client.InitDatabase(ctx, cfg.LocalDBPath)
	if err != nil {
		return fail(fmt.Errorf("error initializing database: %w", err))
	}
	closers = append(closers, db.Close)
	repos := client.NewRepositories(db)

	provider, err := client.NewGRPCProvider(cfg.ProviderAddr)
	if err != nil {
		return fail(fmt.Errorf("identity provider: %w", err))
	}
	closers = append(closers, provider.Close)

	var docs docstore.Store
	if cfg.DocumentDSN != "" {
		pg, err := docstore.OpenPostgres(ctx, cfg.DocumentDSN)
		if err != nil {
			return fail(fmt.Errorf("document store: %w", err))
		}
		closers = append(closers, pg.Close)
		docs = pg
	} else {
		logger.Warn(ctx, "no document store configured, documents are kept in memory")
		docs = docstore.NewMemoryStore()
	}

	var mail mailer.Sender
	if cfg.EmailServiceID != "" {
		mail = mailer.NewHTTPSender(cfg.EmailEndpoint, cfg.EmailServiceID, cfg.EmailPublicKey)
	} else {
		logger.Warn(ctx, "no email service configured, verification codes are logged")
		mail = mailer.NewLogSender(logger)
	}

	var photos cli.Photos
	if mc := cfg.MediaConfig(); mc.Enabled() {
		ps, err := media.NewPhotoStore(ctx, mc)
		if err != nil {
			return fail(fmt.Errorf("photo storage: %w", err))
		}
		photos = ps
	}

	profs := profiles.NewService(docs)
	store := session.NewStore(provider, repos.Metadata,
		session.WithProfiles(profs),
		session.WithLogger(logger),
		session.WithCallTimeout(cfg.CallTimeout),
	)

	app := cli.NewApp(cli.Deps{
		Session:      store,
		Verifier:     verification.NewService(docs, mail, cfg.EmailTemplateID, cfg.CodeTTL, logger),
		Profiles:     profs,
		Photos:       photos,
		Pinger:       provider,
		Hub:          notify.NewHub(notify.WithLogger(logger)),
		Gate:         gate.Default(),
		Logger:       logger,
		PingInterval: cfg.PingInterval,
	})
	return app, cleanup, nil
}
