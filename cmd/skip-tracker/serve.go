package main

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/justestif/go-spotify-skip-tracker/internal/auth"
	"github.com/justestif/go-spotify-skip-tracker/internal/config"
	"github.com/justestif/go-spotify-skip-tracker/internal/db"
	"github.com/justestif/go-spotify-skip-tracker/internal/tracker"
	"github.com/justestif/go-spotify-skip-tracker/internal/web"
	webfs "github.com/justestif/go-spotify-skip-tracker/web"
)

func (a *app) serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the web server and REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "migrate",
				Value: true,
				Usage: "Apply database migrations on start",
			},
		},
		Action: a.serve,
	}
}

func (a *app) serve(ctx context.Context, cmd *cli.Command) error {
	cfg := a.cfg
	if err := cfg.RequireSpotify(); err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	if addr := cmd.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close()

	if cmd.Bool("migrate") {
		if err := database.Migrate(ctx); err != nil {
			return err
		}
	}

	templates, err := fs.Sub(webfs.TemplatesFS, "templates")
	if err != nil {
		return fmt.Errorf("creating templates filesystem: %w", err)
	}

	static, err := fs.Sub(webfs.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("creating static filesystem: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:           cfg.Server.Addr,
		Credentials:    credentials(cfg),
		Database:       database,
		TemplatesFS:    templates,
		StaticFS:       static,
		TrackerOptions: trackerOptions(cfg),
		HighThreshold:  cfg.Dashboard.HighThreshold,
		TopN:           cfg.Dashboard.TopN,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run(ctx)
}

func (a *app) migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "update database schema",
		Action: func(ctx context.Context, _ *cli.Command) error {
			if err := a.cfg.RequireDatabase(); err != nil {
				return err
			}

			database, err := db.New(ctx, a.cfg.Database.URL)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate error: %w", err)
			}

			log.Info().Msg("migration finished")
			return nil
		},
	}
}

func credentials(cfg *config.Config) auth.Credentials {
	return auth.Credentials{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURI:  cfg.Spotify.RedirectURI,
	}
}

func trackerOptions(cfg *config.Config) []tracker.Option {
	return []tracker.Option{
		tracker.WithPollInterval(cfg.Tracker.PollInterval.Duration),
		tracker.WithSkipWindow(cfg.Tracker.SkipWindow.Duration),
		tracker.WithEndTolerance(cfg.Tracker.EndTolerance.Duration),
	}
}
