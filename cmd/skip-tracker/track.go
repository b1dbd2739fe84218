package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/justestif/go-spotify-skip-tracker/internal/auth"
	"github.com/justestif/go-spotify-skip-tracker/internal/db"
	"github.com/justestif/go-spotify-skip-tracker/internal/skips"
	"github.com/justestif/go-spotify-skip-tracker/internal/spotify"
	"github.com/justestif/go-spotify-skip-tracker/internal/tracker"
)

func (a *app) trackCmd() *cli.Command {
	return &cli.Command{
		Name:   "track",
		Usage:  "log in with Spotify in the terminal and record skips until interrupted",
		Action: a.track,
	}
}

func (a *app) track(ctx context.Context, _ *cli.Command) error {
	cfg := a.cfg
	if err := cfg.RequireSpotify(); err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	authenticator, err := auth.New(credentials(cfg))
	if err != nil {
		return err
	}

	api, login, err := authenticator.Authenticate(ctx)
	if err != nil {
		return fmt.Errorf("authenticating: %w", err)
	}
	client := spotify.New(api)

	database, err := db.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Users().Upsert(ctx, &db.User{ID: login.UserID, DisplayName: login.DisplayName, Email: login.Email}); err != nil {
		return err
	}

	log.Info().Str("user", login.DisplayName).Msg("tracking skips; press Ctrl+C to stop")

	svc := tracker.New(skips.NewService(database), trackerOptions(cfg)...)
	return svc.Watch(ctx, login.UserID, client)
}

func (a *app) logoutCmd() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "remove the cached Spotify login",
		Action: func(_ context.Context, _ *cli.Command) error {
			cache, err := auth.DefaultLoginCache()
			if err != nil {
				return err
			}
			removed, err := cache.Delete()
			if err != nil {
				return err
			}
			if !removed {
				fmt.Println("Not logged in.")
				return nil
			}
			fmt.Printf("Removed %s\n", cache.Path())
			return nil
		},
	}
}
