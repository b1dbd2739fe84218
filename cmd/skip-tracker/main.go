// Command skip-tracker records skipped Spotify songs and serves a dashboard of them.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/justestif/go-spotify-skip-tracker/internal/config"
	"github.com/justestif/go-spotify-skip-tracker/internal/logging"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries the configuration loaded before any subcommand runs.
type app struct {
	cfg *config.Config
}

func newApp() *cli.Command {
	a := &app{}

	return &cli.Command{
		Name:  "skip-tracker",
		Usage: "track skipped Spotify songs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML config file",
				Sources: cli.EnvVars("SKIP_TRACKER_CONFIG"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{
				Name:    "log.level",
				Usage:   "Log level (debug, info, warn, error)",
				Sources: cli.EnvVars("SKIP_TRACKER_LOGLEVEL"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{
				Name:    "log.format",
				Usage:   "Log format (console, json)",
				Sources: cli.EnvVars("SKIP_TRACKER_LOGFORMAT"),
				Config:  cli.StringConfig{TrimSpace: true},
			},
		},
		Before: a.before,
		Commands: []*cli.Command{
			a.serveCmd(),
			a.migrateCmd(),
			a.trackCmd(),
			a.logoutCmd(),
			a.dashboardCmd(),
			initConfigCmd(),
		},
	}
}

// before loads the configuration and sets up logging. Flags override the config file.
func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, err
	}

	if v := cmd.String("log.level"); v != "" {
		cfg.Log.Level = v
	}
	if v := cmd.String("log.format"); v != "" {
		cfg.Log.Format = v
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	a.cfg = cfg
	return ctx, nil
}

func initConfigCmd() *cli.Command {
	return &cli.Command{
		Name:      "init-config",
		Usage:     "write an example config file",
		ArgsUsage: "[path]",
		Action: func(_ context.Context, cmd *cli.Command) error {
			path := cmd.Args().First()
			if path == "" {
				path = "config.toml"
			}
			if err := config.WriteExample(path); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
}
