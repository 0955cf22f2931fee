package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "bot2296/internal/command/core"
	_ "bot2296/internal/command/music"

	"bot2296/internal/config"
	"bot2296/internal/discord"
	"bot2296/internal/docs"
	"bot2296/internal/logger"
	"bot2296/internal/storage"
	"bot2296/internal/webhook"
	"bot2296/pkg/cmd"
	"bot2296/pkg/jobmgr"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

const (
	appName         = "bot2296"
	shutdownTimeout = 10 * time.Second
)

func main() {
	app := &cli.Command{
		Name:   appName,
		Usage:  "Discord music bot with a LeetCode webhook",
		Action: run,
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Connect to Discord and serve until interrupted",
				Action: run,
			},
			{
				Name:   "migrate",
				Usage:  "Apply pending database migrations",
				Action: migrateUp,
				Commands: []*cli.Command{
					{Name: "down", Usage: "Roll back the latest migration", Action: migrateDown},
					{Name: "status", Usage: "Print the current schema version", Action: migrateStatus},
				},
			},
			{
				Name:  "readme",
				Usage: "Regenerate README.md from the registered commands",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Path of the generated README",
						Value:   "README.md",
					},
					&cli.BoolFlag{
						Name:  "stdout",
						Usage: "Print instead of writing the file",
					},
				},
				Action: readme,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal().Err(err).Msg("Application error")
	}
}

// setup loads configuration and opens the database.
func setup(ctx context.Context) (*config.Config, *storage.Storage, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	logFile := logger.Setup(cfg.LogLevel, cfg.LogFile)

	store, err := storage.New(ctx, cfg.DBDriver, cfg.DSN(), cfg.DBMaxOpenConns)
	if err != nil {
		_ = logFile.Close()
		return nil, nil, nil, err
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
		_ = logFile.Close()
	}
	return cfg, store, cleanup, nil
}

func run(ctx context.Context, _ *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, store, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	applied, err := store.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if applied > 0 {
		log.Info().Int("applied", applied).Msg("Database migrations applied")
	}

	log.Info().Str("app", appName).Msg("Starting bot")

	jobs := jobmgr.New(ctx)
	defer func() {
		if err := jobs.Shutdown(shutdownTimeout); err != nil {
			log.Warn().Err(err).Msg("Background jobs did not stop in time")
		}
	}()

	bot, err := discord.New(cfg, store, jobs)
	if err != nil {
		return err
	}

	if err := jobs.Go("history-cleaner", func(ctx context.Context) error {
		return storage.RunHistoryCleaner(ctx, store)
	}); err != nil {
		return err
	}
	if cfg.WebhookAPIKey == "" {
		log.Warn().Msg("API_KEY is not set, webhook server disabled")
	} else if err := jobs.Go("webhook", webhook.New(cfg.WebhookAddr, cfg.WebhookAPIKey, bot.Forum()).Run); err != nil {
		return err
	}

	if err := bot.Run(ctx); err != nil {
		return fmt.Errorf("discord bot: %w", err)
	}
	log.Info().Msg("Bot stopped")
	return nil
}

func migrateUp(ctx context.Context, _ *cli.Command) error {
	_, store, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	applied, err := store.Migrate(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Applied %d migration(s)\n", applied)
	return nil
}

func migrateDown(ctx context.Context, _ *cli.Command) error {
	_, store, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := store.Rollback(ctx); err != nil {
		return err
	}
	fmt.Println("Rolled back the latest migration")
	return nil
}

func migrateStatus(ctx context.Context, _ *cli.Command) error {
	_, store, cleanup, err := setup(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	version, err := store.MigrationVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Schema version: %d\n", version)
	return nil
}

func readme(_ context.Context, c *cli.Command) error {
	if c.Bool("stdout") {
		out, err := docs.Render(cmd.DefaultRegistry, config.CategoryWeights)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	}
	return docs.UpdateReadme(c.String("out"), cmd.DefaultRegistry, config.CategoryWeights)
}
