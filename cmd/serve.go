package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/newswire/internal/announcer"
	"github.com/newswire/internal/api"
	"github.com/newswire/internal/config"
	"github.com/newswire/internal/coordinator"
	"github.com/newswire/internal/database"
	"github.com/newswire/internal/directory"
	"github.com/newswire/internal/oracle"
	"github.com/newswire/internal/scraper"
	"github.com/newswire/internal/store"
	"github.com/newswire/internal/validator"
)

// ServeCommand returns the CLI command for running the feed server
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the newswire feed server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Override the configured server port",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.Int("port") > 0 {
		cfg.Server.Port = c.Int("port")
	}

	// The oracle always runs; without its credential the feed cannot
	// moderate and must not start
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	db, err := database.NewDB(cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.InitSchema(ctx, db); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to initialize schema")
	}
	cancel()
	log.Info().Msg("Schema initialized")

	storage := store.NewStorage(db)

	sc := scraper.New(cfg.Scraper.MaxConcurrency, cfg.Scraper.TimeoutSeconds)

	o, err := oracle.New(oracle.Config{
		APIKey:         cfg.Oracle.APIKey,
		Model:          cfg.Oracle.Model,
		TimeoutSeconds: cfg.Oracle.TimeoutSeconds,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize oracle")
	}

	v := validator.New(sc, o, cfg.Feed.Categories, cfg.Scraper.MaxBatchSize)

	// A nil announcer must stay a nil interface so the coordinator's nil
	// check works
	var ann coordinator.Announcer
	if a := announcer.New(announcer.Credentials{
		APIKey:       cfg.Announcer.APIKey,
		APISecret:    cfg.Announcer.APISecret,
		AccessToken:  cfg.Announcer.AccessToken,
		AccessSecret: cfg.Announcer.AccessSecret,
	}, storage); a != nil {
		ann = a
	}

	coord := coordinator.New(storage, v, ann, cfg.Feed.Categories)
	dir := directory.New(cfg.Directory.URL)

	server := api.NewServer(cfg.Server.Port, coord, dir, sc, cfg.Server.StaticDir, cfg.Scraper.MaxBatchSize)
	return server.Start()
}
