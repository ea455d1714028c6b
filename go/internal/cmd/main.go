package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidwatch/go/clients/auction_api_client"
	"github.com/mcdev12/bidwatch/go/internal/bidding"
	"github.com/mcdev12/bidwatch/go/internal/countdown"
	"github.com/mcdev12/bidwatch/go/internal/poll"
	"github.com/mcdev12/bidwatch/go/internal/schedule"
	"github.com/mcdev12/bidwatch/go/internal/view"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if getEnv("BIDWATCH_DEBUG", "") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	config, err := loadConfig(getEnv("BIDWATCH_CONFIG", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	client := auction_api_client.NewAuctionAPIClient(config.BaseURL)
	state := view.NewState()
	sched := schedule.NewScheduler(clockwork.NewRealClock())

	poller := poll.NewController(client, state, sched, poll.Config{
		ListInterval:   time.Duration(config.ListIntervalMs) * time.Millisecond,
		DetailInterval: time.Duration(config.DetailIntervalMs) * time.Millisecond,
	})
	bidController := bidding.NewController(client, state, poller)
	engine := countdown.NewEngine(state, sched)

	app := newApp(client, state, poller, bidController)

	// Renderer and countdown engine subscribe before any timer starts.
	app.bindRenderer()
	engine.Bind()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := poller.StartListPolling(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start polling")
	}
	defer func() {
		poller.Stop()
		engine.Stop()
	}()

	app.run(ctx)
}
