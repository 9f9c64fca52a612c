package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"slashkit/internal/commands"
	"slashkit/internal/config"
	"slashkit/internal/discord"
	"slashkit/internal/logging"
	"slashkit/internal/storage"
	"slashkit/pkg/appcmd"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("info", "")
		bootLog.Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the store's autosave loop runs until ctx is cancelled; Close waits for
	// it, and Run only returns once ctx is done, so the deferred Close below
	// never blocks
	store, err := storage.New(ctx, cfg.StoragePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open binding store")
	}
	defer store.Close()

	registry := appcmd.NewRegistry(log)
	if err := commands.Register(registry, cfg.GuildIDs); err != nil {
		log.Fatal().Err(err).Msg("failed to register commands")
	}

	bot, err := discord.New(cfg, log, registry, store)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create bot")
	}

	log.Info().Msg("starting bot")
	if err := bot.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("bot exited with error")
	}
	log.Info().Msg("bot exited cleanly")
}
