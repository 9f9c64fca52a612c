// Package discord wires the command registry, synchronizer and dispatcher to
// a live gateway session.
package discord

import (
	"context"
	"fmt"
	"time"

	"slashkit/internal/config"
	"slashkit/internal/storage"
	"slashkit/pkg/appcmd"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Bot owns the gateway session and drives command synchronization and
// dispatch from its events.
type Bot struct {
	dg       *discordgo.Session
	cfg      *config.Config
	registry *appcmd.Registry
	store    *storage.Storage
	dispatch *appcmd.Dispatcher
	log      zerolog.Logger

	// runCtx bounds work started from gateway events; set by Run.
	runCtx context.Context
}

// New builds a bot over an already-populated registry.
func New(cfg *config.Config, log zerolog.Logger, registry *appcmd.Registry, store *storage.Storage) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	b := &Bot{
		dg:       dg,
		cfg:      cfg,
		registry: registry,
		store:    store,
		log:      log.With().Str("component", "bot").Logger(),
	}
	b.dispatch = appcmd.NewDispatcher(registry, log).
		SetErrorSink(errorSink(b.log)).
		SetAutocompleteResponder(autocompleteResponder{})

	dg.Identify.Intents = discordgo.IntentsGuilds
	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onInteractionCreate)
	return b, nil
}

// Run opens the session and blocks until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.runCtx = ctx
	if err := b.dg.Open(); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer b.dg.Close()

	<-ctx.Done()
	b.log.Info().Msg("shutdown signal received")
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.log.Info().Str("user", r.User.Username).Msg("gateway session ready")

	if !b.cfg.SyncOnStart {
		b.log.Info().Msg("command synchronization disabled, skipping")
		return
	}

	b.logDrift()
	if err := b.synchronize(); err != nil {
		b.log.Error().Err(err).Msg("command synchronization failed")
		return
	}
	b.log.Info().Msg("command synchronization finished")
}

// Reload re-populates the registry through register and synchronizes the
// result. Commands the callback does not re-register are soft-disabled, or
// dropped entirely when DELETE_ON_RELOAD is set; either way the next pass
// with deletion enabled removes them remotely.
func (b *Bot) Reload(register func(*appcmd.Registry) error) error {
	b.registry.BeginReload()
	if err := register(b.registry); err != nil {
		return fmt.Errorf("re-register commands: %w", err)
	}
	stale := b.registry.FinishReload(b.cfg.DeleteOnReload)
	for _, node := range stale {
		b.log.Info().
			Str("command", node.Name()).
			Bool("deleted", b.cfg.DeleteOnReload).
			Msg("command not re-registered on reload")
	}
	return b.synchronize()
}

// synchronize runs one full sync pass and persists the resulting bindings.
func (b *Bot) synchronize() error {
	appID, err := b.appID()
	if err != nil {
		return fmt.Errorf("resolve application id: %w", err)
	}
	sync := appcmd.NewSynchronizer(b.registry, NewSessionTransport(b.dg, appID), b.log, appcmd.SyncOptions{
		DeleteUnknown: b.cfg.DeleteUnknownCommands,
		GuildTimeout:  b.cfg.GuildSyncTimeout,
	})
	ctx := b.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	if err := sync.Sync(ctx); err != nil {
		return err
	}
	b.persistBindings()
	return nil
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.dispatch.Dispatch(s, i)
}

// appID returns the application ID, fetching from the API when the session
// state has not been populated yet.
func (b *Bot) appID() (string, error) {
	if b.dg.State != nil && b.dg.State.User != nil && b.dg.State.User.ID != "" {
		return b.dg.State.User.ID, nil
	}
	u, err := b.dg.User("@me")
	if err != nil {
		return "", fmt.Errorf("fetch bot user: %w", err)
	}
	return u.ID, nil
}

// logDrift compares the current definitions against the binding cache from
// the previous run and logs what changed since then. Purely informational;
// synchronization diffs against a live fetch regardless.
func (b *Bot) logDrift() {
	scopes := append([]string{""}, b.registry.GuildIDs()...)
	for _, scope := range scopes {
		cached, err := b.store.Bindings(scope)
		if err != nil {
			b.log.Warn().Err(err).Str("scope", scopeLabel(scope)).Msg("failed to load binding cache")
			continue
		}
		if len(cached) == 0 {
			continue
		}
		byName := make(map[string]storage.CommandBinding, len(cached))
		for _, cb := range cached {
			byName[cb.Name] = cb
		}
		for _, node := range b.registry.All(scope) {
			prev, ok := byName[node.Name()]
			if !ok {
				b.log.Debug().
					Str("scope", scopeLabel(scope)).
					Str("command", node.Name()).
					Msg("command added since last run")
				continue
			}
			if hashDefinition(node.Definition()) != prev.Hash {
				b.log.Debug().
					Str("scope", scopeLabel(scope)).
					Str("command", node.Name()).
					Time("last_synced", prev.SyncedAt).
					Msg("command definition changed since last run")
			}
		}
	}
}

// persistBindings snapshots every scope's bound state into the store.
func (b *Bot) persistBindings() {
	now := time.Now().UTC()
	scopes := append([]string{""}, b.registry.GuildIDs()...)
	for _, scope := range scopes {
		var records []storage.CommandBinding
		for _, node := range b.registry.All(scope) {
			bound := node.Binding(scope)
			if bound == nil {
				continue
			}
			records = append(records, storage.CommandBinding{
				Name:     node.Name(),
				Type:     int(node.Type()),
				ID:       bound.ID,
				Hash:     hashDefinition(node.Definition()),
				SyncedAt: now,
			})
		}
		if err := b.store.SetBindings(scope, records); err != nil {
			b.log.Warn().Err(err).Str("scope", scopeLabel(scope)).Msg("failed to persist bindings")
		}
	}
}

func scopeLabel(scope string) string {
	if scope == "" {
		return "global"
	}
	return scope
}
