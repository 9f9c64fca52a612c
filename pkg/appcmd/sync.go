package appcmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// SyncOptions tunes a synchronization pass.
type SyncOptions struct {
	// DeleteUnknown removes remote commands that have no local definition.
	// When false (the default) such commands are carried along in bulk
	// overwrites so they survive, useful when another process or an older
	// build registered them on purpose.
	DeleteUnknown bool

	// GuildTimeout bounds each guild's pass. A guild exceeding it is skipped
	// like a missing-access guild; it never aborts the whole run. Zero means
	// no per-guild deadline.
	GuildTimeout time.Duration
}

// Synchronizer converges the remote service's registered command set with
// the registry, per scope: the global set and each guild's set are diffed and
// written independently, so one guild's failure never blocks another.
type Synchronizer struct {
	registry *Registry
	tr       Transport
	log      zerolog.Logger
	limiter  *rate.Limiter
	opts     SyncOptions
}

// NewSynchronizer builds a synchronizer over the given registry and
// transport. Write calls are paced to stay under Discord's rate limit.
func NewSynchronizer(reg *Registry, tr Transport, log zerolog.Logger, opts SyncOptions) *Synchronizer {
	return &Synchronizer{
		registry: reg,
		tr:       tr,
		log:      log.With().Str("component", "sync").Logger(),
		limiter:  rate.NewLimiter(rate.Every(25*time.Millisecond), 1),
		opts:     opts,
	}
}

// Sync runs one full pass: the global scope first, then every guild scope
// known to the registry. A global transport failure aborts the run. Guild
// scopes are isolated: missing access and per-guild timeouts are logged and
// skipped, other guild failures are collected and returned joined after the
// remaining guilds have been processed.
func (s *Synchronizer) Sync(ctx context.Context) error {
	if err := s.syncScope(ctx, ""); err != nil {
		return fmt.Errorf("sync global commands: %w", err)
	}
	var errs []error
	for _, gid := range s.registry.GuildIDs() {
		if err := s.SyncGuild(ctx, gid); err != nil {
			errs = append(errs, fmt.Errorf("sync guild %s: %w", gid, err))
		}
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
	}
	return errors.Join(errs...)
}

// SyncGuild converges a single guild scope. Missing access and deadline
// overruns are logged and swallowed (the guild is skipped); other transport
// failures are returned.
func (s *Synchronizer) SyncGuild(ctx context.Context, guildID string) error {
	gctx := ctx
	if s.opts.GuildTimeout > 0 {
		var cancel context.CancelFunc
		gctx, cancel = context.WithTimeout(ctx, s.opts.GuildTimeout)
		defer cancel()
	}
	err := s.syncScope(gctx, guildID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMissingAccess):
		s.log.Warn().
			Str("guild_id", guildID).
			Msg("missing access or applications.commands scope, skipping guild")
		return nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		s.log.Warn().
			Str("guild_id", guildID).
			Dur("timeout", s.opts.GuildTimeout).
			Msg("guild sync timed out, skipping guild")
		return nil
	default:
		return err
	}
}

// syncScope runs the fetch → diff → write → re-fetch → re-bind sequence for
// one scope, strictly in that order.
func (s *Synchronizer) syncScope(ctx context.Context, guildID string) error {
	remote, err := s.tr.FetchCommands(ctx, guildID)
	if err != nil {
		return fmt.Errorf("fetch commands: %w", err)
	}

	plan := s.stage(guildID, remote)
	authoritative := remote

	if plan.dirty() {
		authoritative, err = s.apply(ctx, guildID, plan)
		if err != nil {
			return err
		}
	} else {
		s.log.Debug().Str("guild_id", guildID).Msg("no command changes found")
	}

	s.registry.rebind(guildID, authoritative)
	return nil
}

// syncPlan is the staged outcome of diffing one scope.
type syncPlan struct {
	// toSend holds new registrations (no ID) and updates (ID carried over
	// from the matching remote entry).
	toSend []*discordgo.ApplicationCommand
	// carryOver are remote entries already matching their local node; no
	// write needed, but bulk payloads must include them.
	carryOver []*discordgo.ApplicationCommand
	// removals are remote entries without a local counterpart.
	removals  []*discordgo.ApplicationCommand
	hasUpdate bool
}

func (p *syncPlan) dirty() bool {
	return len(p.toSend) > 0 || len(p.removals) > 0
}

// stage partitions local and remote commands by surface kind and stages each
// entry as update, carry-over, removal candidate or new registration.
// Disabled nodes count as removed from code.
func (s *Synchronizer) stage(guildID string, remote []*discordgo.ApplicationCommand) *syncPlan {
	plan := &syncPlan{}
	local := s.registry.snapshot(guildID)
	remoteByType := map[discordgo.ApplicationCommandType][]*discordgo.ApplicationCommand{}
	for _, rc := range remote {
		t := typeOrChat(rc.Type)
		remoteByType[t] = append(remoteByType[t], rc)
	}

	for _, typ := range []discordgo.ApplicationCommandType{
		discordgo.ChatApplicationCommand,
		discordgo.UserApplicationCommand,
		discordgo.MessageApplicationCommand,
	} {
		locals := local[typ]
		matched := make(map[string]struct{})
		for _, rc := range remoteByType[typ] {
			node, ok := locals[rc.Name]
			if !ok || node.isDisabled() {
				plan.removals = append(plan.removals, rc)
				continue
			}
			matched[rc.Name] = struct{}{}
			// compare the scope-adjusted form: guild definitions never carry
			// dm_permission, so the raw EqualsRemote would flag false drift
			def := s.definitionForScope(node, guildID)
			if definitionEqual(def, rc) {
				plan.carryOver = append(plan.carryOver, rc)
				continue
			}
			def.ID = rc.ID
			plan.toSend = append(plan.toSend, def)
			plan.hasUpdate = true
		}
		for name, node := range locals {
			if _, ok := matched[name]; ok || node.isDisabled() {
				continue
			}
			plan.toSend = append(plan.toSend, s.definitionForScope(node, guildID))
		}
	}
	return plan
}

// definitionForScope produces the wire form for a scope; dm_permission only
// exists on global commands and is stripped from guild-scoped definitions.
func (s *Synchronizer) definitionForScope(node Node, guildID string) *discordgo.ApplicationCommand {
	def := node.Definition()
	if guildID != "" {
		def.DMPermission = nil
	}
	return def
}

// apply issues the cheapest set of write calls that converges the scope and
// returns the authoritative remote list afterwards: a single targeted create
// or edit when exactly one node changed and nothing is up for removal, one
// bulk overwrite otherwise.
func (s *Synchronizer) apply(ctx context.Context, guildID string, plan *syncPlan) ([]*discordgo.ApplicationCommand, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	single := len(plan.toSend) == 1 && len(plan.removals) == 0
	switch {
	case single && plan.hasUpdate:
		def := plan.toSend[0]
		s.log.Info().
			Str("guild_id", guildID).
			Str("command", def.Name).
			Msg("command definition changed, updating")
		if _, err := s.tr.EditCommand(ctx, guildID, def.ID, def); err != nil {
			return nil, fmt.Errorf("edit command %q: %w", def.Name, err)
		}
	case single:
		def := plan.toSend[0]
		s.log.Info().
			Str("guild_id", guildID).
			Str("command", def.Name).
			Msg("registering one new command")
		if _, err := s.tr.CreateCommand(ctx, guildID, def); err != nil {
			return nil, fmt.Errorf("create command %q: %w", def.Name, err)
		}
	default:
		payload := append([]*discordgo.ApplicationCommand(nil), plan.toSend...)
		if s.opts.DeleteUnknown {
			if len(plan.removals) > 0 {
				s.log.Info().
					Str("guild_id", guildID).
					Int("count", len(plan.removals)).
					Msg("removing commands no longer defined in code")
			}
		} else {
			payload = append(payload, plan.removals...)
		}
		payload = append(payload, plan.carryOver...)
		s.log.Info().
			Str("guild_id", guildID).
			Int("changed", len(plan.toSend)).
			Int("total", len(payload)).
			Msg("bulk overwriting commands")
		updated, err := s.tr.BulkOverwriteCommands(ctx, guildID, payload)
		if err != nil {
			return nil, fmt.Errorf("bulk overwrite commands: %w", err)
		}
		return updated, nil
	}

	// targeted create/edit: re-fetch so re-binding works from the
	// authoritative remote list
	updated, err := s.tr.FetchCommands(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("re-fetch commands: %w", err)
	}
	return updated, nil
}
