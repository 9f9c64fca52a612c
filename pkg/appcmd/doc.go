// Package appcmd is a client-side registry for Discord application commands.
// It holds the locally-defined command tree (slash commands, sub-commands,
// sub-command-groups, typed options, user/message context commands, per-guild
// variants), synchronizes that tree against the commands currently registered
// with Discord, and routes inbound interactions back to the correct leaf
// handler with typed, bound arguments.
//
// How the pieces fit together:
//
//	reg := appcmd.NewRegistry(logger)
//	// populate reg with commands during startup
//	sync := appcmd.NewSynchronizer(reg, transport, logger, appcmd.SyncOptions{})
//	disp := appcmd.NewDispatcher(reg, logger)
//	// once: sync.Sync(ctx)
//	// per interaction: disp.Dispatch(session, interaction)
//
// The Transport interface is the only network boundary; a production
// implementation backed by *discordgo.Session lives in internal/discord.
package appcmd
