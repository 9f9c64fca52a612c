package appcmd

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// Transport is the network boundary of the synchronization engine. guildID
// selects the scope: empty for global, a guild identifier for that guild's
// command set.
//
// Implementations must wrap access/permission failures (e.g. HTTP 403,
// missing applications.commands scope) so that errors.Is(err,
// ErrMissingAccess) holds; the synchronizer skips the affected guild instead
// of aborting the pass. Any other error is treated as a transport failure
// and propagated.
type Transport interface {
	FetchCommands(ctx context.Context, guildID string) ([]*discordgo.ApplicationCommand, error)
	CreateCommand(ctx context.Context, guildID string, def *discordgo.ApplicationCommand) (*discordgo.ApplicationCommand, error)
	EditCommand(ctx context.Context, guildID, commandID string, def *discordgo.ApplicationCommand) (*discordgo.ApplicationCommand, error)
	BulkOverwriteCommands(ctx context.Context, guildID string, defs []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error)
}
