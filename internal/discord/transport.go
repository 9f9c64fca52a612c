package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"slashkit/pkg/appcmd"

	"github.com/bwmarrin/discordgo"
)

// SessionTransport adapts a discordgo session to the synchronizer's network
// boundary. HTTP 403 responses (the application lacks the
// applications.commands scope in a guild) are wrapped so the synchronizer
// can skip the guild instead of aborting.
type SessionTransport struct {
	session *discordgo.Session
	appID   string
}

// NewSessionTransport wraps a session for the given application ID.
func NewSessionTransport(s *discordgo.Session, appID string) *SessionTransport {
	return &SessionTransport{session: s, appID: appID}
}

// FetchCommands lists the commands registered for a scope.
func (t *SessionTransport) FetchCommands(ctx context.Context, guildID string) ([]*discordgo.ApplicationCommand, error) {
	cmds, err := t.session.ApplicationCommands(t.appID, guildID, discordgo.WithContext(ctx))
	return cmds, wrapAccessError(err)
}

// CreateCommand registers one new command in a scope.
func (t *SessionTransport) CreateCommand(ctx context.Context, guildID string, def *discordgo.ApplicationCommand) (*discordgo.ApplicationCommand, error) {
	created, err := t.session.ApplicationCommandCreate(t.appID, guildID, def, discordgo.WithContext(ctx))
	return created, wrapAccessError(err)
}

// EditCommand updates one existing command in place.
func (t *SessionTransport) EditCommand(ctx context.Context, guildID, commandID string, def *discordgo.ApplicationCommand) (*discordgo.ApplicationCommand, error) {
	updated, err := t.session.ApplicationCommandEdit(t.appID, guildID, commandID, def, discordgo.WithContext(ctx))
	return updated, wrapAccessError(err)
}

// BulkOverwriteCommands replaces a scope's full command set atomically.
func (t *SessionTransport) BulkOverwriteCommands(ctx context.Context, guildID string, defs []*discordgo.ApplicationCommand) ([]*discordgo.ApplicationCommand, error) {
	updated, err := t.session.ApplicationCommandBulkOverwrite(t.appID, guildID, defs, discordgo.WithContext(ctx))
	return updated, wrapAccessError(err)
}

func wrapAccessError(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %v", appcmd.ErrMissingAccess, err)
	}
	return err
}

var _ appcmd.Transport = (*SessionTransport)(nil)
