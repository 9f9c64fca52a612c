package discord

import (
	"errors"

	"slashkit/pkg/appcmd"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Respond sends a public message response to an interaction.
func Respond(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
}

// RespondEphemeral sends an ephemeral message response to an interaction.
func RespondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// RespondEmbedEphemeral sends an ephemeral embed response to an interaction.
func RespondEmbedEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags:  discordgo.MessageFlagsEphemeral,
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	})
}

// autocompleteResponder answers autocomplete interactions with the choices a
// handler produced.
type autocompleteResponder struct{}

func (autocompleteResponder) RespondChoices(s *discordgo.Session, i *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{Choices: choices},
	})
}

// errorSink builds the process-wide fallback for command failures: log the
// error and tell the invoking user something went wrong, ephemerally so the
// channel stays clean. Check refusals surface their own message.
func errorSink(log zerolog.Logger) appcmd.ErrorSink {
	return func(node appcmd.Node, ctx *appcmd.Context, err error) {
		ev := log.Error().Err(err)
		if node != nil {
			ev = ev.Str("command", node.Name())
		}
		ev.Msg("command failed")

		if ctx == nil || ctx.Session == nil || ctx.Interaction == nil {
			return
		}
		msg := "Something went wrong while running that command."
		if errors.Is(err, appcmd.ErrCheckFailed) {
			msg = err.Error()
		}
		if rerr := RespondEmbedEphemeral(ctx.Session, ctx.Interaction, &discordgo.MessageEmbed{Description: msg}); rerr != nil {
			log.Warn().Err(rerr).Msg("failed to notify user about command error")
		}
	}
}
