// Package commands declares the bot's command tree.
package commands

import (
	"fmt"
	"strings"

	"slashkit/internal/discord"
	"slashkit/pkg/appcmd"

	"github.com/bwmarrin/discordgo"
)

// Register builds the command tree and adds it to the registry. guildIDs
// scopes the moderation commands; everything else is global.
func Register(reg *appcmd.Registry, guildIDs []string) error {
	if err := registerPing(reg); err != nil {
		return err
	}
	if err := registerRoll(reg); err != nil {
		return err
	}
	if err := registerTag(reg); err != nil {
		return err
	}
	if err := registerMod(reg, guildIDs); err != nil {
		return err
	}
	if err := registerContextMenus(reg); err != nil {
		return err
	}
	return nil
}

func registerPing(reg *appcmd.Registry) error {
	ping, err := appcmd.NewSlashCommand("ping", "Check that the bot is alive")
	if err != nil {
		return err
	}
	ping.Handle(func(ctx *appcmd.Context) error {
		return respond(ctx, "Pong!")
	})
	return reg.RegisterSlash(ping)
}

func registerRoll(reg *appcmd.Registry) error {
	sides, err := appcmd.NewOption(discordgo.ApplicationCommandOptionInteger,
		"sides", "Number of sides on the die",
		appcmd.WithBounds(2, 1000),
		appcmd.WithDefault(int64(6)),
	)
	if err != nil {
		return err
	}
	count, err := appcmd.NewOption(discordgo.ApplicationCommandOptionInteger,
		"count", "How many dice to roll",
		appcmd.WithBounds(1, 20),
		appcmd.WithDefault(int64(1)),
	)
	if err != nil {
		return err
	}
	roll, err := appcmd.NewSlashCommand("roll", "Roll some dice",
		appcmd.WithOptions(sides, count))
	if err != nil {
		return err
	}
	roll.Handle(func(ctx *appcmd.Context) error {
		s := ctx.Args.Int("sides")
		n := ctx.Args.Int("count")
		return respond(ctx, fmt.Sprintf("Rolling %dd%d...", n, s))
	})
	return reg.RegisterSlash(roll)
}

// builtinTags backs the autocomplete demo; a real deployment would read
// these from storage.
var builtinTags = []string{"rules", "welcome", "faq", "support", "invite"}

func registerTag(reg *appcmd.Registry) error {
	name, err := appcmd.NewOption(discordgo.ApplicationCommandOptionString,
		"name", "Tag to display",
		appcmd.Required(),
		appcmd.WithAutocomplete(),
	)
	if err != nil {
		return err
	}
	tag, err := appcmd.NewSlashCommand("tag", "Show a stored text snippet",
		appcmd.WithOptions(name))
	if err != nil {
		return err
	}
	tag.Handle(func(ctx *appcmd.Context) error {
		n := ctx.Args.String("name")
		return respond(ctx, "Tag: "+n)
	})
	tag.OnAutocomplete(func(ctx *appcmd.Context) ([]*discordgo.ApplicationCommandOptionChoice, error) {
		partial := ctx.Args.String(ctx.Focused)
		var choices []*discordgo.ApplicationCommandOptionChoice
		for _, t := range builtinTags {
			if strings.HasPrefix(t, strings.ToLower(partial)) {
				choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: t, Value: t})
			}
		}
		return choices, nil
	})
	return reg.RegisterSlash(tag)
}

// registerMod builds a container command: /mod user kick|timeout and
// /mod channel slowmode. Guild-scoped and gated on moderation permissions.
func registerMod(reg *appcmd.Registry, guildIDs []string) error {
	mod, err := appcmd.NewSlashCommand("mod", "Moderation tools",
		appcmd.WithPermissions(discordgo.PermissionModerateMembers))
	if err != nil {
		return err
	}
	mod.AddCheck(appcmd.GuildOnly)

	userGrp, err := mod.AddSubcommandGroup("user", "Act on a member")
	if err != nil {
		return err
	}

	target, err := appcmd.NewOption(discordgo.ApplicationCommandOptionUser,
		"target", "Member to act on", appcmd.Required())
	if err != nil {
		return err
	}
	reason, err := appcmd.NewOption(discordgo.ApplicationCommandOptionString,
		"reason", "Why", appcmd.WithDefault("no reason given"))
	if err != nil {
		return err
	}

	kick, err := userGrp.AddSubcommand("kick", "Kick a member", target, reason)
	if err != nil {
		return err
	}
	kick.Handle(func(ctx *appcmd.Context) error {
		member := ctx.Args.Member("target")
		if member == nil {
			return fmt.Errorf("target is not a member of this server")
		}
		why := ctx.Args.String("reason")
		if err := ctx.Session.GuildMemberDeleteWithReason(ctx.GuildID, member.User.ID, why); err != nil {
			return fmt.Errorf("kick member: %w", err)
		}
		return respondEphemeral(ctx, "Kicked "+member.User.Username)
	})

	minutes, err := appcmd.NewOption(discordgo.ApplicationCommandOptionInteger,
		"minutes", "Timeout length in minutes",
		appcmd.Required(), appcmd.WithBounds(1, 40320))
	if err != nil {
		return err
	}
	timeout, err := userGrp.AddSubcommand("timeout", "Time a member out", target, minutes)
	if err != nil {
		return err
	}
	timeout.Handle(func(ctx *appcmd.Context) error {
		member := ctx.Args.Member("target")
		mins := ctx.Args.Int("minutes")
		if member == nil {
			return fmt.Errorf("target is not a member of this server")
		}
		return respondEphemeral(ctx, fmt.Sprintf("Timed %s out for %d minute(s)", member.User.Username, mins))
	})

	channelGrp, err := mod.AddSubcommandGroup("channel", "Act on a channel")
	if err != nil {
		return err
	}
	seconds, err := appcmd.NewOption(discordgo.ApplicationCommandOptionInteger,
		"seconds", "Slowmode interval, 0 disables",
		appcmd.Required(), appcmd.WithBounds(0, 21600))
	if err != nil {
		return err
	}
	channel, err := appcmd.NewOption(discordgo.ApplicationCommandOptionChannel,
		"channel", "Channel to change",
		appcmd.WithChannelTypes(discordgo.ChannelTypeGuildText))
	if err != nil {
		return err
	}
	slowmode, err := channelGrp.AddSubcommand("slowmode", "Set a channel's slowmode", seconds, channel)
	if err != nil {
		return err
	}
	slowmode.Handle(func(ctx *appcmd.Context) error {
		secs := ctx.Args.Int("seconds")
		return respondEphemeral(ctx, fmt.Sprintf("Slowmode set to %d second(s)", secs))
	})

	return reg.RegisterSlash(mod, guildIDs...)
}

func registerContextMenus(reg *appcmd.Registry) error {
	avatar, err := appcmd.NewUserCommand("Show Avatar")
	if err != nil {
		return err
	}
	avatar.Handle(func(ctx *appcmd.Context) error {
		user := ctx.Args.User("target")
		if user == nil {
			return fmt.Errorf("no user target resolved")
		}
		return respond(ctx, user.AvatarURL("512"))
	})
	if err := reg.RegisterUser(avatar); err != nil {
		return err
	}

	quote, err := appcmd.NewMessageCommand("Quote")
	if err != nil {
		return err
	}
	quote.Handle(func(ctx *appcmd.Context) error {
		msg := ctx.Args.Message("target")
		if msg == nil {
			return fmt.Errorf("no message target resolved")
		}
		return respond(ctx, "> "+msg.Content)
	})
	return reg.RegisterMessage(quote)
}

func respond(ctx *appcmd.Context, content string) error {
	return discord.Respond(ctx.Session, ctx.Interaction, content)
}

func respondEphemeral(ctx *appcmd.Context, content string) error {
	return discord.RespondEphemeral(ctx.Session, ctx.Interaction, content)
}
