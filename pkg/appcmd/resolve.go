package appcmd

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// resolveArguments turns the supplied option values into a bound-argument
// set: scalar values pass through verbatim, entity references are looked up
// in the payload's resolved bundles with the raw identifier as fallback.
// Declared options that were not supplied but carry a default are injected
// afterwards, so handlers (and autocomplete handlers in particular) always
// see a stable value. The focused option's declared name is returned for
// autocomplete payloads.
func resolveArguments(leaf invocable, supplied []*discordgo.ApplicationCommandInteractionDataOption, resolved *discordgo.ApplicationCommandInteractionDataResolved) (Args, string) {
	declared := leaf.declaredOptions()
	connector := leaf.connectorMap()

	args := make(Args, len(declared))
	focused := ""
	suppliedNames := make(map[string]struct{}, len(supplied))

	for _, opt := range supplied {
		suppliedNames[opt.Name] = struct{}{}
		if opt.Focused {
			focused = opt.Name
		}
		param := paramNameFor(connector, opt.Name)
		args[param] = resolveOptionValue(opt, resolved)
	}

	for _, o := range declared {
		if _, ok := suppliedNames[o.name]; ok || o.defaultValue == nil {
			continue
		}
		args[paramNameFor(connector, o.name)] = o.defaultValue
	}

	return args, focused
}

// paramNameFor applies the connector map (parameter name -> option name) in
// reverse, defaulting to the option's own name.
func paramNameFor(connector map[string]string, optionName string) string {
	for param, option := range connector {
		if option == optionName {
			return param
		}
	}
	return optionName
}

func resolveOptionValue(opt *discordgo.ApplicationCommandInteractionDataOption, resolved *discordgo.ApplicationCommandInteractionDataResolved) any {
	switch opt.Type {
	case discordgo.ApplicationCommandOptionString,
		discordgo.ApplicationCommandOptionInteger,
		discordgo.ApplicationCommandOptionBoolean,
		discordgo.ApplicationCommandOptionNumber:
		return opt.Value
	case discordgo.ApplicationCommandOptionUser:
		return resolveUserID(rawID(opt.Value), resolved)
	case discordgo.ApplicationCommandOptionRole:
		id := rawID(opt.Value)
		if resolved != nil {
			if role := resolved.Roles[id]; role != nil {
				return role
			}
		}
		return id
	case discordgo.ApplicationCommandOptionChannel:
		id := rawID(opt.Value)
		if resolved != nil {
			if ch := resolved.Channels[id]; ch != nil {
				return ch
			}
		}
		return id
	case discordgo.ApplicationCommandOptionMentionable:
		return resolveMentionable(opt.Value, resolved)
	case discordgo.ApplicationCommandOptionAttachment:
		id := rawID(opt.Value)
		if resolved != nil {
			if att := resolved.Attachments[id]; att != nil {
				return att
			}
		}
		return id
	}
	return opt.Value
}

// resolveUserID resolves a user reference: member bundle first, then user
// bundle, then the raw identifier. A resolved member missing its inner user
// gets it attached from the user bundle so callers see one coherent object.
func resolveUserID(id string, resolved *discordgo.ApplicationCommandInteractionDataResolved) any {
	if resolved == nil {
		return id
	}
	if member := resolved.Members[id]; member != nil {
		if member.User == nil {
			member.User = resolved.Users[id]
		}
		return member
	}
	if user := resolved.Users[id]; user != nil {
		return user
	}
	return id
}

// resolveMentionable disambiguates a mentionable value: a role marker in the
// raw mention form (or membership in the resolved role bundle, since most
// payloads carry bare identifiers) selects the role path, anything else
// resolves as a user.
func resolveMentionable(value any, resolved *discordgo.ApplicationCommandInteractionDataResolved) any {
	raw, _ := value.(string)
	id := stripMention(raw)
	isRole := strings.Contains(raw, "&")
	if !isRole && resolved != nil {
		_, isRole = resolved.Roles[id]
	}
	if isRole {
		if resolved != nil {
			if role := resolved.Roles[id]; role != nil {
				return role
			}
		}
		return id
	}
	return resolveUserID(id, resolved)
}

// rawID extracts the bare identifier out of an option value that may carry
// mention decorations (<@id>, <@!id>, <@&id>, <#id>).
func rawID(value any) string {
	s, _ := value.(string)
	return stripMention(s)
}

func stripMention(s string) string {
	return strings.Trim(s, "<!@&#>")
}
