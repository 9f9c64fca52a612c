package appcmd

import (
	"github.com/bwmarrin/discordgo"
)

// definitionEqual compares a locally-produced definition against a
// remote-fetched one. The remote echoes definitions back with defaults
// filled in or omitted, so the comparison tolerates:
//
//   - required=false left out of remote option payloads
//   - dm_permission omitted (Discord defaults it to true)
//   - nsfw omitted (defaults to false)
//   - nil vs empty localization maps
//
// Sub-command and sub-command-group children are matched by name, not slot
// order, because the remote may reorder them; scalar options are compared
// positionally. Reordering scalar options therefore stages an update,
// reordering groups alone does not.
func definitionEqual(local, remote *discordgo.ApplicationCommand) bool {
	if local == nil || remote == nil {
		return local == remote
	}
	if local.Name != remote.Name || local.Description != remote.Description {
		return false
	}
	if typeOrChat(local.Type) != typeOrChat(remote.Type) {
		return false
	}
	if !int64PtrEqual(local.DefaultMemberPermissions, remote.DefaultMemberPermissions) {
		return false
	}
	if !boolPtrEqual(local.DMPermission, remote.DMPermission, true) {
		return false
	}
	if !boolPtrEqual(local.NSFW, remote.NSFW, false) {
		return false
	}
	if !localizationMapEqual(derefLoc(local.NameLocalizations), derefLoc(remote.NameLocalizations)) {
		return false
	}
	if !localizationMapEqual(derefLoc(local.DescriptionLocalizations), derefLoc(remote.DescriptionLocalizations)) {
		return false
	}
	return optionListEqual(local.Options, remote.Options)
}

// optionListEqual applies the container/scalar asymmetry: scalar options must
// match pairwise in order, container entries are located by name and compared
// recursively.
func optionListEqual(local, remote []*discordgo.ApplicationCommandOption) bool {
	lScalar, lContainer := splitOptions(local)
	rScalar, rContainer := splitOptions(remote)
	if len(lScalar) != len(rScalar) || len(lContainer) != len(rContainer) {
		return false
	}
	for i := range lScalar {
		if !optionEqual(lScalar[i], rScalar[i]) {
			return false
		}
	}
	remoteByName := make(map[string]*discordgo.ApplicationCommandOption, len(rContainer))
	for _, opt := range rContainer {
		remoteByName[opt.Name] = opt
	}
	for _, opt := range lContainer {
		match, ok := remoteByName[opt.Name]
		if !ok || !optionEqual(opt, match) {
			return false
		}
	}
	return true
}

func splitOptions(opts []*discordgo.ApplicationCommandOption) (scalars, containers []*discordgo.ApplicationCommandOption) {
	for _, o := range opts {
		switch o.Type {
		case discordgo.ApplicationCommandOptionSubCommand, discordgo.ApplicationCommandOptionSubCommandGroup:
			containers = append(containers, o)
		default:
			scalars = append(scalars, o)
		}
	}
	return scalars, containers
}

func optionEqual(local, remote *discordgo.ApplicationCommandOption) bool {
	if local.Type != remote.Type || local.Name != remote.Name || local.Description != remote.Description {
		return false
	}
	if local.Required != remote.Required {
		return false
	}
	if local.Autocomplete != remote.Autocomplete {
		return false
	}
	if !localizationMapEqual(local.NameLocalizations, remote.NameLocalizations) {
		return false
	}
	if !localizationMapEqual(local.DescriptionLocalizations, remote.DescriptionLocalizations) {
		return false
	}
	if !float64PtrEqual(local.MinValue, remote.MinValue) || local.MaxValue != remote.MaxValue {
		return false
	}
	if len(local.ChannelTypes) != len(remote.ChannelTypes) {
		return false
	}
	for i := range local.ChannelTypes {
		if local.ChannelTypes[i] != remote.ChannelTypes[i] {
			return false
		}
	}
	if len(local.Choices) != len(remote.Choices) {
		return false
	}
	for i := range local.Choices {
		if local.Choices[i].Name != remote.Choices[i].Name {
			return false
		}
		if !choiceValueEqual(local.Choices[i].Value, remote.Choices[i].Value) {
			return false
		}
	}
	return optionListEqual(local.Options, remote.Options)
}

// choiceValueEqual compares choice values across the JSON boundary: locally a
// choice value may be an int, remotely it decodes as float64.
func choiceValueEqual(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// typeOrChat treats a zero type as chat-input, matching how Discord defaults
// the field when it is omitted.
func typeOrChat(t discordgo.ApplicationCommandType) discordgo.ApplicationCommandType {
	if t == 0 {
		return discordgo.ChatApplicationCommand
	}
	return t
}

func int64PtrEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func float64PtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// boolPtrEqual treats a nil pointer as the platform default for that field.
func boolPtrEqual(a, b *bool, def bool) bool {
	av, bv := def, def
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

func derefLoc(m *map[discordgo.Locale]string) map[discordgo.Locale]string {
	if m == nil {
		return nil
	}
	return *m
}

func localizationMapEqual(a, b map[discordgo.Locale]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
