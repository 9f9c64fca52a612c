package appcmd

import (
	"github.com/bwmarrin/discordgo"
)

// Context carries one invocation through checks, handlers and error
// handlers.
type Context struct {
	Session     *discordgo.Session
	Interaction *discordgo.InteractionCreate

	// Command is the addressed top-level node. For nested invocations the
	// sub-command's handlers run, but errors are attributed to this node.
	Command Node

	// Path is the routed command path, e.g. "admin settings set".
	Path string

	// Args holds the resolved, type-coerced arguments keyed by parameter
	// name (the option name unless remapped through the node's connector).
	Args Args

	// Focused names the option currently being autocompleted. Empty outside
	// autocomplete invocations.
	Focused string

	// GuildID is empty for DM invocations.
	GuildID string
}

// Args is the bound-argument set of an invocation.
type Args map[string]any

// Has reports whether an argument was bound (supplied or defaulted).
func (a Args) Has(name string) bool {
	_, ok := a[name]
	return ok
}

// String returns a string argument, or "" when absent or differently typed.
func (a Args) String(name string) string {
	v, _ := a[name].(string)
	return v
}

// Int returns an integer argument. Values arrive from the wire as float64.
func (a Args) Int(name string) int64 {
	switch v := a[name].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}

// Float returns a number argument.
func (a Args) Float(name string) float64 {
	switch v := a[name].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Bool returns a boolean argument.
func (a Args) Bool(name string) bool {
	v, _ := a[name].(bool)
	return v
}

// Member returns a user argument resolved through the member bundle, or nil.
func (a Args) Member(name string) *discordgo.Member {
	v, _ := a[name].(*discordgo.Member)
	return v
}

// User returns a user argument resolved through the user bundle, or the user
// attached to a resolved member, or nil.
func (a Args) User(name string) *discordgo.User {
	switch v := a[name].(type) {
	case *discordgo.User:
		return v
	case *discordgo.Member:
		return v.User
	}
	return nil
}

// Role returns a role argument, or nil when it did not resolve.
func (a Args) Role(name string) *discordgo.Role {
	v, _ := a[name].(*discordgo.Role)
	return v
}

// Channel returns a channel argument, or nil when it did not resolve.
func (a Args) Channel(name string) *discordgo.Channel {
	v, _ := a[name].(*discordgo.Channel)
	return v
}

// Attachment returns an attachment argument, or nil when it did not resolve.
func (a Args) Attachment(name string) *discordgo.MessageAttachment {
	v, _ := a[name].(*discordgo.MessageAttachment)
	return v
}

// Message returns a message argument (message context commands bind the
// target under "target").
func (a Args) Message(name string) *discordgo.Message {
	v, _ := a[name].(*discordgo.Message)
	return v
}
