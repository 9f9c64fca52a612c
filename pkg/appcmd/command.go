package appcmd

import (
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// Handler runs a full command invocation.
type Handler func(ctx *Context) error

// AutocompleteHandler produces choice suggestions for the focused option. The
// dispatcher sends the returned choices back through its responder.
type AutocompleteHandler func(ctx *Context) ([]*discordgo.ApplicationCommandOptionChoice, error)

// ErrorHandler receives check and handler failures for the node it is
// attached to. It usually tells the invoking user something went wrong.
type ErrorHandler func(ctx *Context, err error)

// Check is a predicate run before a handler. A non-nil error aborts the
// invocation.
type Check func(ctx *Context) error

// Node is the capability shared by every addressable command-tree entry, so
// synchronization and dispatch treat all variants uniformly.
type Node interface {
	Name() string
	Type() discordgo.ApplicationCommandType
	// Definition produces the canonical request/comparison wire form.
	Definition() *discordgo.ApplicationCommand
	// EqualsRemote structurally compares the node against a remote-fetched
	// command (see definitionEqual for the tolerances applied).
	EqualsRemote(remote *discordgo.ApplicationCommand) bool
	// Binding returns the remote-facing state bound to a scope ("" = global),
	// nil before synchronization has run for it.
	Binding(guildID string) *Binding

	bind(guildID string, remote *discordgo.ApplicationCommand)
	setDisabled(v bool)
	isDisabled() bool
	setGeneration(gen uint64)
	generation() uint64
}

// invocable is the dispatch-side contract of a leaf (a slash command without
// sub-commands, a sub-command, or a context command).
type invocable interface {
	checkChain() []Check
	handlerFunc() Handler
	errorHandlerFunc() ErrorHandler
	autocompleteFunc() AutocompleteHandler
	declaredOptions() []*Option
	connectorMap() map[string]string
}

// Binding is the per-guild remote-facing state of a logical command: the
// identifier Discord assigned, its creation time (derived from the snowflake)
// and the permission snapshot from the last synchronization. The global
// binding is keyed by the empty guild ID.
type Binding struct {
	ID          string
	GuildID     string
	CreatedAt   time.Time
	Permissions *int64
}

func bindingFromRemote(guildID string, remote *discordgo.ApplicationCommand) *Binding {
	b := &Binding{
		ID:          remote.ID,
		GuildID:     guildID,
		Permissions: remote.DefaultMemberPermissions,
	}
	if ts, err := discordgo.SnowflakeTimestamp(remote.ID); err == nil {
		b.CreatedAt = ts
	}
	return b
}

// SlashCommand is a top-level chat-input command. It either owns a flat
// option list (leaf, directly invocable) or sub-commands/sub-command-groups
// (container) — never both. One SlashCommand value may be registered for
// several guilds; the per-guild remote state lives in its bindings.
type SlashCommand struct {
	name        string
	description string
	nameLoc     map[discordgo.Locale]string
	descLoc     map[discordgo.Locale]string

	permissions  *int64
	dmPermission *bool
	nsfw         bool

	options    []*Option
	subs       map[string]*Subcommand
	groups     map[string]*SubcommandGroup
	childOrder []string

	connector      map[string]string
	handler        Handler
	onError        ErrorHandler
	onAutocomplete AutocompleteHandler
	checks         []Check

	// disabled is the only node field mutated after registration; dispatch
	// reads it without holding the registry lock, so it must stay atomic.
	disabled atomic.Bool
	appID    string
	bindings map[string]*Binding
	gen      uint64
}

// CommandSetting mutates a SlashCommand under construction.
type CommandSetting func(*SlashCommand)

// WithOptions sets the flat option list of a leaf command.
func WithOptions(options ...*Option) CommandSetting {
	return func(c *SlashCommand) { c.options = options }
}

// WithPermissions sets the permission bitmask members need by default to see
// and use the command.
func WithPermissions(perms int64) CommandSetting {
	return func(c *SlashCommand) { c.permissions = &perms }
}

// WithDMPermission controls availability in DMs (global commands only; the
// flag is omitted from guild-scoped definitions).
func WithDMPermission(allowed bool) CommandSetting {
	return func(c *SlashCommand) { c.dmPermission = &allowed }
}

// WithNSFW marks the command age-restricted.
func WithNSFW() CommandSetting {
	return func(c *SlashCommand) { c.nsfw = true }
}

// WithLocalizedCommandName adds a localized command name.
func WithLocalizedCommandName(locale discordgo.Locale, name string) CommandSetting {
	return func(c *SlashCommand) {
		if c.nameLoc == nil {
			c.nameLoc = make(map[discordgo.Locale]string)
		}
		c.nameLoc[locale] = name
	}
}

// WithLocalizedCommandDescription adds a localized command description.
func WithLocalizedCommandDescription(locale discordgo.Locale, desc string) CommandSetting {
	return func(c *SlashCommand) {
		if c.descLoc == nil {
			c.descLoc = make(map[discordgo.Locale]string)
		}
		c.descLoc[locale] = desc
	}
}

// NewSlashCommand validates and builds a top-level chat-input command.
func NewSlashCommand(name, description string, settings ...CommandSetting) (*SlashCommand, error) {
	c := &SlashCommand{
		name:        name,
		description: description,
		subs:        make(map[string]*Subcommand),
		groups:      make(map[string]*SubcommandGroup),
		connector:   make(map[string]string),
		bindings:    make(map[string]*Binding),
	}
	for _, apply := range settings {
		apply(c)
	}
	if !validName(name) {
		return nil, invalidf("command name must be 1-32 characters of a-z, 0-9, _ and -, got %q", name)
	}
	if !validDescription(description) {
		return nil, invalidf("command %q: description must be 1-100 characters long", name)
	}
	for loc, n := range c.nameLoc {
		if !validLocale(loc) {
			return nil, invalidf("command %q: unknown locale %q", name, loc)
		}
		if !validName(n) {
			return nil, invalidf("command %q: localized name for %s is invalid: %q", name, loc, n)
		}
	}
	for loc, d := range c.descLoc {
		if !validLocale(loc) {
			return nil, invalidf("command %q: unknown locale %q", name, loc)
		}
		if !validDescription(d) {
			return nil, invalidf("command %q: localized description for %s is out of bounds", name, loc)
		}
	}
	if err := validateOptionList(name, c.options); err != nil {
		return nil, err
	}
	return c, nil
}

func validateOptionList(owner string, options []*Option) error {
	if len(options) > 25 {
		return invalidf("command %q: at most 25 options allowed, got %d", owner, len(options))
	}
	seen := make(map[string]struct{}, len(options))
	for _, o := range options {
		if _, dup := seen[o.name]; dup {
			return invalidf("command %q: duplicate option name %q", owner, o.name)
		}
		seen[o.name] = struct{}{}
	}
	return nil
}

// Name returns the command name.
func (c *SlashCommand) Name() string { return c.name }

// Type returns the chat-input surface kind.
func (c *SlashCommand) Type() discordgo.ApplicationCommandType {
	return discordgo.ChatApplicationCommand
}

// Handle sets the handler invoked for leaf invocations.
func (c *SlashCommand) Handle(h Handler) *SlashCommand {
	c.handler = h
	return c
}

// OnError sets the node's error handler. For a command registered in several
// guilds the handler applies to every per-guild binding, since all of them
// share this one node.
func (c *SlashCommand) OnError(h ErrorHandler) *SlashCommand {
	c.onError = h
	return c
}

// OnAutocomplete sets the autocomplete handler. Sub-commands without their
// own autocomplete handler fall back to this one.
func (c *SlashCommand) OnAutocomplete(h AutocompleteHandler) *SlashCommand {
	c.onAutocomplete = h
	return c
}

// AddCheck appends a predicate run before the handler.
func (c *SlashCommand) AddCheck(chk Check) *SlashCommand {
	c.checks = append(c.checks, chk)
	return c
}

// Connect maps a handler parameter name to an option name, for handlers whose
// parameter names differ from the declared option names (e.g. non-ASCII
// option names).
func (c *SlashCommand) Connect(param, option string) *SlashCommand {
	c.connector[param] = option
	return c
}

// AddSubcommand attaches a sub-command directly under the command. It fails
// when the command already carries flat options (a command is either a leaf
// or a container) or when the sibling set is full or the name collides.
func (c *SlashCommand) AddSubcommand(name, description string, options ...*Option) (*Subcommand, error) {
	if len(c.options) > 0 {
		return nil, invalidf("command %q: cannot mix flat options and sub-commands", c.name)
	}
	if err := c.checkChild(name); err != nil {
		return nil, err
	}
	sub, err := newSubcommand(c, name, description, options)
	if err != nil {
		return nil, err
	}
	c.subs[name] = sub
	c.childOrder = append(c.childOrder, name)
	return sub, nil
}

// AddSubcommandGroup attaches a sub-command-group under the command. The
// group must receive at least one sub-command before registration.
func (c *SlashCommand) AddSubcommandGroup(name, description string) (*SubcommandGroup, error) {
	if len(c.options) > 0 {
		return nil, invalidf("command %q: cannot mix flat options and sub-command-groups", c.name)
	}
	if err := c.checkChild(name); err != nil {
		return nil, err
	}
	if !validName(name) {
		return nil, invalidf("sub-command-group name must be 1-32 characters of a-z, 0-9, _ and -, got %q", name)
	}
	if !validDescription(description) {
		return nil, invalidf("sub-command-group %q: description must be 1-100 characters long", name)
	}
	grp := &SubcommandGroup{
		parent:      c,
		name:        name,
		description: description,
		subs:        make(map[string]*Subcommand),
	}
	c.groups[name] = grp
	c.childOrder = append(c.childOrder, name)
	return grp, nil
}

func (c *SlashCommand) checkChild(name string) error {
	if len(c.childOrder) >= 25 {
		return invalidf("command %q: at most 25 sub-commands/groups allowed", c.name)
	}
	if _, dup := c.subs[name]; dup {
		return invalidf("command %q: duplicate child name %q", c.name, name)
	}
	if _, dup := c.groups[name]; dup {
		return invalidf("command %q: duplicate child name %q", c.name, name)
	}
	return nil
}

// isContainer reports whether the command owns sub-commands instead of a flat
// option list.
func (c *SlashCommand) isContainer() bool { return len(c.childOrder) > 0 }

// Binding returns the remote-facing state for the given guild ("" = global),
// or nil before synchronization has bound the scope.
func (c *SlashCommand) Binding(guildID string) *Binding { return c.bindings[guildID] }

// GuildIDs returns the guild identifiers the command is registered for, empty
// for a purely global command.
func (c *SlashCommand) GuildIDs() []string {
	var ids []string
	for gid := range c.bindings {
		if gid != "" {
			ids = append(ids, gid)
		}
	}
	return ids
}

func (c *SlashCommand) bind(guildID string, remote *discordgo.ApplicationCommand) {
	c.appID = remote.ApplicationID
	c.bindings[guildID] = bindingFromRemote(guildID, remote)
}

func (c *SlashCommand) setDisabled(v bool) { c.disabled.Store(v) }

func (c *SlashCommand) isDisabled() bool      { return c.disabled.Load() }
func (c *SlashCommand) setGeneration(g uint64) { c.gen = g }
func (c *SlashCommand) generation() uint64     { return c.gen }

func (c *SlashCommand) checkChain() []Check                   { return c.checks }
func (c *SlashCommand) handlerFunc() Handler                  { return c.handler }
func (c *SlashCommand) errorHandlerFunc() ErrorHandler        { return c.onError }
func (c *SlashCommand) autocompleteFunc() AutocompleteHandler { return c.onAutocomplete }
func (c *SlashCommand) declaredOptions() []*Option            { return c.options }
func (c *SlashCommand) connectorMap() map[string]string       { return c.connector }

// validateTree enforces the invariants that only hold once the tree is
// complete: every group carries at least one sub-command and a container
// command has no handler-less leaves left unnoticed at registration time.
func (c *SlashCommand) validateTree() error {
	for name, grp := range c.groups {
		if len(grp.subs) == 0 {
			return invalidf("command %q: sub-command-group %q has no sub-commands", c.name, name)
		}
	}
	return nil
}

// contextCommand backs the user and message context-menu variants: name plus
// permission/DM/NSFW metadata and a single handler, no options.
type contextCommand struct {
	name         string
	typ          discordgo.ApplicationCommandType
	permissions  *int64
	dmPermission *bool
	nsfw         bool

	handler  Handler
	onError  ErrorHandler
	checks   []Check
	disabled atomic.Bool
	appID    string
	bindings map[string]*Binding
	gen      uint64
}

func initContextCommand(c *contextCommand, typ discordgo.ApplicationCommandType, name string) error {
	// context-menu names allow spaces and mixed case; only length is bounded
	if n := utf8.RuneCountInString(name); n < 1 || n > 32 {
		return invalidf("context command name must be 1-32 characters long, got %d", n)
	}
	c.name = name
	c.typ = typ
	c.bindings = make(map[string]*Binding)
	return nil
}

func (c *contextCommand) Name() string                           { return c.name }
func (c *contextCommand) Type() discordgo.ApplicationCommandType { return c.typ }
func (c *contextCommand) Binding(guildID string) *Binding        { return c.bindings[guildID] }
func (c *contextCommand) isDisabled() bool                       { return c.disabled.Load() }
func (c *contextCommand) setGeneration(g uint64)                 { c.gen = g }
func (c *contextCommand) generation() uint64                     { return c.gen }
func (c *contextCommand) checkChain() []Check                    { return c.checks }
func (c *contextCommand) handlerFunc() Handler                   { return c.handler }
func (c *contextCommand) errorHandlerFunc() ErrorHandler         { return c.onError }
func (c *contextCommand) autocompleteFunc() AutocompleteHandler  { return nil }
func (c *contextCommand) declaredOptions() []*Option             { return nil }
func (c *contextCommand) connectorMap() map[string]string        { return nil }

func (c *contextCommand) setDisabled(v bool) { c.disabled.Store(v) }

func (c *contextCommand) bind(guildID string, remote *discordgo.ApplicationCommand) {
	c.appID = remote.ApplicationID
	c.bindings[guildID] = bindingFromRemote(guildID, remote)
}

// Definition produces the wire form of a context-menu command (no
// description, no options).
func (c *contextCommand) Definition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:                     c.name,
		Type:                     c.typ,
		DefaultMemberPermissions: c.permissions,
		DMPermission:             c.dmPermission,
		NSFW:                     &c.nsfw,
	}
}

// EqualsRemote structurally compares the context command against a
// remote-fetched entry.
func (c *contextCommand) EqualsRemote(remote *discordgo.ApplicationCommand) bool {
	return definitionEqual(c.Definition(), remote)
}

// UserCommand is a user context-menu command.
type UserCommand struct{ contextCommand }

// MessageCommand is a message context-menu command.
type MessageCommand struct{ contextCommand }

// NewUserCommand validates and builds a user context-menu command.
func NewUserCommand(name string) (*UserCommand, error) {
	c := &UserCommand{}
	if err := initContextCommand(&c.contextCommand, discordgo.UserApplicationCommand, name); err != nil {
		return nil, err
	}
	return c, nil
}

// NewMessageCommand validates and builds a message context-menu command.
func NewMessageCommand(name string) (*MessageCommand, error) {
	c := &MessageCommand{}
	if err := initContextCommand(&c.contextCommand, discordgo.MessageApplicationCommand, name); err != nil {
		return nil, err
	}
	return c, nil
}

// Handle sets the handler. The target user or member is bound under "target".
func (c *UserCommand) Handle(h Handler) *UserCommand { c.handler = h; return c }

// OnError sets the node's error handler.
func (c *UserCommand) OnError(h ErrorHandler) *UserCommand { c.onError = h; return c }

// AddCheck appends a predicate run before the handler.
func (c *UserCommand) AddCheck(chk Check) *UserCommand { c.checks = append(c.checks, chk); return c }

// SetPermissions sets the default member permission bitmask.
func (c *UserCommand) SetPermissions(perms int64) *UserCommand { c.permissions = &perms; return c }

// Handle sets the handler. The target message is bound under "target".
func (c *MessageCommand) Handle(h Handler) *MessageCommand { c.handler = h; return c }

// OnError sets the node's error handler.
func (c *MessageCommand) OnError(h ErrorHandler) *MessageCommand { c.onError = h; return c }

// AddCheck appends a predicate run before the handler.
func (c *MessageCommand) AddCheck(chk Check) *MessageCommand {
	c.checks = append(c.checks, chk)
	return c
}

// SetPermissions sets the default member permission bitmask.
func (c *MessageCommand) SetPermissions(perms int64) *MessageCommand {
	c.permissions = &perms
	return c
}
