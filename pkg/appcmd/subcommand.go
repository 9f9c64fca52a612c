package appcmd

import (
	"github.com/bwmarrin/discordgo"
)

// Subcommand is an invocable leaf nested under a top-level command or under a
// sub-command-group. It carries its own option list, connector map and
// handlers; its guild scope is the parent's.
type Subcommand struct {
	name        string
	description string
	nameLoc     map[discordgo.Locale]string
	descLoc     map[discordgo.Locale]string

	options   []*Option
	parent    *SlashCommand
	group     *SubcommandGroup
	connector map[string]string

	handler        Handler
	onError        ErrorHandler
	onAutocomplete AutocompleteHandler
	checks         []Check
}

func newSubcommand(parent *SlashCommand, name, description string, options []*Option) (*Subcommand, error) {
	if !validName(name) {
		return nil, invalidf("sub-command name must be 1-32 characters of a-z, 0-9, _ and -, got %q", name)
	}
	if !validDescription(description) {
		return nil, invalidf("sub-command %q: description must be 1-100 characters long", name)
	}
	if err := validateOptionList(name, options); err != nil {
		return nil, err
	}
	return &Subcommand{
		name:        name,
		description: description,
		options:     options,
		parent:      parent,
		connector:   make(map[string]string),
	}, nil
}

// Name returns the sub-command name.
func (s *Subcommand) Name() string { return s.name }

// Handle sets the handler invoked when the sub-command is addressed.
func (s *Subcommand) Handle(h Handler) *Subcommand {
	s.handler = h
	return s
}

// OnError sets the sub-command's own error handler; without one, failures go
// to the process-wide sink.
func (s *Subcommand) OnError(h ErrorHandler) *Subcommand {
	s.onError = h
	return s
}

// OnAutocomplete sets the autocomplete handler for the sub-command's options.
func (s *Subcommand) OnAutocomplete(h AutocompleteHandler) *Subcommand {
	s.onAutocomplete = h
	return s
}

// AddCheck appends a predicate run before the handler.
func (s *Subcommand) AddCheck(chk Check) *Subcommand {
	s.checks = append(s.checks, chk)
	return s
}

// Connect maps a handler parameter name to an option name.
func (s *Subcommand) Connect(param, option string) *Subcommand {
	s.connector[param] = option
	return s
}

func (s *Subcommand) checkChain() []Check {
	// parent checks run first, the way an enclosing unit's checks wrap its leaves
	chain := append([]Check(nil), s.parent.checks...)
	return append(chain, s.checks...)
}

func (s *Subcommand) handlerFunc() Handler           { return s.handler }
func (s *Subcommand) errorHandlerFunc() ErrorHandler { return s.onError }

func (s *Subcommand) autocompleteFunc() AutocompleteHandler {
	if s.onAutocomplete != nil {
		return s.onAutocomplete
	}
	return s.parent.onAutocomplete
}

func (s *Subcommand) declaredOptions() []*Option      { return s.options }
func (s *Subcommand) connectorMap() map[string]string { return s.connector }

// optionDefinition produces the sub-command's wire form as a nested option.
func (s *Subcommand) optionDefinition() *discordgo.ApplicationCommandOption {
	def := &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionSubCommand,
		Name:                     s.name,
		NameLocalizations:        s.nameLoc,
		Description:              s.description,
		DescriptionLocalizations: s.descLoc,
	}
	for _, o := range s.options {
		def.Options = append(def.Options, o.Definition())
	}
	return def
}

// SubcommandGroup is a container nested under a top-level command, holding
// only sub-commands. It is never directly invocable.
type SubcommandGroup struct {
	name        string
	description string
	nameLoc     map[discordgo.Locale]string
	descLoc     map[discordgo.Locale]string

	parent     *SlashCommand
	subs       map[string]*Subcommand
	childOrder []string
}

// Name returns the group name.
func (g *SubcommandGroup) Name() string { return g.name }

// AddSubcommand attaches a sub-command to the group.
func (g *SubcommandGroup) AddSubcommand(name, description string, options ...*Option) (*Subcommand, error) {
	if len(g.childOrder) >= 25 {
		return nil, invalidf("group %q: at most 25 sub-commands allowed", g.name)
	}
	if _, dup := g.subs[name]; dup {
		return nil, invalidf("group %q: duplicate sub-command name %q", g.name, name)
	}
	sub, err := newSubcommand(g.parent, name, description, options)
	if err != nil {
		return nil, err
	}
	sub.group = g
	g.subs[name] = sub
	g.childOrder = append(g.childOrder, name)
	return sub, nil
}

// optionDefinition produces the group's wire form as a nested option.
func (g *SubcommandGroup) optionDefinition() *discordgo.ApplicationCommandOption {
	def := &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionSubCommandGroup,
		Name:                     g.name,
		NameLocalizations:        g.nameLoc,
		Description:              g.description,
		DescriptionLocalizations: g.descLoc,
	}
	for _, name := range g.childOrder {
		def.Options = append(def.Options, g.subs[name].optionDefinition())
	}
	return def
}

// Definition produces the canonical wire form of the command: metadata plus
// either the flat option list or the sub-command/group tree in registration
// order.
func (c *SlashCommand) Definition() *discordgo.ApplicationCommand {
	def := &discordgo.ApplicationCommand{
		Name:                     c.name,
		Type:                     discordgo.ChatApplicationCommand,
		NameLocalizations:        localizationsPtr(c.nameLoc),
		Description:              c.description,
		DescriptionLocalizations: localizationsPtr(c.descLoc),
		DefaultMemberPermissions: c.permissions,
		DMPermission:             c.dmPermission,
		NSFW:                     &c.nsfw,
	}
	if c.isContainer() {
		for _, name := range c.childOrder {
			if sub, ok := c.subs[name]; ok {
				def.Options = append(def.Options, sub.optionDefinition())
				continue
			}
			def.Options = append(def.Options, c.groups[name].optionDefinition())
		}
		return def
	}
	for _, o := range c.options {
		def.Options = append(def.Options, o.Definition())
	}
	return def
}

// EqualsRemote structurally compares the command against a remote-fetched
// entry, tolerating the remote's omission of required=false and its
// reordering of sub-command/group entries (container children are compared by
// name, scalar options positionally).
func (c *SlashCommand) EqualsRemote(remote *discordgo.ApplicationCommand) bool {
	return definitionEqual(c.Definition(), remote)
}

func localizationsPtr(m map[discordgo.Locale]string) *map[discordgo.Locale]string {
	if len(m) == 0 {
		return nil
	}
	return &m
}
