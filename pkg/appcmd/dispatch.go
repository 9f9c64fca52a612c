package appcmd

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// AutocompleteResponder sends autocomplete choices back to the platform. The
// dispatcher stays transport-agnostic; the discord adapter provides the
// production implementation.
type AutocompleteResponder interface {
	RespondChoices(s *discordgo.Session, ic *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) error
}

// Dispatcher maps inbound invocation payloads to bound handler calls. It
// only reads the registry; remote-binding fields are never mutated here.
type Dispatcher struct {
	registry  *Registry
	log       zerolog.Logger
	sink      ErrorSink
	responder AutocompleteResponder
}

// NewDispatcher builds a dispatcher over the registry. The default error
// sink logs through the given logger; replace it with SetErrorSink.
func NewDispatcher(reg *Registry, log zerolog.Logger) *Dispatcher {
	d := &Dispatcher{
		registry: reg,
		log:      log.With().Str("component", "dispatch").Logger(),
	}
	d.sink = func(node Node, ctx *Context, err error) {
		ev := d.log.Error().Err(err)
		if node != nil {
			ev = ev.Str("command", node.Name())
		}
		ev.Msg("unhandled command error")
	}
	return d
}

// SetErrorSink replaces the process-wide error sink.
func (d *Dispatcher) SetErrorSink(sink ErrorSink) *Dispatcher {
	d.sink = sink
	return d
}

// SetAutocompleteResponder wires the responder used to answer autocomplete
// invocations. Without one, autocomplete results are dropped.
func (d *Dispatcher) SetAutocompleteResponder(r AutocompleteResponder) *Dispatcher {
	d.responder = r
	return d
}

// Dispatch routes one interaction. Payloads that are not application-command
// or autocomplete interactions are ignored. Dispatch never panics and never
// returns an error: every failure is contained per invocation and routed to
// the node's error handler or the sink.
func (d *Dispatcher) Dispatch(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	switch ic.Type {
	case discordgo.InteractionApplicationCommand, discordgo.InteractionApplicationCommandAutocomplete:
	default:
		return
	}
	data := ic.ApplicationCommandData()
	if data.TargetID != "" {
		d.dispatchContextCommand(s, ic, data)
		return
	}
	d.dispatchChat(s, ic, data)
}

func (d *Dispatcher) dispatchChat(s *discordgo.Session, ic *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	cmd := d.registry.Slash(ic.GuildID, data.Name)
	if cmd == nil {
		d.routingError(s, ic, fmt.Errorf("%w: chat command %q", ErrUnknownCommand, data.Name))
		return
	}
	if cmd.isDisabled() {
		d.routingError(s, ic, fmt.Errorf("%w: chat command %q is disabled", ErrNoHandler, data.Name))
		return
	}

	var (
		leaf     invocable = cmd
		supplied           = data.Options
		path               = []string{data.Name}
	)
	if len(data.Options) > 0 {
		switch data.Options[0].Type {
		case discordgo.ApplicationCommandOptionSubCommandGroup:
			grpOpt := data.Options[0]
			grp, ok := cmd.groups[grpOpt.Name]
			if !ok {
				d.routingError(s, ic, fmt.Errorf("%w: group %q under command %q", ErrUnknownCommand, grpOpt.Name, data.Name))
				return
			}
			if len(grpOpt.Options) == 0 {
				d.routingError(s, ic, fmt.Errorf("%w: group %q invoked without a sub-command", ErrUnknownCommand, grpOpt.Name))
				return
			}
			subOpt := grpOpt.Options[0]
			sub, ok := grp.subs[subOpt.Name]
			if !ok {
				d.routingError(s, ic, fmt.Errorf("%w: sub-command %q under group %q", ErrUnknownCommand, subOpt.Name, grpOpt.Name))
				return
			}
			leaf = sub
			supplied = subOpt.Options
			path = append(path, grpOpt.Name, subOpt.Name)
		case discordgo.ApplicationCommandOptionSubCommand:
			subOpt := data.Options[0]
			sub, ok := cmd.subs[subOpt.Name]
			if !ok {
				d.routingError(s, ic, fmt.Errorf("%w: sub-command %q under command %q", ErrUnknownCommand, subOpt.Name, data.Name))
				return
			}
			leaf = sub
			supplied = subOpt.Options
			path = append(path, subOpt.Name)
		}
	}

	args, focused := resolveArguments(leaf, supplied, data.Resolved)
	ctx := &Context{
		Session:     s,
		Interaction: ic,
		Command:     cmd,
		Path:        strings.Join(path, " "),
		Args:        args,
		Focused:     focused,
		GuildID:     ic.GuildID,
	}

	if ic.Type == discordgo.InteractionApplicationCommandAutocomplete {
		d.invokeAutocomplete(cmd, leaf, ctx)
		return
	}
	d.invoke(cmd, leaf, ctx)
}

func (d *Dispatcher) dispatchContextCommand(s *discordgo.Session, ic *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	var (
		node Node
		leaf invocable
		args = Args{}
	)

	// a resolved message for the target identifies a message command;
	// otherwise the target is a user
	if data.Resolved != nil && data.Resolved.Messages[data.TargetID] != nil {
		mc := d.registry.Message(ic.GuildID, data.Name)
		if mc != nil {
			node, leaf = mc, mc
			args["target"] = data.Resolved.Messages[data.TargetID]
		}
	} else {
		uc := d.registry.User(ic.GuildID, data.Name)
		if uc != nil {
			node, leaf = uc, uc
			args["target"] = resolveUserID(data.TargetID, data.Resolved)
		}
	}
	if node == nil {
		d.routingError(s, ic, fmt.Errorf("%w: context command %q", ErrUnknownCommand, data.Name))
		return
	}
	if node.isDisabled() {
		d.routingError(s, ic, fmt.Errorf("%w: context command %q is disabled", ErrNoHandler, data.Name))
		return
	}

	ctx := &Context{
		Session:     s,
		Interaction: ic,
		Command:     node,
		Path:        data.Name,
		Args:        args,
		GuildID:     ic.GuildID,
	}
	d.invoke(node, leaf, ctx)
}

// invoke runs the check chain and the handler with full containment: checks
// or handlers that fail (or panic) are routed to the node's error handler
// when present, otherwise to the process-wide sink. Nothing propagates back
// into the event loop.
func (d *Dispatcher) invoke(node Node, leaf invocable, ctx *Context) {
	for _, chk := range d.checks(leaf) {
		if err := safeCheck(chk, ctx); err != nil {
			d.fail(node, leaf, ctx, err)
			return
		}
	}
	h := leaf.handlerFunc()
	if h == nil {
		d.fail(node, leaf, ctx, fmt.Errorf("%w: %s", ErrNoHandler, ctx.Path))
		return
	}
	if err := safeInvoke(h, ctx); err != nil {
		d.fail(node, leaf, ctx, err)
	}
}

// invokeAutocomplete mirrors invoke for autocomplete payloads. A node whose
// option enables autocomplete but carries no handler yields a logged no-op
// response, not an error.
func (d *Dispatcher) invokeAutocomplete(node Node, leaf invocable, ctx *Context) {
	for _, chk := range d.checks(leaf) {
		if err := safeCheck(chk, ctx); err != nil {
			d.fail(node, leaf, ctx, err)
			return
		}
	}
	h := leaf.autocompleteFunc()
	if h == nil {
		d.log.Warn().
			Str("command", ctx.Path).
			Str("option", ctx.Focused).
			Msg("option has autocomplete enabled but no autocomplete handler is registered")
		d.respondChoices(ctx, nil)
		return
	}
	choices, err := safeAutocomplete(h, ctx)
	if err != nil {
		d.fail(node, leaf, ctx, err)
		return
	}
	d.respondChoices(ctx, choices)
}

func (d *Dispatcher) respondChoices(ctx *Context, choices []*discordgo.ApplicationCommandOptionChoice) {
	if d.responder == nil {
		return
	}
	if err := d.responder.RespondChoices(ctx.Session, ctx.Interaction, choices); err != nil {
		d.log.Warn().Err(err).Str("command", ctx.Path).Msg("failed to respond to autocomplete")
	}
}

func (d *Dispatcher) checks(leaf invocable) []Check {
	inherited := d.registry.inheritedChecks()
	if len(inherited) == 0 {
		return leaf.checkChain()
	}
	chain := append([]Check(nil), inherited...)
	return append(chain, leaf.checkChain()...)
}

func (d *Dispatcher) fail(node Node, leaf invocable, ctx *Context, err error) {
	if eh := leaf.errorHandlerFunc(); eh != nil {
		eh(ctx, err)
		return
	}
	d.sink(node, ctx, err)
}

// routingError reports registry/remote drift: the payload addressed a node
// the registry does not know. The dispatch is dropped, never silently.
func (d *Dispatcher) routingError(s *discordgo.Session, ic *discordgo.InteractionCreate, err error) {
	d.sink(nil, &Context{Session: s, Interaction: ic, GuildID: ic.GuildID}, err)
}

func safeInvoke(h Handler, ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx)
}

func safeCheck(chk Check, ctx *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check panic: %v", r)
		}
	}()
	return chk(ctx)
}

func safeAutocomplete(h AutocompleteHandler, ctx *Context) (choices []*discordgo.ApplicationCommandOptionChoice, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("autocomplete panic: %v", r)
		}
	}()
	return h(ctx)
}
