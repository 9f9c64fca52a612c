package appcmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

func chatInteraction(guildID string, data discordgo.ApplicationCommandInteractionData) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: guildID,
		Data:    data,
	}}
}

func autocompleteInteraction(guildID string, data discordgo.ApplicationCommandInteractionData) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:    discordgo.InteractionApplicationCommandAutocomplete,
		GuildID: guildID,
		Data:    data,
	}}
}

// recordingSink captures everything routed to the process-wide sink.
type recordingSink struct {
	errs []error
}

func (r *recordingSink) sink() ErrorSink {
	return func(node Node, ctx *Context, err error) { r.errs = append(r.errs, err) }
}

func TestDispatchRoutesNestedSubcommand(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(zerolog.Nop())
	cmd := mustSlash(t, "admin")
	grp, err := cmd.AddSubcommandGroup("settings", "Tweak settings")
	if err != nil {
		t.Fatalf("AddSubcommandGroup: %v", err)
	}
	sub, err := grp.AddSubcommand("set", "Set a value",
		mustOption(t, discordgo.ApplicationCommandOptionString, "key", "Which setting", Required()),
		mustOption(t, discordgo.ApplicationCommandOptionUser, "owner", "New owner"),
	)
	if err != nil {
		t.Fatalf("AddSubcommand: %v", err)
	}

	var gotPath, gotKey string
	var gotOwner *discordgo.Member
	sub.Handle(func(ctx *Context) error {
		gotPath = ctx.Path
		gotKey = ctx.Args.String("key")
		gotOwner = ctx.Args.Member("owner")
		return nil
	})
	if err := reg.RegisterSlash(cmd); err != nil {
		t.Fatalf("RegisterSlash: %v", err)
	}

	d := NewDispatcher(reg, zerolog.Nop())
	member := &discordgo.Member{Nick: "boss"}
	d.Dispatch(nil, chatInteraction("guild-1", discordgo.ApplicationCommandInteractionData{
		Name: "admin",
		Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
			Members: map[string]*discordgo.Member{"555": member},
			Users:   map[string]*discordgo.User{"555": {ID: "555", Username: "boss"}},
		},
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: "settings",
			Type: discordgo.ApplicationCommandOptionSubCommandGroup,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{{
				Name: "set",
				Type: discordgo.ApplicationCommandOptionSubCommand,
				Options: []*discordgo.ApplicationCommandInteractionDataOption{
					{Name: "key", Type: discordgo.ApplicationCommandOptionString, Value: "prefix"},
					{Name: "owner", Type: discordgo.ApplicationCommandOptionUser, Value: "555"},
				},
			}},
		}},
	}))

	if gotPath != "admin settings set" {
		t.Fatalf("Path = %q, want %q", gotPath, "admin settings set")
	}
	if gotKey != "prefix" {
		t.Fatalf("key = %q, want %q", gotKey, "prefix")
	}
	if gotOwner != member {
		t.Fatal("owner not resolved through the member bundle")
	}
	if gotOwner.User == nil || gotOwner.User.ID != "555" {
		t.Fatal("resolved member should carry its user attached")
	}
}

func TestDispatchUnknownCommandReportsOnce(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(zerolog.Nop())
	rec := &recordingSink{}
	d := NewDispatcher(reg, zerolog.Nop()).SetErrorSink(rec.sink())

	d.Dispatch(nil, chatInteraction("", discordgo.ApplicationCommandInteractionData{Name: "ghost"}))

	if len(rec.errs) != 1 {
		t.Fatalf("sink called %d times, want 1", len(rec.errs))
	}
	if !errors.Is(rec.errs[0], ErrUnknownCommand) {
		t.Fatalf("err = %v, want ErrUnknownCommand", rec.errs[0])
	}
}

func TestDispatchHandlerErrorGoesToNodeErrorHandler(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(zerolog.Nop())
	boom := fmt.Errorf("boom")
	var handled []error
	cmd := mustSlash(t, "fail").
		Handle(func(ctx *Context) error { return boom }).
		OnError(func(ctx *Context, err error) { handled = append(handled, err) })
	if err := reg.RegisterSlash(cmd); err != nil {
		t.Fatalf("RegisterSlash: %v", err)
	}

	rec := &recordingSink{}
	d := NewDispatcher(reg, zerolog.Nop()).SetErrorSink(rec.sink())
	d.Dispatch(nil, chatInteraction("", discordgo.ApplicationCommandInteractionData{Name: "fail"}))

	if len(handled) != 1 || !errors.Is(handled[0], boom) {
		t.Fatalf("node error handler got %v, want exactly [boom]", handled)
	}
	if len(rec.errs) != 0 {
		t.Fatalf("sink should stay silent when a node error handler exists, got %v", rec.errs)
	}
}

func TestDispatchContainsHandlerPanic(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(zerolog.Nop())
	cmd := mustSlash(t, "panic").Handle(func(ctx *Context) error { panic("kaboom") })
	if err := reg.RegisterSlash(cmd); err != nil {
		t.Fatalf("RegisterSlash: %v", err)
	}

	rec := &recordingSink{}
	d := NewDispatcher(reg, zerolog.Nop()).SetErrorSink(rec.sink())
	d.Dispatch(nil, chatInteraction("", discordgo.ApplicationCommandInteractionData{Name: "panic"}))

	if len(rec.errs) != 1 {
		t.Fatalf("sink called %d times, want 1", len(rec.errs))
	}
}

func TestDispatchCheckFailureBlocksHandler(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(zerolog.Nop())
	ran := false
	cmd := mustSlash(t, "guarded").
		Handle(func(ctx *Context) error { ran = true; return nil }).
		AddCheck(GuildOnly)
	if err := reg.RegisterSlash(cmd); err != nil {
		t.Fatalf("RegisterSlash: %v", err)
	}

	rec := &recordingSink{}
	d := NewDispatcher(reg, zerolog.Nop()).SetErrorSink(rec.sink())
	// no guild ID, GuildOnly must refuse
	d.Dispatch(nil, chatInteraction("", discordgo.ApplicationCommandInteractionData{Name: "guarded"}))

	if ran {
		t.Fatal("handler ran although a check failed")
	}
	if len(rec.errs) != 1 || !errors.Is(rec.errs[0], ErrCheckFailed) {
		t.Fatalf("sink got %v, want one ErrCheckFailed", rec.errs)
	}
}

func TestDispatchRegistryChecksRunBeforeNodeChecks(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(zerolog.Nop())
	var order []string
	reg.AddCheck(func(ctx *Context) error { order = append(order, "registry"); return nil })
	cmd := mustSlash(t, "ordered").
		AddCheck(func(ctx *Context) error { order = append(order, "node"); return nil }).
		Handle(func(ctx *Context) error { order = append(order, "handler"); return nil })
	if err := reg.RegisterSlash(cmd); err != nil {
		t.Fatalf("RegisterSlash: %v", err)
	}

	d := NewDispatcher(reg, zerolog.Nop())
	d.Dispatch(nil, chatInteraction("", discordgo.ApplicationCommandInteractionData{Name: "ordered"}))

	want := []string{"registry", "node", "handler"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestDispatchConnectorRemapsParameterNames(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(zerolog.Nop())
	var got string
	cmd := mustSlash(t, "greet",
		WithOptions(mustOption(t, discordgo.ApplicationCommandOptionString, "name", "Who to greet", Required())))
	cmd.Connect("person", "name").
		Handle(func(ctx *Context) error { got = ctx.Args.String("person"); return nil })
	if err := reg.RegisterSlash(cmd); err != nil {
		t.Fatalf("RegisterSlash: %v", err)
	}

	d := NewDispatcher(reg, zerolog.Nop())
	d.Dispatch(nil, chatInteraction("", discordgo.ApplicationCommandInteractionData{
		Name: "greet",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "name", Type: discordgo.ApplicationCommandOptionString, Value: "sam"},
		},
	}))

	if got != "sam" {
		t.Fatalf("connected argument = %q, want %q", got, "sam")
	}
}

func TestDispatchInjectsDeclaredDefaults(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(zerolog.Nop())
	var got int64
	var has bool
	cmd := mustSlash(t, "roll",
		WithOptions(mustOption(t, discordgo.ApplicationCommandOptionInteger, "sides", "Die sides", WithDefault(int64(6)))))
	cmd.Handle(func(ctx *Context) error {
		has = ctx.Args.Has("sides")
		got = ctx.Args.Int("sides")
		return nil
	})
	if err := reg.RegisterSlash(cmd); err != nil {
		t.Fatalf("RegisterSlash: %v", err)
	}

	d := NewDispatcher(reg, zerolog.Nop())
	d.Dispatch(nil, chatInteraction("", discordgo.ApplicationCommandInteractionData{Name: "roll"}))

	if !has || got != 6 {
		t.Fatalf("default not injected: has=%v value=%d", has, got)
	}
}

// recordingResponder captures autocomplete responses.
type recordingResponder struct {
	choices [][]*discordgo.ApplicationCommandOptionChoice
}

func (r *recordingResponder) RespondChoices(s *discordgo.Session, ic *discordgo.InteractionCreate, choices []*discordgo.ApplicationCommandOptionChoice) error {
	r.choices = append(r.choices, choices)
	return nil
}

func TestDispatchAutocomplete(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(zerolog.Nop())
	var focused string
	cmd := mustSlash(t, "tag",
		WithOptions(mustOption(t, discordgo.ApplicationCommandOptionString, "name", "Tag name", WithAutocomplete())))
	cmd.OnAutocomplete(func(ctx *Context) ([]*discordgo.ApplicationCommandOptionChoice, error) {
		focused = ctx.Focused
		return []*discordgo.ApplicationCommandOptionChoice{{Name: "faq", Value: "faq"}}, nil
	})
	if err := reg.RegisterSlash(cmd); err != nil {
		t.Fatalf("RegisterSlash: %v", err)
	}

	resp := &recordingResponder{}
	d := NewDispatcher(reg, zerolog.Nop()).SetAutocompleteResponder(resp)
	d.Dispatch(nil, autocompleteInteraction("", discordgo.ApplicationCommandInteractionData{
		Name: "tag",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Name: "name", Type: discordgo.ApplicationCommandOptionString, Value: "fa", Focused: true},
		},
	}))

	if focused != "name" {
		t.Fatalf("Focused = %q, want %q", focused, "name")
	}
	if len(resp.choices) != 1 || len(resp.choices[0]) != 1 || resp.choices[0][0].Name != "faq" {
		t.Fatalf("responder got %v, want one response with one choice", resp.choices)
	}
}

func TestDispatchSubcommandAutocompleteFallsBackToParent(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(zerolog.Nop())
	called := false
	cmd := mustSlash(t, "config")
	cmd.OnAutocomplete(func(ctx *Context) ([]*discordgo.ApplicationCommandOptionChoice, error) {
		called = true
		return nil, nil
	})
	if _, err := cmd.AddSubcommand("get", "Read a value",
		mustOption(t, discordgo.ApplicationCommandOptionString, "key", "Which", WithAutocomplete())); err != nil {
		t.Fatalf("AddSubcommand: %v", err)
	}
	if err := reg.RegisterSlash(cmd); err != nil {
		t.Fatalf("RegisterSlash: %v", err)
	}

	d := NewDispatcher(reg, zerolog.Nop()).SetAutocompleteResponder(&recordingResponder{})
	d.Dispatch(nil, autocompleteInteraction("", discordgo.ApplicationCommandInteractionData{
		Name: "config",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: "get",
			Type: discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "key", Type: discordgo.ApplicationCommandOptionString, Value: "", Focused: true},
			},
		}},
	}))

	if !called {
		t.Fatal("sub-command autocomplete should fall back to the parent handler")
	}
}

func TestDispatchUserContextCommand(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(zerolog.Nop())
	var target *discordgo.User
	uc, err := NewUserCommand("Show Avatar")
	if err != nil {
		t.Fatalf("NewUserCommand: %v", err)
	}
	uc.Handle(func(ctx *Context) error { target = ctx.Args.User("target"); return nil })
	if err := reg.RegisterUser(uc); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}

	d := NewDispatcher(reg, zerolog.Nop())
	d.Dispatch(nil, chatInteraction("", discordgo.ApplicationCommandInteractionData{
		Name:     "Show Avatar",
		TargetID: "777",
		Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
			Users: map[string]*discordgo.User{"777": {ID: "777", Username: "pat"}},
		},
	}))

	if target == nil || target.ID != "777" {
		t.Fatalf("target = %v, want user 777", target)
	}
}

func TestDispatchMessageContextCommand(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(zerolog.Nop())
	var target *discordgo.Message
	mc, err := NewMessageCommand("Quote")
	if err != nil {
		t.Fatalf("NewMessageCommand: %v", err)
	}
	mc.Handle(func(ctx *Context) error { target = ctx.Args.Message("target"); return nil })
	if err := reg.RegisterMessage(mc); err != nil {
		t.Fatalf("RegisterMessage: %v", err)
	}

	d := NewDispatcher(reg, zerolog.Nop())
	d.Dispatch(nil, chatInteraction("", discordgo.ApplicationCommandInteractionData{
		Name:     "Quote",
		TargetID: "888",
		Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
			Messages: map[string]*discordgo.Message{"888": {ID: "888", Content: "hello"}},
		},
	}))

	if target == nil || target.Content != "hello" {
		t.Fatalf("target = %v, want the resolved message", target)
	}
}

func TestDispatchDisabledCommandReportsNoHandler(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(zerolog.Nop())
	cmd := mustSlash(t, "stale").Handle(func(ctx *Context) error { return nil })
	if err := reg.RegisterSlash(cmd); err != nil {
		t.Fatalf("RegisterSlash: %v", err)
	}
	reg.BeginReload()
	reg.FinishReload(false) // "stale" not re-registered, gets disabled

	rec := &recordingSink{}
	d := NewDispatcher(reg, zerolog.Nop()).SetErrorSink(rec.sink())
	d.Dispatch(nil, chatInteraction("", discordgo.ApplicationCommandInteractionData{Name: "stale"}))

	if len(rec.errs) != 1 || !errors.Is(rec.errs[0], ErrNoHandler) {
		t.Fatalf("sink got %v, want one ErrNoHandler", rec.errs)
	}
}

func TestResolveMentionable(t *testing.T) {
	t.Parallel()

	role := &discordgo.Role{ID: "42", Name: "mods"}
	user := &discordgo.User{ID: "43", Username: "pat"}
	resolved := &discordgo.ApplicationCommandInteractionDataResolved{
		Roles: map[string]*discordgo.Role{"42": role},
		Users: map[string]*discordgo.User{"43": user},
	}

	if got := resolveMentionable("<@&42>", resolved); got != role {
		t.Fatalf("role mention resolved to %v, want the role", got)
	}
	if got := resolveMentionable("42", resolved); got != role {
		t.Fatalf("bare role ID resolved to %v, want the role (via resolved bundle)", got)
	}
	if got := resolveMentionable("43", resolved); got != user {
		t.Fatalf("user ID resolved to %v, want the user", got)
	}
	if got := resolveMentionable("99", resolved); got != "99" {
		t.Fatalf("unresolvable ID = %v, want the raw identifier", got)
	}
}
