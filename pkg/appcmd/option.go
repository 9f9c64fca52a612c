package appcmd

import (
	"regexp"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// namePattern is the charset Discord enforces for command and option names.
var namePattern = regexp.MustCompile(`^[\w-]{1,32}$`)

func validName(name string) bool {
	return namePattern.MatchString(name)
}

func validDescription(desc string) bool {
	n := utf8.RuneCountInString(desc)
	return n >= 1 && n <= 100
}

func validLocale(l discordgo.Locale) bool {
	_, ok := discordgo.Locales[l]
	return ok
}

// Choice is one selectable name/value pair of a string, integer or number
// option.
type Choice struct {
	Name              string
	Value             any
	NameLocalizations map[discordgo.Locale]string
}

// NewChoice validates and builds a Choice. A nil value defaults to the name,
// so plain string enums need only the name.
func NewChoice(name string, value any) (*Choice, error) {
	if n := utf8.RuneCountInString(name); n < 1 || n > 100 {
		return nil, invalidf("choice name must be 1-100 characters long, got %d", n)
	}
	if value == nil {
		value = name
	}
	return &Choice{Name: name, Value: value}, nil
}

// Option is a typed, self-validating description of a single command
// argument. Construct it with NewOption; a zero or hand-built Option is not
// guaranteed to pass Discord's validation.
type Option struct {
	typ          discordgo.ApplicationCommandOptionType
	name         string
	description  string
	required     bool
	choices      []*Choice
	autocomplete bool
	minValue     *float64
	maxValue     *float64
	channelTypes []discordgo.ChannelType
	defaultValue any
	nameLoc      map[discordgo.Locale]string
	descLoc      map[discordgo.Locale]string

	// nested options, only for sub-command / sub-command-group typed options
	options []*Option
}

// OptionSetting mutates an Option under construction. NewOption validates the
// result after all settings are applied.
type OptionSetting func(*Option)

// Required marks the option as mandatory.
func Required() OptionSetting {
	return func(o *Option) { o.required = true }
}

// WithChoices attaches a fixed choice set (string/integer/number only,
// mutually exclusive with autocomplete).
func WithChoices(choices ...*Choice) OptionSetting {
	return func(o *Option) { o.choices = choices }
}

// WithAutocomplete enables autocomplete interactions for the option.
func WithAutocomplete() OptionSetting {
	return func(o *Option) { o.autocomplete = true }
}

// WithBounds sets inclusive numeric bounds (integer/number only).
func WithBounds(min, max float64) OptionSetting {
	return func(o *Option) { o.minValue = &min; o.maxValue = &max }
}

// WithMin sets only the lower numeric bound.
func WithMin(min float64) OptionSetting {
	return func(o *Option) { o.minValue = &min }
}

// WithMax sets only the upper numeric bound.
func WithMax(max float64) OptionSetting {
	return func(o *Option) { o.maxValue = &max }
}

// WithChannelTypes restricts a channel option to the given channel kinds.
func WithChannelTypes(types ...discordgo.ChannelType) OptionSetting {
	return func(o *Option) { o.channelTypes = types }
}

// WithDefault sets the value injected into the bound arguments when the
// option is not supplied. Autocomplete handlers see it before the user has
// typed anything.
func WithDefault(v any) OptionSetting {
	return func(o *Option) { o.defaultValue = v }
}

// WithLocalizedName adds a localized option name.
func WithLocalizedName(locale discordgo.Locale, name string) OptionSetting {
	return func(o *Option) {
		if o.nameLoc == nil {
			o.nameLoc = make(map[discordgo.Locale]string)
		}
		o.nameLoc[locale] = name
	}
}

// WithLocalizedDescription adds a localized option description.
func WithLocalizedDescription(locale discordgo.Locale, desc string) OptionSetting {
	return func(o *Option) {
		if o.descLoc == nil {
			o.descLoc = make(map[discordgo.Locale]string)
		}
		o.descLoc[locale] = desc
	}
}

// WithNestedOptions attaches child options; only valid for sub-command and
// sub-command-group typed options.
func WithNestedOptions(options ...*Option) OptionSetting {
	return func(o *Option) { o.options = options }
}

// NewOption validates and builds an Option. It fails with an error wrapping
// ErrValidation when the name or description is out of bounds, the choice set
// is too large, choices and autocomplete are both set, numeric bounds or
// channel-type filters are applied to an incompatible type, or a
// sub-command-group carries no children.
func NewOption(typ discordgo.ApplicationCommandOptionType, name, description string, settings ...OptionSetting) (*Option, error) {
	o := &Option{typ: typ, name: name, description: description}
	for _, apply := range settings {
		apply(o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Option) validate() error {
	if o.typ < discordgo.ApplicationCommandOptionSubCommand || o.typ > discordgo.ApplicationCommandOptionAttachment {
		return invalidf("unknown option type %d", o.typ)
	}
	if !validName(o.name) {
		return invalidf("option name must be 1-32 characters of a-z, 0-9, _ and -, got %q", o.name)
	}
	if !validDescription(o.description) {
		return invalidf("option %q: description must be 1-100 characters long, got %d", o.name, utf8.RuneCountInString(o.description))
	}
	for loc, n := range o.nameLoc {
		if !validLocale(loc) {
			return invalidf("option %q: unknown locale %q", o.name, loc)
		}
		if !validName(n) {
			return invalidf("option %q: localized name for %s is invalid: %q", o.name, loc, n)
		}
	}
	for loc, d := range o.descLoc {
		if !validLocale(loc) {
			return invalidf("option %q: unknown locale %q", o.name, loc)
		}
		if !validDescription(d) {
			return invalidf("option %q: localized description for %s is out of bounds", o.name, loc)
		}
	}
	if len(o.choices) > 25 {
		return invalidf("option %q: at most 25 choices allowed, got %d", o.name, len(o.choices))
	}
	if len(o.choices) > 0 && o.autocomplete {
		return invalidf("option %q: choices and autocomplete are mutually exclusive", o.name)
	}
	if len(o.choices) > 0 && !supportsChoices(o.typ) {
		return invalidf("option %q: choices are only valid for string, integer and number options", o.name)
	}
	if o.autocomplete && !supportsChoices(o.typ) {
		return invalidf("option %q: autocomplete is only valid for string, integer and number options", o.name)
	}
	if (o.minValue != nil || o.maxValue != nil) && !isNumericOption(o.typ) {
		return invalidf("option %q: numeric bounds are only valid for integer and number options", o.name)
	}
	if len(o.channelTypes) > 0 && o.typ != discordgo.ApplicationCommandOptionChannel {
		return invalidf("option %q: channel-type filters are only valid for channel options", o.name)
	}
	switch o.typ {
	case discordgo.ApplicationCommandOptionSubCommandGroup:
		if len(o.options) == 0 {
			return invalidf("option %q: a sub-command-group needs at least one child", o.name)
		}
	case discordgo.ApplicationCommandOptionSubCommand:
		// a sub-command may be empty
	default:
		if len(o.options) > 0 {
			return invalidf("option %q: nested options are only valid for sub-commands and groups", o.name)
		}
	}
	if len(o.options) > 25 {
		return invalidf("option %q: at most 25 nested options allowed, got %d", o.name, len(o.options))
	}
	return nil
}

func supportsChoices(typ discordgo.ApplicationCommandOptionType) bool {
	return typ == discordgo.ApplicationCommandOptionString || isNumericOption(typ)
}

func isNumericOption(typ discordgo.ApplicationCommandOptionType) bool {
	return typ == discordgo.ApplicationCommandOptionInteger ||
		typ == discordgo.ApplicationCommandOptionNumber
}

// Name returns the declared option name.
func (o *Option) Name() string { return o.name }

// Type returns the declared option type.
func (o *Option) Type() discordgo.ApplicationCommandOptionType { return o.typ }

// Default returns the value injected when the option is not supplied, or nil.
func (o *Option) Default() any { return o.defaultValue }

// Autocomplete reports whether autocomplete is enabled for the option.
func (o *Option) Autocomplete() bool { return o.autocomplete }

// Definition produces the canonical wire form of the option.
func (o *Option) Definition() *discordgo.ApplicationCommandOption {
	def := &discordgo.ApplicationCommandOption{
		Type:                     o.typ,
		Name:                     o.name,
		NameLocalizations:        o.nameLoc,
		Description:              o.description,
		DescriptionLocalizations: o.descLoc,
		Required:                 o.required,
		Autocomplete:             o.autocomplete,
		ChannelTypes:             o.channelTypes,
		MinValue:                 o.minValue,
	}
	if o.maxValue != nil {
		def.MaxValue = *o.maxValue
	}
	for _, c := range o.choices {
		def.Choices = append(def.Choices, &discordgo.ApplicationCommandOptionChoice{
			Name:              c.Name,
			NameLocalizations: c.NameLocalizations,
			Value:             c.Value,
		})
	}
	for _, nested := range o.options {
		def.Options = append(def.Options, nested.Definition())
	}
	return def
}
