package appcmd

import (
	"errors"
	"fmt"
)

// ErrValidation wraps every command/option construction failure. These are
// raised locally, before any network activity.
var ErrValidation = errors.New("invalid command definition")

// ErrMissingAccess marks a per-guild access failure during synchronization
// (bot lacks the applications.commands scope or was removed from the guild).
// The guild is skipped; the pass continues.
var ErrMissingAccess = errors.New("missing access")

// ErrUnknownCommand is reported through the error sink when an interaction
// addresses a command or sub-command the registry does not know. It indicates
// drift between the registry and Discord's registered set.
var ErrUnknownCommand = errors.New("unknown command")

// ErrNoHandler is reported when an invocation reaches a node that carries no
// handler (e.g. a node disabled after a reload).
var ErrNoHandler = errors.New("no handler registered")

// ErrorSink receives failures that have no better home: routing errors,
// handler errors on nodes without their own error handler, and check
// failures. node may be nil for routing errors, ctx may be nil when no
// interaction context exists yet.
type ErrorSink func(node Node, ctx *Context, err error)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
