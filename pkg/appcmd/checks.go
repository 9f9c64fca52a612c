package appcmd

import (
	"errors"
	"fmt"
)

// ErrCheckFailed is wrapped by the built-in checks so error handlers can
// distinguish refused invocations from real failures.
var ErrCheckFailed = errors.New("check failed")

// GuildOnly refuses invocations that arrive outside a guild.
func GuildOnly(ctx *Context) error {
	if ctx.GuildID == "" {
		return fmt.Errorf("%w: command is only available in servers", ErrCheckFailed)
	}
	return nil
}

// RequirePermissions builds a check refusing members whose interaction
// permissions lack any of the given bits.
func RequirePermissions(perms int64) Check {
	return func(ctx *Context) error {
		if ctx.Interaction == nil || ctx.Interaction.Member == nil {
			return fmt.Errorf("%w: no member on interaction", ErrCheckFailed)
		}
		if ctx.Interaction.Member.Permissions&perms != perms {
			return fmt.Errorf("%w: missing required permissions", ErrCheckFailed)
		}
		return nil
	}
}
