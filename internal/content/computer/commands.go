package computer

import (
	"strconv"
	"strings"

	"github.com/rodaine/table"

	"github.com/zeusync/contentpack/internal/core/color"
)

// RegisterBuiltins adds the stock terminal commands to r.
func RegisterBuiltins(r *Registry) error {
	for _, cmd := range []Command{
		{
			Name:        "change",
			Usage:       "change --color <name|#hex>",
			Description: "stationary-computer-command-change",
			Handler:     changeCommand,
		},
		{
			Name:        "clear",
			Usage:       "clear",
			Description: "stationary-computer-command-clear",
			Handler:     clearCommand,
		},
		{
			Name:        "delete",
			Usage:       "delete [n] [--lines n] [--blocks n]",
			Description: "stationary-computer-command-delete",
			Handler:     deleteCommand,
		},
		{
			Name:        "help",
			Usage:       "help",
			Description: "stationary-computer-command-help",
			AllowLocked: true,
			Handler:     helpCommand,
		},
		{
			Name:        "lock",
			Usage:       "lock",
			Description: "stationary-computer-command-lock",
			Handler:     lockCommand,
		},
		{
			Name:        "unlock",
			Usage:       "unlock <password>",
			Description: "stationary-computer-command-unlock",
			AllowLocked: true,
			MaskInput:   true,
			Handler:     unlockCommand,
		},
	} {
		if err := r.Register(cmd); err != nil {
			return err
		}
	}
	return nil
}

// NewDefaultRegistry returns a registry holding the stock commands.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		panic(err)
	}
	return r
}

func changeCommand(ctx *Context) (string, bool) {
	value, ok := ctx.Flag("color")
	if !ok {
		return "", true
	}
	if c, ok := color.FromName(value); ok {
		ctx.Computer.ConsoleColor = color.Hex(c)
		return "", true
	}
	c, err := color.FromHex(value)
	if err != nil {
		return ctx.Loc.GetString("stationary-computer-response-unknown-color", value), true
	}
	ctx.Computer.ConsoleColor = color.Hex(c)
	return "", true
}

func clearCommand(ctx *Context) (string, bool) {
	ctx.Computer.Content = ctx.Computer.Content[:0]
	return "", false
}

// deleteCommand drops trailing scrollback. --blocks wins over --lines, which
// wins over a positional count; a rule with a malformed or non-positive
// number falls through to the next one.
func deleteCommand(ctx *Context) (string, bool) {
	count := len(ctx.Computer.Content)
	if count == 0 {
		return "", true
	}
	drop := func(n int) bool {
		n = min(max(n, 0), count)
		if n == 0 {
			return false
		}
		ctx.Computer.Content = ctx.Computer.Content[:count-n]
		return true
	}

	if v, ok := ctx.Flag("blocks"); ok {
		if blocks, err := strconv.Atoi(v); err == nil && drop(blocks*2) {
			return "", true
		}
	}
	if v, ok := ctx.Flag("lines"); ok {
		if lines, err := strconv.Atoi(v); err == nil && drop(lines) {
			return "", true
		}
	}
	if len(ctx.Positional) > 0 {
		if lines, err := strconv.Atoi(ctx.Positional[0]); err == nil && drop(lines) {
			return "", true
		}
	}
	return "", true
}

func helpCommand(ctx *Context) (string, bool) {
	var sb strings.Builder
	t := table.New(
		ctx.Loc.GetString("stationary-computer-help-column-command"),
		ctx.Loc.GetString("stationary-computer-help-column-usage"),
		ctx.Loc.GetString("stationary-computer-help-column-description"),
	).WithWriter(&sb)
	for _, cmd := range ctx.Registry.Commands() {
		t.AddRow(cmd.Name, cmd.Usage, ctx.Loc.GetString(cmd.Description))
	}
	t.Print()
	return strings.TrimRight(sb.String(), "\n"), true
}

func lockCommand(ctx *Context) (string, bool) {
	if ctx.Computer.Password == "" {
		return ctx.Loc.GetString("stationary-computer-response-no-password"), true
	}
	ctx.Computer.Locked = true
	return ctx.Loc.GetString("stationary-computer-response-lock-engaged"), true
}

func unlockCommand(ctx *Context) (string, bool) {
	if ctx.Computer.Password == "" {
		ctx.Computer.Locked = false
		return ctx.Loc.GetString("stationary-computer-response-no-password"), true
	}
	given, ok := ctx.Flag("password")
	if !ok && len(ctx.Positional) > 0 {
		given, ok = ctx.Positional[0], true
	}
	if !ok || given != ctx.Computer.Password {
		return ctx.Loc.GetString("stationary-computer-response-wrong-password"), true
	}
	ctx.Computer.Locked = false
	return ctx.Loc.GetString("stationary-computer-response-unlocked"), true
}
