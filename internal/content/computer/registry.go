package computer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/i18n"
)

var (
	ErrInvalidCommand   = errors.New("invalid terminal command")
	ErrDuplicateCommand = errors.New("terminal command already registered")
)

// Context is what a handler sees of one invocation.
type Context struct {
	Entity     ecs.EntityID
	Computer   *Component
	Positional []string
	Flags      map[string][]string
	Loc        i18n.Localizer
	Registry   *Registry
}

// Flag returns the first value given to flag name.
func (c *Context) Flag(name string) (string, bool) {
	values := c.Flags[name]
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// HasFlag reports whether name was given, with or without values.
func (c *Context) HasFlag(name string) bool {
	_, ok := c.Flags[name]
	return ok
}

// Handler runs a command. The boolean reports whether the response is
// printed; handlers that return false add nothing to the scrollback.
type Handler func(ctx *Context) (string, bool)

// Command is one registered terminal command.
type Command struct {
	Name  string
	Usage string
	// Description is a localization key.
	Description string
	// AllowLocked lets the command run on a locked terminal.
	AllowLocked bool
	// MaskInput hides the arguments when the command line is echoed.
	MaskInput bool
	Handler   Handler
}

// Registry maps command names to handlers.
type Registry struct {
	commands map[string]Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds cmd. Names are case-sensitive and must be unique.
func (r *Registry) Register(cmd Command) error {
	if strings.TrimSpace(cmd.Name) == "" || strings.ContainsAny(cmd.Name, " \t") {
		return fmt.Errorf("%w: name %q", ErrInvalidCommand, cmd.Name)
	}
	if cmd.Handler == nil {
		return fmt.Errorf("%w: %s has no handler", ErrInvalidCommand, cmd.Name)
	}
	if _, dup := r.commands[cmd.Name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, cmd.Name)
	}
	r.commands[cmd.Name] = cmd
	return nil
}

// Lookup returns the command called name.
func (r *Registry) Lookup(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Commands lists every command ordered by name.
func (r *Registry) Commands() []Command {
	out := make([]Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke runs name against ctx. Unknown commands, and commands refused by a
// locked terminal, answer with a localized message.
func (r *Registry) Invoke(ctx *Context, name string) (string, bool) {
	cmd, ok := r.commands[name]
	if !ok {
		return ctx.Loc.GetString("stationary-computer-response-unknown-command", name), true
	}
	if ctx.Computer.Locked && !cmd.AllowLocked {
		return ctx.Loc.GetString("stationary-computer-response-locked"), true
	}
	if ctx.Registry == nil {
		ctx.Registry = r
	}
	return cmd.Handler(ctx)
}
