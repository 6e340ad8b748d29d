package computer

import (
	"fmt"
	"slices"

	"github.com/zeusync/contentpack/internal/core/color"
	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/fields"
	"github.com/zeusync/contentpack/internal/core/i18n"
	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/ui"
)

// System executes terminal commands sent to stationary computers.
type System struct {
	w        *ecs.World
	ui       *ui.System
	commands *Registry
	loc      i18n.Localizer
	log      log.Log
}

// NewSystem registers the computer component and its window handlers. A nil
// registry gets the stock commands.
func NewSystem(w *ecs.World, u *ui.System, commands *Registry, loc i18n.Localizer, logger log.Log) (*System, error) {
	if commands == nil {
		commands = NewDefaultRegistry()
	}
	_, err := ecs.RegisterComponent[Component](w.Registry(), "StationaryComputer",
		ecs.WithFactory(func() *Component {
			return &Component{CurrentRoot: DefaultRoot, ConsoleColor: color.Hex(color.White)}
		}),
		ecs.WithFields(
			fields.Value("currentRoot", func(c *Component) *string { return &c.CurrentRoot }),
			fields.Slice("baseContent", func(c *Component) *[]string { return &c.BaseContent }),
			fields.Slice("content", func(c *Component) *[]Entry { return &c.Content }),
			fields.Value("consoleColor", func(c *Component) *string { return &c.ConsoleColor }),
			fields.Value("locked", func(c *Component) *bool { return &c.Locked }),
			fields.Value("password", func(c *Component) *string { return &c.Password }),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("computer: %w", err)
	}
	s := &System{w: w, ui: u, commands: commands, loc: loc, log: logger.Named("computer")}

	err = ui.Subscribe(u, UiKey, func(id ecs.EntityID, c *Component, m *ui.Received[CommandMessage]) {
		s.Execute(id, c, m.Message)
	})
	if err != nil {
		return nil, fmt.Errorf("computer: %w", err)
	}
	u.RegisterStateProvider(UiKey, func(target ecs.EntityID) (any, bool) {
		return s.State(target)
	})
	return s, nil
}

// Commands returns the registry commands are dispatched through.
func (s *System) Commands() *Registry { return s.commands }

// Execute echoes msg into the scrollback, runs it and appends the response,
// then pushes the new state to every viewer, changed or not, since their
// input stays locked until it arrives.
func (s *System) Execute(id ecs.EntityID, c *Component, msg *CommandMessage) {
	echo := msg.RawText
	if cmd, ok := s.commands.Lookup(msg.CommandName); ok && cmd.MaskInput {
		echo = cmd.Name
	}
	c.AddContent(echo, msg.Root)

	response, ok := s.commands.Invoke(&Context{
		Entity:     id,
		Computer:   c,
		Positional: msg.Positional,
		Flags:      msg.Flags,
		Loc:        s.loc,
		Registry:   s.commands,
	}, msg.CommandName)
	if ok {
		c.AddContent(response, "")
	}
	s.log.Debug("command executed",
		log.String("entity", id.String()),
		log.String("command", msg.CommandName))

	s.w.Dirty(id)
	if st, ok := s.State(id); ok {
		s.ui.ForceUiState(id, UiKey, st)
	}
}

// State builds the window snapshot of id.
func (s *System) State(id ecs.EntityID) (State, bool) {
	c, ok := ecs.Get[Component](s.w, id)
	if !ok {
		return State{}, false
	}
	return State{
		Root:         c.CurrentRoot,
		BaseContent:  slices.Clone(c.BaseContent),
		Content:      slices.Clone(c.Content),
		ConsoleColor: c.ConsoleColor,
		Locked:       c.Locked,
	}, true
}
