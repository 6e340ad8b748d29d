// Package computer implements the stationary computer: a terminal window
// whose commands are executed on the server against the machine's scrollback.
package computer

import (
	"github.com/zeusync/contentpack/internal/core/protocol"
	"github.com/zeusync/contentpack/internal/core/ui"
)

// UiKey identifies the terminal window.
const UiKey ui.Key = "stationary-computer"

// DefaultRoot is the prompt root of a fresh machine.
const DefaultRoot = `NT:\`

// DefaultArgumentPrefix marks a token as a flag name.
const DefaultArgumentPrefix = "--"

// Entry is one scrollback line. Root is set for echoed input and empty for
// command output.
type Entry struct {
	Content string `json:"content" yaml:"content"`
	Root    string `json:"root,omitempty" yaml:"root,omitempty"`
}

// Component is the terminal state of one machine.
type Component struct {
	CurrentRoot string `yaml:"currentRoot"`
	// BaseContent holds localization keys printed above the scrollback.
	BaseContent  []string `yaml:"baseContent"`
	Content      []Entry  `yaml:"content"`
	ConsoleColor string   `yaml:"consoleColor"`
	Locked       bool     `yaml:"locked"`
	Password     string   `yaml:"password"`
}

// AddContent appends one scrollback entry.
func (c *Component) AddContent(content, root string) {
	c.Content = append(c.Content, Entry{Content: content, Root: root})
}

// CommandMessage is a command line typed into the window, already split by
// the client.
type CommandMessage struct {
	Root        string              `json:"root,omitempty"`
	CommandName string              `json:"commandName"`
	RawText     string              `json:"rawText"`
	Positional  []string            `json:"positional"`
	Flags       map[string][]string `json:"flags"`
}

// State is the window snapshot pushed to viewers. The password never leaves
// the server.
type State struct {
	Root         string   `json:"root"`
	BaseContent  []string `json:"baseContent"`
	Content      []Entry  `json:"content"`
	ConsoleColor string   `json:"consoleColor"`
	Locked       bool     `json:"locked"`
}

// RegisterMessages makes the window messages travel over the wire.
func RegisterMessages(r *protocol.Registry) error {
	return protocol.Register[CommandMessage](r, "stationary-computer.command")
}
