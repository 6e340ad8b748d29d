package computer

import (
	imgcolor "image/color"
	"slices"

	"github.com/zeusync/contentpack/internal/content/computer"
	"github.com/zeusync/contentpack/internal/core/color"
	"github.com/zeusync/contentpack/internal/core/i18n"
)

// Line is one row of the console. Prompt is empty for output.
type Line struct {
	Prompt string
	Text   string
}

// String renders the line the way the console prints it.
func (l Line) String() string {
	if l.Prompt == "" {
		return l.Text
	}
	return l.Prompt + "> " + l.Text
}

// Window is the terminal console: scrollback, prompt and an input line with
// history. Input is locked from the moment a line is submitted until the
// next state arrives.
type Window struct {
	Prefix string
	// Private lists commands whose lines never enter the history.
	Private []string

	lines    []Line
	root     string
	color    imgcolor.RGBA
	locked   bool
	input    []rune
	history  []string
	browsing int
	draft    string
	caret    *Caret
}

func NewWindow() *Window {
	return &Window{
		Prefix:   computer.DefaultArgumentPrefix,
		Private:  []string{"unlock"},
		root:     computer.DefaultRoot,
		color:    color.White,
		caret:    NewCaret(),
		browsing: -1,
	}
}

// Populate redraws the console from st. Base content keys are localized
// with loc. The input line is cleared and unlocked.
func (w *Window) Populate(st computer.State, loc i18n.Localizer) {
	w.lines = w.lines[:0]
	if c, ok := color.Parse(st.ConsoleColor); ok {
		w.color = c
	} else {
		w.color = color.White
	}
	if st.Root != "" {
		w.root = st.Root
	}
	for _, key := range st.BaseContent {
		w.lines = append(w.lines, Line{Text: loc.GetString(key)})
	}
	for _, e := range st.Content {
		w.lines = append(w.lines, Line{Prompt: e.Root, Text: e.Content})
	}
	w.input = w.input[:0]
	w.browsing = -1
	w.locked = false
	w.caret.SetEnabled(true)
	w.caret.Reset()
}

func (w *Window) Lines() []Line { return w.lines }

func (w *Window) Root() string { return w.root }

func (w *Window) Color() imgcolor.RGBA { return w.color }

func (w *Window) Caret() *Caret { return w.caret }

// Locked reports whether the input line refuses edits.
func (w *Window) Locked() bool { return w.locked }

func (w *Window) Input() string { return string(w.input) }

// Prompt renders the input row.
func (w *Window) Prompt() string {
	return Line{Prompt: w.root, Text: string(w.input)}.String()
}

func (w *Window) Type(r rune) {
	if w.locked {
		return
	}
	w.input = append(w.input, r)
	w.caret.Reset()
}

func (w *Window) Backspace() {
	if w.locked || len(w.input) == 0 {
		return
	}
	w.input = w.input[:len(w.input)-1]
	w.caret.Reset()
}

// ClearInput empties the input line.
func (w *Window) ClearInput() {
	if w.locked {
		return
	}
	w.input = w.input[:0]
	w.browsing = -1
}

// HistoryUp replaces the input with the previous submitted line. The text
// being typed is kept and comes back when browsing past the newest entry.
func (w *Window) HistoryUp() {
	if w.locked || len(w.history) == 0 {
		return
	}
	switch {
	case w.browsing < 0:
		w.draft = string(w.input)
		w.browsing = len(w.history) - 1
	case w.browsing > 0:
		w.browsing--
	}
	w.input = []rune(w.history[w.browsing])
}

func (w *Window) HistoryDown() {
	if w.locked || w.browsing < 0 {
		return
	}
	w.browsing++
	if w.browsing >= len(w.history) {
		w.browsing = -1
		w.input = []rune(w.draft)
		return
	}
	w.input = []rune(w.history[w.browsing])
}

// Unlock reopens the input without waiting for a state, after a line could
// not be delivered.
func (w *Window) Unlock() {
	w.locked = false
	w.caret.SetEnabled(true)
}

// Submit parses the input line. A parsed line locks the input until the
// next Populate. Blank or locked input reports false.
func (w *Window) Submit() (CommandLine, bool) {
	if w.locked {
		return CommandLine{}, false
	}
	line, ok := ParseCommandLine(string(w.input), w.Prefix)
	if !ok {
		return CommandLine{}, false
	}
	if !slices.Contains(w.Private, line.Name) {
		if n := len(w.history); n == 0 || w.history[n-1] != line.Raw {
			w.history = append(w.history, line.Raw)
		}
	}
	w.browsing = -1
	w.draft = ""
	w.locked = true
	w.caret.SetEnabled(false)
	return line, true
}
