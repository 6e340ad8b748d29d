package terminal

import (
	"strings"

	"github.com/gdamore/tcell/v2"

	clientcomputer "github.com/zeusync/contentpack/internal/client/computer"
	"github.com/zeusync/contentpack/internal/content/jukebox"
)

const (
	caretRune   = '█'
	contentTop  = 2
	progressBar = 30
)

// drawComputer prints the newest scrollback lines that fit above the
// prompt, in the console colour.
func (a *App) drawComputer(p *pane, width, height int) {
	p.computer.Window(func(w *clientcomputer.Window) {
		c := w.Color()
		style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))

		promptY := height - 2
		rows := max(promptY-contentTop, 0)
		lines := w.Lines()
		if len(lines) > rows {
			lines = lines[len(lines)-rows:]
		}
		for i, l := range lines {
			put(a.screen, 0, contentTop+i, clip(l.String(), width), style)
		}

		prompt := w.Prompt()
		if w.Locked() {
			prompt = w.Root() + ">"
		}
		put(a.screen, 0, promptY, clip(prompt, width), style)
		if w.Caret().Visible() && !w.Locked() {
			x := len([]rune(prompt))
			if x < width {
				a.screen.SetContent(x, promptY, caretRune, nil, style)
			}
		}
	})
}

func (a *App) drawJukebox(p *pane, width int) {
	v := p.jukebox.View()
	y := contentTop
	line := func(text string, style tcell.Style) {
		put(a.screen, 1, y, clip(text, width-1), style)
		y++
	}
	plain := tcell.StyleDefault
	dim := plain.Dim(true)

	line(v.Title, plain.Bold(true))
	if !v.Powered {
		line(a.loc.GetString("terminal-jukebox-unpowered"), dim)
	}
	line(v.Selected, plain)
	line(a.loc.GetString("terminal-jukebox-status", string(v.Status)), dim)
	filled := int(v.Progress*progressBar + 0.5)
	line("["+strings.Repeat("=", filled)+strings.Repeat(" ", progressBar-filled)+"] "+v.Time, plain)
	line(v.Volume, plain)
	line("["+v.PlayLabel+"] ["+v.StopLabel+"]", dim)
	y++

	for i, song := range v.Songs {
		style := plain
		if song.ID == v.SelectedID && v.Status != jukebox.StatusStopped {
			style = style.Foreground(tcell.ColorGreen)
		}
		if i == p.cursor {
			style = style.Reverse(true)
		}
		line(song.Representation, style)
	}
}

func clip(s string, width int) string {
	r := []rune(s)
	if width <= 0 {
		return ""
	}
	if len(r) > width {
		return string(r[:width])
	}
	return s
}
