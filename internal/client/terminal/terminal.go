// Package terminal is a text-mode front end for the jukebox and computer
// windows, drawn with tcell.
package terminal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/zeusync/contentpack/internal/client/bui"
	clientcomputer "github.com/zeusync/contentpack/internal/client/computer"
	clientjukebox "github.com/zeusync/contentpack/internal/client/jukebox"
	"github.com/zeusync/contentpack/internal/content/computer"
	"github.com/zeusync/contentpack/internal/content/jukebox"
	"github.com/zeusync/contentpack/internal/core/i18n"
	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/protocol"
)

// FrameInterval is how often the caret and playhead are redrawn.
const FrameInterval = 100 * time.Millisecond

const seekStep = 10.0

// Target is one window the terminal can show.
type Target struct {
	Entity uint64
	Key    string
	Label  string
}

// Targets picks the windows the terminal knows how to draw.
func Targets(entities []protocol.EntityInfo) []Target {
	var out []Target
	for _, e := range entities {
		label := e.Name
		if label == "" {
			label = e.Prototype
		}
		for _, key := range e.Interfaces {
			if key == string(computer.UiKey) || key == string(jukebox.UiKey) {
				out = append(out, Target{Entity: e.ID, Key: key, Label: label})
			}
		}
	}
	return out
}

type pane struct {
	Target
	computer *clientcomputer.BUI
	jukebox  *clientjukebox.BUI
	cursor   int
}

type stateEvent struct {
	entity uint64
	key    string
	raw    json.RawMessage
}

type closedEvent struct {
	entity uint64
	key    string
}

type statusEvent struct{ text string }

type frameEvent struct{}

type quitEvent struct{}

// App runs the terminal on one screen.
type App struct {
	screen tcell.Screen
	loc    i18n.Localizer
	log    log.Log

	panes  []*pane
	active int
	status string
	last   time.Time
	// async sends from goroutines so the screen never waits on the network.
	async bool
}

func New(screen tcell.Screen, sender bui.Sender, loc i18n.Localizer, targets []Target, logger log.Log) *App {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{screen: screen, loc: loc, log: logger.Named("terminal"), async: true}
	for _, t := range targets {
		p := &pane{Target: t}
		switch t.Key {
		case string(computer.UiKey):
			p.computer = clientcomputer.New(t.Entity, sender, loc)
		case string(jukebox.UiKey):
			p.jukebox = clientjukebox.New(t.Entity, sender, loc)
		default:
			continue
		}
		a.panes = append(a.panes, p)
	}
	return a
}

// PushState hands a pushed window state to the UI goroutine. Safe to call
// from any goroutine.
func (a *App) PushState(entity uint64, key string, raw json.RawMessage) {
	a.post(stateEvent{entity: entity, key: key, raw: raw})
}

// PushClosed tells the UI the server closed a window.
func (a *App) PushClosed(entity uint64, key string) {
	a.post(closedEvent{entity: entity, key: key})
}

// Stop ends Run.
func (a *App) Stop() { a.post(quitEvent{}) }

func (a *App) post(data any) {
	_ = a.screen.PostEvent(tcell.NewEventInterrupt(data))
}

// Run draws and handles input until Esc, Ctrl-C, Stop or ctx ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		ticker := time.NewTicker(FrameInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				a.post(quitEvent{})
				return
			case <-ticker.C:
				a.post(frameEvent{})
			}
		}
	}()

	a.last = time.Now()
	a.draw()
	for {
		ev := a.screen.PollEvent()
		if ev == nil {
			return nil
		}
		if !a.Handle(ctx, ev) {
			return nil
		}
		a.draw()
	}
}

// Handle applies one event. It reports false when the terminal should
// exit.
func (a *App) Handle(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		a.screen.Sync()
	case *tcell.EventInterrupt:
		return a.handleInterrupt(ev)
	case *tcell.EventKey:
		return a.handleKey(ctx, ev)
	}
	return true
}

func (a *App) handleInterrupt(ev *tcell.EventInterrupt) bool {
	switch data := ev.Data().(type) {
	case quitEvent:
		return false
	case frameEvent:
		now := ev.When()
		dt := now.Sub(a.last)
		a.last = now
		for _, p := range a.panes {
			if p.computer != nil {
				p.computer.Window(func(w *clientcomputer.Window) { w.Caret().Advance(dt) })
			}
		}
	case statusEvent:
		a.status = data.text
	case stateEvent:
		p := a.pane(data.entity, data.key)
		if p == nil {
			return true
		}
		var err error
		if p.computer != nil {
			err = p.computer.UpdateState(data.raw)
		} else {
			err = p.jukebox.UpdateState(data.raw)
		}
		if err != nil {
			a.log.Warn("bad window state", log.Uint64("entity", data.entity), log.Error(err))
		}
	case closedEvent:
		if p := a.pane(data.entity, data.key); p != nil {
			a.status = a.loc.GetString("terminal-window-closed", p.Label)
		}
	}
	return true
}

func (a *App) pane(entity uint64, key string) *pane {
	for _, p := range a.panes {
		if p.Entity == entity && p.Key == key {
			return p
		}
	}
	return nil
}

func (a *App) current() *pane {
	if len(a.panes) == 0 {
		return nil
	}
	return a.panes[a.active]
}

func (a *App) handleKey(ctx context.Context, ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyTab:
		if len(a.panes) > 0 {
			a.active = (a.active + 1) % len(a.panes)
		}
		return true
	case tcell.KeyBacktab:
		if len(a.panes) > 0 {
			a.active = (a.active + len(a.panes) - 1) % len(a.panes)
		}
		return true
	}
	p := a.current()
	switch {
	case p == nil:
	case p.computer != nil:
		a.computerKey(ctx, p, ev)
	case p.jukebox != nil:
		a.jukeboxKey(ctx, p, ev)
	}
	return true
}

func (a *App) computerKey(ctx context.Context, p *pane, ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEnter:
		a.send(ctx, func(ctx context.Context) error {
			_, err := p.computer.Submit(ctx)
			return err
		})
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		p.computer.Window(func(w *clientcomputer.Window) { w.Backspace() })
	case tcell.KeyUp:
		p.computer.Window(func(w *clientcomputer.Window) { w.HistoryUp() })
	case tcell.KeyDown:
		p.computer.Window(func(w *clientcomputer.Window) { w.HistoryDown() })
	case tcell.KeyCtrlU:
		p.computer.Window(func(w *clientcomputer.Window) { w.ClearInput() })
	case tcell.KeyRune:
		r := ev.Rune()
		p.computer.Window(func(w *clientcomputer.Window) { w.Type(r) })
	}
}

func (a *App) jukeboxKey(ctx context.Context, p *pane, ev *tcell.EventKey) {
	b := p.jukebox
	st, _ := b.State()
	switch ev.Key() {
	case tcell.KeyUp:
		p.cursor = max(p.cursor-1, 0)
		return
	case tcell.KeyDown:
		p.cursor = min(p.cursor+1, max(len(st.Songs)-1, 0))
		return
	case tcell.KeyEnter:
		if p.cursor < len(st.Songs) {
			id := st.Songs[p.cursor].ID
			a.send(ctx, func(ctx context.Context) error { return b.Select(ctx, id) })
		}
		return
	case tcell.KeyLeft:
		pos := b.Position() - seekStep
		a.send(ctx, func(ctx context.Context) error { return b.SetTime(ctx, pos) })
		return
	case tcell.KeyRight:
		pos := b.Position() + seekStep
		a.send(ctx, func(ctx context.Context) error { return b.SetTime(ctx, pos) })
		return
	case tcell.KeyRune:
	default:
		return
	}
	switch ev.Rune() {
	case ' ', 'p':
		a.send(ctx, b.TogglePlay)
	case 's':
		a.send(ctx, b.Stop)
	case '+', '=':
		gain := st.Gain + 0.1
		a.send(ctx, func(ctx context.Context) error { return b.SetVolume(ctx, gain) })
	case '-':
		gain := st.Gain - 0.1
		a.send(ctx, func(ctx context.Context) error { return b.SetVolume(ctx, gain) })
	}
}

func (a *App) send(ctx context.Context, fn func(context.Context) error) {
	run := func() {
		if err := fn(ctx); err != nil {
			a.log.Debug("send failed", log.Error(err))
			a.post(statusEvent{text: err.Error()})
		}
	}
	if a.async {
		go run()
		return
	}
	run()
}

// Status returns the line shown under the panes.
func (a *App) Status() string { return a.status }

func (a *App) draw() {
	s := a.screen
	s.Clear()
	width, height := s.Size()
	a.drawTabs(width)
	if p := a.current(); p != nil {
		switch {
		case p.computer != nil:
			a.drawComputer(p, width, height)
		case p.jukebox != nil:
			a.drawJukebox(p, width)
		}
	} else {
		put(s, 1, 2, a.loc.GetString("terminal-no-windows"), tcell.StyleDefault)
	}
	put(s, 0, height-1, fmt.Sprintf("%s  %s", a.loc.GetString("terminal-help"), a.status), tcell.StyleDefault.Dim(true))
	s.Show()
}

func (a *App) drawTabs(width int) {
	x := 0
	for i, p := range a.panes {
		style := tcell.StyleDefault
		if i == a.active {
			style = style.Reverse(true)
		}
		label := " " + p.Label + " "
		put(a.screen, x, 0, label, style)
		x += len([]rune(label)) + 1
		if x >= width {
			break
		}
	}
	for x := range width {
		a.screen.SetContent(x, 1, '─', nil, tcell.StyleDefault.Dim(true))
	}
}

func put(s tcell.Screen, x, y int, text string, style tcell.Style) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
