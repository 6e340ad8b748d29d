package terminal

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/contentpack/internal/client/bui"
	"github.com/zeusync/contentpack/internal/content/computer"
	"github.com/zeusync/contentpack/internal/content/jukebox"
	"github.com/zeusync/contentpack/internal/core/i18n"
	"github.com/zeusync/contentpack/internal/core/protocol"
)

const (
	computerID = 10
	jukeboxID  = 11
)

func setup(t *testing.T) (*App, tcell.SimulationScreen, *bui.Recorder) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)
	screen.SetSize(80, 24)

	cat, err := i18n.LoadEmbedded()
	require.NoError(t, err)
	rec := &bui.Recorder{}
	app := New(screen, rec, cat.Printer("en-US"), []Target{
		{Entity: computerID, Key: string(computer.UiKey), Label: "Computer"},
		{Entity: jukeboxID, Key: string(jukebox.UiKey), Label: "Jukebox"},
	}, nil)
	app.async = false
	return app, screen, rec
}

func row(s tcell.Screen, y int) string {
	w, _ := s.Size()
	var b strings.Builder
	for x := range w {
		r, _, _, _ := s.GetContent(x, y)
		b.WriteRune(r)
	}
	return strings.TrimRight(b.String(), " ")
}

func screenText(s tcell.Screen) string {
	_, h := s.Size()
	rows := make([]string, h)
	for y := range h {
		rows[y] = row(s, y)
	}
	return strings.Join(rows, "\n")
}

func push(t *testing.T, app *App, entity uint64, key string, st any) {
	t.Helper()
	raw, err := json.Marshal(st)
	require.NoError(t, err)
	assert.True(t, app.Handle(context.Background(), tcell.NewEventInterrupt(stateEvent{entity: entity, key: key, raw: raw})))
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func runeKey(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestTargets(t *testing.T) {
	got := Targets([]protocol.EntityInfo{
		{ID: 1, Prototype: "Jukebox", Interfaces: []string{string(jukebox.UiKey)}},
		{ID: 2, Name: "ada", Prototype: "MobHuman"},
		{ID: 3, Name: "terminal", Prototype: "StationaryComputer", Interfaces: []string{string(computer.UiKey), "other"}},
	})
	assert.Equal(t, []Target{
		{Entity: 1, Key: string(jukebox.UiKey), Label: "Jukebox"},
		{Entity: 3, Key: string(computer.UiKey), Label: "terminal"},
	}, got)
}

func TestComputerPane(t *testing.T) {
	app, screen, rec := setup(t)
	ctx := context.Background()
	push(t, app, computerID, string(computer.UiKey), computer.State{
		Root:         computer.DefaultRoot,
		BaseContent:  []string{"stationary-computer-base-welcome"},
		ConsoleColor: "#00FF00",
	})

	for _, r := range "help" {
		app.Handle(ctx, runeKey(r))
	}
	app.draw()
	text := screenText(screen)
	assert.Contains(t, text, "NanoTrasen Terminal OS v2.1")
	assert.Contains(t, row(screen, 22), `NT:\> help`)
	_, _, style, _ := screen.GetContent(0, 2)
	fg, _, _ := style.Decompose()
	assert.Equal(t, tcell.NewRGBColor(0, 0xFF, 0), fg)

	app.Handle(ctx, key(tcell.KeyEnter))
	require.Len(t, rec.Sent, 1)
	msg := rec.Last().(*computer.CommandMessage)
	assert.Equal(t, "help", msg.CommandName)
	assert.Equal(t, computer.DefaultRoot, msg.Root)

	// input stays locked until the next state
	app.Handle(ctx, runeKey('x'))
	app.draw()
	assert.Equal(t, `NT:\>`, row(screen, 22))
}

func TestJukeboxPane(t *testing.T) {
	app, screen, rec := setup(t)
	ctx := context.Background()
	app.Handle(ctx, key(tcell.KeyTab))
	push(t, app, jukeboxID, string(jukebox.UiKey), jukebox.State{
		Status:  jukebox.StatusStopped,
		Gain:    0.5,
		Powered: true,
		Songs: []jukebox.Song{
			{ID: "NeonDreams", Representation: "Synthwave Ensemble - Neon Dreams"},
			{ID: "Drift", Representation: "Unknown Artist - Drift"},
		},
	})
	app.draw()
	text := screenText(screen)
	assert.Contains(t, text, "Nothing selected")
	assert.Contains(t, text, "Unknown Artist - Drift")
	assert.Contains(t, text, "Volume: 50%")

	app.Handle(ctx, key(tcell.KeyDown))
	app.Handle(ctx, key(tcell.KeyEnter))
	assert.Equal(t, &jukebox.SelectedMessage{SongID: "Drift"}, rec.Last())

	app.Handle(ctx, runeKey(' '))
	assert.IsType(t, &jukebox.PlayingMessage{}, rec.Last())
	app.Handle(ctx, runeKey('s'))
	assert.IsType(t, &jukebox.StopMessage{}, rec.Last())
	app.Handle(ctx, runeKey('+'))
	vol := rec.Last().(*jukebox.VolumeChangedMessage)
	assert.InDelta(t, 0.6, vol.Volume, 1e-6)
}

func TestUnpoweredJukebox(t *testing.T) {
	app, screen, _ := setup(t)
	app.Handle(context.Background(), key(tcell.KeyBacktab))
	push(t, app, jukeboxID, string(jukebox.UiKey), jukebox.State{Status: jukebox.StatusStopped})
	app.draw()
	assert.Contains(t, screenText(screen), "No power.")
}

func TestClosedWindowReported(t *testing.T) {
	app, screen, _ := setup(t)
	app.Handle(context.Background(), tcell.NewEventInterrupt(closedEvent{entity: jukeboxID, key: string(jukebox.UiKey)}))
	app.draw()
	assert.Contains(t, row(screen, 23), "Jukebox closed the window.")
}

func TestQuitKeys(t *testing.T) {
	app, _, _ := setup(t)
	ctx := context.Background()
	assert.False(t, app.Handle(ctx, key(tcell.KeyEscape)))
	assert.False(t, app.Handle(ctx, key(tcell.KeyCtrlC)))
	assert.False(t, app.Handle(ctx, tcell.NewEventInterrupt(quitEvent{})))
	assert.True(t, app.Handle(ctx, tcell.NewEventResize(80, 24)))
}

func TestRunStops(t *testing.T) {
	app, _, _ := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	time.Sleep(3 * FrameInterval)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestNoWindows(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	defer screen.Fini()
	cat, err := i18n.LoadEmbedded()
	require.NoError(t, err)
	app := New(screen, nil, cat, nil, nil)
	app.draw()
	assert.Contains(t, screenText(screen), "No windows to show.")
	assert.True(t, app.Handle(context.Background(), runeKey('x')))
}
