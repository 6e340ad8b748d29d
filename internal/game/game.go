// Package game assembles the world and every content system into one
// simulation the server drives.
package game

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/zeusync/contentpack/internal/content/computer"
	"github.com/zeusync/contentpack/internal/content/entitycopy"
	"github.com/zeusync/contentpack/internal/content/jukebox"
	"github.com/zeusync/contentpack/internal/content/power"
	"github.com/zeusync/contentpack/internal/core/audio"
	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/events/bus"
	"github.com/zeusync/contentpack/internal/core/i18n"
	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/protocol"
	"github.com/zeusync/contentpack/internal/core/prototype"
	"github.com/zeusync/contentpack/internal/core/simulation"
	"github.com/zeusync/contentpack/internal/core/ui"
	"github.com/zeusync/contentpack/resources"
)

const (
	PrototypesDir = "prototypes"
	ManifestPath  = "audio/manifest.yml"
)

// Options selects what a Game is built from. Zero values pick the embedded
// resources, no map and the base locale.
type Options struct {
	Resources fs.FS
	MapPath   string
	TickRate  int
	Locale    string
}

// Game owns the world, its systems and the loop that ticks them.
type Game struct {
	Log        log.Log
	Prototypes *prototype.Manager
	World      *ecs.World
	Catalog    *i18n.Catalog
	Messages   *protocol.Registry
	Loop       *simulation.Loop

	Audio    *audio.System
	Power    *power.System
	UI       *ui.System
	Jukebox  *jukebox.System
	Computer *computer.System
	Copier   *entitycopy.System

	// Map is the entities spawned from MapPath.
	Map *LoadedMap
}

// New loads resources and builds every system. Nothing ticks until Loop.Run.
func New(opts Options, logger log.Log) (*Game, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	fsys := opts.Resources
	if fsys == nil {
		fsys = resources.FS
	}
	g := &Game{Log: logger.Named("game")}

	g.Prototypes = prototype.NewManager()
	if err := errors.Join(
		ecs.RegisterPrototypeKinds(g.Prototypes),
		jukebox.RegisterPrototypeKinds(g.Prototypes),
	); err != nil {
		return nil, fmt.Errorf("register prototype kinds: %w", err)
	}

	catalog, err := i18n.LoadEmbedded()
	if err != nil {
		return nil, fmt.Errorf("load locales: %w", err)
	}
	g.Catalog = catalog

	manifest, err := loadManifest(fsys)
	if err != nil {
		return nil, err
	}

	g.World = ecs.NewWorld(logger, g.Prototypes, bus.New())
	if g.Audio, err = audio.NewSystem(g.World, manifest, logger); err != nil {
		return nil, err
	}
	if g.Power, err = power.NewSystem(g.World, logger); err != nil {
		return nil, err
	}
	g.UI = ui.NewSystem(g.World, logger)
	if g.Jukebox, err = jukebox.NewSystem(g.World, g.Audio, g.Power, g.UI, logger); err != nil {
		return nil, err
	}
	locale := opts.Locale
	if locale == "" {
		locale = i18n.BaseLocale
	}
	if g.Computer, err = computer.NewSystem(g.World, g.UI, nil, catalog.Printer(locale), logger); err != nil {
		return nil, err
	}
	g.Copier = entitycopy.NewSystem(g.World, logger)

	// Components must be registered before entity prototypes are decoded.
	if err = g.Prototypes.LoadDir(fsys, PrototypesDir); err != nil {
		return nil, fmt.Errorf("load prototypes: %w", err)
	}

	g.Messages = protocol.NewRegistry()
	if err = errors.Join(
		jukebox.RegisterMessages(g.Messages),
		computer.RegisterMessages(g.Messages),
	); err != nil {
		return nil, fmt.Errorf("register messages: %w", err)
	}

	g.Loop = simulation.New(opts.TickRate, logger)
	g.Loop.AddSystem("audio", g.Audio.Update)
	g.Loop.AddSystem("jukebox", g.Jukebox.Update)

	if opts.MapPath != "" {
		if g.Map, err = LoadMap(g.World, fsys, opts.MapPath); err != nil {
			return nil, err
		}
		g.Log.Info("map loaded",
			log.String("map", g.Map.Name),
			log.Int("entities", len(g.Map.Entities)))
	}

	g.Log.Info("game ready",
		log.Int("tracks", len(g.Jukebox.Songs())),
		log.Strings("locales", catalog.Locales()),
		log.Strings("messages", g.Messages.Names()))
	return g, nil
}

func loadManifest(fsys fs.FS) (audio.Manifest, error) {
	f, err := fsys.Open(ManifestPath)
	if errors.Is(err, fs.ErrNotExist) {
		return audio.Manifest{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audio manifest: %w", err)
	}
	defer f.Close()
	return audio.LoadManifest(f)
}
