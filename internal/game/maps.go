package game

import (
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/contentpack/internal/core/ecs"
)

// MapFile is the on-disk layout of a map.
//
//	id: 1
//	name: Bar
//	entities:
//	- prototype: Jukebox
//	  position: [4.5, 2.5]
//	  rotation: 90
type MapFile struct {
	ID       ecs.MapID   `yaml:"id"`
	Name     string      `yaml:"name"`
	Entities []MapEntity `yaml:"entities"`
}

type MapEntity struct {
	Prototype string     `yaml:"prototype"`
	Position  [2]float64 `yaml:"position"`
	// Rotation is in degrees.
	Rotation float64 `yaml:"rotation"`
	// Anchored overrides the prototype's anchoring when set.
	Anchored *bool `yaml:"anchored"`
}

// LoadedMap is a map after its entities were spawned.
type LoadedMap struct {
	ID       ecs.MapID
	Name     string
	Entities []ecs.EntityID
}

// LoadMap spawns every entity of the map file at path. The first failure
// deletes whatever the map had spawned so far.
func LoadMap(w *ecs.World, fsys fs.FS, path string) (*LoadedMap, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read map: %w", err)
	}
	var file MapFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode map %s: %w", path, err)
	}
	if file.ID == 0 {
		return nil, fmt.Errorf("map %s: id must be non-zero", path)
	}

	loaded := &LoadedMap{ID: file.ID, Name: file.Name}
	rollback := func() {
		for _, id := range loaded.Entities {
			w.DeleteEntity(id)
		}
	}
	for i, e := range file.Entities {
		coords := ecs.MapCoordinates(file.ID, e.Position[0], e.Position[1])
		id, err := w.CreateEntityUninitialized(e.Prototype, coords, ecs.Degrees(e.Rotation))
		if err != nil {
			rollback()
			return nil, fmt.Errorf("map %s: entity %d: %w", path, i, err)
		}
		loaded.Entities = append(loaded.Entities, id)
		if e.Anchored != nil {
			if xform, ok := w.Transform(id); ok {
				xform.Anchored = *e.Anchored
			}
		}
		if err = w.InitializeAndStartEntity(id, true); err != nil {
			rollback()
			return nil, fmt.Errorf("map %s: entity %d: %w", path, i, err)
		}
	}
	return loaded, nil
}
