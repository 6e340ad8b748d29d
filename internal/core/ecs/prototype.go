package ecs

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/contentpack/internal/core/prototype"
)

// EntityPrototypeKind is the `type:` discriminator of entity blueprints.
const EntityPrototypeKind = "entity"

// EntityPrototype is a data-defined blueprint entities are spawned from.
//
//	# prototypes/jukebox.yml
//	- type: entity
//	  id: Jukebox
//	  name: jukebox
//	  components:
//	  - type: Jukebox
//	    gain: 0.5
//	  - type: PowerReceiver
type EntityPrototype struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Components  []yaml.Node `yaml:"components"`
}

func (p *EntityPrototype) PrototypeID() string { return p.ID }

type componentHeader struct {
	Type string `yaml:"type"`
}

// Validate checks that every component entry names its type exactly once.
func (p *EntityPrototype) Validate() error {
	seen := make(map[string]struct{}, len(p.Components))
	for i := range p.Components {
		var h componentHeader
		if err := p.Components[i].Decode(&h); err != nil {
			return fmt.Errorf("%w: component %d: %v", ErrInvalidPrototype, i, err)
		}
		if h.Type == "" {
			return fmt.Errorf("%w: component %d has no type", ErrInvalidPrototype, i)
		}
		if _, dup := seen[h.Type]; dup {
			return fmt.Errorf("%w: component %s listed twice", ErrInvalidPrototype, h.Type)
		}
		seen[h.Type] = struct{}{}
	}
	return nil
}

// RegisterPrototypeKinds teaches m to load entity blueprints.
func RegisterPrototypeKinds(m *prototype.Manager) error {
	return prototype.RegisterKind[EntityPrototype](m, EntityPrototypeKind)
}

type decodedComponent struct {
	typ   *ComponentType
	value any
}

// decodeComponents builds fresh component instances for one spawn.
func (w *World) decodeComponents(p *EntityPrototype) ([]decodedComponent, error) {
	out := make([]decodedComponent, 0, len(p.Components))
	for i := range p.Components {
		node := &p.Components[i]
		var h componentHeader
		if err := node.Decode(&h); err != nil {
			return nil, fmt.Errorf("%s: %w", p.ID, err)
		}
		t, ok := w.reg.ByName(h.Type)
		if !ok {
			return nil, fmt.Errorf("%s: %w: %s", p.ID, ErrUnknownComponent, h.Type)
		}
		v := t.New()
		if err := node.Decode(v); err != nil {
			return nil, fmt.Errorf("%s: decode %s: %w", p.ID, h.Type, err)
		}
		out = append(out, decodedComponent{typ: t, value: v})
	}
	return out, nil
}
