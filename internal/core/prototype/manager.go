// Package prototype loads data-defined blueprints from YAML documents.
//
// A prototype file is a YAML sequence of mappings. Every mapping carries a
// `type` discriminator naming a registered kind and an `id` unique within
// that kind:
//
//	# prototypes/jukebox.yml
//	- type: jukebox
//	  id: NeonDreams
//	  name: Neon Dreams
//	  path: /Audio/Jukebox/neon_dreams.ogg
package prototype

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownKind  = errors.New("unknown prototype kind")
	ErrDuplicateID  = errors.New("duplicate prototype id")
	ErrMissingID    = errors.New("prototype id is required")
	ErrKindConflict = errors.New("prototype kind already registered")
)

// Prototype is implemented by every blueprint type.
type Prototype interface {
	PrototypeID() string
}

// Validator is implemented by prototypes that check themselves after decoding.
type Validator interface {
	Validate() error
}

type kind struct {
	name   string
	typ    reflect.Type
	decode func(node *yaml.Node) (Prototype, error)
	byID   map[string]Prototype
}

// Manager stores every loaded prototype, grouped by kind.
type Manager struct {
	kinds  map[string]*kind
	byType map[reflect.Type]*kind
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{
		kinds:  make(map[string]*kind),
		byType: make(map[reflect.Type]*kind),
	}
}

// RegisterKind makes documents tagged `type: name` decode into *T.
func RegisterKind[T any, PT interface {
	*T
	Prototype
}](m *Manager, name string) error {
	if _, exists := m.kinds[name]; exists {
		return fmt.Errorf("%w: %s", ErrKindConflict, name)
	}
	typ := reflect.TypeFor[PT]()
	k := &kind{
		name: name,
		typ:  typ,
		byID: make(map[string]Prototype),
		decode: func(node *yaml.Node) (Prototype, error) {
			p := PT(new(T))
			if err := node.Decode(p); err != nil {
				return nil, err
			}
			return p, nil
		},
	}
	m.kinds[name] = k
	m.byType[typ] = k
	return nil
}

type header struct {
	Type string `yaml:"type"`
	ID   string `yaml:"id"`
}

// Load decodes one prototype document stream.
func (m *Manager) Load(r io.Reader, source string) error {
	var docs []yaml.Node
	if err := yaml.NewDecoder(r).Decode(&docs); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%s: %w", source, err)
	}

	for i := range docs {
		node := &docs[i]
		var h header
		if err := node.Decode(&h); err != nil {
			return fmt.Errorf("%s:%d: %w", source, node.Line, err)
		}
		k, ok := m.kinds[h.Type]
		if !ok {
			return fmt.Errorf("%s:%d: %w %q", source, node.Line, ErrUnknownKind, h.Type)
		}
		if strings.TrimSpace(h.ID) == "" {
			return fmt.Errorf("%s:%d: %w", source, node.Line, ErrMissingID)
		}
		if _, dup := k.byID[h.ID]; dup {
			return fmt.Errorf("%s:%d: %w %s/%s", source, node.Line, ErrDuplicateID, h.Type, h.ID)
		}
		p, err := k.decode(node)
		if err != nil {
			return fmt.Errorf("%s:%d: decode %s/%s: %w", source, node.Line, h.Type, h.ID, err)
		}
		if v, ok := p.(Validator); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("%s:%d: %s/%s: %w", source, node.Line, h.Type, h.ID, err)
			}
		}
		k.byID[h.ID] = p
	}
	return nil
}

// LoadString is a convenience for tests and embedded definitions.
func (m *Manager) LoadString(doc string) error {
	return m.Load(strings.NewReader(doc), "inline")
}

// LoadDir loads every *.yml and *.yaml file under root, in lexical order.
func (m *Manager) LoadDir(fsys fs.FS, root string) error {
	var files []string
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch path.Ext(p) {
		case ".yml", ".yaml":
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk prototypes: %w", err)
	}
	sort.Strings(files)

	for _, name := range files {
		f, err := fsys.Open(name)
		if err != nil {
			return fmt.Errorf("open %s: %w", name, err)
		}
		err = m.Load(f, name)
		_ = f.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// Index resolves a prototype of type PT by id.
func Index[PT Prototype](m *Manager, id string) (PT, bool) {
	var zero PT
	k, ok := m.byType[reflect.TypeFor[PT]()]
	if !ok {
		return zero, false
	}
	p, ok := k.byID[id]
	if !ok {
		return zero, false
	}
	return p.(PT), true
}

// Has reports whether a prototype of type PT with the given id exists.
func Has[PT Prototype](m *Manager, id string) bool {
	_, ok := Index[PT](m, id)
	return ok
}

// Enumerate returns every prototype of type PT sorted by id.
func Enumerate[PT Prototype](m *Manager) []PT {
	k, ok := m.byType[reflect.TypeFor[PT]()]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(k.byID))
	for id := range k.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]PT, 0, len(ids))
	for _, id := range ids {
		out = append(out, k.byID[id].(PT))
	}
	return out
}
