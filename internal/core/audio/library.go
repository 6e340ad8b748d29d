package audio

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Library reports the duration of audio assets by resource path.
type Library interface {
	Length(path string) (time.Duration, bool)
}

// Manifest is a Library backed by a static path → length table.
type Manifest map[string]time.Duration

func (m Manifest) Length(path string) (time.Duration, bool) {
	d, ok := m[path]
	return d, ok
}

type manifestEntry struct {
	Path   string        `yaml:"path"`
	Length time.Duration `yaml:"length"`
}

// LoadManifest reads a YAML list of {path, length} entries.
func LoadManifest(r io.Reader) (Manifest, error) {
	var entries []manifestEntry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return Manifest{}, nil
		}
		return nil, fmt.Errorf("decode audio manifest: %w", err)
	}
	m := make(Manifest, len(entries))
	for _, e := range entries {
		if e.Path == "" {
			return nil, fmt.Errorf("audio manifest: entry without path")
		}
		if e.Length <= 0 {
			return nil, fmt.Errorf("audio manifest: %s: length must be positive", e.Path)
		}
		if _, dup := m[e.Path]; dup {
			return nil, fmt.Errorf("audio manifest: duplicate path %s", e.Path)
		}
		m[e.Path] = e.Length
	}
	return m, nil
}
