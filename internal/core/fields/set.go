package fields

import (
	"fmt"
)

// Set is the ordered list of persisted members of one component type.
type Set struct {
	fields []Field
	byName map[string]int
}

// NewSet builds a Set, rejecting duplicate member names.
func NewSet(fs ...Field) (Set, error) {
	s := Set{fields: make([]Field, 0, len(fs)), byName: make(map[string]int, len(fs))}
	for _, f := range fs {
		if f == nil {
			return Set{}, fmt.Errorf("fields: nil descriptor")
		}
		if _, dup := s.byName[f.Name()]; dup {
			return Set{}, fmt.Errorf("fields: duplicate member %q", f.Name())
		}
		s.byName[f.Name()] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// Len returns the number of declared members.
func (s Set) Len() int { return len(s.fields) }

// All returns every declared member in declaration order.
func (s Set) All() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Lookup finds a member by name.
func (s Set) Lookup(name string) (Field, bool) {
	i, ok := s.byName[name]
	if !ok {
		return nil, false
	}
	return s.fields[i], true
}

// CopyEligible returns the members that may be copied between entities:
// everything except entity references.
func (s Set) CopyEligible() []Field {
	out := make([]Field, 0, len(s.fields))
	for _, f := range s.fields {
		if f.Kind() == KindValue {
			out = append(out, f)
		}
	}
	return out
}

// CopyInto copies every copy-eligible member from src to dst, skipping members
// that are already equal. It returns the names of the members it wrote.
func (s Set) CopyInto(src, dst any) []string {
	var written []string
	for _, f := range s.fields {
		if f.Kind() != KindValue {
			continue
		}
		if f.Equal(src, dst) {
			continue
		}
		f.CopyTo(src, dst)
		written = append(written, f.Name())
	}
	return written
}
