package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entityID uint64

type sample struct {
	Name    string
	Lines   []string
	Tags    map[string]int
	Owner   entityID
	Members []entityID
	scratch int
}

func sampleSet(t *testing.T) Set {
	t.Helper()
	s, err := NewSet(
		Value("name", func(c *sample) *string { return &c.Name }),
		Slice("lines", func(c *sample) *[]string { return &c.Lines }),
		Map("tags", func(c *sample) *map[string]int { return &c.Tags }),
		Ref("owner", func(c *sample) *entityID { return &c.Owner }),
		Refs("members", func(c *sample) *[]entityID { return &c.Members }),
	)
	require.NoError(t, err)
	return s
}

func TestNewSetRejectsDuplicates(t *testing.T) {
	_, err := NewSet(
		Value("name", func(c *sample) *string { return &c.Name }),
		Value("name", func(c *sample) *string { return &c.Name }),
	)
	assert.Error(t, err)
}

func TestCopyEligibleSkipsReferences(t *testing.T) {
	s := sampleSet(t)

	var names []string
	for _, f := range s.CopyEligible() {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"name", "lines", "tags"}, names)

	owner, ok := s.Lookup("owner")
	require.True(t, ok)
	assert.Equal(t, KindRef, owner.Kind())
}

func TestCopyIntoWritesIndependentValues(t *testing.T) {
	s := sampleSet(t)
	src := &sample{
		Name:    "console",
		Lines:   []string{"a", "b"},
		Tags:    map[string]int{"x": 1},
		Owner:   7,
		Members: []entityID{1, 2},
		scratch: 9,
	}
	dst := &sample{Name: "console", Owner: 3, Members: []entityID{5}}

	written := s.CopyInto(src, dst)
	assert.Equal(t, []string{"lines", "tags"}, written)
	assert.Equal(t, src.Lines, dst.Lines)
	assert.Equal(t, src.Tags, dst.Tags)

	// references and undeclared members stay untouched
	assert.Equal(t, entityID(3), dst.Owner)
	assert.Equal(t, []entityID{5}, dst.Members)
	assert.Zero(t, dst.scratch)

	// copies do not alias the source
	dst.Lines[0] = "changed"
	dst.Tags["x"] = 2
	assert.Equal(t, "a", src.Lines[0])
	assert.Equal(t, 1, src.Tags["x"])

	assert.Empty(t, s.CopyInto(src, src))
}

func TestCustomField(t *testing.T) {
	type inner struct{ Values []int }
	type holder struct{ In inner }

	f := Custom("in",
		func(c *holder) *inner { return &c.In },
		func(a, b inner) bool { return len(a.Values) == len(b.Values) },
		func(v inner) inner { return inner{Values: append([]int(nil), v.Values...)} },
	)
	src := &holder{In: inner{Values: []int{1, 2}}}
	dst := &holder{}
	assert.False(t, f.Equal(src, dst))
	f.CopyTo(src, dst)
	assert.True(t, f.Equal(src, dst))
	assert.Equal(t, inner{Values: []int{1, 2}}, f.Get(dst))
}
