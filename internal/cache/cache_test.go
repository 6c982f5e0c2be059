package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/callrank/internal/graph"
	"github.com/phobologic/callrank/internal/model"
)

func unit(path, text string) model.SourceUnit {
	return model.SourceUnit{Path: path, Extension: ".py", Language: "python", Text: text}
}

func TestGetPut(t *testing.T) {
	t.Parallel()

	c, err := New(8, "text/none")
	require.NoError(t, err)

	u := unit("a.py", "def foo():\n    bar()\n")
	_, ok := c.Get(u)
	assert.False(t, ok)

	e := Entry{
		Contribution: graph.Contribution{Path: "a.py", Definitions: []string{"foo"}},
		Scores:       map[string]int{"foo": 2},
	}
	c.Put(u, e)

	got, ok := c.Get(u)
	require.True(t, ok)
	assert.Equal(t, e, got)
	assert.Equal(t, 1, c.Len())

	_, ok = c.Get(unit("a.py", "def foo():\n    baz()\n"))
	assert.False(t, ok, "changed content must miss")

	_, ok = c.Get(unit("b.py", "def foo():\n    bar()\n"))
	assert.False(t, ok, "same content at another path must miss")
}

func TestKeyDependsOnSalt(t *testing.T) {
	t.Parallel()

	a, err := New(0, "text/none")
	require.NoError(t, err)
	b, err := New(0, "treesitter/none")
	require.NoError(t, err)

	u := unit("a.py", "x")
	assert.NotEqual(t, a.Key(u), b.Key(u))
	assert.Equal(t, a.Key(u), a.Key(u))
	assert.Len(t, a.Key(u), 64)
}

func TestEviction(t *testing.T) {
	t.Parallel()

	c, err := New(2, "")
	require.NoError(t, err)

	c.Put(unit("a.py", "a"), Entry{})
	c.Put(unit("b.py", "b"), Entry{})
	c.Put(unit("c.py", "c"), Entry{})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(unit("a.py", "a"))
	assert.False(t, ok, "least recently used entry should be evicted")
}

func TestNilCache(t *testing.T) {
	t.Parallel()

	var c *Cache
	c.Put(unit("a.py", "a"), Entry{})
	_, ok := c.Get(unit("a.py", "a"))
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}
