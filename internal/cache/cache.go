// Package cache memoizes per-file extraction and scoring results across
// pipeline runs, keyed by a digest of the file content.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/phobologic/callrank/internal/graph"
	"github.com/phobologic/callrank/internal/model"
)

// DefaultSize is the number of files kept when no size is configured.
const DefaultSize = 4096

// Entry is what one unit produced. Entries are shared between runs and must
// not be modified.
type Entry struct {
	Contribution graph.Contribution
	Scores       map[string]int
}

// Cache is an LRU of entries. A nil *Cache is valid and never hits.
type Cache struct {
	// salt identifies the extractor and scorer so switching either one
	// never returns stale results.
	salt  string
	items *lru.Cache[string, Entry]
}

// New returns a cache holding up to size entries. salt should name the
// extractor and scorer in use.
func New(size int, salt string) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	items, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("creating contribution cache: %w", err)
	}
	return &Cache{salt: salt, items: items}, nil
}

// Key returns the digest for unit.
func (c *Cache) Key(unit model.SourceUnit) string {
	h := sha256.New()
	h.Write([]byte(c.salt))
	h.Write([]byte{0})
	h.Write([]byte(unit.Path))
	h.Write([]byte{0})
	h.Write([]byte(unit.Language))
	h.Write([]byte{0})
	h.Write([]byte(unit.Text))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached entry for unit.
func (c *Cache) Get(unit model.SourceUnit) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	return c.items.Get(c.Key(unit))
}

// Put stores the entry for unit.
func (c *Cache) Put(unit model.SourceUnit, e Entry) {
	if c == nil {
		return
	}
	c.items.Add(c.Key(unit), e)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.items.Len()
}
