package bbch

import (
	"errors"
	"fmt"
	"sort"

	"github.com/talgya/phenosim/internal/crop"
)

// ErrStageLookupMiss is returned when a code has no entry in a crop's catalog.
var ErrStageLookupMiss = errors.New("stage code not in catalog")

// Direction selects the side of a neighbour query.
type Direction int

const (
	Before Direction = iota
	After
)

// Catalog is one crop's ordered stage table.
type Catalog struct {
	crop    string
	entries []crop.StageEntry
	index   map[string]int
	numeric bool
}

// NewCatalog orders entries by the integer value of their codes. If any code
// is not a plain integer the whole catalog falls back to string order so the
// ordering stays total and consistent.
func NewCatalog(cropName string, entries []crop.StageEntry) *Catalog {
	c := &Catalog{
		crop:    cropName,
		entries: append([]crop.StageEntry(nil), entries...),
		index:   make(map[string]int, len(entries)),
		numeric: true,
	}
	for _, e := range c.entries {
		if _, ok := codeValue(e.Code); !ok {
			c.numeric = false
			break
		}
	}
	sort.SliceStable(c.entries, func(i, j int) bool {
		return c.compare(c.entries[i].Code, c.entries[j].Code) < 0
	})
	for i, e := range c.entries {
		c.index[e.Code] = i
	}
	return c
}

// CatalogFor builds the catalog of a crop spec.
func CatalogFor(spec *crop.Spec) *Catalog {
	return NewCatalog(spec.Name, spec.Stages)
}

func (c *Catalog) compare(a, b string) int {
	if c.numeric {
		return CompareCodes(a, b)
	}
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Entries returns the catalog in order.
func (c *Catalog) Entries() []crop.StageEntry {
	return append([]crop.StageEntry(nil), c.entries...)
}

// Len returns the number of stages in the catalog.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Lookup returns the entry for a code.
func (c *Catalog) Lookup(code string) (crop.StageEntry, error) {
	i, ok := c.index[code]
	if !ok {
		return crop.StageEntry{}, fmt.Errorf("%s %q: %w", c.crop, code, ErrStageLookupMiss)
	}
	return c.entries[i], nil
}

// Neighbors returns up to n entries strictly before or after code, in catalog
// order. The code itself need not be in the catalog.
func (c *Catalog) Neighbors(code string, n int, dir Direction) []crop.StageEntry {
	if n <= 0 {
		return nil
	}
	// First position whose code is not below the reference.
	pos := sort.Search(len(c.entries), func(i int) bool {
		return c.compare(c.entries[i].Code, code) >= 0
	})

	var out []crop.StageEntry
	switch dir {
	case Before:
		start := max(pos-n, 0)
		out = c.entries[start:pos]
	case After:
		if pos < len(c.entries) && c.compare(c.entries[pos].Code, code) == 0 {
			pos++
		}
		end := min(pos+n, len(c.entries))
		out = c.entries[pos:end]
	}
	return append([]crop.StageEntry(nil), out...)
}

// Estimate picks a stage by the fraction of the season elapsed, used when a
// classified code is missing from the catalog. The index is bounded by the
// catalog length.
func (c *Catalog) Estimate(day, seasonDays int) crop.StageEntry {
	if len(c.entries) == 0 {
		return crop.StageEntry{}
	}
	if seasonDays <= 0 || day < 0 {
		return c.entries[0]
	}
	i := day * len(c.entries) / seasonDays
	if i >= len(c.entries) {
		i = len(c.entries) - 1
	}
	return c.entries[i]
}
