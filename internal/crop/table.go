package crop

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed crops.yaml
var builtinTable []byte

// ErrUnknownCrop is returned when a crop identifier has no entry in the table.
var ErrUnknownCrop = errors.New("unknown crop")

var validate = validator.New()

// Table is the read-only set of crop specs, keyed by crop identifier.
type Table struct {
	specs map[string]*Spec
}

type tableDoc struct {
	Crops map[string]*Spec `yaml:"crops"`
}

var loadDefault = sync.OnceValues(func() (*Table, error) {
	return Parse(builtinTable)
})

// Default returns the built-in crop table. It is parsed once per process.
func Default() (*Table, error) {
	return loadDefault()
}

// Parse decodes and validates a YAML crop table.
func Parse(data []byte) (*Table, error) {
	var doc tableDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse crop table: %w", err)
	}
	if len(doc.Crops) == 0 {
		return nil, errors.New("crop table has no crops")
	}

	t := &Table{specs: make(map[string]*Spec, len(doc.Crops))}
	for name, spec := range doc.Crops {
		if spec == nil {
			return nil, fmt.Errorf("crop %q: empty entry", name)
		}
		spec.Name = strings.ToLower(name)
		if spec.TerminalCode == "" {
			spec.TerminalCode = "99"
		}
		if err := check(spec); err != nil {
			return nil, fmt.Errorf("crop %q: %w", name, err)
		}
		t.specs[spec.Name] = spec
	}
	return t, nil
}

// check applies tag validation and the structural rules tags cannot express.
func check(s *Spec) error {
	if err := validate.Struct(s); err != nil {
		return err
	}

	seen := make(map[string]bool, len(s.Stages))
	for _, e := range s.Stages {
		if seen[e.Code] {
			return fmt.Errorf("duplicate stage code %q", e.Code)
		}
		seen[e.Code] = true
	}

	for i := 1; i < len(s.Breakpoints); i++ {
		if s.Breakpoints[i].Below <= s.Breakpoints[i-1].Below {
			return fmt.Errorf("breakpoint %d (%.2f) not above previous (%.2f)",
				i, s.Breakpoints[i].Below, s.Breakpoints[i-1].Below)
		}
	}
	return nil
}

// Lookup returns the spec for a crop identifier (case-insensitive).
// Unknown identifiers fail with ErrUnknownCrop; there is no default crop.
func (t *Table) Lookup(name string) (*Spec, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if s, ok := t.specs[key]; ok {
		return s, nil
	}
	if guess := t.suggest(key); guess != "" {
		return nil, fmt.Errorf("%w %q (did you mean %q?)", ErrUnknownCrop, name, guess)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownCrop, name)
}

// Names returns the crop identifiers in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.specs))
	for name := range t.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// suggest returns the closest known crop name within edit distance, or "".
func (t *Table) suggest(key string) string {
	if len(key) < 3 {
		return ""
	}
	best := ""
	bestDist := 0
	for _, name := range t.Names() {
		dist := levenshtein.ComputeDistance(key, name)
		if dist > levenshteinLimit(len(name)) {
			continue
		}
		if best == "" || dist < bestDist {
			best, bestDist = name, dist
		}
	}
	return best
}

func levenshteinLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}
