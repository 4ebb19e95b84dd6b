package bbch

import (
	"sort"

	"github.com/talgya/phenosim/internal/crop"
)

// Classifier maps a development-stage scalar onto a stage code using one
// crop's breakpoint table.
type Classifier struct {
	thresholds []float64
	codes      []string
	terminal   string
}

// NewClassifier builds a classifier from breakpoints sorted by threshold.
// Stages at or beyond the last threshold classify as terminal.
func NewClassifier(breakpoints []crop.Breakpoint, terminal string) *Classifier {
	c := &Classifier{
		thresholds: make([]float64, len(breakpoints)),
		codes:      make([]string, len(breakpoints)),
		terminal:   terminal,
	}
	for i, bp := range breakpoints {
		c.thresholds[i] = bp.Below
		c.codes[i] = bp.Code
	}
	return c
}

// ForCrop builds the classifier described by a crop spec.
func ForCrop(spec *crop.Spec) *Classifier {
	return NewClassifier(spec.Breakpoints, spec.TerminalCode)
}

// Classify returns the code of the first breakpoint whose threshold exceeds stage.
func (c *Classifier) Classify(stage float64) string {
	i := sort.Search(len(c.thresholds), func(i int) bool {
		return c.thresholds[i] > stage
	})
	if i == len(c.thresholds) {
		return c.terminal
	}
	return c.codes[i]
}
