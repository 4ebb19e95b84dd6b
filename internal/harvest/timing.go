// Package harvest estimates harvest readiness, days to harvest and the
// projected and potential yield of a crop.
package harvest

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/talgya/phenosim/internal/growth"
)

// ErrInterpolationGap is returned when a timing table has no usable entry on
// either side of the requested code.
var ErrInterpolationGap = errors.New("no harvest timing data around stage")

// Discrete stress multipliers applied to the remaining days. These are
// threshold penalties, not the simulator's continuous ramps.
const (
	DryPenalty         = 0.8  // water below DryThreshold mm/week
	TemperaturePenalty = 0.85 // temperature outside [ColdThreshold, HotThreshold]
	FertilizerPenalty  = 0.9  // fertilizer below LowFertilizer kg/ha

	DryThreshold  = 10.0
	ColdThreshold = 10.0
	HotThreshold  = 35.0
	LowFertilizer = 50.0
)

// Timing maps stage codes to expected remaining days to harvest. It is
// sparse; gaps are filled by interpolation on the numeric code value.
type Timing map[string]int

// Days returns the remaining days for code. exact reports whether the code
// was present verbatim. Between two known codes the result is interpolated
// linearly by code distance; with only one side known, that side's value is
// used.
func (t Timing) Days(code string) (days float64, exact bool, err error) {
	if d, ok := t[code]; ok {
		return float64(d), true, nil
	}
	target, err := strconv.Atoi(code)
	if err != nil {
		return 0, false, fmt.Errorf("%w %q: code is not numeric", ErrInterpolationGap, code)
	}

	var (
		lo, hi         int
		loDays, hiDays int
		haveLo, haveHi bool
	)
	for k, d := range t {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		if n < target && (!haveLo || n > lo) {
			lo, loDays, haveLo = n, d, true
		}
		if n > target && (!haveHi || n < hi) {
			hi, hiDays, haveHi = n, d, true
		}
	}

	switch {
	case haveLo && haveHi:
		frac := float64(target-lo) / float64(hi-lo)
		return float64(loDays) + frac*float64(hiDays-loDays), false, nil
	case haveLo:
		return float64(loDays), false, nil
	case haveHi:
		return float64(hiDays), false, nil
	default:
		return 0, false, fmt.Errorf("%w %q", ErrInterpolationGap, code)
	}
}

// StressEffect multiplies the discrete penalties that apply to c.
// 1.0 means no slowdown.
func StressEffect(c growth.Conditions) float64 {
	effect := 1.0
	if c.Water < DryThreshold {
		effect *= DryPenalty
	}
	if c.Temperature < ColdThreshold || c.Temperature > HotThreshold {
		effect *= TemperaturePenalty
	}
	if c.Fertilizer < LowFertilizer {
		effect *= FertilizerPenalty
	}
	return effect
}

// AdjustDays stretches raw remaining days by the stress slowdown.
func AdjustDays(raw float64, c growth.Conditions) int {
	return int(math.Round(raw / StressEffect(c)))
}
