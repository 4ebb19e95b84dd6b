package harvest

import (
	"errors"

	"github.com/talgya/phenosim/internal/bbch"
	"github.com/talgya/phenosim/internal/crop"
	"github.com/talgya/phenosim/internal/growth"
)

// Forecast is the harvest outlook for one crop on one day.
type Forecast struct {
	Code           string  `json:"code"`
	IsReady        bool    `json:"is_ready"`
	DaysRemaining  int     `json:"days_remaining"`
	FinalYield     float64 `json:"final_yield"`     // kg/ha
	PotentialYield float64 `json:"potential_yield"` // kg/ha under optimal inputs
	LowConfidence  bool    `json:"low_confidence"`
}

// Predictor answers harvest questions for one crop.
type Predictor struct {
	readyCode string
	timing    Timing
}

// NewPredictor creates a predictor that treats codes at or above readyCode as
// harvestable.
func NewPredictor(readyCode string, timing Timing) *Predictor {
	return &Predictor{readyCode: readyCode, timing: timing}
}

// ForCrop builds the predictor described by a crop spec.
func ForCrop(spec *crop.Spec) *Predictor {
	return NewPredictor(spec.ReadyCode, Timing(spec.HarvestDays))
}

// IsReady reports whether code has reached the harvest threshold.
func (p *Predictor) IsReady(code string) bool {
	return bbch.CompareCodes(code, p.readyCode) >= 0
}

// DaysToHarvest returns the stress-adjusted days remaining from code.
// lowConfidence is set when the timing table could not bracket the code;
// the days are then 0.
func (p *Predictor) DaysToHarvest(code string, c growth.Conditions) (days int, lowConfidence bool) {
	if p.IsReady(code) {
		return 0, false
	}
	raw, _, err := p.timing.Days(code)
	if errors.Is(err, ErrInterpolationGap) {
		return 0, true
	}
	return AdjustDays(raw, c), false
}

// Predict builds the forecast for a simulator whose current stage code is
// code. All projection runs on copies; sim is not modified.
func (p *Predictor) Predict(sim *growth.Simulator, day int, code string, c growth.Conditions) Forecast {
	f := Forecast{
		Code:           code,
		IsReady:        p.IsReady(code),
		PotentialYield: sim.OptimalYield(),
	}

	probe := sim.Clone()
	probe.Simulate(day, c)
	if f.IsReady {
		f.FinalYield = probe.FinalYieldPrediction()
		return f
	}

	f.DaysRemaining, f.LowConfidence = p.DaysToHarvest(code, c)
	f.FinalYield = probe.Project(f.DaysRemaining, c).FinalYieldPrediction()
	return f
}
