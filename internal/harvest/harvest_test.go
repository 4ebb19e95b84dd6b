package harvest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/phenosim/internal/bbch"
	"github.com/talgya/phenosim/internal/crop"
	"github.com/talgya/phenosim/internal/growth"
)

var calm = growth.Conditions{Temperature: 25, Water: 20, Fertilizer: 150, Humidity: 60, WindSpeed: 2}

func specFor(t *testing.T, name string) *crop.Spec {
	t.Helper()
	table, err := crop.Default()
	require.NoError(t, err)
	spec, err := table.Lookup(name)
	require.NoError(t, err)
	return spec
}

func TestTimingMidpointInterpolation(t *testing.T) {
	p := NewPredictor("87", Timing{"10": 95, "30": 38})
	days, low := p.DaysToHarvest("20", calm)
	assert.False(t, low)
	assert.Equal(t, 67, days)
}

func TestTimingExactAndOneSided(t *testing.T) {
	timing := Timing{"10": 95, "30": 38}

	d, exact, err := timing.Days("10")
	require.NoError(t, err)
	assert.True(t, exact)
	assert.Equal(t, 95.0, d)

	d, exact, err = timing.Days("05")
	require.NoError(t, err)
	assert.False(t, exact)
	assert.Equal(t, 95.0, d)

	d, _, err = timing.Days("45")
	require.NoError(t, err)
	assert.Equal(t, 38.0, d)

	d, _, err = timing.Days("15")
	require.NoError(t, err)
	assert.InDelta(t, 80.75, d, 1e-9)
}

func TestTimingGap(t *testing.T) {
	_, _, err := Timing{}.Days("20")
	assert.True(t, errors.Is(err, ErrInterpolationGap))

	_, _, err = Timing{"10": 5}.Days("2x")
	assert.True(t, errors.Is(err, ErrInterpolationGap))

	p := NewPredictor("87", Timing{})
	days, low := p.DaysToHarvest("20", calm)
	assert.True(t, low)
	assert.Zero(t, days)
}

func TestStressEffectIsDiscrete(t *testing.T) {
	assert.Equal(t, 1.0, StressEffect(calm))

	dry := calm
	dry.Water = 4
	assert.InDelta(t, DryPenalty, StressEffect(dry), 1e-12)

	harsh := growth.Conditions{Temperature: 38, Water: 2, Fertilizer: 10}
	assert.InDelta(t, DryPenalty*TemperaturePenalty*FertilizerPenalty, StressEffect(harsh), 1e-12)

	p := NewPredictor("87", Timing{"10": 95, "30": 38})
	days, _ := p.DaysToHarvest("10", dry)
	assert.Equal(t, 119, days) // round(95 / 0.8) = 118.75
}

func TestReadinessThresholds(t *testing.T) {
	cereals := ForCrop(specFor(t, "cereals"))
	cotton := ForCrop(specFor(t, "cotton"))

	assert.False(t, cereals.IsReady("85"))
	assert.True(t, cereals.IsReady("87"))
	assert.True(t, cereals.IsReady("92"))
	assert.True(t, cotton.IsReady("85"))
	assert.False(t, cotton.IsReady("83"))

	days, low := cereals.DaysToHarvest("89", calm)
	assert.Zero(t, days)
	assert.False(t, low)
}

func TestPredictDoesNotTouchSimulator(t *testing.T) {
	spec := specFor(t, "cereals")
	sim := growth.NewSimulator(spec.Profile)
	classifier := bbch.ForCrop(spec)
	for day := 0; day <= 40; day++ {
		sim.Simulate(day, calm)
	}
	before := sim.State()
	code := classifier.Classify(before.DevelopmentStage)

	f := ForCrop(spec).Predict(sim, 40, code, calm)

	assert.Equal(t, before, sim.State())
	assert.False(t, f.IsReady)
	assert.Greater(t, f.DaysRemaining, 0)
	assert.Greater(t, f.FinalYield, sim.FinalYieldPrediction())
	assert.Greater(t, f.PotentialYield, 0.0)
}

func TestPredictReadyCrop(t *testing.T) {
	spec := specFor(t, "cereals")
	sim := growth.NewSimulator(spec.Profile)
	classifier := bbch.ForCrop(spec)
	var st growth.State
	for day := 0; day <= 160; day++ {
		st = sim.Simulate(day, calm)
	}
	code := classifier.Classify(st.DevelopmentStage)

	f := ForCrop(spec).Predict(sim, 160, code, calm)
	assert.True(t, f.IsReady)
	assert.Zero(t, f.DaysRemaining)
	assert.InDelta(t, sim.FinalYieldPrediction(), f.FinalYield, 1e-9)
}
