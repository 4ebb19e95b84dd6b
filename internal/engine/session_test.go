package engine

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/phenosim/internal/bbch"
	"github.com/talgya/phenosim/internal/crop"
	"github.com/talgya/phenosim/internal/growth"
)

var calm = growth.Conditions{Temperature: 25, Water: 20, Fertilizer: 150, Humidity: 60, WindSpeed: 2}

func newSession(t *testing.T) *Session {
	t.Helper()
	table, err := crop.Default()
	require.NoError(t, err)
	return NewSession(table)
}

func TestCerealSeasonReachesHarvest(t *testing.T) {
	s := newSession(t)
	var r Report
	var err error
	for day := 0; day <= 160; day++ {
		r, err = s.Simulate("cereals", day, calm)
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, bbch.CompareCodes(r.Code, "87"), 0, "final code %s", r.Code)
	assert.True(t, r.Ready)
	assert.False(t, r.Estimated)
	assert.Greater(t, r.YieldForecast, 0.0)
	assert.Equal(t, r.Code, r.Stage.Code)
}

func TestReportedCodeNeverRegresses(t *testing.T) {
	s := newSession(t)
	harsh := growth.Conditions{Temperature: 4, Water: 1, Fertilizer: 0, Humidity: 90, WindSpeed: 9}
	prev := "00"
	for day := 0; day <= 120; day++ {
		c := calm
		if day%3 == 0 {
			c = harsh
		}
		r, err := s.Simulate("maize", day, c)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, bbch.CompareCodes(r.Code, prev), 0, "day %d: %s after %s", day, r.Code, prev)
		assert.GreaterOrEqual(t, bbch.CompareCodes(r.Code, r.RawCode), 0)
		prev = r.Code
	}
}

func TestResetReturnsCropToSowing(t *testing.T) {
	s := newSession(t)
	for day := 0; day <= 60; day++ {
		_, err := s.Simulate("rice", day, calm)
		require.NoError(t, err)
	}
	_, err := s.Simulate("cereals", 10, calm)
	require.NoError(t, err)

	require.NoError(t, s.Reset("RICE"))
	r, err := s.Simulate("rice", 0, calm)
	require.NoError(t, err)
	assert.Equal(t, "00", r.Code)
	assert.Zero(t, r.State.DevelopmentStage)
	assert.Zero(t, r.State.TotalBiomass)

	// Other crops are untouched.
	r, err = s.Simulate("cereals", 10, calm)
	require.NoError(t, err)
	assert.Greater(t, r.State.DevelopmentStage, 0.0)

	s.ResetAll()
	r, err = s.Simulate("cereals", 0, calm)
	require.NoError(t, err)
	assert.Equal(t, "00", r.Code)
}

func TestUnknownCropIsRejected(t *testing.T) {
	s := newSession(t)

	_, err := s.Simulate("wheet", 0, calm)
	assert.True(t, errors.Is(err, crop.ErrUnknownCrop))

	_, err = s.PredictHarvest("soybean", 0, calm)
	assert.True(t, errors.Is(err, crop.ErrUnknownCrop))

	_, err = s.OptimalYield("soybean")
	assert.True(t, errors.Is(err, crop.ErrUnknownCrop))

	assert.True(t, errors.Is(s.Reset("soybean"), crop.ErrUnknownCrop))
	assert.Empty(t, s.Crops())
}

func TestLookupMissFallsBackToEstimate(t *testing.T) {
	table, err := crop.Parse([]byte(`
crops:
  sparse:
    ready_code: "10"
    profile:
      base_temp: 0
      max_effective_temp: 30
      tsum_emergence: 50
      tsum_anthesis: 500
      tsum_maturity: 500
      leaf_lifespan: 30
      q10: 2
      max_lai: 5
      min_water: 5
      optimal_water: 20
      photosynthesis_rate: 20
      season_days: 100
    stages:
      - {code: "00", category: germination}
      - {code: "10", category: leaf_development}
      - {code: "99", category: senescence}
    breakpoints:
      - {below: 0.01, code: "05"}
      - {below: 2.0, code: "10"}
`))
	require.NoError(t, err)
	s := NewSession(table)

	r, err := s.Simulate("sparse", 0, calm)
	require.NoError(t, err)
	assert.Equal(t, "05", r.Code)
	assert.True(t, r.Estimated)
	assert.Equal(t, "00", r.Stage.Code)

	r, err = s.Simulate("sparse", 5, calm)
	require.NoError(t, err)
	assert.Equal(t, "10", r.Code)
	assert.False(t, r.Estimated)
}

func TestEventsRecordStageChangesAndReadiness(t *testing.T) {
	s := newSession(t)
	for day := 0; day <= 160; day++ {
		_, err := s.Simulate("cereals", day, calm)
		require.NoError(t, err)
	}

	events := s.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "stage", events[0].Category)
	assert.Equal(t, "00", events[0].Code)

	ready := 0
	for _, e := range events {
		if e.Category == "ready" {
			ready++
			assert.Equal(t, "cereals", e.Crop)
		}
	}
	assert.Equal(t, 1, ready)

	require.NoError(t, s.Reset("cereals"))
	last := s.Events()[len(s.Events())-1]
	assert.Equal(t, "reset", last.Category)
}

func TestOptimalYieldDoesNotDisturbSession(t *testing.T) {
	s := newSession(t)
	for day := 0; day <= 30; day++ {
		_, err := s.Simulate("cereals", day, calm)
		require.NoError(t, err)
	}
	before, err := s.Simulate("cereals", 30, calm)
	require.NoError(t, err)

	y, err := s.OptimalYield("cereals")
	require.NoError(t, err)
	assert.Greater(t, y, 0.0)

	after, err := s.Simulate("cereals", 30, calm)
	require.NoError(t, err)
	assert.Equal(t, before.State, after.State)
}

func TestPredictHarvestFromSession(t *testing.T) {
	s := newSession(t)
	for day := 0; day < 40; day++ {
		_, err := s.Simulate("cereals", day, calm)
		require.NoError(t, err)
	}
	f, err := s.PredictHarvest("cereals", 40, calm)
	require.NoError(t, err)
	assert.False(t, f.IsReady)
	assert.False(t, f.LowConfidence)
	assert.Greater(t, f.DaysRemaining, 0)
	assert.Greater(t, f.PotentialYield, 0.0)
}

func TestSessionIsSafeForConcurrentCrops(t *testing.T) {
	s := newSession(t)
	var wg sync.WaitGroup
	for _, name := range []string{"cereals", "rice", "maize", "cotton"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			for day := 0; day <= 50; day++ {
				_, err := s.Simulate(name, day, calm)
				assert.NoError(t, err)
			}
		}(name)
	}
	wg.Wait()
	assert.Equal(t, []string{"cereals", "cotton", "maize", "rice"}, s.Crops())
}
