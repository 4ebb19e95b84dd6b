package growth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemperatureResponseCurve(t *testing.T) {
	cases := map[float64]float64{
		-3: 0,
		4:  0,
		5:  0,
		10: 0.25,
		15: 0.5,
		20: 0.75,
		25: 1,
		30: 1,
		35: 1,
		40: 0.6,
		45: 0.2,
		55: 0.2,
	}
	for temp, want := range cases {
		assert.InDelta(t, want, TemperatureResponse(temp), 1e-9, "temp %.0f", temp)
	}
}

func TestWaterStressRamp(t *testing.T) {
	assert.Equal(t, MinWaterStress, WaterStress(0, 5, 20, 2, 60))
	assert.Equal(t, MinWaterStress, WaterStress(5, 5, 20, 2, 60))
	assert.InDelta(t, 0.55, WaterStress(12.5, 5, 20, 2, 60), 1e-9)
	assert.Equal(t, 1.0, WaterStress(20, 5, 20, 2, 60))
	assert.Equal(t, 1.0, WaterStress(200, 5, 20, 2, 60))
}

func TestWaterStressEvaporation(t *testing.T) {
	calm := WaterStress(20, 5, 20, 2, 60)
	windy := WaterStress(20, 5, 20, 7, 60)
	assert.Equal(t, 1.0, calm)
	assert.Less(t, windy, 1.0, "wind above 5 m/s raises the water requirement")

	humid := WaterStress(18, 5, 20, 2, 90)
	assert.Equal(t, 1.0, humid, "humidity above 80 percent lowers the water requirement")

	assert.InDelta(t, 1.2, EvaporationFactor(6, 50), 1e-9)
	assert.InDelta(t, 0.85, EvaporationFactor(1, 85), 1e-9)
	assert.InDelta(t, 1.02, EvaporationFactor(6, 85), 1e-9)
}

func TestNitrogenStressRamp(t *testing.T) {
	assert.Equal(t, MinNitrogenStress, NitrogenStress(0))
	assert.Equal(t, MinNitrogenStress, NitrogenStress(50))
	assert.InDelta(t, 0.65, NitrogenStress(125), 1e-9)
	assert.Equal(t, 1.0, NitrogenStress(200))
	assert.Equal(t, 1.0, NitrogenStress(500))
}

func TestSoilPenalties(t *testing.T) {
	assert.Equal(t, 1.0, SoilPHPenalty(6.5))
	assert.Equal(t, 1.0, SoilPHPenalty(6.9))
	assert.Equal(t, 0.95, SoilPHPenalty(7.2))
	assert.Equal(t, 0.85, SoilPHPenalty(5.3))
	assert.Equal(t, 0.7, SoilPHPenalty(8.2))
	assert.Equal(t, 0.5, SoilPHPenalty(4.0))

	assert.Equal(t, 1.0, SoilNitrogenPenalty(0.35))
	assert.Equal(t, 0.9, SoilNitrogenPenalty(0.25))
	assert.Equal(t, 0.75, SoilNitrogenPenalty(0.15))
	assert.Equal(t, 0.5, SoilNitrogenPenalty(0.05))

	assert.Equal(t, 1.0, DefaultSoil().Penalty())
}

func TestConditionsValidate(t *testing.T) {
	assert.NoError(t, baseline().Validate())

	bad := baseline()
	bad.Humidity = 140
	assert.Error(t, bad.Validate())

	bad = baseline()
	bad.Soil = &SoilInput{PH: ptr(15)}
	assert.Error(t, bad.Validate())
}
