package growth

import "math"

// Stress factor bounds.
const (
	MinWaterStress    = 0.1
	MinNitrogenStress = 0.3

	// Fertilizer inputs (kg/ha) bracketing the nitrogen stress ramp.
	FertilizerFloor   = 50.0
	FertilizerOptimum = 200.0

	optimalPH = 6.5
)

// TemperatureResponse maps air temperature onto a 0–1 efficiency:
// 0 below 5 °C, 0.5 at 15 °C, 1.0 from 25 to 35 °C, down to a 0.2 floor at 45 °C.
func TemperatureResponse(t float64) float64 {
	switch {
	case t < 5:
		return 0
	case t < 15:
		return 0.5 * (t - 5) / 10
	case t < 25:
		return 0.5 + 0.5*(t-15)/10
	case t <= 35:
		return 1.0
	case t < 45:
		return 1.0 - 0.8*(t-35)/10
	default:
		return 0.2
	}
}

// EvaporationFactor scales the optimal water requirement: wind above 5 m/s
// dries the canopy, humidity above 80% slows evaporation.
func EvaporationFactor(windSpeed, humidity float64) float64 {
	f := 1.0
	if windSpeed > 5 {
		f *= 1.2
	}
	if humidity > 80 {
		f *= 0.85
	}
	return f
}

// WaterStress ramps linearly from 0.1 at or below minWater to 1.0 at or
// above the evaporation-adjusted optimal level.
func WaterStress(water, minWater, optimalWater, windSpeed, humidity float64) float64 {
	optimal := optimalWater * EvaporationFactor(windSpeed, humidity)
	if water <= minWater {
		return MinWaterStress
	}
	if water >= optimal || optimal <= minWater {
		return 1.0
	}
	ratio := MinWaterStress + (1-MinWaterStress)*(water-minWater)/(optimal-minWater)
	return clamp(ratio, MinWaterStress, 1.0)
}

// NitrogenStress ramps linearly from 0.3 at 50 kg/ha to 1.0 at 200 kg/ha.
func NitrogenStress(fertilizer float64) float64 {
	if fertilizer <= FertilizerFloor {
		return MinNitrogenStress
	}
	if fertilizer >= FertilizerOptimum {
		return 1.0
	}
	ratio := MinNitrogenStress + (1-MinNitrogenStress)*(fertilizer-FertilizerFloor)/(FertilizerOptimum-FertilizerFloor)
	return clamp(ratio, MinNitrogenStress, 1.0)
}

// SoilPHPenalty steps down with distance from pH 6.5.
func SoilPHPenalty(ph float64) float64 {
	dev := math.Abs(ph - optimalPH)
	switch {
	case dev < 0.5:
		return 1.0
	case dev < 1.0:
		return 0.95
	case dev < 1.5:
		return 0.85
	case dev < 2.0:
		return 0.7
	default:
		return 0.5
	}
}

// SoilNitrogenPenalty steps down as soil nitrogen content falls below 0.3.
func SoilNitrogenPenalty(nitrogen float64) float64 {
	switch {
	case nitrogen >= 0.3:
		return 1.0
	case nitrogen >= 0.2:
		return 0.9
	case nitrogen >= 0.1:
		return 0.75
	default:
		return 0.5
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
