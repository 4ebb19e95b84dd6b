package growth

import "github.com/talgya/phenosim/internal/crop"

// FinalYieldPrediction projects harvestable yield in kg/ha from the current
// biomass with a fixed harvest index, the last stress factors, the soil, and
// the humidity and wind of the last applied conditions.
func (s *Simulator) FinalYieldPrediction() float64 {
	st := s.state
	c := st.Conditions

	y := st.TotalBiomass * yieldUnitConversion * finalHarvestIndex
	y *= st.WaterStress * st.NitrogenStress * s.soil.Penalty()

	if c.Humidity > 80 {
		y *= 0.9
	}
	switch {
	case c.WindSpeed >= 2 && c.WindSpeed <= 5:
		y *= 1.05 // pollination
	case c.WindSpeed > 8:
		y *= 0.9 // lodging and erosion
	}
	return y
}

// OptimalConditions is the reference input set used for potential yield.
func OptimalConditions(p crop.Profile) Conditions {
	return Conditions{
		Temperature: 25,
		Water:       p.OptimalWater * 1.2,
		Fertilizer:  FertilizerOptimum,
		Humidity:    60,
		WindSpeed:   3,
		Soil:        DefaultSoil().Input(),
	}
}

// OptimalYield runs a disposable simulator from sowing to maturity (or the
// projection cap) under OptimalConditions and returns its final yield.
// The receiver's state is never read or written.
func (s *Simulator) OptimalYield() float64 {
	probe := NewSimulator(s.profile)
	c := OptimalConditions(s.profile)
	for day := 0; day <= MaxProjectionDays; day++ {
		if st := probe.Simulate(day, c); st.DevelopmentStage >= StageMaturity {
			break
		}
	}
	return probe.FinalYieldPrediction()
}

// Project simulates a clone forward day by day from the current day under
// constant conditions for up to days days, stopping at maturity. The receiver
// is untouched.
func (s *Simulator) Project(days int, c Conditions) *Simulator {
	probe := s.Clone()
	if days > MaxProjectionDays {
		days = MaxProjectionDays
	}
	start := probe.state.Day
	for d := 1; d <= days; d++ {
		if st := probe.Simulate(start+d, c); st.DevelopmentStage >= StageMaturity {
			break
		}
	}
	return probe
}
