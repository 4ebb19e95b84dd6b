// Package growth implements the day-stepped crop growth model: phenological
// development from temperature accumulation, water and nitrogen stress,
// canopy expansion, biomass accumulation, root growth and yield.
package growth

import (
	"math"

	"github.com/talgya/phenosim/internal/crop"
)

// Development stage landmarks.
const (
	StageEmergence = 0.09
	StageAnthesis  = 1.0
	StageMaturity  = 2.0

	// MaxProjectionDays caps every forward simulation.
	MaxProjectionDays = 200

	lightExtinction     = 0.65
	maintenanceRate     = 0.015 // fraction of biomass respired per day at 25 °C
	maxHarvestIndex     = 0.5
	finalHarvestIndex   = 0.45
	yieldUnitConversion = 10.0 // g/m² → kg/ha
)

// State is a snapshot of one crop simulation.
type State struct {
	Day              int        `json:"day"`
	DevelopmentStage float64    `json:"development_stage"` // 0 sowing, 1 anthesis, 2 maturity
	LeafAreaIndex    float64    `json:"leaf_area_index"`
	TotalBiomass     float64    `json:"total_biomass"` // g/m²
	GrainYield       float64    `json:"grain_yield"`   // g/m²
	RootDepth        float64    `json:"root_depth"`    // m
	WaterStress      float64    `json:"water_stress"`
	NitrogenStress   float64    `json:"nitrogen_stress"`
	Conditions       Conditions `json:"conditions"`
}

// Simulator owns the mutable state of one crop instance.
// It is not safe for concurrent use.
type Simulator struct {
	profile crop.Profile
	state   State
	soil    Soil
	started bool
}

// NewSimulator creates a simulator at sowing for the given profile.
func NewSimulator(p crop.Profile) *Simulator {
	s := &Simulator{profile: p}
	s.Reset()
	return s
}

// Reset returns the simulator to its sowing state with default soil.
func (s *Simulator) Reset() {
	s.state = State{
		WaterStress:    1.0,
		NitrogenStress: 1.0,
		RootDepth:      rootDepth(0),
	}
	s.soil = DefaultSoil()
	s.started = false
}

// Profile returns the crop profile driving the simulator.
func (s *Simulator) Profile() crop.Profile {
	return s.profile
}

// State returns a copy of the current state.
func (s *Simulator) State() State {
	st := s.state
	st.Conditions.Soil = st.Conditions.Soil.Clone()
	return st
}

// Soil returns the soil currently applied.
func (s *Simulator) Soil() Soil {
	return s.soil
}

// Clone returns an independent copy; simulating on it never touches s.
func (s *Simulator) Clone() *Simulator {
	c := *s
	c.state = s.State()
	return &c
}

// Simulate advances the model to the given day under the given inputs and
// returns a snapshot. Biomass grows once per call that moves the day forward;
// repeating a day refreshes the derived quantities without accumulating.
func (s *Simulator) Simulate(day int, c Conditions) State {
	if c.Soil != nil {
		s.soil = c.Soil.Resolve()
	}
	advance := !s.started || day > s.state.Day
	st := &s.state
	p := s.profile

	// 1. Development. Stress from the previous step dampens accumulation;
	// the stage never moves backwards.
	stage := DevelopmentStage(p, c.Temperature, day, st.WaterStress, st.NitrogenStress)
	st.DevelopmentStage = math.Max(st.DevelopmentStage, stage)

	// 2. Stress.
	st.WaterStress = WaterStress(c.Water, p.MinWater, p.OptimalWater, c.WindSpeed, c.Humidity)
	st.NitrogenStress = NitrogenStress(c.Fertilizer)
	soilMod := s.soil.Penalty()

	// 3. Canopy.
	st.LeafAreaIndex = LeafAreaIndex(st.DevelopmentStage, p.MaxLAI*math.Min(st.WaterStress, st.NitrogenStress)*soilMod)

	// 4. Biomass.
	if advance {
		st.TotalBiomass += s.netGrowth(c.Temperature, soilMod)
	}

	// 5. Yield.
	st.GrainYield = 0
	if st.DevelopmentStage >= StageAnthesis {
		st.GrainYield = st.TotalBiomass * HarvestIndex(st.DevelopmentStage) * soilMod
	}

	// 6. Roots.
	st.RootDepth = rootDepth(st.DevelopmentStage)

	st.Day = day
	c.Soil = s.soil.Input()
	st.Conditions = c
	s.started = true

	return s.State()
}

// netGrowth is the day's dry-matter gain: gross photosynthesis minus
// maintenance respiration, never negative, then multiplied by the crop's
// conversion efficiency weighted by the stage's organ partition (about 0.7
// for the built-in crops). Respiration uses the fixed maintenanceRate, not
// the profile's per-organ respiration coefficients.
func (s *Simulator) netGrowth(temp, soilMod float64) float64 {
	st := s.state
	p := s.profile

	interception := 1 - math.Exp(-lightExtinction*st.LeafAreaIndex)
	gross := p.PhotoRate * interception * TemperatureResponse(temp) *
		st.WaterStress * st.NitrogenStress * soilMod
	respiration := st.TotalBiomass * maintenanceRate * math.Pow(p.Q10, (temp-25)/10)

	net := math.Max(0, gross-respiration)
	return net * p.Conversion.Weighted(partition(st.DevelopmentStage))
}

// EffectiveTemperature is the daily temperature above base, never negative.
func EffectiveTemperature(p crop.Profile, temp float64) float64 {
	return math.Max(0, temp-p.BaseTemp)
}

// DevelopmentStage converts the (stateless) heat sum effectiveTemperature × day,
// dampened by the lesser stress factor, into the 0–2 stage scalar.
func DevelopmentStage(p crop.Profile, temp float64, day int, waterStress, nitrogenStress float64) float64 {
	heat := EffectiveTemperature(p, temp) * float64(day)
	adjusted := heat * (0.5 + 0.5*math.Min(waterStress, nitrogenStress))
	return StageFromHeat(p, adjusted)
}

// StageFromHeat maps an accumulated temperature sum onto the stage scalar in
// three linear regimes: germination, vegetative and reproductive.
func StageFromHeat(p crop.Profile, heat float64) float64 {
	switch {
	case heat <= 0:
		return 0
	case heat < p.TSumEmergence:
		return StageEmergence * heat / p.TSumEmergence
	case heat < p.TSumAnthesis:
		return StageEmergence + (StageAnthesis-StageEmergence)*(heat-p.TSumEmergence)/(p.TSumAnthesis-p.TSumEmergence)
	case heat < p.TSumTotal():
		return StageAnthesis + (heat-p.TSumAnthesis)/p.TSumMaturity
	default:
		return StageMaturity
	}
}

// LeafAreaIndex follows the canopy curve: nothing before stage 0.1, a sine
// rise to maxLAI at anthesis, flat to 1.5, linear senescence to zero at 2.0.
func LeafAreaIndex(stage, maxLAI float64) float64 {
	switch {
	case stage < 0.1:
		return 0
	case stage < StageAnthesis:
		return maxLAI * math.Sin(math.Pi/2*(stage-0.1)/(StageAnthesis-0.1))
	case stage < 1.5:
		return maxLAI
	case stage < StageMaturity:
		return maxLAI * (StageMaturity - stage) / 0.5
	default:
		return 0
	}
}

// HarvestIndex ramps from 0 at anthesis to 0.5 at maturity.
func HarvestIndex(stage float64) float64 {
	return clamp(maxHarvestIndex*(stage-StageAnthesis), 0, maxHarvestIndex)
}

func rootDepth(stage float64) float64 {
	return 0.1 + 1.4*math.Min(math.Max(stage, 0), StageAnthesis)
}

// partition splits new dry matter between organs: canopy and roots before
// anthesis, mostly storage organs after.
func partition(stage float64) crop.OrganCoefficients {
	if stage < StageAnthesis {
		return crop.OrganCoefficients{Leaves: 0.5, Stems: 0.3, Roots: 0.2}
	}
	return crop.OrganCoefficients{Stems: 0.2, Roots: 0.1, Storage: 0.7}
}
