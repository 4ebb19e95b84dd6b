package growth

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Conditions are the environmental and management inputs for one simulated day.
type Conditions struct {
	Temperature float64 `json:"temperature" yaml:"temperature" validate:"gte=-50,lte=60"` // °C
	Water       float64 `json:"water" yaml:"water" validate:"gte=0,lte=1000"`             // mm/week
	Fertilizer  float64 `json:"fertilizer" yaml:"fertilizer" validate:"gte=0,lte=2000"`   // kg/ha
	Humidity    float64 `json:"humidity" yaml:"humidity" validate:"gte=0,lte=100"`        // %
	WindSpeed   float64 `json:"wind_speed" yaml:"wind_speed" validate:"gte=0,lte=100"`    // m/s

	// Soil replaces the simulator's soil when set; nil keeps the previous soil.
	Soil *SoilInput `json:"soil,omitempty" yaml:"soil,omitempty"`
}

// Validate checks that the inputs are physically plausible. The simulator
// itself never validates; hosts call this at their boundary.
func (c Conditions) Validate() error {
	return validate.Struct(c)
}

// Soil describes the root-zone chemistry. Nutrient contents are fractions.
type Soil struct {
	PH            float64 `json:"ph" yaml:"ph" validate:"gte=0,lte=14"`
	Nitrogen      float64 `json:"nitrogen" yaml:"nitrogen" validate:"gte=0,lte=1"`
	Phosphorus    float64 `json:"phosphorus" yaml:"phosphorus" validate:"gte=0,lte=1"`
	Potassium     float64 `json:"potassium" yaml:"potassium" validate:"gte=0,lte=1"`
	OrganicMatter float64 `json:"organic_matter" yaml:"organic_matter" validate:"gte=0,lte=1"`
}

// DefaultSoil is a neutral loam with adequate nutrients.
func DefaultSoil() Soil {
	return Soil{
		PH:            6.5,
		Nitrogen:      0.35,
		Phosphorus:    0.3,
		Potassium:     0.3,
		OrganicMatter: 0.03,
	}
}

// SoilInput is a soil measurement as supplied by a caller. Absent (nil)
// fields take their DefaultSoil value; an explicit zero is kept.
type SoilInput struct {
	PH            *float64 `json:"ph,omitempty" yaml:"ph,omitempty" validate:"omitempty,gte=0,lte=14"`
	Nitrogen      *float64 `json:"nitrogen,omitempty" yaml:"nitrogen,omitempty" validate:"omitempty,gte=0,lte=1"`
	Phosphorus    *float64 `json:"phosphorus,omitempty" yaml:"phosphorus,omitempty" validate:"omitempty,gte=0,lte=1"`
	Potassium     *float64 `json:"potassium,omitempty" yaml:"potassium,omitempty" validate:"omitempty,gte=0,lte=1"`
	OrganicMatter *float64 `json:"organic_matter,omitempty" yaml:"organic_matter,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// Input returns s with every field present.
func (s Soil) Input() *SoilInput {
	return &SoilInput{
		PH:            &s.PH,
		Nitrogen:      &s.Nitrogen,
		Phosphorus:    &s.Phosphorus,
		Potassium:     &s.Potassium,
		OrganicMatter: &s.OrganicMatter,
	}
}

// Resolve fills absent fields from DefaultSoil.
func (in SoilInput) Resolve() Soil {
	s := DefaultSoil()
	pick(&s.PH, in.PH)
	pick(&s.Nitrogen, in.Nitrogen)
	pick(&s.Phosphorus, in.Phosphorus)
	pick(&s.Potassium, in.Potassium)
	pick(&s.OrganicMatter, in.OrganicMatter)
	return s
}

// Clone returns a deep copy; nil stays nil.
func (in *SoilInput) Clone() *SoilInput {
	if in == nil {
		return nil
	}
	return &SoilInput{
		PH:            clonePtr(in.PH),
		Nitrogen:      clonePtr(in.Nitrogen),
		Phosphorus:    clonePtr(in.Phosphorus),
		Potassium:     clonePtr(in.Potassium),
		OrganicMatter: clonePtr(in.OrganicMatter),
	}
}

func pick(dst, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func clonePtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}

// Penalty is the combined pH × nitrogen growth multiplier of the soil.
func (s Soil) Penalty() float64 {
	return SoilPHPenalty(s.PH) * SoilNitrogenPenalty(s.Nitrogen)
}
