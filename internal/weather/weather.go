// Package weather provides deterministic daily forcing for crop runs: a
// synthetic generator built on seeded simplex noise, and a constant source.
package weather

import (
	"math"
	"strings"

	"github.com/ojrac/opensimplex-go"
	"gopkg.in/yaml.v3"

	"github.com/talgya/phenosim/internal/growth"
)

// Config shapes a synthetic season.
type Config struct {
	Seed          int64   `yaml:"seed" json:"seed"`
	MeanTemp      float64 `yaml:"mean_temp" json:"mean_temp" validate:"gte=-20,lte=45"`         // °C
	TempAmplitude float64 `yaml:"temp_amplitude" json:"temp_amplitude" validate:"gte=0,lte=30"` // °C, seasonal half-range
	TempNoise     float64 `yaml:"temp_noise" json:"temp_noise" validate:"gte=0,lte=20"`         // °C, day-to-day swing
	CycleDays     int     `yaml:"cycle_days" json:"cycle_days" validate:"gte=30"`               // length of one seasonal cycle
	WeeklyWater   float64 `yaml:"weekly_water" json:"weekly_water" validate:"gte=0,lte=500"`    // mm/week
	Fertilizer    float64 `yaml:"fertilizer" json:"fertilizer" validate:"gte=0,lte=2000"`       // kg/ha
	Humidity      float64 `yaml:"humidity" json:"humidity" validate:"gte=0,lte=100"`            // %
	WindSpeed     float64 `yaml:"wind_speed" json:"wind_speed" validate:"gte=0,lte=50"`         // m/s

	Soil *growth.SoilInput `yaml:"soil,omitempty" json:"soil,omitempty"`
}

// DefaultConfig is a temperate growing season sown in early spring.
func DefaultConfig() Config {
	return Config{
		Seed:          42,
		MeanTemp:      17,
		TempAmplitude: 9,
		TempNoise:     4,
		CycleDays:     365,
		WeeklyWater:   20,
		Fertilizer:    150,
		Humidity:      60,
		WindSpeed:     3,
	}
}

// UnmarshalYAML decodes a partial config over DefaultConfig.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type plain Config
	p := plain(DefaultConfig())
	if err := node.Decode(&p); err != nil {
		return err
	}
	*c = Config(p)
	return nil
}

// Synthetic generates reproducible daily conditions: the same seed and day
// always give the same conditions.
type Synthetic struct {
	cfg   Config
	temp  opensimplex.Noise
	rain  opensimplex.Noise
	humid opensimplex.Noise
	wind  opensimplex.Noise
}

// NewSynthetic creates a generator for cfg.
func NewSynthetic(cfg Config) *Synthetic {
	if cfg.CycleDays <= 0 {
		cfg.CycleDays = 365
	}
	return &Synthetic{
		cfg:   cfg,
		temp:  opensimplex.NewNormalized(cfg.Seed),
		rain:  opensimplex.NewNormalized(cfg.Seed + 1),
		humid: opensimplex.NewNormalized(cfg.Seed + 2),
		wind:  opensimplex.NewNormalized(cfg.Seed + 3),
	}
}

// Conditions returns the forcing for a day since sowing.
func (s *Synthetic) Conditions(day int) growth.Conditions {
	cfg := s.cfg
	x := float64(day)

	// Sowing sits on the rising flank of the seasonal curve.
	season := math.Sin(2 * math.Pi * x / float64(cfg.CycleDays))
	temp := cfg.MeanTemp + cfg.TempAmplitude*season +
		cfg.TempNoise*signed(octaveNoise(s.temp, x, 0, 3, 0.15, 0.5))

	// Rainfall is smoothed over roughly a week.
	wet := octaveNoise(s.rain, x, 10, 2, 0.04, 0.5)
	water := cfg.WeeklyWater * (0.3 + 1.4*wet)

	humidity := cfg.Humidity + 25*signed(octaveNoise(s.humid, x, 20, 2, 0.1, 0.5)) + 15*(wet-0.5)
	wind := cfg.WindSpeed * (0.3 + 1.4*octaveNoise(s.wind, x, 30, 3, 0.2, 0.5))

	c := growth.Conditions{
		Temperature: round1(temp),
		Water:       round1(math.Max(0, water)),
		Fertilizer:  cfg.Fertilizer,
		Humidity:    round1(clamp(humidity, 0, 100)),
		WindSpeed:   round1(math.Max(0, wind)),
	}
	c.Soil = cfg.Soil.Clone()
	return c
}

// Constant returns the same conditions every day.
type Constant growth.Conditions

// Conditions implements the forcing source.
func (c Constant) Conditions(int) growth.Conditions {
	out := growth.Conditions(c)
	out.Soil = out.Soil.Clone()
	return out
}

// Describe summarises conditions in a few words for logs and reports.
func Describe(c growth.Conditions) string {
	var parts []string
	switch {
	case c.Temperature > 32:
		parts = append(parts, "hot")
	case c.Temperature < 8:
		parts = append(parts, "cold")
	default:
		parts = append(parts, "mild")
	}
	switch {
	case c.Water < 8:
		parts = append(parts, "dry")
	case c.Water > 40:
		parts = append(parts, "wet")
	}
	if c.Humidity > 80 {
		parts = append(parts, "humid")
	}
	if c.WindSpeed > 8 {
		parts = append(parts, "stormy")
	} else if c.WindSpeed > 5 {
		parts = append(parts, "windy")
	}
	return strings.Join(parts, ", ")
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// signed maps normalized noise in [0, 1] onto [-1, 1].
func signed(n float64) float64 {
	return 2*n - 1
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
