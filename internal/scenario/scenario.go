// Package scenario loads run configurations: which crops to grow, for how
// long, under which forcing, and where to record the results.
package scenario

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/talgya/phenosim/internal/engine"
	"github.com/talgya/phenosim/internal/growth"
	"github.com/talgya/phenosim/internal/weather"
)

var validate = validator.New()

// Scenario describes one batch of crop runs.
type Scenario struct {
	Name        string   `yaml:"name"`
	Crops       []string `yaml:"crops" validate:"required,min=1,dive,required"`
	Days        int      `yaml:"days" validate:"gte=1,lte=200"`
	StopAtReady bool     `yaml:"stop_at_ready"`

	// Conditions fixes the forcing for every day. When unset the synthetic
	// weather generator drives the run.
	Conditions *growth.Conditions `yaml:"conditions"`
	Weather    *weather.Config    `yaml:"weather"`

	// Database is the SQLite run log path; empty disables recording.
	Database string `yaml:"database"`
}

// Load reads a scenario YAML file, applies defaults and validates it.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("reading scenario file: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes a scenario document, applies defaults and validates it.
func Parse(data []byte) (Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parsing scenario: %w", err)
	}
	sc.applyDefaults()
	if err := sc.Validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

func (sc *Scenario) applyDefaults() {
	if sc.Name == "" {
		sc.Name = "default"
	}
	if sc.Days == 0 {
		sc.Days = growth.MaxProjectionDays
	}
	if sc.Conditions == nil && sc.Weather == nil {
		w := weather.DefaultConfig()
		sc.Weather = &w
	}
	if sc.Weather != nil && sc.Weather.CycleDays == 0 {
		sc.Weather.CycleDays = 365
	}
}

// Validate checks field ranges and that exactly one forcing is configured.
func (sc Scenario) Validate() error {
	if err := validate.Struct(sc); err != nil {
		return fmt.Errorf("invalid scenario: %w", err)
	}
	if sc.Conditions != nil && sc.Weather != nil {
		return errors.New("invalid scenario: conditions and weather are mutually exclusive")
	}
	seen := make(map[string]bool, len(sc.Crops))
	for _, c := range sc.Crops {
		if seen[c] {
			return fmt.Errorf("invalid scenario: crop %q listed twice", c)
		}
		seen[c] = true
	}
	return nil
}

// Forcing returns the daily conditions source the scenario describes.
func (sc Scenario) Forcing() engine.Forcing {
	if sc.Conditions != nil {
		return weather.Constant(*sc.Conditions)
	}
	cfg := weather.DefaultConfig()
	if sc.Weather != nil {
		cfg = *sc.Weather
	}
	return weather.NewSynthetic(cfg)
}
