// Package engine ties the crop table, growth simulator, stage classifier,
// stage tracker and harvest predictor into sessions, and drives sessions
// day by day.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/phenosim/internal/bbch"
	"github.com/talgya/phenosim/internal/crop"
	"github.com/talgya/phenosim/internal/growth"
	"github.com/talgya/phenosim/internal/harvest"
)

// maxEvents bounds the session event log; older events are dropped first.
const maxEvents = 500

// Event is a notable occurrence in a session.
type Event struct {
	Day         int       `json:"day"`
	Crop        string    `json:"crop"`
	Code        string    `json:"code,omitempty"`
	Description string    `json:"description"`
	Category    string    `json:"category"` // "stage", "ready", "reset"
	At          time.Time `json:"at"`
}

// Report is the outcome of one simulated day for one crop.
type Report struct {
	Crop          string                  `json:"crop"`
	Day           int                     `json:"day"`
	State         growth.State            `json:"state"`
	RawCode       string                  `json:"raw_code"`
	Code          string                  `json:"code"`
	Stage         crop.StageEntry         `json:"stage"`
	Estimated     bool                    `json:"estimated"`
	Ready         bool                    `json:"ready"`
	Stress        growth.StressIndicators `json:"stress"`
	DiseaseRisk   growth.Risk             `json:"disease_risk"`
	Advice        growth.Advice           `json:"advice"`
	YieldForecast float64                 `json:"yield_forecast"` // kg/ha
}

// cropSlot is the per-crop state of a session.
type cropSlot struct {
	spec       *crop.Spec
	sim        *growth.Simulator
	classifier *bbch.Classifier
	catalog    *bbch.Catalog
	predictor  *harvest.Predictor
	code       string // last reconciled code, empty before the first day
}

// Session owns one simulator and one tracker slot per crop. Crops are added
// lazily on first use. All methods are safe for concurrent use; calls are
// serialised by a single mutex.
type Session struct {
	ID      uuid.UUID
	Created time.Time

	mu      sync.Mutex
	table   *crop.Table
	crops   map[string]*cropSlot
	tracker *bbch.Tracker
	events  []Event
}

// NewSession creates an empty session over a crop table.
func NewSession(table *crop.Table) *Session {
	return &Session{
		ID:      uuid.New(),
		Created: time.Now().UTC(),
		table:   table,
		crops:   make(map[string]*cropSlot),
		tracker: bbch.NewTracker(),
	}
}

// slot returns the crop's slot, creating it at sowing if needed.
func (s *Session) slot(name string) (*cropSlot, error) {
	spec, err := s.table.Lookup(name)
	if err != nil {
		return nil, err
	}
	if cs, ok := s.crops[spec.Name]; ok {
		return cs, nil
	}
	cs := &cropSlot{
		spec:       spec,
		sim:        growth.NewSimulator(spec.Profile),
		classifier: bbch.ForCrop(spec),
		catalog:    bbch.CatalogFor(spec),
		predictor:  harvest.ForCrop(spec),
	}
	s.crops[spec.Name] = cs
	slog.Debug("crop added to session", "session", s.ID, "crop", spec.Name)
	return cs, nil
}

// Simulate advances a crop to day under conditions c and reports its
// reconciled stage. Unknown crops fail with crop.ErrUnknownCrop.
func (s *Session) Simulate(cropName string, day int, c growth.Conditions) (Report, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, err := s.slot(cropName)
	if err != nil {
		return Report{}, err
	}
	r := s.step(cs, day, c)
	simulateDuration.WithLabelValues(cs.spec.Name).Observe(time.Since(start).Seconds())
	return r, nil
}

// step runs one day for a slot. Callers hold s.mu.
func (s *Session) step(cs *cropSlot, day int, c growth.Conditions) Report {
	name := cs.spec.Name
	st := cs.sim.Simulate(day, c)
	raw := cs.classifier.Classify(st.DevelopmentStage)
	code := s.tracker.Reconcile(name, raw)

	simulateTotal.WithLabelValues(name).Inc()
	if code != raw {
		regressionsPrevented.WithLabelValues(name).Inc()
		slog.Debug("stage regression held", "crop", name, "day", day, "raw", raw, "code", code)
	}

	r := Report{
		Crop:          name,
		Day:           day,
		State:         st,
		RawCode:       raw,
		Code:          code,
		Ready:         cs.predictor.IsReady(code),
		Stress:        cs.sim.StressIndicators(),
		DiseaseRisk:   cs.sim.DiseaseRisk(),
		Advice:        cs.sim.Advice(),
		YieldForecast: cs.sim.FinalYieldPrediction(),
	}

	entry, err := cs.catalog.Lookup(code)
	if errors.Is(err, bbch.ErrStageLookupMiss) {
		entry = cs.catalog.Estimate(day, cs.spec.Profile.SeasonDays)
		r.Estimated = true
		lookupMisses.WithLabelValues(name).Inc()
		slog.Warn("stage code missing from catalog, using season estimate",
			"crop", name, "code", code, "estimate", entry.Code)
	}
	r.Stage = entry

	if code != cs.code {
		wasReady := cs.code != "" && cs.predictor.IsReady(cs.code)
		s.record(Event{
			Day:         day,
			Crop:        name,
			Code:        code,
			Description: fmt.Sprintf("%s reached BBCH %s: %s", name, code, entry.Description),
			Category:    "stage",
		})
		if r.Ready && !wasReady {
			s.record(Event{
				Day:         day,
				Crop:        name,
				Code:        code,
				Description: fmt.Sprintf("%s is ready for harvest", name),
				Category:    "ready",
			})
		}
		cs.code = code
	}

	slog.Debug("simulated day",
		"crop", name,
		"day", day,
		"stage", st.DevelopmentStage,
		"code", code,
		"lai", st.LeafAreaIndex,
		"biomass", st.TotalBiomass,
	)
	return r
}

// PredictHarvest simulates day for the crop and forecasts its harvest from the
// reconciled stage. Projections run on copies of the simulator.
func (s *Session) PredictHarvest(cropName string, day int, c growth.Conditions) (harvest.Forecast, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, err := s.slot(cropName)
	if err != nil {
		return harvest.Forecast{}, err
	}
	r := s.step(cs, day, c)
	f := cs.predictor.Predict(cs.sim, day, r.Code, c)

	confidence := "normal"
	if f.LowConfidence {
		confidence = "low"
	}
	harvestForecasts.WithLabelValues(cs.spec.Name, confidence).Inc()
	return f, nil
}

// OptimalYield returns the yield the crop reaches under optimal inputs from
// sowing. The crop's live state is not touched.
func (s *Session) OptimalYield(cropName string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cs, err := s.slot(cropName)
	if err != nil {
		return 0, err
	}
	return cs.sim.OptimalYield(), nil
}

// Reset returns one crop to sowing and forgets its highest stage.
func (s *Session) Reset(cropName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec, err := s.table.Lookup(cropName)
	if err != nil {
		return err
	}
	s.reset(spec.Name)
	return nil
}

// ResetAll returns every crop in the session to sowing.
func (s *Session) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name := range s.crops {
		s.reset(name)
	}
	s.tracker.ResetAll()
}

func (s *Session) reset(name string) {
	if cs, ok := s.crops[name]; ok {
		cs.sim.Reset()
		cs.code = ""
	}
	s.tracker.Reset(name)
	s.record(Event{Crop: name, Description: fmt.Sprintf("%s reset to sowing", name), Category: "reset"})
	slog.Info("crop reset", "session", s.ID, "crop", name)
}

func (s *Session) record(e Event) {
	e.At = time.Now().UTC()
	s.events = append(s.events, e)
	if len(s.events) > maxEvents {
		s.events = append(s.events[:0], s.events[len(s.events)-maxEvents:]...)
	}
}

// Events returns a copy of the session's recent events, oldest first.
func (s *Session) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Crops returns the crops simulated in this session, sorted.
func (s *Session) Crops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.crops))
	for name := range s.crops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Table returns the crop table the session resolves crops against.
func (s *Session) Table() *crop.Table {
	return s.table
}
