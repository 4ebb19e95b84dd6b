package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/phenosim/internal/growth"
)

// DaysPerWeek sets the cadence of the weekly callback.
const DaysPerWeek = 7

// Forcing supplies the conditions for each simulated day.
type Forcing interface {
	Conditions(day int) growth.Conditions
}

// Runner drives one crop of a session forward a day at a time.
type Runner struct {
	Session  *Session
	Crop     string
	Forcing  Forcing
	MaxDays  int           // inclusive last day; 0 means growth.MaxProjectionDays
	Interval time.Duration // pause between days, 0 runs without pausing

	// StopAtReady ends the run on the first harvest-ready day instead of at
	// maturity.
	StopAtReady bool

	// Callbacks, all optional.
	OnDay         func(r Report)       // every day
	OnWeek        func(r Report)       // every DaysPerWeek days
	OnStageChange func(prev, r Report) // when the reconciled code moves
}

// Summary describes a finished run.
type Summary struct {
	Crop         string  `json:"crop"`
	Days         int     `json:"days"` // days simulated
	StageChanges int     `json:"stage_changes"`
	ReadyDay     int     `json:"ready_day"` // -1 if never ready
	PeakLAI      float64 `json:"peak_lai"`
	StopReason   string  `json:"stop_reason"` // "maturity", "ready", "max_days"
	Final        Report  `json:"final"`
}

// Run simulates from day 0 until maturity, readiness (with StopAtReady) or
// MaxDays. Cancellation is checked between days; a cancelled run returns the
// summary so far together with the context error.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	maxDays := r.MaxDays
	if maxDays <= 0 {
		maxDays = growth.MaxProjectionDays
	}
	sum := Summary{Crop: r.Crop, ReadyDay: -1, StopReason: "max_days"}
	slog.Info("run started", "session", r.Session.ID, "crop", r.Crop, "max_days", maxDays)

	var prev Report
	for day := 0; day <= maxDays; day++ {
		if err := ctx.Err(); err != nil {
			slog.Info("run cancelled", "crop", r.Crop, "day", day)
			return sum, err
		}

		rep, err := r.Session.Simulate(r.Crop, day, r.Forcing.Conditions(day))
		if err != nil {
			return sum, fmt.Errorf("day %d: %w", day, err)
		}
		sum.Days = day + 1
		sum.Final = rep
		sum.PeakLAI = max(sum.PeakLAI, rep.State.LeafAreaIndex)

		if day > 0 && rep.Code != prev.Code {
			sum.StageChanges++
			if r.OnStageChange != nil {
				r.OnStageChange(prev, rep)
			}
		}
		if rep.Ready && sum.ReadyDay < 0 {
			sum.ReadyDay = day
		}
		if r.OnDay != nil {
			r.OnDay(rep)
		}
		if day > 0 && day%DaysPerWeek == 0 {
			slog.Info("weekly report",
				"crop", r.Crop,
				"when", DayLabel(day),
				"code", rep.Code,
				"stage", fmt.Sprintf("%.3f", rep.State.DevelopmentStage),
				"biomass", fmt.Sprintf("%.1f", rep.State.TotalBiomass),
				"yield_forecast", fmt.Sprintf("%.0f", rep.YieldForecast),
			)
			if r.OnWeek != nil {
				r.OnWeek(rep)
			}
		}
		prev = rep

		if rep.State.DevelopmentStage >= growth.StageMaturity {
			sum.StopReason = "maturity"
			break
		}
		if r.StopAtReady && rep.Ready {
			sum.StopReason = "ready"
			break
		}

		if r.Interval > 0 {
			t := time.NewTimer(r.Interval)
			select {
			case <-ctx.Done():
				t.Stop()
				return sum, ctx.Err()
			case <-t.C:
			}
		}
	}

	slog.Info("run finished",
		"crop", r.Crop,
		"days", sum.Days,
		"reason", sum.StopReason,
		"code", sum.Final.Code,
		"ready_day", sum.ReadyDay,
		"yield_forecast", fmt.Sprintf("%.0f", sum.Final.YieldForecast),
	)
	return sum, nil
}

// DayLabel returns a human-readable label for a day since sowing.
func DayLabel(day int) string {
	return fmt.Sprintf("Week %d Day %d", day/DaysPerWeek+1, day%DaysPerWeek+1)
}
