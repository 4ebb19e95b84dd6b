package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/phenosim/internal/crop"
	"github.com/talgya/phenosim/internal/engine"
	"github.com/talgya/phenosim/internal/growth"
	"github.com/talgya/phenosim/internal/persistence"
	"github.com/talgya/phenosim/internal/scenario"
	"github.com/talgya/phenosim/internal/weather"
)

var runFlags struct {
	scenario    string
	crops       []string
	days        int
	stopAtReady bool
	synthetic   bool
	seed        int64
	db          string
	conditions  growth.Conditions
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate one or more crops from sowing",
	Long: `Simulate crops day by day from sowing until maturity, harvest readiness
(--stop-at-ready) or the day limit. Crops run in parallel, one session each.
Use --scenario to load a YAML scenario; otherwise the flags describe the run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := scenarioFromFlags(cmd)
		if err != nil {
			return err
		}
		table, err := loadTable()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		summaries, err := runScenario(ctx, table, sc)
		if err != nil {
			return err
		}
		printSummaries(cmd.OutOrStdout(), summaries)
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.scenario, "scenario", "", "YAML scenario file (overrides the other run flags)")
	f.StringSliceVar(&runFlags.crops, "crop", []string{"cereals"}, "crop to simulate (repeatable)")
	f.IntVar(&runFlags.days, "days", growth.MaxProjectionDays, "last day to simulate")
	f.BoolVar(&runFlags.stopAtReady, "stop-at-ready", false, "stop each crop on its first harvest-ready day")
	f.BoolVar(&runFlags.synthetic, "synthetic", false, "drive the run with synthetic weather instead of constant conditions")
	f.Int64Var(&runFlags.seed, "seed", 42, "synthetic weather seed")
	f.StringVar(&runFlags.db, "db", os.Getenv("PHENOSIM_DB"), "SQLite run log path (empty disables recording)")
	f.Float64Var(&runFlags.conditions.Temperature, "temperature", 25, "daily mean temperature (°C)")
	f.Float64Var(&runFlags.conditions.Water, "water", 20, "water supply (mm/week)")
	f.Float64Var(&runFlags.conditions.Fertilizer, "fertilizer", 150, "nitrogen fertilizer (kg/ha)")
	f.Float64Var(&runFlags.conditions.Humidity, "humidity", 60, "relative humidity (%)")
	f.Float64Var(&runFlags.conditions.WindSpeed, "wind", 2, "wind speed (m/s)")
}

// scenarioFromFlags loads --scenario or assembles a scenario from the flags.
func scenarioFromFlags(cmd *cobra.Command) (scenario.Scenario, error) {
	if runFlags.scenario != "" {
		sc, err := scenario.Load(runFlags.scenario)
		if err != nil {
			return scenario.Scenario{}, err
		}
		if cmd.Flags().Changed("db") || sc.Database == "" {
			sc.Database = runFlags.db
		}
		return sc, nil
	}

	sc := scenario.Scenario{
		Name:        "cli",
		Crops:       runFlags.crops,
		Days:        runFlags.days,
		StopAtReady: runFlags.stopAtReady,
		Database:    runFlags.db,
	}
	if runFlags.synthetic {
		w := weather.DefaultConfig()
		w.Seed = runFlags.seed
		w.Fertilizer = runFlags.conditions.Fertilizer
		sc.Weather = &w
	} else {
		c := runFlags.conditions
		sc.Conditions = &c
	}
	if err := sc.Validate(); err != nil {
		return scenario.Scenario{}, err
	}
	return sc, nil
}

// runScenario runs every crop of sc concurrently and optionally records
// each run. Summaries are returned in scenario order.
func runScenario(ctx context.Context, table *crop.Table, sc scenario.Scenario) ([]engine.Summary, error) {
	for _, name := range sc.Crops {
		if _, err := table.Lookup(name); err != nil {
			return nil, err
		}
	}

	var db *persistence.DB
	if sc.Database != "" {
		var err error
		db, err = persistence.Open(sc.Database)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		slog.Info("run log opened", "path", sc.Database)
	}

	slog.Info("scenario started", "name", sc.Name, "crops", sc.Crops, "days", sc.Days)
	summaries := make([]engine.Summary, len(sc.Crops))
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range sc.Crops {
		g.Go(func() error {
			sum, err := runCrop(ctx, table, sc, name, db)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			summaries[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

func runCrop(ctx context.Context, table *crop.Table, sc scenario.Scenario, name string, db *persistence.DB) (engine.Summary, error) {
	session := engine.NewSession(table)
	runID := uuid.NewString()
	started := time.Now()

	var days []persistence.Day
	runner := &engine.Runner{
		Session:     session,
		Crop:        name,
		Forcing:     sc.Forcing(),
		MaxDays:     sc.Days,
		StopAtReady: sc.StopAtReady,
		OnDay: func(r engine.Report) {
			if db != nil {
				days = append(days, persistence.DayFromReport(runID, r))
			}
		},
		OnStageChange: func(prev, next engine.Report) {
			slog.Info("stage change",
				"crop", next.Crop,
				"day", next.Day,
				"from", prev.Code,
				"to", next.Code,
				"stage", next.Stage.Description,
				"weather", weather.Describe(next.State.Conditions),
			)
		},
	}

	sum, err := runner.Run(ctx)
	if err != nil {
		return sum, err
	}

	if db != nil {
		run := persistence.Run{
			ID:            runID,
			SessionID:     session.ID.String(),
			Crop:          sum.Crop,
			StartedAt:     started,
			Days:          sum.Days,
			StopReason:    sum.StopReason,
			FinalCode:     sum.Final.Code,
			ReadyDay:      sum.ReadyDay,
			PeakLAI:       sum.PeakLAI,
			YieldForecast: sum.Final.YieldForecast,
		}
		if err := db.SaveRunLog(run, days, session.Events()); err != nil {
			return sum, err
		}
	}
	return sum, nil
}

func printSummaries(w io.Writer, summaries []engine.Summary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CROP\tDAYS\tSTOP\tCODE\tSTAGE\tREADY DAY\tPEAK LAI\tYIELD (kg/ha)")
	for _, s := range summaries {
		ready := "-"
		if s.ReadyDay >= 0 {
			ready = fmt.Sprint(s.ReadyDay)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%.2f\t%.0f\n",
			s.Crop, s.Days, s.StopReason, s.Final.Code, s.Final.Stage.Description,
			ready, s.PeakLAI, s.Final.YieldForecast)
	}
	tw.Flush()
}
