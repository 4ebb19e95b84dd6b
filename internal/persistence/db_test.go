package persistence

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/phenosim/internal/crop"
	"github.com/talgya/phenosim/internal/engine"
	"github.com/talgya/phenosim/internal/growth"
	"github.com/talgya/phenosim/internal/weather"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestRunLogRoundTrip(t *testing.T) {
	db := openTemp(t)
	table, err := crop.Default()
	require.NoError(t, err)

	session := engine.NewSession(table)
	var days []Day
	runner := &engine.Runner{
		Session: session,
		Crop:    "cereals",
		Forcing: weather.Constant(growth.Conditions{Temperature: 25, Water: 20, Fertilizer: 150, Humidity: 60, WindSpeed: 2}),
		MaxDays: 30,
		OnDay:   func(r engine.Report) { days = append(days, DayFromReport("run-1", r)) },
	}
	sum, err := runner.Run(context.Background())
	require.NoError(t, err)

	started := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	run := Run{
		ID:            "run-1",
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
	require.NoError(t, db.SaveRunLog(run, days, session.Events()))

	got, err := db.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, "cereals", got.Crop)
	assert.Equal(t, 31, got.Days)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, sum.Final.Code, got.FinalCode)

	stored, err := db.RunDays("run-1")
	require.NoError(t, err)
	require.Len(t, stored, 31)
	for i, d := range stored {
		assert.Equal(t, i, d.Day)
		assert.Equal(t, days[i].Code, d.Code)
		assert.InDelta(t, days[i].Biomass, d.Biomass, 1e-9)
	}
	assert.Contains(t, stored[10].ConditionsJSON, `"temperature":25`)

	events, err := db.RunEvents("run-1")
	require.NoError(t, err)
	assert.Equal(t, len(session.Events()), len(events))
	assert.Equal(t, "stage", events[0].Category)

	last, err := db.GetMeta("last_run")
	require.NoError(t, err)
	assert.Equal(t, "run-1", last)
}

func TestSaveDaysReplacesSameDay(t *testing.T) {
	db := openTemp(t)
	require.NoError(t, db.SaveDays([]Day{{RunID: "r", Day: 3, Code: "10", ConditionsJSON: "{}"}}))
	require.NoError(t, db.SaveDays([]Day{{RunID: "r", Day: 3, Code: "12", Ready: true, ConditionsJSON: "{}"}}))

	days, err := db.RunDays("r")
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "12", days[0].Code)
	assert.True(t, days[0].Ready)
}

func TestRunsFilterByCrop(t *testing.T) {
	db := openTemp(t)
	now := time.Now()
	require.NoError(t, db.SaveRun(Run{ID: "a", Crop: "maize", StartedAt: now.Add(-time.Hour)}))
	require.NoError(t, db.SaveRun(Run{ID: "b", Crop: "rice", StartedAt: now}))
	require.NoError(t, db.SaveRun(Run{ID: "c", Crop: "maize", StartedAt: now}))

	maize, err := db.Runs("maize")
	require.NoError(t, err)
	require.Len(t, maize, 2)
	assert.Equal(t, "c", maize[0].ID)

	all, err := db.Runs("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGetMetaMissing(t *testing.T) {
	db := openTemp(t)
	_, err := db.GetMeta("nope")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	require.NoError(t, db.SaveMeta("k", "v1"))
	require.NoError(t, db.SaveMeta("k", "v2"))
	v, err := db.GetMeta("k")
	require.NoError(t, err)
	assert.Equal(t, "v2", v)
}
