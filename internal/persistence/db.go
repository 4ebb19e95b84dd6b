// Package persistence records crop runs in SQLite: one row per run, one row
// per simulated day, and the session events raised along the way.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/phenosim/internal/engine"
)

// timeLayout keeps stored timestamps fixed-width so they sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// DB wraps a SQLite connection for the run log.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// One writer at a time; concurrent runs share the handle.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		crop TEXT NOT NULL,
		started_at TEXT NOT NULL,
		days INTEGER NOT NULL,
		stop_reason TEXT NOT NULL,
		final_code TEXT NOT NULL,
		ready_day INTEGER NOT NULL,
		peak_lai REAL NOT NULL,
		yield_forecast REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS days (
		run_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		code TEXT NOT NULL,
		raw_code TEXT NOT NULL,
		estimated INTEGER NOT NULL,
		ready INTEGER NOT NULL,
		stage REAL NOT NULL,
		lai REAL NOT NULL,
		biomass REAL NOT NULL,
		grain_yield REAL NOT NULL,
		root_depth REAL NOT NULL,
		water_stress REAL NOT NULL,
		nitrogen_stress REAL NOT NULL,
		yield_forecast REAL NOT NULL,
		conditions_json TEXT NOT NULL,
		PRIMARY KEY (run_id, day)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		crop TEXT NOT NULL,
		code TEXT NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_crop ON runs(crop);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run is the header row of one recorded run.
type Run struct {
	ID            string    `db:"id" json:"id"`
	SessionID     string    `db:"session_id" json:"session_id"`
	Crop          string    `db:"crop" json:"crop"`
	StartedAt     time.Time `db:"-" json:"started_at"`
	Days          int       `db:"days" json:"days"`
	StopReason    string    `db:"stop_reason" json:"stop_reason"`
	FinalCode     string    `db:"final_code" json:"final_code"`
	ReadyDay      int       `db:"ready_day" json:"ready_day"`
	PeakLAI       float64   `db:"peak_lai" json:"peak_lai"`
	YieldForecast float64   `db:"yield_forecast" json:"yield_forecast"`

	StartedAtText string `db:"started_at" json:"-"`
}

// Day is one recorded simulated day.
type Day struct {
	RunID          string  `db:"run_id" json:"run_id"`
	Day            int     `db:"day" json:"day"`
	Code           string  `db:"code" json:"code"`
	RawCode        string  `db:"raw_code" json:"raw_code"`
	Estimated      bool    `db:"estimated" json:"estimated"`
	Ready          bool    `db:"ready" json:"ready"`
	Stage          float64 `db:"stage" json:"stage"`
	LAI            float64 `db:"lai" json:"lai"`
	Biomass        float64 `db:"biomass" json:"biomass"`
	GrainYield     float64 `db:"grain_yield" json:"grain_yield"`
	RootDepth      float64 `db:"root_depth" json:"root_depth"`
	WaterStress    float64 `db:"water_stress" json:"water_stress"`
	NitrogenStress float64 `db:"nitrogen_stress" json:"nitrogen_stress"`
	YieldForecast  float64 `db:"yield_forecast" json:"yield_forecast"`
	ConditionsJSON string  `db:"conditions_json" json:"conditions"`
}

// DayFromReport flattens an engine report into a day row.
func DayFromReport(runID string, r engine.Report) Day {
	cond, _ := json.Marshal(r.State.Conditions)
	return Day{
		RunID:          runID,
		Day:            r.Day,
		Code:           r.Code,
		RawCode:        r.RawCode,
		Estimated:      r.Estimated,
		Ready:          r.Ready,
		Stage:          r.State.DevelopmentStage,
		LAI:            r.State.LeafAreaIndex,
		Biomass:        r.State.TotalBiomass,
		GrainYield:     r.State.GrainYield,
		RootDepth:      r.State.RootDepth,
		WaterStress:    r.State.WaterStress,
		NitrogenStress: r.State.NitrogenStress,
		YieldForecast:  r.YieldForecast,
		ConditionsJSON: string(cond),
	}
}

// SaveRun inserts or replaces a run header.
func (db *DB) SaveRun(r Run) error {
	_, err := db.conn.Exec(`INSERT OR REPLACE INTO runs
		(id, session_id, crop, started_at, days, stop_reason, final_code, ready_day, peak_lai, yield_forecast)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.Crop, r.StartedAt.UTC().Format(timeLayout),
		r.Days, r.StopReason, r.FinalCode, r.ReadyDay, r.PeakLAI, r.YieldForecast,
	)
	return err
}

// GetRun loads one run header.
func (db *DB) GetRun(id string) (Run, error) {
	var r Run
	if err := db.conn.Get(&r, "SELECT * FROM runs WHERE id = ?", id); err != nil {
		return Run{}, err
	}
	return r, r.parseStarted()
}

// Runs returns the run headers for a crop, newest first. An empty crop lists
// every run.
func (db *DB) Runs(crop string) ([]Run, error) {
	var runs []Run
	var err error
	if crop == "" {
		err = db.conn.Select(&runs, "SELECT * FROM runs ORDER BY started_at DESC")
	} else {
		err = db.conn.Select(&runs, "SELECT * FROM runs WHERE crop = ? ORDER BY started_at DESC", crop)
	}
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if err := runs[i].parseStarted(); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (r *Run) parseStarted() error {
	t, err := time.Parse(timeLayout, r.StartedAtText)
	if err != nil {
		return fmt.Errorf("run %s: started_at: %w", r.ID, err)
	}
	r.StartedAt = t
	return nil
}

// SaveDays writes day rows in a single transaction, replacing any row with
// the same run and day.
func (db *DB) SaveDays(days []Day) error {
	if len(days) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamed(`INSERT OR REPLACE INTO days
		(run_id, day, code, raw_code, estimated, ready, stage, lai, biomass, grain_yield,
		 root_depth, water_stress, nitrogen_stress, yield_forecast, conditions_json)
		VALUES (:run_id, :day, :code, :raw_code, :estimated, :ready, :stage, :lai, :biomass, :grain_yield,
		 :root_depth, :water_stress, :nitrogen_stress, :yield_forecast, :conditions_json)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range days {
		if _, err := stmt.Exec(d); err != nil {
			return fmt.Errorf("day %d: %w", d.Day, err)
		}
	}

	return tx.Commit()
}

// RunDays returns the recorded days of a run in day order.
func (db *DB) RunDays(runID string) ([]Day, error) {
	var days []Day
	err := db.conn.Select(&days, "SELECT * FROM days WHERE run_id = ? ORDER BY day", runID)
	return days, err
}

// SaveEvents appends session events to a run.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, day, crop, code, description, category) VALUES (?, ?, ?, ?, ?, ?)",
			runID, e.Day, e.Crop, e.Code, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RunEvents returns the events of a run in insertion order.
func (db *DB) RunEvents(runID string) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT day, crop, code, description, category FROM events WHERE run_id = ? ORDER BY id",
		runID,
	)
	return events, err
}

// SaveMeta stores a key-value pair in the metadata table.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

// SaveRunLog performs a full save of one finished run.
func (db *DB) SaveRunLog(r Run, days []Day, events []engine.Event) error {
	slog.Info("saving run", "run", r.ID, "crop", r.Crop, "days", len(days), "events", len(events))

	if err := db.SaveRun(r); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	if err := db.SaveDays(days); err != nil {
		return fmt.Errorf("save days: %w", err)
	}
	if err := db.SaveEvents(r.ID, events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	if err := db.SaveMeta("last_run", r.ID); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("run saved", "run", r.ID)
	return nil
}
