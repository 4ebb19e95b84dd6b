// Package api provides the HTTP API for crop sessions and the stage catalog.
// GET endpoints are read-only. POST endpoints mutate session state and are
// rate limited per client. Deleting a session requires a bearer token.
package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/phenosim/internal/bbch"
	"github.com/talgya/phenosim/internal/crop"
	"github.com/talgya/phenosim/internal/engine"
	"github.com/talgya/phenosim/internal/growth"
	"github.com/talgya/phenosim/internal/persistence"
)

const (
	defaultMaxSessions = 1000
	defaultNeighbors   = 3
	maxBodyBytes       = 1 << 16
)

var validate = validator.New()

// Server serves crop sessions over HTTP.
type Server struct {
	Table       *crop.Table
	DB          *persistence.DB // optional run log; nil disables /runs
	Addr        string
	AdminKey    string // Bearer token for DELETE endpoints. Empty = DELETE disabled.
	MaxSessions int    // 0 means defaultMaxSessions
	RateLimit   int    // POST requests per client per minute; 0 disables limiting

	mu       sync.Mutex
	sessions map[uuid.UUID]*engine.Session
}

// Handler builds the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	post := func(h http.HandlerFunc) http.HandlerFunc { return h }
	if s.RateLimit > 0 {
		limiter := NewRateLimiter(s.RateLimit, time.Minute)
		post = func(h http.HandlerFunc) http.HandlerFunc { return RateLimitMiddleware(limiter, h) }
	}

	// Catalog endpoints.
	mux.HandleFunc("GET /api/v1/crops", s.handleCrops)
	mux.HandleFunc("GET /api/v1/crops/{crop}/stages", s.handleStages)

	// Sessions.
	mux.HandleFunc("POST /api/v1/sessions", post(s.handleCreateSession))
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.handleSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.adminOnly(s.handleDeleteSession))
	mux.HandleFunc("POST /api/v1/sessions/{id}/simulate", post(s.handleSimulate))
	mux.HandleFunc("POST /api/v1/sessions/{id}/harvest", post(s.handleHarvest))
	mux.HandleFunc("POST /api/v1/sessions/{id}/optimal", post(s.handleOptimal))
	mux.HandleFunc("POST /api/v1/sessions/{id}/reset", post(s.handleReset))
	mux.HandleFunc("GET /api/v1/sessions/{id}/events", s.handleEvents)

	// Run log.
	mux.HandleFunc("GET /api/v1/runs", s.handleRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}/days", s.handleRunDays)
	mux.HandleFunc("GET /api/v1/runs/{id}/events", s.handleRunEvents)

	mux.Handle("GET /metrics", promhttp.Handler())

	return corsMiddleware(mux)
}

// ListenAndServe serves the API until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", s.Addr, "admin_auth", s.AdminKey != "", "run_log", s.DB != nil)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		slog.Info("HTTP API shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// adminOnly wraps a handler to require bearer token auth.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			writeError(w, http.StatusForbidden, "admin endpoints disabled (no PHENOSIM_ADMIN_KEY set)")
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.AdminKey {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleCrops(w http.ResponseWriter, r *http.Request) {
	type cropSummary struct {
		Name       string  `json:"name"`
		ReadyCode  string  `json:"ready_code"`
		SeasonDays int     `json:"season_days"`
		Stages     int     `json:"stages"`
		BaseTemp   float64 `json:"base_temp"`
		TSumTotal  float64 `json:"tsum_total"`
	}

	names := s.Table.Names()
	out := make([]cropSummary, 0, len(names))
	for _, name := range names {
		spec, err := s.Table.Lookup(name)
		if err != nil {
			continue
		}
		out = append(out, cropSummary{
			Name:       spec.Name,
			ReadyCode:  spec.ReadyCode,
			SeasonDays: spec.Profile.SeasonDays,
			Stages:     len(spec.Stages),
			BaseTemp:   spec.Profile.BaseTemp,
			TSumTotal:  spec.Profile.TSumTotal(),
		})
	}
	writeJSON(w, out)
}

// handleStages returns a crop's catalog, or with ?code= the neighbours of a
// code (?n= count, ?dir=before|after).
func (s *Server) handleStages(w http.ResponseWriter, r *http.Request) {
	spec, err := s.Table.Lookup(r.PathValue("crop"))
	if err != nil {
		writeErr(w, err)
		return
	}
	cat := bbch.CatalogFor(spec)

	q := r.URL.Query()
	code := q.Get("code")
	if code == "" {
		writeJSON(w, map[string]any{"crop": spec.Name, "stages": cat.Entries()})
		return
	}

	n := defaultNeighbors
	if raw := q.Get("n"); raw != "" {
		n, err = strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "n must be a non-negative integer")
			return
		}
	}
	var dir bbch.Direction
	switch q.Get("dir") {
	case "", "after":
		dir = bbch.After
	case "before":
		dir = bbch.Before
	default:
		writeError(w, http.StatusBadRequest, "dir must be before or after")
		return
	}

	resp := map[string]any{
		"crop":      spec.Name,
		"code":      code,
		"neighbors": cat.Neighbors(code, n, dir),
	}
	if entry, err := cat.Lookup(code); err == nil {
		resp["stage"] = entry
	}
	writeJSON(w, resp)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := engine.NewSession(s.Table)

	s.mu.Lock()
	if s.sessions == nil {
		s.sessions = make(map[uuid.UUID]*engine.Session)
	}
	limit := s.MaxSessions
	if limit <= 0 {
		limit = defaultMaxSessions
	}
	if len(s.sessions) >= limit {
		s.evictOldest()
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	slog.Info("session created", "session", sess.ID)
	w.Header().Set("Location", "/api/v1/sessions/"+sess.ID.String())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]any{"id": sess.ID, "created": sess.Created})
}

// evictOldest drops the least recently created session. Callers hold s.mu.
func (s *Server) evictOldest() {
	var oldest *engine.Session
	for _, sess := range s.sessions {
		if oldest == nil || sess.Created.Before(oldest.Created) {
			oldest = sess
		}
	}
	if oldest != nil {
		delete(s.sessions, oldest.ID)
		slog.Info("session evicted", "session", oldest.ID)
	}
}

// session resolves the {id} path value, writing 400/404 on failure.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*engine.Session, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return nil, false
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return sess, true
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, map[string]any{
		"id":      sess.ID,
		"created": sess.Created,
		"crops":   sess.Crops(),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.sessions, sess.ID)
	s.mu.Unlock()
	slog.Info("session deleted", "session", sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

// dayRequest is the body of the simulate and harvest endpoints.
type dayRequest struct {
	Crop       string            `json:"crop" validate:"required"`
	Day        int               `json:"day" validate:"gte=0"`
	Conditions growth.Conditions `json:"conditions"`
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeErr(w, err)
		return false
	}
	return true
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req dayRequest
	if !decode(w, r, &req) {
		return
	}
	rep, err := sess.Simulate(req.Crop, req.Day, req.Conditions)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, rep)
}

func (s *Server) handleHarvest(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req dayRequest
	if !decode(w, r, &req) {
		return
	}
	f, err := sess.PredictHarvest(req.Crop, req.Day, req.Conditions)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, f)
}

func (s *Server) handleOptimal(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Crop string `json:"crop" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}
	y, err := sess.OptimalYield(req.Crop)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]any{"crop": strings.ToLower(strings.TrimSpace(req.Crop)), "optimal_yield": y})
}

// handleReset resets one crop, or every crop when the body names none.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req struct {
		Crop string `json:"crop"`
	}
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	if req.Crop == "" {
		sess.ResetAll()
		writeJSON(w, map[string]any{"reset": sess.Crops()})
		return
	}
	if err := sess.Reset(req.Crop); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]any{"reset": []string{strings.ToLower(strings.TrimSpace(req.Crop))}})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	events := sess.Events()
	if c := r.URL.Query().Get("category"); c != "" {
		filtered := events[:0]
		for _, e := range events {
			if e.Category == c {
				filtered = append(filtered, e)
			}
		}
		events = filtered
	}
	writeJSON(w, events)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, "run log disabled")
		return
	}
	runs, err := s.DB.Runs(r.URL.Query().Get("crop"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) handleRunDays(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, "run log disabled")
		return
	}
	id := r.PathValue("id")
	if _, err := s.DB.GetRun(id); err != nil {
		writeErr(w, err)
		return
	}
	days, err := s.DB.RunDays(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, days)
}

func (s *Server) handleRunEvents(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusNotFound, "run log disabled")
		return
	}
	id := r.PathValue("id")
	if _, err := s.DB.GetRun(id); err != nil {
		writeErr(w, err)
		return
	}
	events, err := s.DB.RunEvents(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, events)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, crop.ErrUnknownCrop), errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound
	case errors.As(err, &verrs):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeErr(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeError(w, code, err.Error())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}
