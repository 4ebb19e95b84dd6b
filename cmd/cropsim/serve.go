package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/phenosim/internal/api"
	"github.com/talgya/phenosim/internal/persistence"
)

var serveFlags struct {
	addr        string
	db          string
	rateLimit   int
	maxSessions int
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable()
		if err != nil {
			return err
		}

		srv := &api.Server{
			Table:       table,
			Addr:        serveFlags.addr,
			AdminKey:    os.Getenv("PHENOSIM_ADMIN_KEY"),
			MaxSessions: serveFlags.maxSessions,
			RateLimit:   serveFlags.rateLimit,
		}
		if serveFlags.db != "" {
			db, err := persistence.Open(serveFlags.db)
			if err != nil {
				return err
			}
			defer db.Close()
			srv.DB = db
			slog.Info("run log opened", "path", serveFlags.db)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.addr, "addr", envOrDefault("PHENOSIM_ADDR", ":8080"), "listen address")
	f.StringVar(&serveFlags.db, "db", os.Getenv("PHENOSIM_DB"), "SQLite run log to expose under /api/v1/runs")
	f.IntVar(&serveFlags.rateLimit, "rate-limit", envIntOrDefault("PHENOSIM_RATE_LIMIT", 600), "POST requests per client per minute (0 disables)")
	f.IntVar(&serveFlags.maxSessions, "max-sessions", envIntOrDefault("PHENOSIM_MAX_SESSIONS", 1000), "sessions kept before the oldest is evicted")
}
