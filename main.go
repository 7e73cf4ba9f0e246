// main.go — Sleep Journal walk-through
// ============================================================
// This file demonstrates every capability of the journal core:
//
//  1. DB initialisation with hooks (logging, metrics)
//  2. Schema migration (programmatic, embedded files)
//  3. Register + idempotent re-register
//  4. State query (awake / asleep)
//  5. Begin / end a sleep session
//  6. Double-begin rejection
//  7. Quality rating with validation
//  8. Note annotation (latest wins)
//  9. Journal rendering
// 10. Summary stats
// ============================================================
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/okorolev/sleepjournal/store"
	"github.com/okorolev/sleepjournal/tracker"

	// Blank-import the sqlite driver so it self-registers with database/sql.
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	// ── 0. Structured logger ──────────────────────────────────────────────
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// ── 1. DB initialisation ─────────────────────────────────────────────
	//
	// All configuration is explicit. No environment magic inside the store.
	// The handle is created here once and injected into the tracker.

	dbFile := envOr("SLEEPJOURNAL_DB", "sleepjournal.db")

	database := store.MustOpen(store.Config{
		DSN:            dbFile + "?_foreign_keys=on",
		DriverName:     "sqlite3",
		MaxOpenConns:   1, // sqlite serialises writers anyway
		DefaultTimeout: 10 * time.Second,

		Hooks: []store.Hook{
			store.NewLogHook(store.LogHookConfig{
				Logger:             logger,
				SlowQueryThreshold: 200 * time.Millisecond,
				LogArgs:            true, // development only
			}),
			store.NewMetricsHook(&logCollector{logger: logger}),
		},
	})
	defer database.Close()

	slog.Info("database connected", "file", dbFile)

	// ── 2. Migrations ─────────────────────────────────────────────────────
	if err := store.RunMigrations("sqlite3://" + dbFile); err != nil {
		fatalf("migrations: %v", err)
	}

	ctx := context.Background()
	journal := tracker.New(database, logger)

	// In the chat deployment the user id arrives from the transport layer;
	// here we just pick one.
	const userID int64 = 4155

	// ── 3. Register ───────────────────────────────────────────────────────
	//
	// Registering twice is a no-op: the original name is kept.

	if err := journal.Register(ctx, userID, "Alice"); err != nil {
		fatalf("register: %v", err)
	}
	if err := journal.Register(ctx, userID, "Definitely Not Alice"); err != nil {
		fatalf("re-register: %v", err)
	}
	slog.Info("registered user", "id", userID)

	// ── 4. State query ────────────────────────────────────────────────────
	awake, err := journal.IsAwake(ctx, userID)
	if err != nil {
		fatalf("state: %v", err)
	}
	slog.Info("current state", "awake", awake)

	// ── 5. Begin a session ────────────────────────────────────────────────
	if err := journal.BeginSession(ctx, userID); err != nil {
		if errors.Is(err, tracker.ErrSessionOpen) {
			slog.Warn("already asleep — left over from a previous run?")
		} else {
			fatalf("begin session: %v", err)
		}
	} else {
		slog.Info("good night")
	}

	// ── 6. Double-begin rejection ─────────────────────────────────────────
	err = journal.BeginSession(ctx, userID)
	if errors.Is(err, tracker.ErrSessionOpen) {
		slog.Info("correctly refused a second open session")
	} else if err != nil {
		fatalf("unexpected: %v", err)
	}

	// Sleep long enough for the session to have a visible duration.
	time.Sleep(1100 * time.Millisecond)

	// ── 7. End the session ────────────────────────────────────────────────
	if err := journal.EndSession(ctx, userID); err != nil {
		fatalf("end session: %v", err)
	}
	slog.Info("good morning")

	// ── 8. Quality rating ─────────────────────────────────────────────────
	//
	// Ratings outside [1,10] are rejected before any SQL runs.

	if err := journal.SetQuality(ctx, userID, 42); !errors.Is(err, tracker.ErrInvalidQuality) {
		fatalf("expected invalid quality rejection, got: %v", err)
	}
	if err := journal.SetQuality(ctx, userID, 8); err != nil {
		fatalf("set quality: %v", err)
	}
	slog.Info("rated last night", "quality", 8)

	// ── 9. Note annotation ────────────────────────────────────────────────
	//
	// A second note replaces the first: latest wins.

	if err := journal.SetNote(ctx, userID, "woke up twice"); err != nil {
		fatalf("set note: %v", err)
	}
	if err := journal.SetNote(ctx, userID, "woke up twice, coffee too late"); err != nil {
		fatalf("overwrite note: %v", err)
	}

	// ── 10. Journal + stats ───────────────────────────────────────────────
	rendered, err := journal.Journal(ctx, userID)
	if err != nil {
		fatalf("journal: %v", err)
	}
	fmt.Println(rendered)

	st, err := journal.Stats(ctx, userID)
	if err != nil {
		fatalf("stats: %v", err)
	}
	slog.Info("summary",
		"sessions", st.Sessions,
		"closed", st.Closed,
		"total_sleep", st.TotalSleep,
		"avg_sleep", st.AverageSleep,
		"avg_quality", st.AverageQuality,
	)
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

// logCollector is a stand-in metrics backend. Swap in a Prometheus or StatsD
// collector behind the same interface in a real deployment.
type logCollector struct {
	logger *slog.Logger
}

func (c *logCollector) RecordQuery(query string, duration time.Duration, success bool) {
	c.logger.Debug("metrics: query recorded",
		"duration", duration,
		"success", success,
	)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func fatalf(format string, args ...any) {
	slog.Error(fmt.Sprintf(format, args...))
	os.Exit(1)
}
