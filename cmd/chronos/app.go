package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/quillwork/chronos/pkg/config"
	"github.com/quillwork/chronos/pkg/ledger"
	"github.com/quillwork/chronos/pkg/reconcile"
	"github.com/quillwork/chronos/pkg/store"
	"github.com/quillwork/chronos/pkg/telemetry"
	"github.com/quillwork/chronos/pkg/worldclock"
)

const defaultDB = "chronos.db"

// app holds shared state for all CLI subcommands.
type app struct {
	store  *store.Store
	cfg    config.Temporal
	log    zerolog.Logger
	ledger *ledger.Ledger
	clock  *worldclock.Service
	rec    *reconcile.Reconciler
}

// newApp loads and validates the temporal config, opens the database,
// and wires the engine. An invalid config is fatal here: nothing runs
// with unordered thresholds.
func newApp() (*app, error) {
	cfg, err := config.Load(os.Getenv("CHRONOS_CONFIG"))
	if err != nil {
		return nil, err
	}

	log := newLogger()

	s, err := store.New(envOr("CHRONOS_DB", defaultDB))
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	led := ledger.New(s, log)
	tel := telemetry.NewLog(log)
	clock := worldclock.New(s, led, tel, log)
	rec := reconcile.New(s, s, clock, cfg, led, tel, log)

	return &app{
		store:  s,
		cfg:    cfg,
		log:    log,
		ledger: led,
		clock:  clock,
		rec:    rec,
	}, nil
}

// Close releases the database connection.
func (a *app) Close() { a.store.Close() }

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(envOr("CHRONOS_LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
