// Command chronos is the world-time authority CLI — one authoritative
// world clock advanced under optimistic concurrency, per-player drift
// and reconciliation, and an immutable temporal ledger, all backed by
// shared SQLite.
package main

import (
	"fmt"
	"os"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Println("chronos", version)
		return
	}

	a, err := newApp()
	if err != nil {
		fatal("%v", err)
	}
	defer a.Close()

	switch os.Args[1] {
	// World clock
	case "init":
		os.Exit(a.cmdInit(os.Args[2:]))
	case "advance":
		os.Exit(a.cmdAdvance(os.Args[2:]))
	case "tick":
		os.Exit(a.cmdTick(os.Args[2:]))
	case "tick-at":
		os.Exit(a.cmdTickAt(os.Args[2:]))

	// Players and locations
	case "player":
		os.Exit(a.cmdPlayer(os.Args[2:]))
	case "anchor":
		os.Exit(a.cmdAnchor(os.Args[2:]))

	// Ledger
	case "log":
		os.Exit(a.cmdLog(os.Args[2:]))
	case "purge":
		os.Exit(a.cmdPurge(os.Args[2:]))

	case "status":
		os.Exit(a.cmdStatus(os.Args[2:]))

	default:
		fmt.Fprintf(os.Stderr, "chronos: unknown command %q\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "Run 'chronos --help' for usage.")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`chronos — world-time authority for game backends

One authoritative world clock, advanced by compare-and-swap so many
stateless writers can race safely. Player clocks drift and are
reconciled (Snap/Wait/Slow/Compress). Every temporal event lands in an
immutable ledger.

Usage:
  chronos <command> [flags]

World clock:
  init [--tick N]                Explicitly create the clock (errors if it exists)
  advance --ms N [--reason S]    Advance the clock; bounded retry on conflicts
  tick                           Current tick (auto-initializes at 0)
  tick-at --at RFC3339           Tick effective at a past instant

Players and locations:
  player advance --player ID --ms N [--action S]
  player drift --player ID --elapsed N
  player reconcile --player ID --location ID
  player offset --player ID
  anchor set --location ID --tick N
  anchor get --location ID
  anchor list

Ledger:
  log [--player ID | --world | --from T --to T] [--limit N]
  purge                          Expire ledger entries past retention

  status                         Clock, recent history, players, anchors

Environment:
  CHRONOS_DB                     SQLite database path (default: chronos.db)
  CHRONOS_CONFIG                 Optional YAML config file
  CHRONOS_TEMPORAL_*             Threshold overrides (e.g. CHRONOS_TEMPORAL_EPSILON_MS)
  CHRONOS_LOG_LEVEL              zerolog level (default: info)

All commands support --json for machine-readable output.

Exit codes:
  0  success
  1  error
  2  concurrency conflict (retry budget exhausted)
`)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "chronos: "+format+"\n", args...)
	os.Exit(1)
}
