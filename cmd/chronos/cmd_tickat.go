package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

func (a *app) cmdTickAt(args []string) int {
	flags := flag.NewFlagSet("tick-at", flag.ContinueOnError)
	at := flags.String("at", "", "instant to query, RFC3339 (e.g. 2026-08-30T12:00:00Z)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *at == "" {
		fmt.Fprintln(os.Stderr, "usage: chronos tick-at --at <RFC3339> [--json]")
		return 1
	}

	t, err := time.Parse(time.RFC3339, *at)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: tick-at: bad timestamp %q: %v\n", *at, err)
		return 1
	}

	tick, ok, err := a.clock.TickAt(t)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: tick-at: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"at": t, "tick": tick, "known": ok})
	} else if !ok {
		fmt.Printf("unknown: clock did not exist at %s\n", t.Format(time.RFC3339))
	} else {
		fmt.Printf("tick at %s: %d\n", t.Format(time.RFC3339), tick)
	}
	return 0
}
