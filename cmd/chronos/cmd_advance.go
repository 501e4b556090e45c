package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/quillwork/chronos/pkg/model"
)

func (a *app) cmdAdvance(args []string) int {
	flags := flag.NewFlagSet("advance", flag.ContinueOnError)
	ms := flags.Int64("ms", 0, "duration to advance, in milliseconds")
	reason := flags.String("reason", "scheduled", "why the clock advances")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	newTick, err := a.clock.AdvanceTick(*ms, *reason)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: advance: %v\n", err)
		if errors.Is(err, model.ErrConcurrencyConflict) {
			return 2
		}
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{
			"new_tick": newTick, "duration_ms": *ms, "reason": *reason,
		})
	} else {
		fmt.Printf("advanced %dms (%s), tick now %d\n", *ms, *reason, newTick)
	}
	return 0
}

func (a *app) cmdTick(args []string) int {
	flags := flag.NewFlagSet("tick", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	tick, err := a.clock.CurrentTick()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: tick: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"current_tick": tick})
	} else {
		fmt.Println(tick)
	}
	return 0
}
