package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/quillwork/chronos/pkg/model"
)

// cmdInit explicitly creates the world clock. Unlike the auto-init
// paths, an existing clock is a hard error here.
func (a *app) cmdInit(args []string) int {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	tick := flags.Int64("tick", 0, "initial tick in milliseconds")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	wc, err := a.store.InitializeWorldClock(*tick)
	if err != nil {
		if errors.Is(err, model.ErrAlreadyInitialized) {
			fmt.Fprintln(os.Stderr, "chronos: init: world clock already initialized")
			return 1
		}
		fmt.Fprintf(os.Stderr, "chronos: init: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(wc)
	} else {
		fmt.Printf("world clock initialized at tick %d (version %s)\n", wc.CurrentTick, wc.Version)
	}
	return 0
}
