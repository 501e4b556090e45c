package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/quillwork/chronos/pkg/model"
)

func (a *app) cmdLog(args []string) int {
	flags := flag.NewFlagSet("log", flag.ContinueOnError)
	player := flags.String("player", "", "query a player's ledger entries")
	world := flags.Bool("world", false, "query the world clock's ledger entries")
	from := flags.String("from", "", "range start, RFC3339")
	to := flags.String("to", "", "range end, RFC3339")
	limit := flags.Int("limit", 50, "max entries to return")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	var entries []model.LedgerEntry
	var err error
	switch {
	case *player != "":
		entries, err = a.ledger.QueryByPlayer(*player, *limit)
	case *world:
		entries, err = a.ledger.QueryByWorldClock(*limit)
	case *from != "" && *to != "":
		var start, end time.Time
		if start, err = time.Parse(time.RFC3339, *from); err != nil {
			fmt.Fprintf(os.Stderr, "chronos: log: bad --from %q: %v\n", *from, err)
			return 1
		}
		if end, err = time.Parse(time.RFC3339, *to); err != nil {
			fmt.Fprintf(os.Stderr, "chronos: log: bad --to %q: %v\n", *to, err)
			return 1
		}
		entries, err = a.ledger.QueryByTimeRange(start, end, *limit)
	default:
		fmt.Fprintln(os.Stderr, "usage: chronos log (--player <id> | --world | --from <t> --to <t>) [--limit N]")
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: log: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"entries": entries, "count": len(entries)})
	} else if len(entries) == 0 {
		fmt.Println("no entries")
	} else {
		for _, e := range entries {
			fmt.Printf("[%s] %-28s %s %s\n",
				e.At.Format(time.RFC3339), e.Kind, e.Scope, e.Payload)
		}
	}
	return 0
}

func (a *app) cmdPurge(args []string) int {
	flags := flag.NewFlagSet("purge", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	n, err := a.ledger.PurgeExpired(time.Now().UTC())
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: purge: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"purged": n})
	} else {
		fmt.Printf("purged %d expired ledger entries\n", n)
	}
	return 0
}
