package main

import (
	"flag"
	"fmt"
	"os"
)

// cmdAnchor manages location anchors: the world-tick values players
// reconcile against when entering a location.
func (a *app) cmdAnchor(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: chronos anchor <set|get|list> [flags]")
		return 1
	}
	switch args[0] {
	case "set":
		return a.cmdAnchorSet(args[1:])
	case "get":
		return a.cmdAnchorGet(args[1:])
	case "list":
		return a.cmdAnchorList(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "chronos: unknown anchor subcommand %q\n", args[0])
		return 1
	}
}

func (a *app) cmdAnchorSet(args []string) int {
	flags := flag.NewFlagSet("anchor set", flag.ContinueOnError)
	location := flags.String("location", "", "location ID")
	tick := flags.Int64("tick", -1, "world tick to anchor at this location")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *location == "" || *tick < 0 {
		fmt.Fprintln(os.Stderr, "usage: chronos anchor set --location <id> --tick <n>")
		return 1
	}

	if err := a.store.SetWorldTickAnchor(*location, *tick); err != nil {
		fmt.Fprintf(os.Stderr, "chronos: anchor set: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"location_id": *location, "tick": *tick})
	} else {
		fmt.Printf("anchor %s set to tick %d\n", *location, *tick)
	}
	return 0
}

func (a *app) cmdAnchorGet(args []string) int {
	flags := flag.NewFlagSet("anchor get", flag.ContinueOnError)
	location := flags.String("location", "", "location ID")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *location == "" {
		fmt.Fprintln(os.Stderr, "usage: chronos anchor get --location <id>")
		return 1
	}

	tick, err := a.store.GetWorldTickAnchor(*location)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: anchor get: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"location_id": *location, "tick": tick})
	} else {
		fmt.Println(tick)
	}
	return 0
}

func (a *app) cmdAnchorList(args []string) int {
	flags := flag.NewFlagSet("anchor list", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	anchors, err := a.store.ListAnchors()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: anchor list: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"anchors": anchors, "count": len(anchors)})
	} else if len(anchors) == 0 {
		fmt.Println("no anchors")
	} else {
		for _, an := range anchors {
			fmt.Printf("%-30s tick=%d\n", an.LocationID, an.Tick)
		}
	}
	return 0
}
