package main

import (
	"flag"
	"fmt"
	"os"
)

// cmdPlayer dispatches the player subcommands: advance, drift,
// reconcile, offset.
func (a *app) cmdPlayer(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: chronos player <advance|drift|reconcile|offset> [flags]")
		return 1
	}
	switch args[0] {
	case "advance":
		return a.cmdPlayerAdvance(args[1:])
	case "drift":
		return a.cmdPlayerDrift(args[1:])
	case "reconcile":
		return a.cmdPlayerReconcile(args[1:])
	case "offset":
		return a.cmdPlayerOffset(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "chronos: unknown player subcommand %q\n", args[0])
		return 1
	}
}

func (a *app) cmdPlayerAdvance(args []string) int {
	flags := flag.NewFlagSet("player advance", flag.ContinueOnError)
	player := flags.String("player", "", "player ID")
	ms := flags.Int64("ms", 0, "action duration in milliseconds")
	action := flags.String("action", "action", "action type for the audit trail")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *player == "" {
		fmt.Fprintln(os.Stderr, "usage: chronos player advance --player <id> --ms <n> [--action <s>]")
		return 1
	}

	pc, err := a.rec.AdvancePlayerTime(*player, *ms, *action)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: player advance: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(pc)
	} else {
		fmt.Printf("player %s advanced %dms (%s), tick now %d\n", pc.PlayerID, *ms, *action, pc.ClockTick)
	}
	return 0
}

func (a *app) cmdPlayerDrift(args []string) int {
	flags := flag.NewFlagSet("player drift", flag.ContinueOnError)
	player := flags.String("player", "", "player ID")
	elapsed := flags.Int64("elapsed", 0, "real time elapsed in milliseconds")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *player == "" {
		fmt.Fprintln(os.Stderr, "usage: chronos player drift --player <id> --elapsed <n>")
		return 1
	}

	pc, err := a.rec.ApplyDrift(*player, *elapsed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: player drift: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(pc)
	} else {
		fmt.Printf("player %s drifted for %dms real time, tick now %d\n", pc.PlayerID, *elapsed, pc.ClockTick)
	}
	return 0
}

func (a *app) cmdPlayerReconcile(args []string) int {
	flags := flag.NewFlagSet("player reconcile", flag.ContinueOnError)
	player := flags.String("player", "", "player ID")
	location := flags.String("location", "", "location ID supplying the anchor")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *player == "" || *location == "" {
		fmt.Fprintln(os.Stderr, "usage: chronos player reconcile --player <id> --location <id>")
		return 1
	}

	out, err := a.rec.Reconcile(*player, *location)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: player reconcile: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(out)
		return 0
	}
	switch {
	case out.CompressedMs > 0:
		fmt.Printf("%s: %s, compressed %dms (player %d -> %d)\n",
			*player, out.Method, out.CompressedMs, out.PlayerTickBefore, out.PlayerTickAfter)
	case out.AnchorAfter != out.WorldClockTick:
		fmt.Printf("%s: %s, anchor %d -> %d (player stays at %d)\n",
			*player, out.Method, out.WorldClockTick, out.AnchorAfter, out.PlayerTickAfter)
	default:
		fmt.Printf("%s: %s, player %d -> %d (anchor %d)\n",
			*player, out.Method, out.PlayerTickBefore, out.PlayerTickAfter, out.WorldClockTick)
	}
	return 0
}

func (a *app) cmdPlayerOffset(args []string) int {
	flags := flag.NewFlagSet("player offset", flag.ContinueOnError)
	player := flags.String("player", "", "player ID")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if *player == "" {
		fmt.Fprintln(os.Stderr, "usage: chronos player offset --player <id>")
		return 1
	}

	offset, err := a.rec.PlayerOffset(*player)
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: player offset: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"player_id": *player, "offset_ms": offset})
	} else if offset >= 0 {
		fmt.Printf("player %s is %dms ahead of the world clock\n", *player, offset)
	} else {
		fmt.Printf("player %s is %dms behind the world clock\n", *player, -offset)
	}
	return 0
}
