package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/quillwork/chronos/pkg/model"
)

func (a *app) cmdStatus(args []string) int {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	wc, err := a.clock.Clock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "chronos: status: %v\n", err)
		return 1
	}

	history, _ := a.clock.History(5)
	players, _ := a.store.ListPlayerClocks()
	anchors, _ := a.store.ListAnchors()

	// Per-player offsets against the current tick.
	type playerInfo struct {
		model.PlayerClock
		OffsetMs int64 `json:"offset_ms"`
	}
	infos := make([]playerInfo, len(players))
	for i, pc := range players {
		infos[i] = playerInfo{PlayerClock: pc, OffsetMs: pc.Offset(wc.CurrentTick)}
	}

	if *jsonOut {
		printJSON(map[string]interface{}{
			"world_clock": wc,
			"history":     history,
			"players":     infos,
			"anchors":     anchors,
		})
		return 0
	}

	fmt.Printf("world clock: tick=%d last_advanced=%s version=%s\n",
		wc.CurrentTick, wc.LastAdvanced.Format(time.RFC3339), wc.Version)

	if len(history) > 0 {
		fmt.Println("recent advancements:")
		for _, h := range history {
			fmt.Printf("  [%s] +%dms (%s) -> %d\n",
				h.At.Format("15:04:05"), h.DurationMs, h.Reason, h.TickAfter)
		}
	}

	if len(infos) > 0 {
		fmt.Println("players:")
		for _, pi := range infos {
			side := "ahead"
			off := pi.OffsetMs
			if off < 0 {
				side = "behind"
				off = -off
			}
			fmt.Printf("  %-20s tick=%-12d %dms %s\n", pi.PlayerID, pi.ClockTick, off, side)
		}
	} else {
		fmt.Println("players: none")
	}

	if len(anchors) > 0 {
		fmt.Println("anchors:")
		for _, an := range anchors {
			fmt.Printf("  %-20s tick=%d\n", an.LocationID, an.Tick)
		}
	}
	return 0
}
