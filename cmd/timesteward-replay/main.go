// Command timesteward-replay applies a recorded batch of fiat-event edits
// (see package batch) against a fresh ball-domain Engine and advances it to
// a target time, optionally reporting per-event state hashes to a synctest
// coordinator so independent replays of the same batch can be checked for
// determinism across machines.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/danielorbach/go-component"
	"github.com/peterbourgon/ff/v3"
	"gocloud.dev/pubsub"

	"github.com/timesteward/timesteward"
	"github.com/timesteward/timesteward/batch"
	"github.com/timesteward/timesteward/synctest"
)

func main() {
	fs := flag.NewFlagSet("timesteward-replay", flag.ExitOnError)
	var (
		batchPath = fs.String("batch", "", "path to a gob-encoded []batch.Step file")
		target    = fs.Int64("target", 0, "Time to advance the replayed engine to")
		engineID  = fs.String("engine-id", "", "identifier this process reports to synctest (required with -report-topic)")
		reportURL = fs.String("report-topic", "", "gocloud.dev/pubsub topic URL for synctest reports (optional)")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("TIMESTEWARD_REPLAY")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if *batchPath == "" {
		fmt.Fprintln(os.Stderr, "timesteward-replay: -batch is required")
		os.Exit(2)
	}
	if *reportURL != "" && *engineID == "" {
		fmt.Fprintln(os.Stderr, "timesteward-replay: -engine-id is required when -report-topic is set")
		os.Exit(2)
	}

	component.RunProc(func(l *component.L) {
		logger := component.Logger(l.Context())

		data, err := os.ReadFile(*batchPath)
		if err != nil {
			l.Fatal(fmt.Errorf("read batch file: %w", err))
		}
		steps, err := batch.Decode(data)
		if err != nil {
			l.Fatal(fmt.Errorf("decode batch file: %w", err))
		}

		var rep reporter
		if *reportURL != "" {
			topic, err := pubsub.OpenTopic(l.Context(), *reportURL)
			if err != nil {
				l.Fatal(fmt.Errorf("open report topic: %w", err))
			}
			defer topic.Shutdown(context.Background())
			rep = synctest.Reporter{EngineID: *engineID, Topic: topic}
		}

		e, err := runReplay(l.Context(), steps, timesteward.Time(*target), rep)
		if err != nil {
			l.Fatal(err)
		}

		logger.Info("replay complete",
			slog.String("present", e.Present().String()),
			slog.Int("steps", len(steps)),
		)
	})
}
