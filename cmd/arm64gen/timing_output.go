package main

import (
	"fmt"
	"io"

	"arm64gen/internal/observ"
	"arm64gen/internal/pipeline"
)

// printStageTimings writes the summed per-stage durations of a run. Units
// run in parallel, so the total can exceed the wall time.
func printStageTimings(out io.Writer, timings *pipeline.Timings) {
	if out == nil || timings == nil {
		return
	}
	timer := observ.NewTimer()
	for _, st := range pipeline.Stages {
		timer.AddSamples(string(st), timings.Duration(st), timings.Count(st))
	}
	if _, err := fmt.Fprint(out, timer.Summary()); err != nil {
		panic(err)
	}
}
