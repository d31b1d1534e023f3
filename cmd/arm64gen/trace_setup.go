package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"arm64gen/internal/trace"
)

func addTraceFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.String("trace", "", "write trace events to a file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	flags.Int("trace-ring-size", trace.DefaultRingSize, "events kept in ring mode")
	flags.Duration("trace-heartbeat", 0, "emit a heartbeat event at this interval (0 disables)")
}

// setupTracing inspects trace-related flags and initializes the tracer.
// It returns a cleanup function and an error if initialization fails.
func setupTracing(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()

	traceOutput, err := root.PersistentFlags().GetString("trace")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace flag: %w", err)
	}
	levelStr, err := root.PersistentFlags().GetString("trace-level")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-level flag: %w", err)
	}
	modeStr, err := root.PersistentFlags().GetString("trace-mode")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-mode flag: %w", err)
	}
	ringSize, err := root.PersistentFlags().GetInt("trace-ring-size")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-ring-size flag: %w", err)
	}
	heartbeatInterval, err := root.PersistentFlags().GetDuration("trace-heartbeat")
	if err != nil {
		return nil, fmt.Errorf("failed to get trace-heartbeat flag: %w", err)
	}

	level, err := trace.ParseLevel(levelStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace level: %w", err)
	}
	// --trace без уровня включает фазы
	if level == trace.LevelOff && traceOutput != "" {
		level = trace.LevelPhase
	}
	if level == trace.LevelOff {
		cmd.SetContext(trace.WithTracer(cmd.Context(), trace.Nop))
		return func() {}, nil
	}

	mode, err := trace.ParseMode(modeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid trace mode: %w", err)
	}

	tracer, err := trace.New(trace.Config{
		Level:      level,
		Mode:       mode,
		OutputPath: traceOutput,
		RingSize:   ringSize,
		Heartbeat:  heartbeatInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tracer: %w", err)
	}
	activeTracer = tracer

	ctx := trace.WithTracer(cmd.Context(), tracer)
	cmd.SetContext(ctx)
	root.SetContext(ctx)

	driverSpan := trace.Begin(tracer, trace.ScopeDriver, "arm64gen "+cmd.Name(), 0)
	cmd.SetContext(trace.WithSpan(ctx, driverSpan))

	var heartbeat *trace.Heartbeat
	if heartbeatInterval > 0 {
		heartbeat = trace.StartHeartbeat(tracer, heartbeatInterval)
	}

	started := time.Now()
	cleanup := func() {
		if heartbeat != nil {
			heartbeat.Stop()
		}
		driverSpan.WithExtra("wall", time.Since(started).Round(time.Microsecond).String())
		driverSpan.End("")
		if err := tracer.Flush(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: flush error: %v\n", err)
		}
		if err := tracer.Close(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "trace: close error: %v\n", err)
		}
	}
	return cleanup, nil
}

// dumpTraceRing prints the in-memory events after a failed run.
func dumpTraceRing() {
	ring := trace.FindRing(activeTracer)
	if ring == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "trace: last events before the failure:")
	if err := ring.Dump(os.Stderr, trace.FormatText); err != nil {
		fmt.Fprintf(os.Stderr, "trace: dump error: %v\n", err)
	}
}
