package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"arm64gen/internal/prof"
)

func addProfileFlags(root *cobra.Command) {
	root.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	root.PersistentFlags().String("mem-profile", "", "write a heap profile to this file on exit")
	root.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to this file")
}

// setupProfiling enables the profilers requested on the command line. The
// returned cleanup is safe to call more than once.
func setupProfiling(cmd *cobra.Command) (func(), error) {
	root := cmd.Root()
	var p prof.Paths
	var err error
	if p.CPU, err = root.PersistentFlags().GetString("cpu-profile"); err != nil {
		return nil, fmt.Errorf("failed to get cpu-profile flag: %w", err)
	}
	if p.Mem, err = root.PersistentFlags().GetString("mem-profile"); err != nil {
		return nil, fmt.Errorf("failed to get mem-profile flag: %w", err)
	}
	if p.RuntimeTrace, err = root.PersistentFlags().GetString("runtime-trace"); err != nil {
		return nil, fmt.Errorf("failed to get runtime-trace flag: %w", err)
	}
	if p == (prof.Paths{}) {
		return func() {}, nil
	}
	session, err := prof.Start(p)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := session.Stop(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "profile: %v\n", err)
		}
	}, nil
}
