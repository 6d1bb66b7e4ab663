// Package main is the entry point for the zeppelin message-normalization
// daemon and its control CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/edgeiot/zeppelin/cmd"
	"github.com/edgeiot/zeppelin/internal/zeppelinerr"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a start failure to spec.md §6's exit codes: 1
// config/init failure, 2 pipeline init failure, 3 pipeline start failure.
// Any other error (e.g. a control-plane subcommand failing to reach the
// daemon) exits 1.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, zeppelinerr.ErrPipelineStartFailed):
		return 3
	case errors.Is(err, zeppelinerr.ErrPipelineInitFailed):
		return 2
	default:
		return 1
	}
}
