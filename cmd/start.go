package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/edgeiot/zeppelin/internal/daemon"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the daemon in the foreground",
	Long: `Load the config file, start the metrics endpoint and every
configured pipeline, then block serving the control socket until a
shutdown signal (SIGTERM/SIGINT) or SIGHUP reload arrives.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStart(configFile, cmd.OutOrStdout())
	},
}

func runStart(configPath string, out io.Writer) error {
	d, err := daemon.New(configPath)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if err := d.Start(); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	fmt.Fprintln(out, "zeppelind started")
	return d.Run()
}
