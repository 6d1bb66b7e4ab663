package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgeiot/zeppelin/internal/command"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	Long: `Send a stop command to the running zeppelind daemon over its
control socket. The daemon stops every pipeline, closes the metrics
server, and exits cleanly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := command.NewUDSClient(resolveSocket(), 10*time.Second)
		return runStop(cmd.Context(), client, cmd.OutOrStdout())
	},
}

func runStop(ctx context.Context, client daemonClient, out io.Writer) error {
	resp, err := client.Stop(ctx)
	if err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("stop failed: %s", resp.Error.Message)
	}
	fmt.Fprintln(out, "zeppelind stopping")
	return nil
}
