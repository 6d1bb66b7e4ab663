package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgeiot/zeppelin/internal/command"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload the running daemon's configuration",
	Long: `Ask the running zeppelind daemon to reload its config file.
Pipelines are rebuilt from the file on disk; a validation failure leaves
the previous, already-running pipeline set untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := command.NewUDSClient(resolveSocket(), 30*time.Second)
		return runReload(cmd.Context(), client, cmd.OutOrStdout())
	},
}

func runReload(ctx context.Context, client daemonClient, out io.Writer) error {
	resp, err := client.Reload(ctx)
	if err != nil {
		return fmt.Errorf("failed to reload: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("reload failed: %s", resp.Error.Message)
	}
	fmt.Fprintln(out, "configuration reloaded")
	return nil
}
