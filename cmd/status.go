package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgeiot/zeppelin/internal/command"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report the running daemon's status",
	Long:  `Query the running zeppelind daemon over its control socket and print its pipeline status as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := command.NewUDSClient(resolveSocket(), 10*time.Second)
		return runStatus(cmd.Context(), client, cmd.OutOrStdout())
	},
}

func runStatus(ctx context.Context, client daemonClient, out io.Writer) error {
	resp, err := client.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to query status: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("status failed: %s", resp.Error.Message)
	}

	pretty, err := json.MarshalIndent(resp.Result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format status: %w", err)
	}
	fmt.Fprintln(out, string(pretty))
	return nil
}
