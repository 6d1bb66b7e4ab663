package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/edgeiot/zeppelin/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a zeppelin.json config file without starting the daemon",
	Long: `Load and validate the config file named by --config (or the default
path), printing a one-line summary per pipeline on success. Adapted from
the teacher's task-config validator, narrowed to this domain's pipeline
shape: source/destination broker class, not a SIP/RTP task profile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(configFile, cmd.OutOrStdout())
	},
}

func runValidate(configPath string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	fmt.Fprintf(out, "%s: valid, %d pipeline(s)\n", configPath, len(cfg.Pipelines))
	for _, p := range cfg.Pipelines {
		fmt.Fprintf(out, "  - %s (%s): %s -> %s\n",
			p.Name, p.Class, p.SourceBroker.Class, p.DestinationBroker.Class)
	}
	return nil
}
