// Package cmd implements the zeppelind CLI using cobra, grounded on the
// teacher's cmd/ package: a persistent --config/--socket flag pair and one
// subcommand per control-plane verb, each a thin wrapper over
// internal/command.UDSClient (or, for start, over internal/daemon.Daemon
// directly).
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/edgeiot/zeppelin/internal/config"
	"github.com/edgeiot/zeppelin/internal/daemon"
)

var (
	configFile string
	socketPath string
)

var rootCmd = &cobra.Command{
	Use:   "zeppelind",
	Short: "zeppelin edge/cloud message-normalization daemon",
	Long: `zeppelind ingests device-to-cloud and cloud-to-device events from
heterogeneous brokers, validates and normalizes them against domain
schemas, and re-publishes the result on a downstream broker while
preserving a CloudEvents 1.0 envelope.`,
	Version: daemon.Version,
}

// Execute runs the root command; called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.ConfigFilename(),
		"zeppelin.json config file path")
	rootCmd.PersistentFlags().StringVarP(&socketPath, "socket", "s", "",
		"control socket path (default: value from config, or "+daemonDefaultSocketHint+")")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(validateCmd)
}

const daemonDefaultSocketHint = "/var/run/zeppelin.sock"

func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}

// resolveSocket prefers the --socket flag, falling back to the value the
// daemon itself would use for the given config file.
func resolveSocket() string {
	if socketPath != "" {
		return socketPath
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return daemon.ControlSocketPath("")
	}
	return daemon.ControlSocketPath(cfg.Control.Socket)
}
