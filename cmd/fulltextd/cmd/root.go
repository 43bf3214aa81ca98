// Package cmd provides the CLI commands for fulltextd.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fulltextd/pkg/version"
)

var configPath string

// NewRootCmd creates the root command for the fulltextd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fulltextd",
		Short: "Per-language full-text indexing and search daemon",
		Long: `fulltextd indexes content files into per-language full-text index
shards and serves ranked search with deep pagination over HTTP.

Content enters through a durable queue; background indexers drain it on a
schedule so searches always see a committed point-in-time view.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("fulltextd version {{.Version}}\n")
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to the YAML config file")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fulltextd.yaml"
	}
	return home + "/.fulltextd/config.yaml"
}
