package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/fulltextd/internal/config"
	"github.com/Aman-CERP/fulltextd/internal/daemon"
	"github.com/Aman-CERP/fulltextd/internal/logging"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var addr string
	var mode string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the indexing and search daemon",
		Long: `Start the HTTP API, the scheduled queue indexers and, when
configured, the filesystem watcher. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if mode != "" {
				cfg.Indexer.Mode = config.IndexerMode(mode)
			}

			log, cleanup, err := logging.Setup(cfg.Logging)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return daemon.New(cfg, log).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&mode, "mode", "", "Indexer mode: parallel or serial (overrides config)")
	return cmd
}
