package cmd

import (
	"context"
	"copier/internal/daemon"
	"copier/internal/db"
	"copier/internal/logger"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Copy every mapping once and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer logger.Sync()

		copysets, err := cfg.Resolve()
		if err != nil {
			return err
		}

		histRepo, err := openHistory()
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		summary, err := daemon.NewEngine(cfg, copysets, histRepo).SyncOnce(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("done: %d copied, %d unchanged, %d source absent, %d failed\n",
			summary.Copied, summary.Unchanged, summary.SourceAbsent, summary.Failed)

		if summary.Failed > 0 {
			return fmt.Errorf("%d mappings failed", summary.Failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
