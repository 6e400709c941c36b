package cmd

import (
	"context"
	"copier/internal/daemon"
	"copier/internal/db"
	"copier/internal/logger"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Copy every mapping once, then mirror changes until stopped",
	RunE:  runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	defer logger.Sync()

	logger.Log.Info("configuration loaded",
		zap.String("path", cfg.Path),
		zap.Int("copysets", len(cfg.Copysets)))

	copysets, err := cfg.Resolve()
	if err != nil {
		return err
	}

	histRepo, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	engine := daemon.NewEngine(cfg, copysets, histRepo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.StatusAddr != "" {
		srv := daemon.NewServer(engine, cfg.StatusAddr, histRepo)
		srv.Start()

		go func() {
			select {
			case <-srv.StopCh():
				logger.Log.Info("stop requested via API")
				stop()
			case <-ctx.Done():
			}
		}()

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(shutdownCtx)
		}()
	}

	if err := engine.Run(ctx); err != nil {
		logger.Log.Error("copier stopped with error", zap.Error(err))
		return err
	}

	logger.Log.Info("copier stopped")
	return nil
}

func init() {
	rootCmd.RunE = runDaemon
	rootCmd.AddCommand(watchCmd)
}
