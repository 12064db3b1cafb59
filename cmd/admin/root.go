package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/bootstrap"
	"github.com/mamadbah2/hotelerp/internal/config"
	"github.com/mamadbah2/hotelerp/internal/repository"
	"github.com/mamadbah2/hotelerp/pkg/logger"
)

// env is what every subcommand needs once the configuration is loaded.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	store  repository.Store
}

func (e *env) close() {
	if e.store != nil {
		if err := e.store.Close(context.Background()); err != nil {
			e.logger.Error("failed to close storage", zap.Error(err))
		}
	}
	_ = e.logger.Sync()
}

func newRootCmd() *cobra.Command {
	var envFile string
	e := &env{}

	root := &cobra.Command{
		Use:           "hotelerp-admin",
		Short:         "Administrative tasks for the hotel procurement backend",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Level)
			if err != nil {
				return err
			}
			store, err := bootstrap.OpenStore(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			e.cfg, e.logger, e.store = cfg, log, store
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			e.close()
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file")

	root.AddCommand(newSeedCmd(e))
	root.AddCommand(newExportLeakageCmd(e))
	root.AddCommand(newDailySnapshotCmd(e))
	return root
}
