// Package bootstrap opens the backends shared by the server and the admin CLI.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/config"
	"github.com/mamadbah2/hotelerp/internal/repository"
	"github.com/mamadbah2/hotelerp/internal/repository/memory"
	"github.com/mamadbah2/hotelerp/internal/repository/mongodb"
	"github.com/mamadbah2/hotelerp/internal/repository/sheets"
	"github.com/mamadbah2/hotelerp/internal/service/reporting"
)

// OpenStore connects the configured storage driver.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStore(), nil
	case "mongodb":
		repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName, logger.Named("repo.mongodb"))
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}

// OpenSheets returns the Google Sheets writer, or nil when the export is not configured.
func OpenSheets(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (reporting.SheetWriter, error) {
	if !cfg.Enabled() {
		logger.Info("google sheets export disabled")
		return nil, nil
	}
	repo, err := sheets.NewReportSheet(ctx, cfg, logger.Named("repo.sheets"))
	if err != nil {
		return nil, err
	}
	return repo, nil
}
