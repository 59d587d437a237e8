package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"freestylecal/internal/bootstrap/config"
	"freestylecal/internal/bootstrap/logging"
	"freestylecal/internal/errs"
	"freestylecal/internal/infrastructure/metrics"
	"freestylecal/internal/infrastructure/persistence/sqlite/model"
	"freestylecal/internal/ports"
	"freestylecal/internal/usecase/aggregation"
	"freestylecal/internal/usecase/catalog"
)

type App struct {
	Config      config.Config
	DB          *gorm.DB
	Events      ports.EventRepository
	Aggregation *aggregation.Service
	Catalog     *catalog.Service
	Metrics     *metrics.Recorder
}

// InitSchema creates or upgrades the tables. It is safe to run repeatedly.
func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	logging.Debug(logCtx, "start schema migration")

	if err := a.DB.WithContext(ctx).AutoMigrate(model.All()...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}

	logging.Debug(logCtx, "schema migration completed")
	return nil
}

// ExportTargets lists the configured export files.
func (a *App) ExportTargets() []aggregation.ExportTarget {
	var targets []aggregation.ExportTarget
	if a.Config.Export.CSVPath != "" {
		targets = append(targets, aggregation.ExportTarget{Path: a.Config.Export.CSVPath, Format: aggregation.FormatCSV})
	}
	if a.Config.Export.XLSXPath != "" {
		targets = append(targets, aggregation.ExportTarget{Path: a.Config.Export.XLSXPath, Format: aggregation.FormatXLSX})
	}
	if a.Config.Export.PDFPath != "" {
		targets = append(targets, aggregation.ExportTarget{Path: a.Config.Export.PDFPath, Format: aggregation.FormatPDF})
	}
	return targets
}

func (a *App) Close(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	sqlDB, err := a.DB.DB()
	if err != nil {
		return errs.Wrap(err, "get sql db")
	}

	if err := sqlDB.Close(); err != nil {
		return errs.Wrap(err, "close sql db")
	}

	logging.Info(logging.WithAttrs(ctx, slog.String("component", "bootstrap.app")), "database connection closed")
	return nil
}
