package cli

import (
	"fmt"
	"time"

	"github.com/BartekS5/crmmigrate/internal/config"
	"github.com/BartekS5/crmmigrate/internal/etl"
	"github.com/BartekS5/crmmigrate/pkg/database"
	"github.com/BartekS5/crmmigrate/pkg/logger"
	"github.com/BartekS5/crmmigrate/pkg/models"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RunFailedError is returned after the summary has been printed when the
// run did not migrate everything it read.
type RunFailedError struct {
	ExitCode int
	Aborted  bool
}

func (e *RunFailedError) Error() string {
	if e.Aborted {
		return "migration interrupted before completion"
	}
	return "migration finished with failures"
}

// setup loads configuration, the logger and the selected catalog tasks.
func setup(cmd *cobra.Command, global *GlobalOptions, entities []string, skipSource bool) (*config.Config, *zap.Logger, func() error, []models.MigrationTask, error) {
	cfg, err := config.Load(config.Options{ConfigFile: global.ConfigFile, Flags: cmd.Flags(), SkipSource: skipSource})
	if err != nil {
		return nil, nil, nil, nil, err
	}

	log, closeLog, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		File:    cfg.Log.File,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}

	catalog, err := config.LoadCatalog(cfg.Catalog)
	if err != nil {
		closeLog()
		return nil, nil, nil, nil, err
	}
	tasks, err := catalog.Select(entities)
	if err != nil {
		closeLog()
		return nil, nil, nil, nil, err
	}
	return cfg, log, closeLog, tasks, nil
}

func openDestination(cmd *cobra.Command, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	return database.OpenDestination(cmd.Context(), cfg.Dest.Driver, cfg.Dest.DSN,
		database.PoolConfig{
			MaxOpenConns:    cfg.Dest.MaxOpenConns,
			MaxIdleConns:    cfg.Dest.MaxIdleConns,
			ConnMaxLifetime: cfg.Dest.ConnMaxLifetime,
		},
		logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level)),
		log,
	)
}

func runMigration(cmd *cobra.Command, entities []string, opts *MigrateOptions) error {
	ctx := cmd.Context()

	// 1. Configuration, logging and entity selection
	cfg, log, closeLog, tasks, err := setup(cmd, opts.GlobalOptions, entities, false)
	if err != nil {
		return err
	}
	defer closeLog()

	// 2. Connections
	client, err := database.ConnectMongo(ctx, cfg.Source.URI, log)
	if err != nil {
		return err
	}
	defer database.DisconnectMongo(client, log)

	var db *gorm.DB
	if !cfg.DryRun {
		db, err = openDestination(cmd, cfg, log)
		if err != nil {
			return err
		}
		defer database.CloseDestination(db, log)
	}

	// 3. Jobs
	clock := time.Now
	scope := etl.Scope{TenantID: cfg.TenantID, ImportedAt: clock().UTC()}
	src := etl.NewMongoSource(client.Database(cfg.Source.Database), cfg.Source.PageSize, log)
	jobs, err := etl.NewJobs(tasks, src, db, scope, etl.Options{
		BatchSize: cfg.Batch.Size,
		Retry: etl.RetryPolicy{
			MaxAttempts:     cfg.Batch.MaxAttempts,
			InitialInterval: cfg.Batch.InitialInterval,
			MaxInterval:     cfg.Batch.MaxInterval,
			Multiplier:      cfg.Batch.Multiplier,
		},
		BatchTimeout:     cfg.Batch.Timeout,
		RecordFallback:   cfg.Batch.RecordFallback,
		RejectSampleSize: cfg.Report.RejectSample,
		DryRun:           cfg.DryRun,
		Filter:           etl.RecordFilter{IDs: opts.IDs},
	}, clock, log)
	if err != nil {
		return err
	}

	// 4. Run and report
	report := etl.NewPipeline(jobs, cfg.TenantID, cfg.DryRun, clock, log).Run(ctx)
	if err := report.Print(cmd.OutOrStdout()); err != nil {
		return err
	}
	if cfg.Report.File != "" {
		if err := report.WriteFile(cfg.Report.File); err != nil {
			return err
		}
		log.Info("report written", zap.String("path", cfg.Report.File))
	}

	if code := report.ExitCode(); code != 0 {
		return &RunFailedError{ExitCode: code, Aborted: report.Aborted()}
	}
	return nil
}

func runVerify(cmd *cobra.Command, entities []string, global *GlobalOptions) error {
	cfg, log, closeLog, tasks, err := setup(cmd, global, entities, true)
	if err != nil {
		return err
	}
	defer closeLog()

	db, err := openDestination(cmd, cfg, log)
	if err != nil {
		return err
	}
	defer database.CloseDestination(db, log)

	counts, err := etl.CountRows(cmd.Context(), db, tasks, cfg.TenantID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Row counts for tenant %s:\n", cfg.TenantID)
	for _, c := range counts {
		fmt.Fprintf(out, "  %-15s %-20s %d\n", c.Entity, c.Table, c.Rows)
	}
	return nil
}
