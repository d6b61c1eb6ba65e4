package etl

import (
	"context"
	"errors"
	"time"

	"github.com/BartekS5/crmmigrate/pkg/models"
	"go.uber.org/zap"
)

// Migration reads, transforms and writes one entity type.
type Migration[T models.Row] struct {
	Task       models.MigrationTask
	Source     Source
	Filter     RecordFilter
	Transform  TransformFunc[T]
	Writer     *BatchWriter[T]
	Scope      Scope
	DryRun     bool
	SampleSize int
	Clock      func() time.Time
	Log        *zap.Logger
}

func (m *Migration[T]) Entity() string { return m.Task.Entity }

func (m *Migration[T]) Run(ctx context.Context) *EntityReport {
	log := m.Log.With(zap.String("entity", m.Task.Entity))
	rep := newEntityReport(m.Task.Entity, m.Task.SourceCollection, m.Task.DestTable, m.Clock())
	rep.DryRun = m.DryRun
	defer func() { rep.finish(m.Clock()) }()

	log.Info("migration started",
		zap.String("collection", m.Task.SourceCollection),
		zap.String("table", m.Task.DestTable),
	)

	// 1. Extract
	docs, err := m.Source.Read(ctx, m.Task.SourceCollection, m.Filter)
	if err != nil {
		if ctx.Err() != nil {
			rep.Aborted = true
			log.Warn("run cancelled while reading source", zap.Error(err))
			return rep
		}
		var su *SourceUnavailableError
		if !errors.As(err, &su) {
			su = &SourceUnavailableError{Entity: m.Task.Entity, Collection: m.Task.SourceCollection, Err: err}
		}
		rep.SourceUnavailable = true
		rep.SourceError = su.Error()
		log.Error("source unavailable, entity skipped", zap.Error(su))
		return rep
	}
	rep.Seen = len(docs)
	log.Info("source read", zap.Int("documents", len(docs)))

	// 2. Transform
	rows := make([]T, 0, len(docs))
	for _, doc := range docs {
		row, err := m.Transform(doc, m.Scope)
		if err != nil {
			rep.reject(doc.Key(), err, m.SampleSize)
			log.Warn("record rejected",
				zap.String("document_id", doc.Key()),
				zap.String("problems", describeFieldErrors(FieldErrors(err))),
			)
			continue
		}
		rows = append(rows, row)
	}
	rep.Transformed = len(rows)

	// 3. Load (skipped on dry runs)
	if m.DryRun {
		rep.Skipped = len(rows)
		rep.BatchesTotal = len(Partition(rows, m.Writer.BatchSize))
		log.Info("[DRY RUN] would write records",
			zap.Int("records", len(rows)),
			zap.Int("batches", rep.BatchesTotal),
		)
		return rep
	}

	rep.applyWrite(m.Writer.Write(ctx, rows))
	log.Info("migration finished",
		zap.Int("seen", rep.Seen),
		zap.Int("succeeded", rep.Succeeded),
		zap.Int("failed", rep.Failed),
		zap.Int("rejected", rep.Rejected),
		zap.Int("skipped", rep.Skipped),
	)
	return rep
}
