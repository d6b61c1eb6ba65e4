package etl

import (
	"fmt"
	"time"

	"github.com/BartekS5/crmmigrate/pkg/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options are the run settings shared by every job.
type Options struct {
	BatchSize        int
	Retry            RetryPolicy
	BatchTimeout     time.Duration
	RecordFallback   bool
	RejectSampleSize int
	DryRun           bool
	Filter           RecordFilter
}

// NewMigration wires a job for one entity type around any loader.
func NewMigration[T models.Row](
	task models.MigrationTask,
	src Source,
	loader Loader[T],
	transform TransformFunc[T],
	scope Scope,
	opts Options,
	clock func() time.Time,
	log *zap.Logger,
) *Migration[T] {
	sample := opts.RejectSampleSize
	if sample <= 0 {
		sample = DefaultRejectSampleSize
	}
	return &Migration[T]{
		Task:      task,
		Source:    src,
		Filter:    opts.Filter,
		Transform: transform,
		Writer: &BatchWriter[T]{
			Loader:         loader,
			Table:          task.DestTable,
			BatchSize:      opts.BatchSize,
			Retry:          opts.Retry,
			BatchTimeout:   opts.BatchTimeout,
			RecordFallback: opts.RecordFallback,
			Log:            log.With(zap.String("entity", task.Entity)),
		},
		Scope:      scope,
		DryRun:     opts.DryRun,
		SampleSize: sample,
		Clock:      clock,
		Log:        log,
	}
}

// NewJobs builds the jobs for the selected tasks, writing through gorm.
func NewJobs(
	tasks []models.MigrationTask,
	src Source,
	db *gorm.DB,
	scope Scope,
	opts Options,
	clock func() time.Time,
	log *zap.Logger,
) ([]Job, error) {
	jobs := make([]Job, 0, len(tasks))
	for _, t := range tasks {
		var job Job
		switch t.Entity {
		case models.EntityPeople:
			job = NewMigration[*models.Person](t, src, NewGormLoader[*models.Person](db), TransformPerson, scope, opts, clock, log)
		case models.EntityTasks:
			job = NewMigration[*models.Task](t, src, NewGormLoader[*models.Task](db), TransformTask, scope, opts, clock, log)
		case models.EntityOpportunities:
			job = NewMigration[*models.Opportunity](t, src, NewGormLoader[*models.Opportunity](db), TransformOpportunity, scope, opts, clock, log)
		case models.EntityLeads:
			job = NewMigration[*models.Lead](t, src, NewGormLoader[*models.Lead](db), TransformLead, scope, opts, clock, log)
		default:
			return nil, fmt.Errorf("no migration registered for entity %q", t.Entity)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
