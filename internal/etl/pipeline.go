package etl

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Pipeline runs entity jobs one after another. Entity types never run
// concurrently.
type Pipeline struct {
	Jobs     []Job
	TenantID string
	DryRun   bool
	Clock    func() time.Time
	Log      *zap.Logger
}

func NewPipeline(jobs []Job, tenantID string, dryRun bool, clock func() time.Time, log *zap.Logger) *Pipeline {
	if clock == nil {
		clock = time.Now
	}
	return &Pipeline{
		Jobs:     jobs,
		TenantID: tenantID,
		DryRun:   dryRun,
		Clock:    clock,
		Log:      log,
	}
}

// Run executes every job and returns the summary. A failed or unavailable
// entity type does not stop the ones after it; cancellation does, and the
// jobs not started are reported as aborted.
func (p *Pipeline) Run(ctx context.Context) *RunReport {
	report := &RunReport{TenantID: p.TenantID, DryRun: p.DryRun, StartedAt: p.Clock()}
	p.Log.Info("Starting pipeline",
		zap.String("tenant", p.TenantID),
		zap.Int("entities", len(p.Jobs)),
		zap.Bool("dry_run", p.DryRun),
	)

	for _, job := range p.Jobs {
		if ctx.Err() != nil {
			now := p.Clock()
			rep := newEntityReport(job.Entity(), "", "", now)
			rep.Aborted = true
			rep.finish(now)
			report.Entities = append(report.Entities, rep)
			p.Log.Warn("run cancelled, entity not started", zap.String("entity", job.Entity()))
			continue
		}
		report.Entities = append(report.Entities, job.Run(ctx))
	}

	report.FinishedAt = p.Clock()
	if report.Aborted() {
		p.Log.Warn("Pipeline aborted", zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	} else {
		p.Log.Info("Pipeline finished", zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	}
	return report
}
