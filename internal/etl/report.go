package etl

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultRejectSampleSize caps the field errors kept per entity report.
const DefaultRejectSampleSize = 20

// Rejection is a field mapping error kept as report data.
type Rejection struct {
	DocumentID string `json:"document_id" yaml:"document_id"`
	Field      string `json:"field" yaml:"field"`
	Reason     string `json:"reason" yaml:"reason"`
}

// EntityReport is the outcome of migrating one entity type.
// Attempted always equals Succeeded + Failed + Rejected, and equals Seen
// unless the run was aborted or dry, in which case Seen = Attempted + Skipped.
type EntityReport struct {
	Entity     string `json:"entity" yaml:"entity"`
	Collection string `json:"collection" yaml:"collection"`
	Table      string `json:"table" yaml:"table"`

	Seen        int `json:"seen" yaml:"seen"`
	Transformed int `json:"transformed" yaml:"transformed"`
	Rejected    int `json:"rejected" yaml:"rejected"`
	Attempted   int `json:"attempted" yaml:"attempted"`
	Succeeded   int `json:"succeeded" yaml:"succeeded"`
	Failed      int `json:"failed" yaml:"failed"`
	Skipped     int `json:"skipped" yaml:"skipped"`

	Rejections    []Rejection     `json:"rejections,omitempty" yaml:"rejections,omitempty"`
	FailedRecords []RecordFailure `json:"failed_records,omitempty" yaml:"failed_records,omitempty"`

	BatchesTotal  int `json:"batches_total" yaml:"batches_total"`
	BatchesFailed int `json:"batches_failed" yaml:"batches_failed"`

	SourceUnavailable bool   `json:"source_unavailable" yaml:"source_unavailable"`
	SourceError       string `json:"source_error,omitempty" yaml:"source_error,omitempty"`
	Aborted           bool   `json:"aborted" yaml:"aborted"`
	DryRun            bool   `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	ElapsedMS  int64     `json:"elapsed_ms" yaml:"elapsed_ms"`
}

func newEntityReport(entity, collection, table string, started time.Time) *EntityReport {
	return &EntityReport{Entity: entity, Collection: collection, Table: table, StartedAt: started}
}

// reject counts one rejected document and keeps up to limit field errors.
func (r *EntityReport) reject(docKey string, err error, limit int) {
	r.Rejected++
	r.Attempted++

	fieldErrs := FieldErrors(err)
	if len(fieldErrs) == 0 {
		fieldErrs = []*FieldMappingError{{DocumentID: docKey, Field: "", Reason: err.Error()}}
	}
	for _, fe := range fieldErrs {
		if len(r.Rejections) >= limit {
			return
		}
		r.Rejections = append(r.Rejections, Rejection{DocumentID: fe.DocumentID, Field: fe.Field, Reason: fe.Reason})
	}
}

func (r *EntityReport) applyWrite(res WriteResult) {
	r.Attempted += res.Attempted
	r.Succeeded += res.Succeeded
	r.Failed += res.Failed
	r.Skipped += res.Skipped
	r.BatchesTotal += res.Batches
	r.BatchesFailed += res.BatchesFailed
	r.FailedRecords = append(r.FailedRecords, res.Failures...)
	if res.Aborted {
		r.Aborted = true
	}
}

func (r *EntityReport) finish(at time.Time) {
	r.FinishedAt = at
	r.ElapsedMS = at.Sub(r.StartedAt).Milliseconds()
}

// Elapsed is the wall-clock time spent on the entity type.
func (r *EntityReport) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// OK reports whether every record read was either written or rejected.
func (r *EntityReport) OK() bool {
	return r.Failed == 0 && !r.SourceUnavailable && !r.Aborted
}

func (r *EntityReport) status() string {
	switch {
	case r.SourceUnavailable:
		return "SOURCE UNAVAILABLE"
	case r.Aborted:
		return "ABORTED"
	case r.DryRun:
		return "DRY RUN"
	case r.Failed > 0:
		return "FAILED"
	case r.Rejected > 0:
		return "OK (rejections)"
	default:
		return "OK"
	}
}

// RunReport is the summary of a whole run.
type RunReport struct {
	TenantID   string          `json:"tenant_id" yaml:"tenant_id"`
	DryRun     bool            `json:"dry_run" yaml:"dry_run"`
	StartedAt  time.Time       `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time       `json:"finished_at" yaml:"finished_at"`
	Entities   []*EntityReport `json:"entities" yaml:"entities"`
}

// Aborted reports whether the run was cancelled before it finished.
func (r *RunReport) Aborted() bool {
	for _, e := range r.Entities {
		if e.Aborted {
			return true
		}
	}
	return false
}

// ExitCode is 1 when any record failed to write, a source was unavailable
// or the run was cancelled. Rejected records alone do not fail a run.
func (r *RunReport) ExitCode() int {
	for _, e := range r.Entities {
		if !e.OK() {
			return 1
		}
	}
	return 0
}

// Entity returns the report for one entity type.
func (r *RunReport) Entity(name string) *EntityReport {
	for _, e := range r.Entities {
		if e.Entity == name {
			return e
		}
	}
	return nil
}

// Print writes the summary table.
func (r *RunReport) Print(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Migration summary (tenant %s)\n", r.TenantID)
	fmt.Fprintln(tw, "ENTITY\tSEEN\tREJECTED\tATTEMPTED\tSUCCEEDED\tFAILED\tSKIPPED\tBATCHES\tELAPSED\tSTATUS")
	for _, e := range r.Entities {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d/%d\t%s\t%s\n",
			e.Entity, e.Seen, e.Rejected, e.Attempted, e.Succeeded, e.Failed, e.Skipped,
			e.BatchesTotal-e.BatchesFailed, e.BatchesTotal,
			e.Elapsed().Round(time.Millisecond), e.status())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, e := range r.Entities {
		if e.SourceUnavailable {
			fmt.Fprintf(out, "\n%s: %s\n", e.Entity, e.SourceError)
		}
		if len(e.FailedRecords) > 0 {
			fmt.Fprintf(out, "\n%s: %d record(s) failed:\n", e.Entity, len(e.FailedRecords))
			for _, f := range e.FailedRecords {
				fmt.Fprintf(out, "  %s (batch %d): %s\n", f.SourceID, f.Batch, f.Error)
			}
		}
		if len(e.Rejections) > 0 {
			fmt.Fprintf(out, "\n%s: %d record(s) rejected", e.Entity, e.Rejected)
			if len(e.Rejections) < e.Rejected {
				fmt.Fprintf(out, " (showing %d field errors)", len(e.Rejections))
			}
			fmt.Fprintln(out, ":")
			for _, rej := range e.Rejections {
				fmt.Fprintf(out, "  %s: %s: %s\n", rej.DocumentID, rej.Field, rej.Reason)
			}
		}
	}
	return nil
}

// WriteFile saves the report as YAML for .yaml/.yml paths and JSON otherwise.
func (r *RunReport) WriteFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(r)
	default:
		data, err = json.MarshalIndent(r, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
