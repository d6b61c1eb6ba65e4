package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BartekS5/crmmigrate/pkg/models"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	DefaultBatchSize    = 100
	MaxBatchSize        = 1000
	DefaultBatchTimeout = 60 * time.Second
)

// BatchState is the lifecycle position of one batch.
type BatchState int

const (
	BatchPending BatchState = iota
	BatchInserting
	BatchRetryWait
	BatchSucceeded
	BatchFailed
)

func (s BatchState) String() string {
	switch s {
	case BatchPending:
		return "pending"
	case BatchInserting:
		return "inserting"
	case BatchRetryWait:
		return "retry_wait"
	case BatchSucceeded:
		return "succeeded"
	case BatchFailed:
		return "failed"
	default:
		return fmt.Sprintf("BatchState(%d)", int(s))
	}
}

// RetryPolicy bounds the attempts made for one batch.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy gives a batch five attempts spaced 0.5s, 1s, 2s and 4s
// apart, with jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
	}
}

func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.Multiplier = p.Multiplier
	exp.MaxElapsedTime = 0

	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}

// Partition splits rows into contiguous batches of at most size rows. The
// batches are disjoint and concatenate back to rows.
func Partition[T any](rows []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]T, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		batches = append(batches, rows[start:end:end])
	}
	return batches
}

// RecordFailure names one record that was not written.
type RecordFailure struct {
	SourceID string `json:"source_id" yaml:"source_id"`
	Batch    int    `json:"batch" yaml:"batch"`
	Error    string `json:"error" yaml:"error"`
}

// WriteResult summarises the batches written for one entity type.
type WriteResult struct {
	Attempted     int
	Succeeded     int
	Failed        int
	Skipped       int
	Batches       int
	BatchesFailed int
	Failures      []RecordFailure
	Aborted       bool
}

// BatchWriter writes rows through a Loader one batch at a time, retrying
// failed batches. A failed batch never stops the batches after it.
type BatchWriter[T models.Row] struct {
	Loader         Loader[T]
	Table          string
	BatchSize      int
	Retry          RetryPolicy
	BatchTimeout   time.Duration
	RecordFallback bool
	Log            *zap.Logger
}

// Write partitions rows and writes every batch in order. Once ctx is
// cancelled no new batch starts and the remaining rows are counted as
// skipped. A write already in flight is allowed to finish.
func (w *BatchWriter[T]) Write(ctx context.Context, rows []T) WriteResult {
	batches := Partition(rows, w.BatchSize)
	res := WriteResult{Batches: len(batches)}

	for i, batch := range batches {
		num := i + 1
		if ctx.Err() != nil {
			for _, rest := range batches[i:] {
				res.Skipped += len(rest)
			}
			res.Aborted = true
			w.Log.Warn("run cancelled, remaining batches skipped",
				zap.String("table", w.Table),
				zap.Int("next_batch", num),
				zap.Int("skipped", res.Skipped),
			)
			break
		}

		w.transition(num, BatchPending)
		res.Attempted += len(batch)

		attempts, err := w.writeBatch(ctx, num, batch)
		if err == nil {
			w.transition(num, BatchSucceeded)
			res.Succeeded += len(batch)
			continue
		}

		res.BatchesFailed++
		failed := &BatchWriteFailedError{Batch: num, Attempts: attempts, SourceIDs: sourceIDs(batch), Err: err}
		w.transition(num, BatchFailed)
		w.Log.Error("batch failed",
			zap.String("table", w.Table),
			zap.Int("batch", num),
			zap.Int("attempts", attempts),
			zap.Strings("source_ids", failed.SourceIDs),
			zap.Error(err),
		)

		if w.RecordFallback && ctx.Err() == nil {
			ok, failures := w.writeRecords(ctx, num, batch, failed)
			res.Succeeded += ok
			res.Failed += len(failures)
			res.Failures = append(res.Failures, failures...)
			continue
		}

		res.Failed += len(batch)
		for _, id := range failed.SourceIDs {
			res.Failures = append(res.Failures, RecordFailure{SourceID: id, Batch: num, Error: failed.Error()})
		}
	}

	if ctx.Err() != nil {
		res.Aborted = true
	}
	return res
}

// writeBatch makes up to Retry.MaxAttempts attempts at one batch and returns
// the number of attempts made.
func (w *BatchWriter[T]) writeBatch(ctx context.Context, num int, batch []T) (int, error) {
	var (
		attempts int
		lastErr  error
	)

	op := func() error {
		attempts++
		w.transition(num, BatchInserting)

		err := w.load(ctx, batch)
		if err == nil {
			return nil
		}
		bwErr := &BatchWriteError{Batch: num, Attempt: attempts, Err: err, Permanent: isPermanent(err)}
		lastErr = bwErr
		if bwErr.Permanent {
			return backoff.Permanent(bwErr)
		}
		return bwErr
	}

	notify := func(err error, wait time.Duration) {
		w.transition(num, BatchRetryWait)
		w.Log.Warn("batch write failed, retrying",
			zap.String("table", w.Table),
			zap.Int("batch", num),
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(op, w.Retry.newBackOff(ctx), notify)
	if err != nil && lastErr != nil && !errors.Is(err, lastErr) {
		// Cancelled while waiting to retry.
		err = fmt.Errorf("retry abandoned (%v): %w", err, lastErr)
	}
	return attempts, err
}

// writeRecords writes a failed batch one record at a time, one attempt each,
// so that only the records that really fail are reported.
func (w *BatchWriter[T]) writeRecords(ctx context.Context, num int, batch []T, cause error) (int, []RecordFailure) {
	var (
		ok       int
		failures []RecordFailure
	)
	for i, row := range batch {
		if ctx.Err() != nil {
			for _, rest := range batch[i:] {
				failures = append(failures, RecordFailure{SourceID: rest.SourceKey(), Batch: num, Error: cause.Error()})
			}
			break
		}
		if err := w.load(ctx, []T{row}); err != nil {
			w.Log.Error("record write failed",
				zap.String("table", w.Table),
				zap.Int("batch", num),
				zap.String("source_id", row.SourceKey()),
				zap.Error(err),
			)
			failures = append(failures, RecordFailure{SourceID: row.SourceKey(), Batch: num, Error: err.Error()})
			continue
		}
		ok++
	}
	w.Log.Info("batch written record by record",
		zap.String("table", w.Table),
		zap.Int("batch", num),
		zap.Int("succeeded", ok),
		zap.Int("failed", len(failures)),
	)
	return ok, failures
}

// load runs one Loader call detached from cancellation so an in-flight
// write completes and its outcome is known.
func (w *BatchWriter[T]) load(ctx context.Context, rows []T) error {
	timeout := w.BatchTimeout
	if timeout <= 0 {
		timeout = DefaultBatchTimeout
	}
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return w.Loader.Load(lctx, w.Table, rows)
}

func (w *BatchWriter[T]) transition(num int, s BatchState) {
	w.Log.Debug("batch state",
		zap.String("table", w.Table),
		zap.Int("batch", num),
		zap.Stringer("state", s),
	)
}

func sourceIDs[T models.Row](rows []T) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.SourceKey()
	}
	return ids
}
