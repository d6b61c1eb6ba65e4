package etl

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/BartekS5/crmmigrate/pkg/models"
	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPartition(t *testing.T) {
	rows := make([]int, 250)
	for i := range rows {
		rows[i] = i
	}

	batches := Partition(rows, 100)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 100)
	assert.Len(t, batches[1], 100)
	assert.Len(t, batches[2], 50)

	// Disjoint and complete: concatenation gives the input back in order.
	var joined []int
	for _, b := range batches {
		joined = append(joined, b...)
	}
	assert.Equal(t, rows, joined)

	assert.Empty(t, Partition([]int{}, 100))
	assert.Len(t, Partition(rows, 0), 3, "non-positive size falls back to the default")
	assert.Len(t, Partition(rows[:7], 3), 3)
}

func TestBatchWriter_AllSucceed(t *testing.T) {
	loader := newMemLoader[*models.Person]()
	w := newTestWriter[*models.Person](loader, 100, fastRetry(3))

	res := w.Write(context.Background(), people(t, 250))

	assert.Equal(t, 250, res.Attempted)
	assert.Equal(t, 250, res.Succeeded)
	assert.Zero(t, res.Failed)
	assert.Equal(t, 3, res.Batches)
	assert.Zero(t, res.BatchesFailed)
	assert.False(t, res.Aborted)
	assert.Equal(t, 250, loader.count())
}

func TestBatchWriter_PartialFailureIsolation(t *testing.T) {
	loader := newMemLoader[*models.Person]()
	loader.fail = func(_ context.Context, _ int, rows []*models.Person) error {
		if rows[0].SourceID == "p-021" {
			return errors.New("connection reset by peer")
		}
		return nil
	}
	w := newTestWriter[*models.Person](loader, 10, fastRetry(3))

	res := w.Write(context.Background(), people(t, 100))

	assert.Equal(t, 100, res.Attempted)
	assert.Equal(t, 90, res.Succeeded)
	assert.Equal(t, 10, res.Failed)
	assert.Equal(t, 10, res.Batches)
	assert.Equal(t, 1, res.BatchesFailed)
	require.Len(t, res.Failures, 10)
	for i, f := range res.Failures {
		assert.Equal(t, 3, f.Batch)
		assert.Equal(t, fmt.Sprintf("p-%03d", 21+i), f.SourceID)
		assert.Contains(t, f.Error, "connection reset by peer")
	}

	// Batches 4 to 10 were still written.
	assert.Equal(t, 90, loader.count())
	require.Len(t, loader.batches, 9)
	assert.Equal(t, "p-031", loader.batches[2][0])
	assert.Equal(t, "p-091", loader.batches[8][0])
}

func TestBatchWriter_RetriesUntilSuccess(t *testing.T) {
	loader := newMemLoader[*models.Person]()
	loader.fail = func(_ context.Context, call int, _ []*models.Person) error {
		if call < 3 {
			return errors.New("deadlock detected")
		}
		return nil
	}
	w := newTestWriter[*models.Person](loader, 100, fastRetry(5))

	res := w.Write(context.Background(), people(t, 20))

	assert.Equal(t, 20, res.Succeeded)
	assert.Zero(t, res.Failed)
	assert.Equal(t, 3, loader.calls)
}

func TestBatchWriter_GivesUpAfterMaxAttempts(t *testing.T) {
	loader := newMemLoader[*models.Person]()
	loader.fail = func(context.Context, int, []*models.Person) error {
		return errors.New("timeout")
	}
	w := newTestWriter[*models.Person](loader, 100, fastRetry(4))

	res := w.Write(context.Background(), people(t, 5))

	assert.Equal(t, 4, loader.calls)
	assert.Equal(t, 5, res.Failed)
	require.Len(t, res.Failures, 5)
	assert.Contains(t, res.Failures[0].Error, "after 4 attempt(s)")
}

func TestBatchWriter_PermanentErrorIsNotRetried(t *testing.T) {
	loader := newMemLoader[*models.Person]()
	loader.fail = func(context.Context, int, []*models.Person) error {
		return fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", Message: "duplicate key value"})
	}
	w := newTestWriter[*models.Person](loader, 100, fastRetry(5))

	res := w.Write(context.Background(), people(t, 3))

	assert.Equal(t, 1, loader.calls)
	assert.Equal(t, 3, res.Failed)
	assert.Contains(t, res.Failures[0].Error, "permanent")
}

func TestBatchWriter_RecordFallback(t *testing.T) {
	loader := newMemLoader[*models.Person]()
	loader.fail = func(_ context.Context, _ int, rows []*models.Person) error {
		for _, r := range rows {
			if r.SourceID == "p-004" {
				return &pgconn.PgError{Code: "23502", Message: "null value in column"}
			}
		}
		return nil
	}
	w := newTestWriter[*models.Person](loader, 5, fastRetry(2))
	w.RecordFallback = true

	res := w.Write(context.Background(), people(t, 10))

	assert.Equal(t, 10, res.Attempted)
	assert.Equal(t, 9, res.Succeeded)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.BatchesFailed)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, "p-004", res.Failures[0].SourceID)
	assert.Equal(t, 1, res.Failures[0].Batch)
	assert.Equal(t, 9, loader.count())
}

func TestBatchWriter_CancelLetsInFlightBatchFinish(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var loadCtxErr error
	loader := newMemLoader[*models.Person]()
	loader.fail = func(lctx context.Context, call int, _ []*models.Person) error {
		if call == 2 {
			cancel()
			loadCtxErr = lctx.Err()
		}
		return nil
	}
	w := newTestWriter[*models.Person](loader, 10, fastRetry(3))

	res := w.Write(ctx, people(t, 50))

	require.NoError(t, loadCtxErr, "the in-flight write must not see the cancellation")
	assert.True(t, res.Aborted)
	assert.Equal(t, 20, res.Attempted)
	assert.Equal(t, 20, res.Succeeded)
	assert.Equal(t, 30, res.Skipped)
	assert.Equal(t, 2, loader.calls)
}

func TestBatchWriter_CancelDuringBackoffFailsBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loader := newMemLoader[*models.Person]()
	loader.fail = func(context.Context, int, []*models.Person) error {
		cancel()
		return errors.New("server closed the connection")
	}
	w := newTestWriter[*models.Person](loader, 10, RetryPolicy{
		MaxAttempts:     5,
		InitialInterval: time.Minute,
		MaxInterval:     time.Minute,
		Multiplier:      2,
	})

	start := time.Now()
	res := w.Write(ctx, people(t, 30))

	assert.Less(t, time.Since(start), 10*time.Second)
	assert.Equal(t, 1, loader.calls)
	assert.True(t, res.Aborted)
	assert.Equal(t, 10, res.Attempted)
	assert.Equal(t, 10, res.Failed)
	assert.Equal(t, 20, res.Skipped)
	require.NotEmpty(t, res.Failures)
	assert.Contains(t, res.Failures[0].Error, "retry abandoned")
	assert.Contains(t, res.Failures[0].Error, "server closed the connection")
}

func TestBatchWriter_ContextAlreadyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loader := newMemLoader[*models.Person]()
	w := newTestWriter[*models.Person](loader, 10, fastRetry(3))

	res := w.Write(ctx, people(t, 25))

	assert.Zero(t, loader.calls)
	assert.Zero(t, res.Attempted)
	assert.Equal(t, 25, res.Skipped)
	assert.True(t, res.Aborted)
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"pg not null violation wrapped", fmt.Errorf("batch: %w", &pgconn.PgError{Code: "23502"}), true},
		{"pg serialization failure", &pgconn.PgError{Code: "40001"}, false},
		{"mssql primary key", mssql.Error{Number: 2627}, true},
		{"mssql foreign key", mssql.Error{Number: 547}, true},
		{"mssql deadlock", mssql.Error{Number: 1205}, false},
		{"gorm duplicated key", gorm.ErrDuplicatedKey, true},
		{"network", errors.New("i/o timeout"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPermanent(tt.err))
		})
	}
}

func TestBatchStateString(t *testing.T) {
	assert.Equal(t, "retry_wait", BatchRetryWait.String())
	assert.Equal(t, "failed", BatchFailed.String())
	assert.Equal(t, "BatchState(42)", BatchState(42).String())
}
