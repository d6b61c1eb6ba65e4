package etl

import (
	"context"

	"github.com/BartekS5/crmmigrate/pkg/models"
)

// Source enumerates the documents of a collection in identifier order.
type Source interface {
	Read(ctx context.Context, collection string, filter RecordFilter) ([]models.Document, error)
}

// Loader writes one batch of rows atomically.
type Loader[T models.Row] interface {
	Load(ctx context.Context, table string, rows []T) error
}

// TransformFunc maps a source document to a destination row.
type TransformFunc[T models.Row] func(doc models.Document, s Scope) (T, error)

// Job migrates one entity type.
type Job interface {
	Entity() string
	Run(ctx context.Context) *EntityReport
}

// RecordFilter narrows a read to specific source identifiers. The zero value
// reads everything.
type RecordFilter struct {
	IDs []string
}
