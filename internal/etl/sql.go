package etl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BartekS5/crmmigrate/pkg/models"
	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormLoader upserts batches of rows keyed on their id column. Each batch is
// written in one statement inside its own transaction.
type GormLoader[T models.Row] struct {
	DB *gorm.DB
}

func NewGormLoader[T models.Row](db *gorm.DB) *GormLoader[T] {
	return &GormLoader[T]{DB: db}
}

func (l *GormLoader[T]) Load(ctx context.Context, table string, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return l.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Table(table).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).
			Create(&rows).Error
	})
}

// SQL Server error numbers for integrity violations.
var mssqlConstraintErrors = map[int32]bool{
	515:  true, // NULL into NOT NULL column
	547:  true, // foreign key or check constraint
	2601: true, // duplicate key in unique index
	2627: true, // primary key or unique constraint
}

// isPermanent reports whether retrying a failed write cannot help.
// Integrity constraint violations fail the same way every time.
func isPermanent(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23")
	}
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return mssqlConstraintErrors[msErr.Number]
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated)
}

// TableCount is the number of tenant rows in one destination table.
type TableCount struct {
	Entity string `json:"entity" yaml:"entity"`
	Table  string `json:"table" yaml:"table"`
	Rows   int64  `json:"rows" yaml:"rows"`
}

// CountRows counts the tenant's rows in each task's destination table.
func CountRows(ctx context.Context, db *gorm.DB, tasks []models.MigrationTask, tenantID string) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(tasks))
	for _, t := range tasks {
		var n int64
		err := db.WithContext(ctx).Table(t.DestTable).Where("company_id = ?", tenantID).Count(&n).Error
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", t.DestTable, err)
		}
		counts = append(counts, TableCount{Entity: t.Entity, Table: t.DestTable, Rows: n})
	}
	return counts, nil
}
