package etl

import (
	"context"
	"fmt"

	"github.com/BartekS5/crmmigrate/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// DefaultPageSize is the number of documents fetched per source query.
const DefaultPageSize = 500

// MongoSource reads collections page by page using keyset pagination on
// _id. Identifiers in one collection are expected to share a BSON type; no
// snapshot is taken, so writes made during a read may or may not be seen.
type MongoSource struct {
	DB       *mongo.Database
	PageSize int
	Log      *zap.Logger
}

func NewMongoSource(db *mongo.Database, pageSize int, log *zap.Logger) *MongoSource {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &MongoSource{DB: db, PageSize: pageSize, Log: log}
}

// Read returns every document of the collection matching filter, sorted by _id.
func (m *MongoSource) Read(ctx context.Context, collection string, filter RecordFilter) ([]models.Document, error) {
	coll := m.DB.Collection(collection)
	findOpts := options.Find().
		SetSort(bson.D{{Key: models.IDField, Value: 1}}).
		SetLimit(int64(m.PageSize))

	var (
		docs   []models.Document
		lastID interface{}
		page   int
	)
	for {
		page++
		cursor, err := coll.Find(ctx, pageQuery(filter, lastID), findOpts)
		if err != nil {
			return nil, fmt.Errorf("find page %d of %s: %w", page, collection, err)
		}

		var batch []bson.M
		if err := cursor.All(ctx, &batch); err != nil {
			return nil, fmt.Errorf("decode page %d of %s: %w", page, collection, err)
		}

		for _, d := range batch {
			docs = append(docs, models.Document{Seq: len(docs), Fields: map[string]interface{}(d)})
		}
		m.Log.Debug("source page read",
			zap.String("collection", collection),
			zap.Int("page", page),
			zap.Int("documents", len(batch)),
		)

		if len(batch) < m.PageSize {
			break
		}
		lastID = batch[len(batch)-1][models.IDField]
	}
	return docs, nil
}

func pageQuery(filter RecordFilter, lastID interface{}) bson.D {
	var conds bson.A
	if len(filter.IDs) > 0 {
		conds = append(conds, bson.D{{Key: models.IDField, Value: bson.D{{Key: "$in", Value: idValues(filter.IDs)}}}})
	}
	if lastID != nil {
		conds = append(conds, bson.D{{Key: models.IDField, Value: bson.D{{Key: "$gt", Value: lastID}}}})
	}

	switch len(conds) {
	case 0:
		return bson.D{}
	case 1:
		return conds[0].(bson.D)
	default:
		return bson.D{{Key: "$and", Value: conds}}
	}
}

// idValues lists the stored forms an identifier may take. Hex strings that
// parse as ObjectIDs match both forms.
func idValues(ids []string) bson.A {
	vals := make(bson.A, 0, len(ids))
	for _, id := range ids {
		vals = append(vals, id)
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			vals = append(vals, oid)
		}
	}
	return vals
}
