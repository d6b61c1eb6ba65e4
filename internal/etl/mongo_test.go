package etl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"
)

func TestMongoSource_Read(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("pages until a short page", func(mt *mtest.T) {
		ns := mt.DB.Name() + ".copper_people"
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "p-1"}, {Key: "name", Value: "Ada"}},
				bson.D{{Key: "_id", Value: "p-2"}, {Key: "name", Value: "Grace"}},
			),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "p-3"}, {Key: "name", Value: "Linus"}},
			),
		)

		src := NewMongoSource(mt.DB, 2, zap.NewNop())
		got, err := src.Read(context.Background(), "copper_people", RecordFilter{})
		require.NoError(mt, err)

		require.Len(mt, got, 3)
		for i, d := range got {
			assert.Equal(mt, i, d.Seq)
		}
		assert.Equal(mt, "p-1", got[0].Key())
		assert.Equal(mt, "Linus", got[2].Fields["name"])

		started := mt.GetAllStartedEvents()
		require.Len(mt, started, 2)
		first := started[0].Command.Lookup("filter").Document()
		_, err = first.LookupErr("_id")
		assert.Error(mt, err, "the first page has no lower bound")

		second := started[1].Command.Lookup("filter", "_id", "$gt").StringValue()
		assert.Equal(mt, "p-2", second)
		assert.Equal(mt, int64(2), started[1].Command.Lookup("limit").AsInt64())
	})

	mt.Run("empty collection", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".copper_leads", mtest.FirstBatch))

		got, err := NewMongoSource(mt.DB, 0, zap.NewNop()).Read(context.Background(), "copper_leads", RecordFilter{})
		require.NoError(mt, err)
		assert.Empty(mt, got)
	})

	mt.Run("command error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "not authorized on crm",
		}))

		_, err := NewMongoSource(mt.DB, 10, zap.NewNop()).Read(context.Background(), "copper_tasks", RecordFilter{})
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "find page 1 of copper_tasks")

		var cmdErr mongo.CommandError
		assert.ErrorAs(mt, err, &cmdErr)
	})
}

func TestPageQuery(t *testing.T) {
	assert.Equal(t, bson.D{}, pageQuery(RecordFilter{}, nil))

	after := pageQuery(RecordFilter{}, "p-9")
	assert.Equal(t, bson.D{{Key: "_id", Value: bson.D{{Key: "$gt", Value: "p-9"}}}}, after)

	oid := primitive.NewObjectID()
	both := pageQuery(RecordFilter{IDs: []string{oid.Hex(), "legacy-7"}}, oid)
	require.Len(t, both, 1)
	assert.Equal(t, "$and", both[0].Key)
	conds := both[0].Value.(bson.A)
	require.Len(t, conds, 2)

	in := conds[0].(bson.D)[0].Value.(bson.D)[0].Value.(bson.A)
	assert.Equal(t, bson.A{oid.Hex(), oid, "legacy-7"}, in)
}
