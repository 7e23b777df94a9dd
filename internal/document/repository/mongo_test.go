package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/qgem/appcenter/backend/go-services/internal/apperr"
	"github.com/qgem/appcenter/backend/go-services/internal/config"
	"github.com/qgem/appcenter/backend/go-services/internal/database"
	"github.com/qgem/appcenter/backend/go-services/internal/document"
)

func newMockRepo(mt *mtest.T) (*MongoRepo, string) {
	conn := database.Attach(mt.Client, mt.DB.Name(), time.Second)
	repo := NewMongoRepo(conn, mt.Coll.Name())
	return repo, mt.DB.Name() + "." + mt.Coll.Name()
}

func TestMongoRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("save reports created on upsert insert", func(mt *mtest.T) {
		repo, _ := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: primitive.NewObjectID()}}}},
		))

		res, err := repo.Save(ctx, "a.json", json.RawMessage(`{"score":10,"tag":"$notAPath"}`))
		require.NoError(t, err)
		require.Equal(t, document.OperationCreated, res.Operation)
		require.Equal(t, "a.json", res.Filename)
		require.False(t, res.Timestamp.IsZero())

		ev := mt.GetStartedEvent()
		require.Equal(t, "update", ev.CommandName)
		upd := ev.Command.Lookup("updates").Array().Index(0).Value().Document()
		require.True(t, upd.Lookup("upsert").Boolean())
		require.Equal(t, "a.json", upd.Lookup("q", "filename").StringValue())
		// pipeline form, so createdAt/updatedAt are computed server side in one write
		require.Equal(t, bson.TypeArray, upd.Lookup("u").Type)
		set := upd.Lookup("u").Array().Index(0).Value().Document().Lookup("$set").Document()

		require.Equal(t, "a.json", set.Lookup("filename", "$literal").StringValue())

		data := set.Lookup("data", "$literal").Document()
		require.Equal(t, int32(10), data.Lookup("score").Int32())
		require.Equal(t, "$notAPath", data.Lookup("tag").StringValue())

		// createdAt keeps the stored value and falls back to now on insert
		ifNull := set.Lookup("createdAt", "$ifNull").Array()
		require.Equal(t, "$createdAt", ifNull.Index(0).Value().StringValue())
		require.True(t, res.Timestamp.Equal(ifNull.Index(1).Value().Time()))

		// updatedAt is max(now, previous+1ms), so it always moves forward
		maxExpr := set.Lookup("updatedAt", "$max").Array()
		require.True(t, res.Timestamp.Equal(maxExpr.Index(0).Value().Time()))
		add := maxExpr.Index(1).Value().Document().Lookup("$add").Array()
		require.Equal(t, "$updatedAt", add.Index(0).Value().StringValue())
		require.Equal(t, int64(1), add.Index(1).Value().AsInt64())

		require.Equal(t, int64(len(`{"score":10,"tag":"$notAPath"}`)), set.Lookup("size").AsInt64())
	})

	mt.Run("save keeps extended JSON lookalikes as plain fields", func(mt *mtest.T) {
		repo, _ := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		_, err := repo.Save(ctx, "ext.json", json.RawMessage(`{"d":{"$date":"not-a-date"},"o":{"$oid":"zzz"}}`))
		require.NoError(t, err)

		set := mt.GetStartedEvent().Command.Lookup("updates").Array().Index(0).Value().Document().
			Lookup("u").Array().Index(0).Value().Document().Lookup("$set").Document()
		require.Equal(t, "not-a-date", set.Lookup("data", "$literal", "d", "$date").StringValue())
		require.Equal(t, "zzz", set.Lookup("data", "$literal", "o", "$oid").StringValue())
	})

	mt.Run("save reports updated on match", func(mt *mtest.T) {
		repo, _ := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		res, err := repo.Save(ctx, "a.json", json.RawMessage(`[1,2,3]`))
		require.NoError(t, err)
		require.Equal(t, document.OperationUpdated, res.Operation)
	})

	mt.Run("save surfaces store errors as storage kind", func(mt *mtest.T) {
		repo, _ := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value", Name: "BadValue"}))

		_, err := repo.Save(ctx, "a.json", json.RawMessage(`{}`))
		require.Error(t, err)
		require.Equal(t, apperr.KindStorage, apperr.KindOf(err))
	})

	mt.Run("load returns payload and timestamps", func(mt *mtest.T) {
		repo, ns := newMockRepo(mt)
		created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
		updated := created.Add(time.Hour)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "filename", Value: "a.json"},
			{Key: "data", Value: bson.D{{Key: "ronda", Value: int32(2)}, {Key: "equipos", Value: bson.A{"rojo", "azul"}}, {Key: "ok", Value: true}}},
			{Key: "size", Value: int64(42)},
			{Key: "createdAt", Value: created},
			{Key: "updatedAt", Value: updated},
		}))

		d, err := repo.Load(ctx, "a.json")
		require.NoError(t, err)
		require.JSONEq(t, `{"ronda":2,"equipos":["rojo","azul"],"ok":true}`, string(d.Data))
		require.Equal(t, int64(42), d.Size)
		require.True(t, created.Equal(d.CreatedAt))
		require.True(t, updated.Equal(d.UpdatedAt))
	})

	mt.Run("load of unknown filename is not found", func(mt *mtest.T) {
		repo, ns := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.Load(ctx, "missing.json")
		require.True(t, apperr.IsNotFound(err))
	})

	mt.Run("list excludes payload and keeps store order", func(mt *mtest.T) {
		repo, ns := newMockRepo(mt)
		now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "filename", Value: "c.json"}, {Key: "size", Value: int64(3)}, {Key: "createdAt", Value: now}, {Key: "updatedAt", Value: now.Add(2 * time.Minute)}},
			bson.D{{Key: "filename", Value: "b.json"}, {Key: "size", Value: int64(2)}, {Key: "createdAt", Value: now}, {Key: "updatedAt", Value: now.Add(time.Minute)}},
		))

		files, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, files, 2)
		require.Equal(t, "c.json", files[0].Filename)
		require.Equal(t, "b.json", files[1].Filename)

		ev := mt.GetStartedEvent()
		require.Equal(t, "find", ev.CommandName)
		require.Equal(t, int32(0), ev.Command.Lookup("projection", "data").Int32())
		require.Equal(t, int32(-1), ev.Command.Lookup("sort", "updatedAt").Int32())
	})

	mt.Run("list on empty collection returns empty slice", func(mt *mtest.T) {
		repo, ns := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		files, err := repo.List(ctx)
		require.NoError(t, err)
		require.NotNil(t, files)
		require.Empty(t, files)
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo, _ := newMockRepo(mt)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)

		require.NoError(t, repo.Delete(ctx, "a.json"))
		err := repo.Delete(ctx, "a.json")
		require.True(t, apperr.IsNotFound(err), "repeated delete must report not found")
	})
}

func TestMongoRepo_NotConnected(t *testing.T) {
	repo := NewMongoRepo(database.NewConnector(config.MongoDBConfig{}), "datos_diarios")
	ctx := context.Background()

	_, err := repo.Save(ctx, "a.json", json.RawMessage(`{}`))
	require.Equal(t, apperr.KindNotConnected, apperr.KindOf(err))
	_, err = repo.Load(ctx, "a.json")
	require.Equal(t, apperr.KindNotConnected, apperr.KindOf(err))
	_, err = repo.List(ctx)
	require.Equal(t, apperr.KindNotConnected, apperr.KindOf(err))
	require.Equal(t, apperr.KindNotConnected, apperr.KindOf(repo.Delete(ctx, "a.json")))
	require.Equal(t, apperr.KindNotConnected, apperr.KindOf(repo.EnsureIndexes(ctx)))
}

func TestBSONRoundTrip(t *testing.T) {
	for _, in := range []string{
		`{"a":1,"b":[true,null,"x"],"c":{"d":"$e"}}`,
		`[{"n":1.5},{"n":-3}]`,
		`{}`,
		`[]`,
		`{"$numberLong":"5"}`,
		`{"n":{"$numberInt":"7"}}`,
		`{"d":{"$date":{"$numberLong":"0"}}}`,
		`{"d":{"$date":"not-a-date"}}`,
		`{"o":{"$oid":"zzz"}}`,
		`{"big":9007199254740993,"huger":123456789012345678901234567890,"neg":-2147483649}`,
		`{"f":1e300,"g":-0.000001,"h":2.5}`,
		`{"html":"<a href=\"x\">&</a>","uni":"\u00e9\u2028"}`,
	} {
		v, err := toBSON(json.RawMessage(in))
		require.NoError(t, err, in)

		typ, raw, err := bson.MarshalValue(v)
		require.NoError(t, err, in)
		out, err := fromBSON(bson.RawValue{Type: typ, Value: raw})
		require.NoError(t, err, in)
		require.JSONEq(t, in, string(out))
	}
}

func TestBSONRoundTrip_ExactNumbers(t *testing.T) {
	// JSONEq compares through float64, so check big integers textually
	in := `{"big":9007199254740993,"huger":123456789012345678901234567890}`
	v, err := toBSON(json.RawMessage(in))
	require.NoError(t, err)
	typ, raw, err := bson.MarshalValue(v)
	require.NoError(t, err)
	out, err := fromBSON(bson.RawValue{Type: typ, Value: raw})
	require.NoError(t, err)
	require.Equal(t, in, string(out))
}

func TestFromBSON_ForeignTypes(t *testing.T) {
	oid := primitive.NewObjectID()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	typ, raw, err := bson.MarshalValue(bson.D{{Key: "id", Value: oid}, {Key: "at", Value: at}})
	require.NoError(t, err)

	out, err := fromBSON(bson.RawValue{Type: typ, Value: raw})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"`+oid.Hex()+`","at":"2024-05-01T12:00:00Z"}`, string(out))
}
