package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/qgem/appcenter/backend/go-services/internal/apperr"
	"github.com/qgem/appcenter/backend/go-services/internal/document"
)

// CollectionProvider hands out collection handles from a connected store.
// *database.Connector implements it.
type CollectionProvider interface {
	Collection(name string) (*mongo.Collection, error)
}

// MongoRepo implements DocumentRepository on a single MongoDB collection
// keyed by a unique "filename" field.
type MongoRepo struct {
	conn       CollectionProvider
	collection string
	now        func() time.Time
}

func NewMongoRepo(conn CollectionProvider, collection string) *MongoRepo {
	return &MongoRepo{conn: conn, collection: collection, now: time.Now}
}

// record is the stored shape; data stays raw BSON until it is turned back into JSON.
type record struct {
	Filename  string        `bson:"filename"`
	Data      bson.RawValue `bson:"data"`
	Size      int64         `bson:"size"`
	CreatedAt time.Time     `bson:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

func (m *MongoRepo) col() (*mongo.Collection, error) {
	return m.conn.Collection(m.collection)
}

// EnsureIndexes creates the unique filename index and the listing index.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	col, err := m.col()
	if err != nil {
		return err
	}
	_, err = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "filename", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
	})
	if err != nil {
		return apperr.Storage("ensure-indexes", "", err)
	}
	return nil
}

// toBSON converts a JSON payload into a BSON value, preserving key order.
// It walks plain JSON tokens, so keys such as "$date" or "$numberLong" stay
// ordinary fields. Integers become int32/int64 (Decimal128 past int64),
// other numbers float64.
func toBSON(data json.RawMessage) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after payload")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			doc := bson.D{}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", kt)
				}
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				doc = append(doc, bson.E{Key: key, Value: v})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return doc, nil
		case '[':
			arr := bson.A{}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		return bsonNumber(t.String())
	case string, bool:
		return t, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func bsonNumber(s string) (interface{}, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			if i >= math.MinInt32 && i <= math.MaxInt32 {
				return int32(i), nil
			}
			return i, nil
		}
		if d, err := primitive.ParseDecimal128(s); err == nil {
			return d, nil
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	d, err := primitive.ParseDecimal128(s)
	if err != nil {
		return nil, fmt.Errorf("number %s out of range", s)
	}
	return d, nil
}

// fromBSON renders a stored BSON value as plain JSON. Documents written by
// other tools may hold dates or ObjectIDs; those render as strings.
func fromBSON(v bson.RawValue) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v bson.RawValue) error {
	switch v.Type {
	case bson.TypeEmbeddedDocument:
		elems, err := v.Document().Elements()
		if err != nil {
			return err
		}
		buf.WriteByte('{')
		for i, e := range elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeString(buf, e.Key()); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeJSON(buf, e.Value()); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case bson.TypeArray:
		vals, err := v.Array().Values()
		if err != nil {
			return err
		}
		buf.WriteByte('[')
		for i, e := range vals {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, e); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case bson.TypeString:
		return writeString(buf, v.StringValue())
	case bson.TypeInt32:
		buf.WriteString(strconv.FormatInt(int64(v.Int32()), 10))
	case bson.TypeInt64:
		buf.WriteString(strconv.FormatInt(v.Int64(), 10))
	case bson.TypeDouble:
		f := v.Double()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			buf.WriteString("null")
		} else {
			buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		}
	case bson.TypeDecimal128:
		d := v.Decimal128()
		if d.IsNaN() || d.IsInf() != 0 {
			buf.WriteString("null")
		} else {
			buf.WriteString(d.String())
		}
	case bson.TypeBoolean:
		buf.WriteString(strconv.FormatBool(v.Boolean()))
	case bson.TypeNull, bson.TypeUndefined, 0:
		buf.WriteString("null")
	case bson.TypeDateTime:
		return writeString(buf, v.Time().UTC().Format(time.RFC3339Nano))
	case bson.TypeObjectID:
		return writeString(buf, v.ObjectID().Hex())
	default:
		// binary, regex, timestamp and friends: relaxed extended JSON
		out, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, false, false)
		if err != nil {
			return err
		}
		var w struct {
			V json.RawMessage `json:"v"`
		}
		if err := json.Unmarshal(out, &w); err != nil {
			return err
		}
		buf.Write(w.V)
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func (m *MongoRepo) Save(ctx context.Context, filename string, data json.RawMessage) (*document.SaveResult, error) {
	col, err := m.col()
	if err != nil {
		return nil, err
	}
	value, err := toBSON(data)
	if err != nil {
		return nil, apperr.E(apperr.KindValidation, "save", filename, fmt.Errorf("payload: %w", err))
	}
	now := m.now().UTC().Truncate(time.Millisecond)

	// One pipeline upsert: createdAt only on insert, updatedAt never moves
	// backwards or repeats, data replaced wholesale. $literal keeps "$"
	// strings in the filename or payload from being read as field paths.
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "filename", Value: bson.D{{Key: "$literal", Value: filename}}},
			{Key: "data", Value: bson.D{{Key: "$literal", Value: value}}},
			{Key: "size", Value: int64(len(data))},
			{Key: "createdAt", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$createdAt", now}}}},
			{Key: "updatedAt", Value: bson.D{{Key: "$max", Value: bson.A{
				now,
				bson.D{{Key: "$add", Value: bson.A{"$updatedAt", 1}}},
			}}}},
		}}},
	}
	filter := bson.M{"filename": filename}
	opts := options.Update().SetUpsert(true)

	res, err := col.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		// two concurrent inserts raced on the unique index; the loser is now an update
		res, err = col.UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return nil, apperr.Storage("save", filename, err)
	}

	op := document.OperationUpdated
	if res.UpsertedCount > 0 {
		op = document.OperationCreated
	}
	return &document.SaveResult{Filename: filename, Operation: op, Timestamp: now}, nil
}

func (m *MongoRepo) Load(ctx context.Context, filename string) (*document.Document, error) {
	col, err := m.col()
	if err != nil {
		return nil, err
	}
	var rec record
	if err := col.FindOne(ctx, bson.M{"filename": filename}).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.NotFound("load", filename)
		}
		return nil, apperr.Storage("load", filename, err)
	}
	data, err := fromBSON(rec.Data)
	if err != nil {
		return nil, apperr.Storage("load", filename, fmt.Errorf("decode payload: %w", err))
	}
	return &document.Document{
		Filename:  rec.Filename,
		Data:      data,
		Size:      rec.Size,
		CreatedAt: rec.CreatedAt.UTC(),
		UpdatedAt: rec.UpdatedAt.UTC(),
	}, nil
}

func (m *MongoRepo) List(ctx context.Context) ([]document.FileInfo, error) {
	col, err := m.col()
	if err != nil {
		return nil, err
	}
	opts := options.Find().
		SetProjection(bson.M{"_id": 0, "data": 0}).
		SetSort(bson.D{{Key: "updatedAt", Value: -1}, {Key: "filename", Value: 1}})
	cur, err := col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, apperr.Storage("list", "", err)
	}
	out := []document.FileInfo{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Storage("list", "", err)
	}
	for i := range out {
		out[i].CreatedAt = out[i].CreatedAt.UTC()
		out[i].UpdatedAt = out[i].UpdatedAt.UTC()
	}
	return out, nil
}

func (m *MongoRepo) Delete(ctx context.Context, filename string) error {
	col, err := m.col()
	if err != nil {
		return err
	}
	res, err := col.DeleteOne(ctx, bson.M{"filename": filename})
	if err != nil {
		return apperr.Storage("delete", filename, err)
	}
	if res.DeletedCount == 0 {
		return apperr.NotFound("delete", filename)
	}
	return nil
}
