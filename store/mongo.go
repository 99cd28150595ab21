package store

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// parentField keys the flattened sub-collection hierarchy inside a
// MongoDB collection: the full parent document path, "" for top-level
// documents. "conversations/u1_u2/messages" maps to the "messages"
// collection with parentField "conversations/u1_u2".
const parentField = "_parent"

// pollInterval is the fallback re-query cadence when change streams
// are unavailable (standalone mongod without a replica set).
const pollInterval = time.Second

// Mongo implements Store on a MongoDB database. Live subscriptions use
// change streams when the deployment supports them and fall back to
// poll-and-diff otherwise; either way subscribers see the same
// full-relist contract.
type Mongo struct {
	db  *mongo.Database
	log *logrus.Logger
}

func NewMongo(db *mongo.Database, log *logrus.Logger) *Mongo {
	return &Mongo{db: db, log: log}
}

func (s *Mongo) split(collectionPath string) (coll *mongo.Collection, parent string) {
	segs := strings.Split(collectionPath, "/")
	name := segs[len(segs)-1]
	parent = strings.Join(segs[:len(segs)-1], "/")
	return s.db.Collection(name), parent
}

func (s *Mongo) Get(ctx context.Context, path string) (Doc, error) {
	collection, id, err := SplitDocPath(path)
	if err != nil {
		return Doc{}, err
	}
	coll, parent := s.split(collection)

	var raw bson.M
	err = coll.FindOne(ctx, bson.M{"_id": id, parentField: parent}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return Doc{}, ErrNotFound
	}
	if err != nil {
		return Doc{}, err
	}
	return docFromRaw(raw), nil
}

func (s *Mongo) Set(ctx context.Context, path string, fields Fields) error {
	collection, id, err := SplitDocPath(path)
	if err != nil {
		return err
	}
	coll, parent := s.split(collection)

	set := bson.M{parentField: parent}
	for k, v := range fields {
		set[k] = v
	}

	opts := options.Update().SetUpsert(true)
	_, err = coll.UpdateOne(ctx, bson.M{"_id": id, parentField: parent}, bson.M{"$set": set}, opts)
	return err
}

func (s *Mongo) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	if !ValidCollectionPath(collection) {
		return "", ErrBadPath
	}
	id := primitive.NewObjectID().Hex()
	if err := s.Set(ctx, collection+"/"+id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Mongo) Delete(ctx context.Context, path string) error {
	collection, id, err := SplitDocPath(path)
	if err != nil {
		return err
	}
	coll, parent := s.split(collection)

	_, err = coll.DeleteOne(ctx, bson.M{"_id": id, parentField: parent})
	return err
}

func (s *Mongo) Query(ctx context.Context, q Query) ([]Doc, error) {
	if !ValidCollectionPath(q.Collection) {
		return nil, ErrBadPath
	}
	coll, parent := s.split(q.Collection)

	filter := bson.M{parentField: parent}
	for k, v := range q.Equals {
		filter[k] = v
	}
	for k, v := range q.ArrayContains {
		// Equality against an array field matches any element.
		filter[k] = v
	}

	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: dir}})
	} else {
		opts.SetSort(bson.D{{Key: "_id", Value: 1}})
	}

	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []Doc
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		docs = append(docs, docFromRaw(raw))
	}
	return docs, cursor.Err()
}

func (s *Mongo) Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (Handle, error) {
	if !ValidCollectionPath(q.Collection) {
		return nil, ErrBadPath
	}

	initial, err := s.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	fn(initial)

	subCtx, cancel := context.WithCancel(ctx)
	go s.deliver(subCtx, q, fn, initial)

	return &mongoHandle{cancel: cancel}, nil
}

type mongoHandle struct {
	once   sync.Once
	cancel context.CancelFunc
}

func (h *mongoHandle) Cancel() {
	h.once.Do(h.cancel)
}

// deliver re-runs the query and pushes the full result set after every
// change in the underlying collection.
func (s *Mongo) deliver(ctx context.Context, q Query, fn SnapshotFunc, last []Doc) {
	coll, _ := s.split(q.Collection)

	stream, err := coll.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		s.log.WithError(err).WithField("collection", q.Collection).
			Debug("change stream unavailable, polling")
		s.pollLoop(ctx, q, fn, last)
		return
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		docs, err := s.Query(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.WithError(err).WithField("collection", q.Collection).
				Warn("live query refresh failed, subscription terminated")
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		fn(docs)
	}
}

func (s *Mongo) pollLoop(ctx context.Context, q Query, fn SnapshotFunc, last []Doc) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		docs, err := s.Query(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.WithError(err).WithField("collection", q.Collection).
				Warn("poll query failed, subscription terminated")
			return
		}
		if reflect.DeepEqual(docs, last) {
			continue
		}
		last = docs
		fn(docs)
	}
}

func docFromRaw(raw bson.M) Doc {
	doc := Doc{Fields: make(Fields, len(raw))}
	for k, v := range raw {
		switch k {
		case "_id":
			if id, ok := v.(string); ok {
				doc.ID = id
			} else if oid, ok := v.(primitive.ObjectID); ok {
				doc.ID = oid.Hex()
			}
		case parentField:
		default:
			doc.Fields[k] = normalizeValue(v)
		}
	}
	return doc
}

// normalizeValue maps BSON wrapper types back to the plain Go values
// the engine writes, so decoders see one shape regardless of backend.
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.ObjectID:
		return val.Hex()
	case primitive.A:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case bson.M:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}
