package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/planmap/pkg/diagram"
)

// Mongo defaults.
const (
	DefaultMongoDatabase   = "planmap"
	DefaultMongoCollection = "diagrams"
)

// Mongo stores records as documents keyed by diagram id.
type Mongo struct {
	client *mongo.Client
	coll   *mongo.Collection
	owned  bool
}

// NewMongo wraps an existing collection. Close does not disconnect.
func NewMongo(coll *mongo.Collection) *Mongo {
	return &Mongo{client: coll.Database().Client(), coll: coll}
}

// DialMongo connects to uri and uses database/collection, falling back to
// the defaults when either is empty.
func DialMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if database == "" {
		database = DefaultMongoDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &Mongo{
		client: client,
		coll:   client.Database(database).Collection(DefaultMongoCollection),
		owned:  true,
	}, nil
}

func (m *Mongo) Create(ctx context.Context, p diagram.Params, spec diagram.Document) (diagram.Diagram, error) {
	rec, err := newRecord(p, spec)
	if err != nil {
		return diagram.Diagram{}, err
	}
	if _, err := m.coll.InsertOne(ctx, rec); err != nil {
		return diagram.Diagram{}, fmt.Errorf("insert diagram: %w", err)
	}
	return rec, nil
}

func (m *Mongo) Get(ctx context.Context, id string) (diagram.Diagram, error) {
	var rec diagram.Diagram
	err := m.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return diagram.Diagram{}, ErrNotFound
	}
	if err != nil {
		return diagram.Diagram{}, fmt.Errorf("find diagram: %w", err)
	}
	rec.Spec = rec.Spec.Clone()
	return rec, nil
}

func (m *Mongo) Update(ctx context.Context, id string, spec diagram.Document, rev int64) (diagram.Diagram, error) {
	filter := bson.M{"_id": id}
	update := bson.M{"$set": bson.M{"spec": spec}}
	if rev == 0 {
		update["$inc"] = bson.M{"revision": 1}
	} else {
		filter["revision"] = bson.M{"$lt": rev}
		update["$set"] = bson.M{"spec": spec, "revision": rev}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var rec diagram.Diagram
	err := m.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		// Either the id is unknown or the revision filter rejected it.
		n, cerr := m.coll.CountDocuments(ctx, bson.M{"_id": id})
		if cerr != nil {
			return diagram.Diagram{}, fmt.Errorf("update diagram: %w", cerr)
		}
		if n == 0 {
			return diagram.Diagram{}, ErrNotFound
		}
		return diagram.Diagram{}, ErrConflict
	}
	if err != nil {
		return diagram.Diagram{}, fmt.Errorf("update diagram: %w", err)
	}
	rec.Spec = rec.Spec.Clone()
	return rec, nil
}

func (m *Mongo) Close() error {
	if m.owned {
		return m.client.Disconnect(context.Background())
	}
	return nil
}

var _ Store = (*Mongo)(nil)
