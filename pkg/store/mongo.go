package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/hierarchy"
)

// MongoStore keeps hierarchies in a MongoDB collection, one document per
// name with the canonical JSON as payload.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoRecord struct {
	Name      string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoStore connects to MongoDB and uses the "hierarchies" collection
// of the given database. The connection is verified with a ping.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(database).Collection("hierarchies"),
	}, nil
}

// Get retrieves a hierarchy by name.
func (s *MongoStore) Get(ctx context.Context, name string) (*hierarchy.Hierarchy, error) {
	if err := rerr.ValidateID(name); err != nil {
		return nil, err
	}
	var rec mongoRecord
	err := s.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, rerr.New(rerr.ErrCodeUnknownID, "hierarchy %q is not stored", name)
	}
	if err != nil {
		return nil, err
	}
	return hierarchy.Unmarshal(rec.Data)
}

// Set stores a hierarchy under a name, replacing any previous version.
func (s *MongoStore) Set(ctx context.Context, name string, h *hierarchy.Hierarchy) error {
	if err := rerr.ValidateID(name); err != nil {
		return err
	}
	data, err := hierarchy.Marshal(h)
	if err != nil {
		return err
	}
	rec := mongoRecord{Name: name, Data: data, UpdatedAt: time.Now().UTC()}
	_, err = s.coll.ReplaceOne(ctx, bson.M{"_id": name}, rec, options.Replace().SetUpsert(true))
	return err
}

// Delete removes a stored hierarchy. Deleting a missing name is not an error.
func (s *MongoStore) Delete(ctx context.Context, name string) error {
	if err := rerr.ValidateID(name); err != nil {
		return err
	}
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": name})
	return err
}

// List returns the stored names in sorted order.
func (s *MongoStore) List(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var names []string
	for cursor.Next(ctx) {
		var rec struct {
			Name string `bson:"_id"`
		}
		if err := cursor.Decode(&rec); err != nil {
			return nil, err
		}
		names = append(names, rec.Name)
	}
	return names, cursor.Err()
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ensure MongoStore implements Store.
var _ Store = (*MongoStore)(nil)
