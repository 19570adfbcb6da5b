package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const mongoCollection = "documents"

// MongoDBBackend stores documents in a single collection keyed by name.
type MongoDBBackend struct {
	uri    string
	dbName string
	client *mongo.Client
	coll   *mongo.Collection
}

type mongoDocument struct {
	ID        string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// NewMongoDBBackend creates a MongoDB storage backend
func NewMongoDBBackend(uri, dbName string) *MongoDBBackend {
	return &MongoDBBackend{uri: uri, dbName: dbName}
}

func (m *MongoDBBackend) Initialize(ctx context.Context) error {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(m.uri))
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("ping mongodb: %w", err)
	}

	m.client = client
	m.coll = client.Database(m.dbName).Collection(mongoCollection)
	return nil
}

func (m *MongoDBBackend) Close() error {
	if m.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

func (m *MongoDBBackend) Health(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("mongodb backend not initialized")
	}
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *MongoDBBackend) GetDocument(ctx context.Context, name string) ([]byte, error) {
	var doc mongoDocument
	err := m.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, &ErrNotFound{Key: name}
		}
		return nil, fmt.Errorf("get document %s: %w", name, err)
	}
	return doc.Data, nil
}

func (m *MongoDBBackend) SetDocument(ctx context.Context, name string, data []byte) error {
	doc := mongoDocument{ID: name, Data: data, UpdatedAt: time.Now().UTC()}
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set document %s: %w", name, err)
	}
	return nil
}

func (m *MongoDBBackend) DeleteDocument(ctx context.Context, name string) error {
	if _, err := m.coll.DeleteOne(ctx, bson.M{"_id": name}); err != nil {
		return fmt.Errorf("delete document %s: %w", name, err)
	}
	return nil
}
