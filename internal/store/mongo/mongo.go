// Package mongo stores registry records in MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vbonduro/productreg/internal/domain"
	"github.com/vbonduro/productreg/internal/store"
)

const collName = "products"

type product struct {
	Category      string    `bson:"category"`
	Model         string    `bson:"model"`
	SNumber       string    `bson:"sNumber"`
	DateOfInvoice string    `bson:"dateOfInvoice"`
	CreatedAt     time.Time `bson:"createdAt"`
}

// RecordStore implements store.Records on a MongoDB collection.
type RecordStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewRecordStore connects to uri, verifies the connection and ensures the
// unique serial number index.
func NewRecordStore(ctx context.Context, uri, dbName string) (*RecordStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	coll := client.Database(dbName).Collection(collName)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "sNumber", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create sNumber index: %w", err)
	}

	return &RecordStore{client: client, coll: coll}, nil
}

func (s *RecordStore) Create(ctx context.Context, rec domain.Record) error {
	_, err := s.coll.InsertOne(ctx, toDocument(rec, time.Now().UTC()))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", store.ErrDuplicate, rec.SNumber)
	}
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// List returns every record in insertion order.
func (s *RecordStore) List(ctx context.Context) ([]domain.Record, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	var docs []product
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	records := make([]domain.Record, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.record())
	}
	return records, nil
}

// Close closes the MongoDB connection.
func (s *RecordStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func toDocument(rec domain.Record, now time.Time) product {
	return product{
		Category:      rec.Category,
		Model:         rec.Model,
		SNumber:       rec.SNumber,
		DateOfInvoice: rec.DateOfInvoice,
		CreatedAt:     now,
	}
}

func (p product) record() domain.Record {
	return domain.Record{
		Category:      p.Category,
		Model:         p.Model,
		SNumber:       p.SNumber,
		DateOfInvoice: p.DateOfInvoice,
	}
}
