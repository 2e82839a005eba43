package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/i474232898/weather-monitor/internal/weather"
)

// MongoConfig locates the weather collection.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoStore persists records in a MongoDB collection.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

type recordDocument struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty"`
	weather.WeatherRecord `bson:",inline"`
}

func (d recordDocument) toRecord() weather.WeatherRecord {
	rec := d.WeatherRecord
	rec.ID = d.ID.Hex()
	rec.Timestamp = rec.Timestamp.UTC()
	return rec
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// EnsureIndexes creates the timestamp (descending) and location indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("timestamp_desc"),
		},
		{
			Keys:    bson.D{{Key: "location", Value: 1}},
			Options: options.Index().SetName("location_asc"),
		},
	})
	return weather.NewStorageError("ensure indexes", err)
}

func (s *MongoStore) Create(ctx context.Context, rec weather.WeatherRecord) (string, error) {
	res, err := s.coll.InsertOne(ctx, recordDocument{WeatherRecord: rec})
	if err != nil {
		return "", weather.NewStorageError("create", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", weather.NewStorageError("create", fmt.Errorf("unexpected inserted id type %T", res.InsertedID))
	}
	return oid.Hex(), nil
}

func (s *MongoStore) GetLatest(ctx context.Context, location string) (weather.WeatherRecord, error) {
	var doc recordDocument
	err := s.coll.FindOne(ctx,
		bson.M{"location": location},
		options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return weather.WeatherRecord{}, weather.ErrNotFound
	}
	if err != nil {
		return weather.WeatherRecord{}, weather.NewStorageError("get latest", err)
	}
	return doc.toRecord(), nil
}

func (s *MongoStore) GetHistory(ctx context.Context, q weather.HistoryQuery) ([]weather.WeatherRecord, error) {
	filter := bson.M{"location": q.Location}
	if q.Start != nil || q.End != nil {
		rng := bson.M{}
		if q.Start != nil {
			rng["$gte"] = q.Start.UTC()
		}
		if q.End != nil {
			rng["$lte"] = q.End.UTC()
		}
		filter["timestamp"] = rng
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetSkip(int64(q.Skip))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, weather.NewStorageError("get history", err)
	}
	var docs []recordDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, weather.NewStorageError("get history", err)
	}

	records := make([]weather.WeatherRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.toRecord())
	}
	return records, nil
}

func (s *MongoStore) CountRecords(ctx context.Context, location string) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"location": location})
	if err != nil {
		return 0, weather.NewStorageError("count records", err)
	}
	return n, nil
}

func (s *MongoStore) DeleteOlderThan(ctx context.Context, location string, cutoff time.Time) (int64, error) {
	res, err := s.coll.DeleteMany(ctx, bson.M{
		"location":  location,
		"timestamp": bson.M{"$lt": cutoff.UTC()},
	})
	if err != nil {
		return 0, weather.NewStorageError("delete older than", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return weather.NewStorageError("ping", s.client.Ping(ctx, readpref.Primary()))
}

// Close disconnects the client; in-flight operations must have finished.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
