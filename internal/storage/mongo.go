package storage

import (
	"context"
	"errors"
	"fmt"
	"moex-scraper/internal/moex"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// MongoBackend keeps one collection per location inside a single database
// (`moex` by default). writes drop and recreate the collection.
type MongoBackend struct {
	creds MongoCredentials
}

func (MongoBackend) Kind() Kind { return KindMongo }

func (b MongoBackend) Connect(ctx context.Context) (Session, error) {
	opts := options.Client().
		ApplyURI(b.creds.URI()).
		SetServerSelectionTimeout(b.creds.Timeout).
		SetConnectTimeout(b.creds.Timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, ConnectionError{Kind: KindMongo, Err: err}
	}

	// mongo.Connect does not talk to the server, the ping surfaces
	// unreachable hosts and bad credentials.
	err = client.Ping(ctx, readpref.Primary())
	if err != nil {
		return nil, ConnectionError{Kind: KindMongo, Err: errors.Join(err, client.Disconnect(ctx))}
	}

	return &mongoSession{
		client: client,
		db:     client.Database(b.creds.Database),
	}, nil
}

type mongoSession struct {
	client *mongo.Client
	db     *mongo.Database
}

// mongoDocument numbers documents through _id so reads can restore the write order.
type mongoDocument struct {
	Seq int      `bson:"_id"`
	Doc document `bson:",inline"`
}

func (s *mongoSession) exists(ctx context.Context, location string) (bool, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: location}})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

func (s *mongoSession) Write(ctx context.Context, location string, records []moex.IndexRecord) error {
	ctx, span := tracer.Start(ctx, "mongo:Write")
	defer span.End()
	span.SetAttributes(attribute.String("location", location), attribute.Int("records", len(records)))

	err := validateLocation(location)
	if err != nil {
		return err
	}

	err = s.replace(ctx, location, toDocuments(records))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write location")
		return fmt.Errorf("write %s: %w", location, err)
	}
	return nil
}

func (s *mongoSession) replace(ctx context.Context, location string, docs []document) error {
	exists, err := s.exists(ctx, location)
	if err != nil {
		return err
	}
	if exists {
		err = s.db.Collection(location).Drop(ctx)
		if err != nil {
			return fmt.Errorf("drop: %w", err)
		}
	}

	// created explicitly so an empty record set still marks the location as written
	err = s.db.CreateCollection(ctx, location)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}

	items := make([]any, len(docs))
	for i, doc := range docs {
		items[i] = mongoDocument{Seq: i, Doc: doc}
	}
	_, err = s.db.Collection(location).InsertMany(ctx, items, options.InsertMany().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

func (s *mongoSession) Read(ctx context.Context, location string) ([]moex.IndexRecord, error) {
	ctx, span := tracer.Start(ctx, "mongo:Read")
	defer span.End()
	span.SetAttributes(attribute.String("location", location))

	err := validateLocation(location)
	if err != nil {
		return nil, err
	}

	exists, err := s.exists(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	if !exists {
		return nil, LocationNotFoundError{Location: location}
	}

	cursor, err := s.db.Collection(location).Find(
		ctx,
		bson.D{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}

	// decoding into document drops _id
	docs := []document{}
	err = cursor.All(ctx, &docs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "corrupt location")
		return nil, CorruptDataError{Location: location, Err: err}
	}
	return fromDocuments(location, docs)
}

func (s *mongoSession) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
