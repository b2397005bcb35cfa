package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/pumpschedule/internal/domain/models"
	"github.com/mamadbah2/pumpschedule/internal/domain/repositories"
)

// DefaultCollection is the collection used when none is configured.
const DefaultCollection = "bombeios"

// MongoDBRepository implements repositories.EntryRepository for MongoDB.
type MongoDBRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

var _ repositories.EntryRepository = (*MongoDBRepository)(nil)

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri, dbName, collName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if collName == "" {
		collName = DefaultCollection
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	coll := client.Database(dbName).Collection(collName)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "start", Value: 1}}},
		{Keys: bson.D{{Key: "company", Value: 1}, {Key: "product", Value: 1}, {Key: "start", Value: -1}}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create mongodb indexes: %w", err)
	}

	logger.Info("mongodb repository ready", zap.String("db", dbName), zap.String("collection", collName))
	return &MongoDBRepository{
		client:     client,
		collection: coll,
		logger:     logger,
	}, nil
}

// Insert stores a new document keyed by a generated identity.
func (r *MongoDBRepository) Insert(ctx context.Context, entry models.ScheduleEntry) (string, error) {
	entry.ID = uuid.NewString()
	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return "", fmt.Errorf("failed to insert schedule entry: %w", err)
	}
	return entry.ID, nil
}

// Replace swaps the whole document in a single write.
func (r *MongoDBRepository) Replace(ctx context.Context, id string, entry models.ScheduleEntry) error {
	entry.ID = id
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": id}, entry)
	if err != nil {
		return fmt.Errorf("failed to replace schedule entry %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Remove deletes the document.
func (r *MongoDBRepository) Remove(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete schedule entry %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// FindByID loads one document.
func (r *MongoDBRepository) FindByID(ctx context.Context, id string) (models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ScheduleEntry{}, models.ErrNotFound
	}
	if err != nil {
		return models.ScheduleEntry{}, fmt.Errorf("failed to load schedule entry %s: %w", id, err)
	}
	return entry, nil
}

// QueryByDate returns the documents starting in [from, to) in natural order.
func (r *MongoDBRepository) QueryByDate(ctx context.Context, from, to time.Time) ([]models.ScheduleEntry, error) {
	filter := bson.M{"start": bson.M{"$gte": from, "$lt": to}}
	cur, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule entries: %w", err)
	}
	defer func() { _ = cur.Close(ctx) }()

	out := []models.ScheduleEntry{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode schedule entries: %w", err)
	}
	return out, nil
}

// LatestStart returns the newest start recorded for the pair.
func (r *MongoDBRepository) LatestStart(ctx context.Context, company, product string) (time.Time, bool, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "start", Value: -1}}).
		SetProjection(bson.M{"start": 1})

	var doc struct {
		Start time.Time `bson:"start"`
	}
	err := r.collection.FindOne(ctx, bson.M{"company": company, "product": product}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to load latest start: %w", err)
	}
	return doc.Start, true, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
