package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kiosk-transaction-orchestrator/internal/domain/archive"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
)

const (
	// ArchiveCollectionName is the name of the archive collection in MongoDB
	ArchiveCollectionName = "transaction_archive"
)

// ArchiveRepository implements the archive.Repository interface for MongoDB
type ArchiveRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewArchiveRepository creates a new MongoDB archive repository
func NewArchiveRepository(logger *slog.Logger, db *mongo.Database) *ArchiveRepository {
	return &ArchiveRepository{
		db:     db,
		logger: logger,
	}
}

var _ archive.Repository = (*ArchiveRepository)(nil)

// Append folds one journal step into the transaction's record, creating the
// record on first sight. A step whose entry id is already recorded is a no-op.
func (r *ArchiveRepository) Append(ctx context.Context, snapshot transaction.Snapshot, transition archive.Transition) error {
	collection := r.db.Collection(ArchiveCollectionName)

	filter := bson.M{
		"_id":                  snapshot.TransactionID,
		"transitions.entry_id": bson.M{"$ne": transition.EntryID},
	}
	update := bson.M{
		"$set": bson.M{
			"type":       snapshot.Type,
			"state":      snapshot.State,
			"terminal":   snapshot.Terminal(),
			"snapshot":   snapshot,
			"updated_at": time.Now().UTC(),
		},
		"$push": bson.M{"transitions": transition},
	}

	_, err := collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// The filter misses an existing record that already holds this entry,
		// so the upsert collides on _id.
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Journal entry already archived",
				"transaction_id", snapshot.TransactionID,
				"entry_id", transition.EntryID)
			return nil
		}
		r.logger.Error("Failed to append archive transition",
			"transaction_id", snapshot.TransactionID,
			"entry_id", transition.EntryID,
			"error", err)
		return fmt.Errorf("failed to append archive transition: %w", err)
	}

	return nil
}

// Get retrieves the archive record of a transaction.
// Returns ErrRecordNotFound if nothing was archived for it.
func (r *ArchiveRepository) Get(ctx context.Context, transactionID string) (*archive.Record, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	var record archive.Record
	err := collection.FindOne(ctx, bson.M{"_id": transactionID}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, archive.ErrRecordNotFound{TransactionID: transactionID}
		}
		r.logger.Error("Failed to get archive record",
			"transaction_id", transactionID,
			"error", err)
		return nil, fmt.Errorf("failed to get archive record: %w", err)
	}

	return &record, nil
}

// ListFinished retrieves paginated records of terminal transactions,
// most recently finished first.
func (r *ArchiveRepository) ListFinished(ctx context.Context, limit, offset int) ([]*archive.Record, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, bson.M{"terminal": true}, opts)
	if err != nil {
		r.logger.Error("Failed to list archive records", "error", err)
		return nil, fmt.Errorf("failed to list archive records: %w", err)
	}
	defer cursor.Close(ctx)

	records := []*archive.Record{}
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode archive records", "error", err)
		return nil, fmt.Errorf("failed to decode archive records: %w", err)
	}

	return records, nil
}

// CountFinished counts archived terminal transactions
func (r *ArchiveRepository) CountFinished(ctx context.Context) (int64, error) {
	collection := r.db.Collection(ArchiveCollectionName)

	count, err := collection.CountDocuments(ctx, bson.M{"terminal": true})
	if err != nil {
		r.logger.Error("Failed to count archive records", "error", err)
		return 0, fmt.Errorf("failed to count archive records: %w", err)
	}

	return count, nil
}

// EnsureIndexes creates the index backing ListFinished
func (r *ArchiveRepository) EnsureIndexes(ctx context.Context) error {
	collection := r.db.Collection(ArchiveCollectionName)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "terminal", Value: 1}, {Key: "updated_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create archive indexes: %w", err)
	}
	return nil
}
