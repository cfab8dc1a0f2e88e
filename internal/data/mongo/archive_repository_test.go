package mongo

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/kiosk-transaction-orchestrator/internal/domain/archive"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func sampleSnapshot(state string) transaction.Snapshot {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return transaction.Snapshot{
		TransactionID:    uuid.NewString(),
		Type:             "bill-to-bill",
		State:            state,
		Phase:            "NORMAL",
		TargetAmount:     100,
		Fee:              10,
		TotalDue:         110,
		AmountToDispense: 100,
		InsertCurrency:   "PHP",
		DispenseCurrency: "PHP",
		Deadline:         now.Add(time.Minute),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func recordDoc(t *testing.T, record archive.Record) bson.D {
	t.Helper()
	raw, err := bson.Marshal(record)
	require.NoError(t, err)
	var doc bson.D
	require.NoError(t, bson.Unmarshal(raw, &doc))
	return doc
}

func TestArchiveRepository_Append(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	transition := archive.Transition{EntryID: 4, From: "DISPENSING", To: "COMPLETED", EventType: "TRANSACTION_STATE_CHANGED", At: time.Now().UTC()}

	mt.Run("upserts record", func(mt *mtest.T) {
		repo := NewArchiveRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		err := repo.Append(context.Background(), sampleSnapshot("COMPLETED"), transition)
		assert.NoError(t, err)
	})

	mt.Run("redelivered entry is ignored", func(mt *mtest.T) {
		repo := NewArchiveRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		err := repo.Append(context.Background(), sampleSnapshot("COMPLETED"), transition)
		assert.NoError(t, err)
	})

	mt.Run("command failure", func(mt *mtest.T) {
		repo := NewArchiveRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    91,
			Message: "shutdown in progress",
			Name:    "ShutdownInProgress",
		}))

		err := repo.Append(context.Background(), sampleSnapshot("COMPLETED"), transition)
		assert.ErrorContains(t, err, "failed to append archive transition")
	})
}

func TestArchiveRepository_Get(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "kiosk." + ArchiveCollectionName

	mt.Run("found", func(mt *mtest.T) {
		repo := NewArchiveRepository(newTestLogger(), mt.DB)
		snap := sampleSnapshot("CANCELLED")
		record := archive.Record{
			TransactionID: snap.TransactionID,
			ServiceType:   snap.Type,
			State:         snap.State,
			Terminal:      true,
			Snapshot:      snap,
			Transitions: []archive.Transition{
				{EntryID: 1, To: "CREATED", EventType: "TRANSACTION_STATE_CHANGED", At: snap.CreatedAt},
				{EntryID: 2, From: "CREATED", To: "CANCELLED", EventType: "TRANSACTION_STATE_CHANGED", Reason: "CANCELLED_BY_USER", At: snap.UpdatedAt},
			},
			UpdatedAt: snap.UpdatedAt,
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, recordDoc(t, record)))

		got, err := repo.Get(context.Background(), snap.TransactionID)
		require.NoError(t, err)
		assert.Equal(t, snap.TransactionID, got.TransactionID)
		assert.True(t, got.Terminal)
		assert.Len(t, got.Transitions, 2)
		assert.Equal(t, "CANCELLED_BY_USER", got.Transitions[1].Reason)
		assert.Equal(t, int64(110), got.Snapshot.TotalDue)
	})

	mt.Run("not archived", func(mt *mtest.T) {
		repo := NewArchiveRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.Get(context.Background(), "missing")
		assert.Equal(t, archive.ErrRecordNotFound{TransactionID: "missing"}, err)
	})
}

func TestArchiveRepository_ListFinished(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "kiosk." + ArchiveCollectionName

	mt.Run("returns page", func(mt *mtest.T) {
		repo := NewArchiveRepository(newTestLogger(), mt.DB)
		a, b := sampleSnapshot("COMPLETED"), sampleSnapshot("FAILED")
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			recordDoc(t, archive.Record{TransactionID: a.TransactionID, State: a.State, Terminal: true, Snapshot: a}),
			recordDoc(t, archive.Record{TransactionID: b.TransactionID, State: b.State, Terminal: true, Snapshot: b}),
		))

		records, err := repo.ListFinished(context.Background(), 10, 0)
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "FAILED", records[1].State)
	})

	mt.Run("empty", func(mt *mtest.T) {
		repo := NewArchiveRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		records, err := repo.ListFinished(context.Background(), 10, 0)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	mt.Run("count", func(mt *mtest.T) {
		repo := NewArchiveRepository(newTestLogger(), mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(3)}}))

		count, err := repo.CountFinished(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})
}
