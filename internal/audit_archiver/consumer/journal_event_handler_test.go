package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kiosk-transaction-orchestrator/internal/audit_archiver/service"
	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// MockArchivingService for testing
type MockArchivingService struct {
	mock.Mock
}

func (m *MockArchivingService) Archive(ctx context.Context, entry *journal.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// MockDeadLetterPublisher for testing
type MockDeadLetterPublisher struct {
	mock.Mock
}

func (m *MockDeadLetterPublisher) PublishToDLQ(ctx context.Context, key string, value []byte, reason string) error {
	args := m.Called(ctx, key, value, reason)
	return args.Error(0)
}

func (m *MockDeadLetterPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestJournalEventHandler_HandleMessage(t *testing.T) {
	txID := uuid.New()
	entry, err := journal.NewEntry(txID, shared.StateAwaitingPayment, shared.StateCancelled, "STATE_CHANGE",
		map[string]string{"transaction_id": txID.String()})
	require.NoError(t, err)
	entry.ID = 7
	entry.Reason = "PAYMENT_TIMEOUT"

	validJSON, err := json.Marshal(entry)
	require.NoError(t, err)
	validMsg := kafka.Message{Key: []byte(txID.String()), Value: validJSON}
	garbageMsg := kafka.Message{Key: []byte("k"), Value: []byte("{not json")}

	matchesEntry := mock.MatchedBy(func(e *journal.Entry) bool {
		return e.ID == 7 && e.TransactionID == txID && e.Reason == "PAYMENT_TIMEOUT"
	})
	reasonPrefix := func(prefix string) interface{} {
		return mock.MatchedBy(func(r string) bool { return strings.HasPrefix(r, prefix) })
	}

	tests := []struct {
		name          string
		msg           kafka.Message
		setupMocks    func(svc *MockArchivingService, dlq *MockDeadLetterPublisher)
		expectedError string
	}{
		{
			name: "archived",
			msg:  validMsg,
			setupMocks: func(svc *MockArchivingService, dlq *MockDeadLetterPublisher) {
				svc.On("Archive", mock.Anything, matchesEntry).Return(nil).Once()
			},
		},
		{
			name: "unmarshal error goes to DLQ",
			msg:  garbageMsg,
			setupMocks: func(svc *MockArchivingService, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, "k", garbageMsg.Value,
					reasonPrefix("Failed to unmarshal journal entry")).Return(nil).Once()
			},
		},
		{
			name: "unmarshal error with DLQ failure is returned",
			msg:  garbageMsg,
			setupMocks: func(svc *MockArchivingService, dlq *MockDeadLetterPublisher) {
				dlq.On("PublishToDLQ", mock.Anything, "k", garbageMsg.Value, mock.Anything).
					Return(errors.New("dlq down")).Once()
			},
			expectedError: "Failed to unmarshal journal entry",
		},
		{
			name: "unarchivable entry goes to DLQ",
			msg:  validMsg,
			setupMocks: func(svc *MockArchivingService, dlq *MockDeadLetterPublisher) {
				svc.On("Archive", mock.Anything, matchesEntry).
					Return(fmt.Errorf("%w: bad payload", service.ErrUnarchivable)).Once()
				dlq.On("PublishToDLQ", mock.Anything, txID.String(), validJSON,
					reasonPrefix("Unarchivable journal entry")).Return(nil).Once()
			},
		},
		{
			name: "archive failure is retried",
			msg:  validMsg,
			setupMocks: func(svc *MockArchivingService, dlq *MockDeadLetterPublisher) {
				svc.On("Archive", mock.Anything, matchesEntry).Return(errors.New("mongo down")).Once()
			},
			expectedError: "archiving entry 7 failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockArchivingService{}
			dlq := &MockDeadLetterPublisher{}
			tt.setupMocks(svc, dlq)

			handler := NewJournalEventHandler(slog.Default(), svc, dlq)
			err := handler.HandleMessage(context.Background(), tt.msg)

			if tt.expectedError == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			}
			svc.AssertExpectations(t)
			dlq.AssertExpectations(t)
		})
	}
}

func TestJournalEventHandler_NoDLQ(t *testing.T) {
	handler := NewJournalEventHandler(slog.Default(), &MockArchivingService{}, nil)

	err := handler.HandleMessage(context.Background(), kafka.Message{Value: []byte("[]")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to unmarshal journal entry")
}
