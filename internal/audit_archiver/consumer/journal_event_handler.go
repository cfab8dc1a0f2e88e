package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/kiosk-transaction-orchestrator/internal/audit_archiver/service"
	"github.com/kiosk-transaction-orchestrator/internal/domain/journal"
	"github.com/kiosk-transaction-orchestrator/internal/platform/messaging/producers"
)

// JournalEventHandler handles relayed journal entries from Kafka
type JournalEventHandler struct {
	archivingService service.ArchivingService
	producer         producers.DeadLetterPublisher
	logger           *slog.Logger
}

// NewJournalEventHandler creates a new handler
func NewJournalEventHandler(
	logger *slog.Logger,
	archivingService service.ArchivingService,
	producer producers.DeadLetterPublisher,
) *JournalEventHandler {
	return &JournalEventHandler{
		archivingService: archivingService,
		producer:         producer,
		logger:           logger,
	}
}

// HandleMessage archives one journal entry. Returning nil commits the offset.
func (h *JournalEventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	key := string(msg.Key)

	var entry journal.Entry
	if err := json.Unmarshal(msg.Value, &entry); err != nil {
		h.logger.Error("Failed to unmarshal journal entry from Kafka message", "error", err, "message_key", key)
		return h.deadLetter(ctx, msg, "Failed to unmarshal journal entry", err)
	}

	logger := h.logger.With("transaction_id", entry.TransactionID.String(), "entry_id", entry.ID)
	logger.Debug("Received journal entry", "to_state", entry.ToState, "event_type", entry.EventType)

	if err := h.archivingService.Archive(ctx, &entry); err != nil {
		if errors.Is(err, service.ErrUnarchivable) {
			logger.Warn("Journal entry cannot be archived", "error", err)
			return h.deadLetter(ctx, msg, "Unarchivable journal entry", err)
		}
		logger.Error("Failed to archive journal entry", "error", err)
		return fmt.Errorf("archiving entry %d failed: %w", entry.ID, err)
	}

	return nil
}

// deadLetter parks a poison message. Without a DLQ the error is returned so
// the offset is not committed.
func (h *JournalEventHandler) deadLetter(ctx context.Context, msg kafka.Message, reason string, cause error) error {
	key := string(msg.Key)
	if h.producer == nil {
		return fmt.Errorf("%s: %w", reason, cause)
	}

	dlqReason := fmt.Sprintf("%s: %s", reason, cause.Error())
	if err := h.producer.PublishToDLQ(ctx, key, msg.Value, dlqReason); err != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", key,
		)
		return fmt.Errorf("%s: %w", reason, cause)
	}

	h.logger.Info("Published unprocessable journal entry to DLQ", "message_key", key, "reason", dlqReason)
	return nil
}
