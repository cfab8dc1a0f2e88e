package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/kiosk-transaction-orchestrator/internal/domain/machine"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
	"github.com/kiosk-transaction-orchestrator/internal/domain/transaction"
	"github.com/kiosk-transaction-orchestrator/internal/platform/messaging/producers"
	"github.com/kiosk-transaction-orchestrator/internal/transaction_engine/service"
)

// AcceptanceRecorder applies accepted money to a transaction
type AcceptanceRecorder interface {
	RecordAcceptance(ctx context.Context, id uuid.UUID, req service.AcceptanceRequest) (transaction.Snapshot, error)
}

// ConnectionReporter records device connectivity
type ConnectionReporter interface {
	Report(d machine.Device, conn machine.Connection, lastError string)
}

// DeviceSignalHandler handles device adapter messages from Kafka
type DeviceSignalHandler struct {
	recorder AcceptanceRecorder
	reporter ConnectionReporter
	producer producers.DeadLetterPublisher
	logger   *slog.Logger
}

func NewDeviceSignalHandler(
	logger *slog.Logger,
	recorder AcceptanceRecorder,
	reporter ConnectionReporter,
	producer producers.DeadLetterPublisher,
) *DeviceSignalHandler {
	return &DeviceSignalHandler{
		recorder: recorder,
		reporter: reporter,
		producer: producer,
		logger:   logger,
	}
}

// HandleMessage processes one device signal. Returning nil commits the offset.
func (h *DeviceSignalHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	key := string(msg.Key)

	var signal shared.DeviceSignal
	if err := json.Unmarshal(msg.Value, &signal); err != nil {
		h.logger.Error("Failed to unmarshal device signal from Kafka message", "error", err, "message_key", key)
		return h.deadLetter(ctx, msg, "Failed to unmarshal device signal", err)
	}

	logger := h.logger
	if signal.CorrelationID != "" {
		logger = h.logger.With("correlation_id", signal.CorrelationID)
	}

	switch signal.Type {
	case shared.DeviceSignalAcceptance:
		return h.handleAcceptance(ctx, logger, msg, signal)
	case shared.DeviceSignalConnection:
		return h.handleConnection(ctx, logger, msg, signal)
	default:
		logger.Warn("Unknown device signal type", "type", signal.Type, "message_key", key)
		return h.deadLetter(ctx, msg, "Unknown device signal type", fmt.Errorf("type %q", signal.Type))
	}
}

func (h *DeviceSignalHandler) handleAcceptance(ctx context.Context, logger *slog.Logger, msg kafka.Message, signal shared.DeviceSignal) error {
	if signal.TransactionID == uuid.Nil {
		return h.deadLetter(ctx, msg, "Acceptance signal without transaction", errors.New("missing transaction_id"))
	}

	logger.Info("Received acceptance signal",
		"transaction_id", signal.TransactionID.String(),
		"denomination", signal.Denomination,
		"insert_type", signal.InsertType,
	)

	snapshot, err := h.recorder.RecordAcceptance(ctx, signal.TransactionID, service.AcceptanceRequest{
		Denomination:  signal.Denomination,
		Kind:          string(signal.InsertType),
		CorrelationID: signal.CorrelationID,
	})
	if err != nil {
		var domainErr *shared.Error
		if errors.As(err, &domainErr) {
			// The money is physically in the machine; keep the signal for reconciliation
			logger.Warn("Acceptance signal rejected",
				"transaction_id", signal.TransactionID.String(),
				"kind", domainErr.Kind,
				"error", err,
			)
			return h.deadLetter(ctx, msg, "Acceptance rejected", err)
		}
		logger.Error("Failed to record acceptance", "transaction_id", signal.TransactionID.String(), "error", err)
		return fmt.Errorf("recording acceptance for %s failed: %w", signal.TransactionID, err)
	}

	logger.Info("Recorded acceptance",
		"transaction_id", snapshot.TransactionID,
		"state", snapshot.State,
		"inserted_amount", snapshot.InsertedAmount,
	)
	return nil
}

func (h *DeviceSignalHandler) handleConnection(ctx context.Context, logger *slog.Logger, msg kafka.Message, signal shared.DeviceSignal) error {
	device, okDevice := machine.ParseDevice(signal.Device)
	conn, okConn := machine.ParseConnection(signal.Connection)
	if !okDevice || !okConn {
		logger.Warn("Invalid connection signal", "device", signal.Device, "connection", signal.Connection)
		return h.deadLetter(ctx, msg, "Invalid connection signal",
			fmt.Errorf("device %q connection %q", signal.Device, signal.Connection))
	}

	h.reporter.Report(device, conn, signal.Error)
	logger.Debug("Recorded device connection", "device", device, "connection", conn)
	return nil
}

// deadLetter parks an unprocessable message. Without a DLQ the error is
// returned so the offset is not committed.
func (h *DeviceSignalHandler) deadLetter(ctx context.Context, msg kafka.Message, reason string, cause error) error {
	key := string(msg.Key)
	dlqReason := fmt.Sprintf("%s: %s", reason, cause.Error())

	if h.producer == nil {
		return fmt.Errorf("%s: %w", reason, cause)
	}
	if err := h.producer.PublishToDLQ(ctx, key, msg.Value, dlqReason); err != nil {
		h.logger.Error("Failed to publish message to DLQ",
			"dlq_error", err,
			"original_error", cause,
			"message_key", key,
		)
		return fmt.Errorf("%s: %w", reason, cause)
	}

	h.logger.Info("Published unprocessable device signal to DLQ", "message_key", key, "reason", dlqReason)
	return nil
}
