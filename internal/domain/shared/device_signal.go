package shared

import (
	"time"

	"github.com/google/uuid"
)

// DeviceSignalType distinguishes the messages device adapters publish
type DeviceSignalType string

const (
	DeviceSignalAcceptance DeviceSignalType = "ACCEPTANCE"
	DeviceSignalConnection DeviceSignalType = "CONNECTION"
)

// DeviceSignal is the Kafka message a device adapter emits when money is
// accepted or a device changes connection state.
type DeviceSignal struct {
	Type          DeviceSignalType `json:"type"`
	TransactionID uuid.UUID        `json:"transaction_id,omitempty"`
	Denomination  int64            `json:"denom,omitempty"`
	InsertType    InsertKind       `json:"insert_type,omitempty"`
	Device        string           `json:"device,omitempty"`
	Connection    string           `json:"connection,omitempty"`
	Error         string           `json:"error,omitempty"`
	CorrelationID string           `json:"correlation_id,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}
