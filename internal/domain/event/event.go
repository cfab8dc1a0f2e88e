// Package event defines the closed set of real-time events pushed to kiosk
// displays and the payload carried by each.
package event

import "time"

// Type tags an event. The set is closed; subscribers filter on it.
type Type string

const (
	StateChange             Type = "STATE_CHANGE"
	TransactionStateChanged Type = "TRANSACTION_STATE_CHANGED"
	TransactionComplete     Type = "TRANSACTION_COMPLETE"
	TransactionCancelled    Type = "TRANSACTION_CANCELLED"
	TransactionError        Type = "TRANSACTION_ERROR"
	BillStored              Type = "BILL_STORED"
	CoinInserted            Type = "COIN_INSERTED"
	DispenseProgress        Type = "DISPENSE_PROGRESS"
	DispenseComplete        Type = "DISPENSE_COMPLETE"
	DeviceConnected         Type = "DEVICE_CONNECTED"
	DeviceDisconnected      Type = "DEVICE_DISCONNECTED"
	InventoryAlert          Type = "INVENTORY_ALERT"
	Pong                    Type = "PONG"
)

// AllTypes returns every event type
func AllTypes() []Type {
	return []Type{
		StateChange, TransactionStateChanged, TransactionComplete, TransactionCancelled,
		TransactionError, BillStored, CoinInserted, DispenseProgress, DispenseComplete,
		DeviceConnected, DeviceDisconnected, InventoryAlert, Pong,
	}
}

// Valid reports whether t belongs to the closed set
func (t Type) Valid() bool {
	for _, known := range AllTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Event is one frame on the hub: {type, payload, timestamp}
type Event struct {
	Type      Type      `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// New stamps an event with the current UTC time
func New(t Type, payload any) Event {
	return Event{Type: t, Payload: payload, Timestamp: time.Now().UTC()}
}

// Publisher delivers events to whoever is listening. Implementations must not block.
type Publisher interface {
	Publish(evt Event)
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(evt Event)

func (f PublisherFunc) Publish(evt Event) { f(evt) }

// Discard drops every event
var Discard Publisher = PublisherFunc(func(Event) {})
