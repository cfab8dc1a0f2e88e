// Package machine describes the kiosk's hardware and transaction status as
// shown to displays.
package machine

import (
	"time"

	"github.com/kiosk-transaction-orchestrator/internal/domain/dispense"
)

// Device names a piece of kiosk hardware
type Device string

const (
	DeviceBillAcceptor Device = "bill_acceptor"
	DeviceCoinAcceptor Device = "coin_acceptor"
	DeviceDispenser    Device = "dispenser"
)

// AllDevices lists every device the kiosk monitors
func AllDevices() []Device {
	return []Device{DeviceBillAcceptor, DeviceCoinAcceptor, DeviceDispenser}
}

// ParseDevice validates a raw device name
func ParseDevice(raw string) (Device, bool) {
	for _, d := range AllDevices() {
		if string(d) == raw {
			return d, true
		}
	}
	return "", false
}

type Connection string

const (
	Connected    Connection = "CONNECTED"
	Disconnected Connection = "DISCONNECTED"
	Connecting   Connection = "CONNECTING"
)

// ParseConnection validates a raw connection state
func ParseConnection(raw string) (Connection, bool) {
	switch c := Connection(raw); c {
	case Connected, Disconnected, Connecting:
		return c, true
	}
	return "", false
}

// DeviceStatus is the last known state of one device
type DeviceStatus struct {
	Connection Connection `json:"connection"`
	Firmware   string     `json:"firmware,omitempty"`
	LastPing   *time.Time `json:"last_ping,omitempty"`
	LastError  string     `json:"last_error,omitempty"`
}

// Status is the machine snapshot pushed as STATE_CHANGE and served on /status
type Status struct {
	MachineID           string           `json:"machine_id"`
	BillDevice          DeviceStatus     `json:"bill_device"`
	CoinDevice          DeviceStatus     `json:"coin_device"`
	Dispenser           DeviceStatus     `json:"dispenser"`
	ActiveTransactionID *string          `json:"active_transaction_id"`
	InventoryAlerts     []dispense.Alert `json:"inventory_alerts"`
	Timestamp           time.Time        `json:"timestamp"`
}

// Device returns the status of d within the snapshot
func (s Status) Device(d Device) DeviceStatus {
	switch d {
	case DeviceBillAcceptor:
		return s.BillDevice
	case DeviceCoinAcceptor:
		return s.CoinDevice
	default:
		return s.Dispenser
	}
}
