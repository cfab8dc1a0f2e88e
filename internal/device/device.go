// Package device holds the hardware-facing adapters of the kiosk: a simulated
// acceptor/dispenser rig, connection monitoring and exchange rates.
package device

import (
	"context"

	"github.com/kiosk-transaction-orchestrator/internal/domain/dispense"
	"github.com/kiosk-transaction-orchestrator/internal/domain/machine"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

// Dispenser releases one unit of cash at a time
type Dispenser = dispense.Dispenser

// StatusSource reports device connectivity
type StatusSource interface {
	Status(d machine.Device) machine.DeviceStatus
	Connected(d machine.Device) bool
}

// RateSource quotes foreign currency in PHP
type RateSource interface {
	Rate(ctx context.Context, currency shared.Currency) (float64, error)
}

// AcceptorFor names the device that takes in money of the given kind.
// E-wallet credits have no physical acceptor.
func AcceptorFor(kind shared.InsertKind) (machine.Device, bool) {
	switch kind {
	case shared.KindBill:
		return machine.DeviceBillAcceptor, true
	case shared.KindCoin:
		return machine.DeviceCoinAcceptor, true
	}
	return "", false
}
