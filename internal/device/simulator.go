package device

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kiosk-transaction-orchestrator/internal/domain/machine"
	"github.com/kiosk-transaction-orchestrator/internal/domain/shared"
)

var simulatedFirmware = map[machine.Device]string{
	machine.DeviceBillAcceptor: "BA-SIM 2.1.0",
	machine.DeviceCoinAcceptor: "CA-SIM 1.4.2",
	machine.DeviceDispenser:    "DSP-SIM 3.0.1",
}

// Simulator stands in for the bill acceptor, coin acceptor and dispenser
type Simulator struct {
	monitor   *Monitor
	unitDelay time.Duration
	logger    *slog.Logger

	mu        sync.Mutex
	failAfter int // units left before an injected fault, -1 when disarmed
	dispensed []shared.Denomination
}

var _ Dispenser = (*Simulator)(nil)

func NewSimulator(monitor *Monitor, unitDelay time.Duration, logger *slog.Logger) *Simulator {
	return &Simulator{
		monitor:   monitor,
		unitDelay: unitDelay,
		logger:    logger.With("component", "device_simulator"),
		failAfter: -1,
	}
}

// PowerOn reports firmware and connects every simulated device
func (s *Simulator) PowerOn() {
	for _, d := range machine.AllDevices() {
		s.monitor.SetFirmware(d, simulatedFirmware[d])
		s.monitor.Ping(d)
	}
}

// FailAfter makes the dispenser fault once n more units have come out.
// A negative n disarms the fault.
func (s *Simulator) FailAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAfter = n
}

func (s *Simulator) Disconnect(d machine.Device, reason string) {
	s.monitor.Report(d, machine.Disconnected, reason)
}

func (s *Simulator) Reconnect(d machine.Device) {
	s.monitor.Ping(d)
}

// DispenseUnit releases one unit after the configured mechanical delay
func (s *Simulator) DispenseUnit(ctx context.Context, d shared.Denomination) error {
	if !s.monitor.Connected(machine.DeviceDispenser) {
		return shared.NewError(shared.KindHardwareFault, "dispenser is not connected")
	}

	if s.unitDelay > 0 {
		select {
		case <-ctx.Done():
			return shared.NewError(shared.KindHardwareFault, "dispense interrupted").Wrap(ctx.Err())
		case <-time.After(s.unitDelay):
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter == 0 {
		s.failAfter = -1
		s.logger.Warn("Injected dispenser fault", "denomination", d.Key())
		return shared.NewError(shared.KindHardwareFault, "dispenser jammed on %s", d)
	}
	if s.failAfter > 0 {
		s.failAfter--
	}
	s.dispensed = append(s.dispensed, d)
	return nil
}

// Dispensed lists every unit released so far
func (s *Simulator) Dispensed() []shared.Denomination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]shared.Denomination(nil), s.dispensed...)
}
