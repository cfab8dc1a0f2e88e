package device

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kiosk-transaction-orchestrator/internal/domain/event"
	"github.com/kiosk-transaction-orchestrator/internal/domain/machine"
)

// Monitor tracks the connection state of every kiosk device
type Monitor struct {
	mu        sync.RWMutex
	devices   map[machine.Device]machine.DeviceStatus
	publisher event.Publisher
	listeners []func(machine.Device, machine.DeviceStatus)
	logger    *slog.Logger
	now       func() time.Time
}

var _ StatusSource = (*Monitor)(nil)

// NewMonitor starts every device as CONNECTING until the first report
func NewMonitor(publisher event.Publisher, logger *slog.Logger) *Monitor {
	m := &Monitor{
		devices:   make(map[machine.Device]machine.DeviceStatus),
		publisher: publisher,
		logger:    logger.With("component", "device_monitor"),
		now:       time.Now,
	}
	for _, d := range machine.AllDevices() {
		m.devices[d] = machine.DeviceStatus{Connection: machine.Connecting}
	}
	return m
}

// OnTransition registers fn to run after a device changes connection state
func (m *Monitor) OnTransition(fn func(machine.Device, machine.DeviceStatus)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// SetFirmware records the firmware a device reported
func (m *Monitor) SetFirmware(d machine.Device, firmware string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.devices[d]
	st.Firmware = firmware
	m.devices[d] = st
}

// Ping marks d as alive
func (m *Monitor) Ping(d machine.Device) {
	m.Report(d, machine.Connected, "")
}

// Report records a connection state for d. Listeners and hub events fire
// only when the connection actually changes.
func (m *Monitor) Report(d machine.Device, conn machine.Connection, lastError string) {
	now := m.now().UTC()

	m.mu.Lock()
	st := m.devices[d]
	prev := st.Connection
	st.Connection = conn
	if conn == machine.Connected {
		st.LastPing = &now
	}
	if lastError != "" {
		st.LastError = lastError
	}
	m.devices[d] = st
	listeners := append([]func(machine.Device, machine.DeviceStatus){}, m.listeners...)
	m.mu.Unlock()

	if prev == conn {
		return
	}

	m.logger.Info("Device connection changed",
		"device", string(d),
		"from", string(prev),
		"to", string(conn),
		"error", lastError,
	)

	payload := event.DevicePayload{Device: string(d), Connection: string(conn), Error: lastError}
	switch conn {
	case machine.Connected:
		m.publisher.Publish(event.New(event.DeviceConnected, payload))
	case machine.Disconnected:
		m.publisher.Publish(event.New(event.DeviceDisconnected, payload))
	}

	for _, fn := range listeners {
		fn(d, st)
	}
}

func (m *Monitor) Status(d machine.Device) machine.DeviceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.devices[d]
}

func (m *Monitor) Connected(d machine.Device) bool {
	return m.Status(d).Connection == machine.Connected
}
