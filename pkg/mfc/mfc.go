// Package mfc drives the gas mass-flow controllers over Modbus RTU. One
// serial line carries several MFC slaves; the control loop owns the line
// exclusively and uses it synchronously, so transactions never interleave.
package mfc

import (
	"fmt"
	"time"

	"github.com/goburrow/modbus"
)

// MFC holding registers.
const (
	RegFlowActual uint16 = 0x0000
	RegValveCmd   uint16 = 0x000A
	RegCtrlMode   uint16 = 0x000E
)

// Control-mode word selecting digital (bus) setpoint control.
const CtrlModeDigital uint16 = 1

// Transport parameters shared by every MFC on the bus.
const (
	Baud    = 9600
	Timeout = 600 * time.Millisecond
)

// WordOrder selects how a 32-bit float is spread across two 16-bit
// registers. Each half is transmitted big-endian either way.
type WordOrder int

const (
	// HighFirst puts the most significant word in the lower register.
	HighFirst WordOrder = iota
	// LowFirst puts the least significant word in the lower register.
	LowFirst
)

// ParseWordOrder maps the configuration spelling to a WordOrder.
func ParseWordOrder(s string) (WordOrder, error) {
	switch s {
	case "hi_lo", "":
		return HighFirst, nil
	case "lo_hi":
		return LowFirst, nil
	default:
		return 0, fmt.Errorf("mfc: unknown word order %q (want hi_lo or lo_hi)", s)
	}
}

// Bus is one RTU serial line. The handler's slave id is re-targeted per
// call, which is race-free under the loop's exclusive-ownership contract.
type Bus struct {
	handler *modbus.RTUClientHandler
	client  modbus.Client
	order   WordOrder
}

// OpenBus opens and configures the MFC serial line.
func OpenBus(device string, order WordOrder) (*Bus, error) {
	h := modbus.NewRTUClientHandler(device)
	h.BaudRate = Baud
	h.DataBits = 8
	h.Parity = "N"
	h.StopBits = 2
	h.Timeout = Timeout
	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("mfc: open %s: %w", device, err)
	}
	return &Bus{handler: h, client: modbus.NewClient(h), order: order}, nil
}

func (b *Bus) Close() error {
	if b.handler == nil {
		return nil
	}
	return b.handler.Close()
}

func (b *Bus) target(slave byte) {
	if b.handler != nil {
		b.handler.SlaveId = slave
	}
}

// WriteControlWord writes an unsigned 16-bit field with function 6.
func (b *Bus) WriteControlWord(slave byte, reg uint16, v uint16) error {
	b.target(slave)
	_, err := b.client.WriteSingleRegister(reg, v)
	return err
}

// WriteFloat32 writes f into the register pair starting at reg.
func (b *Bus) WriteFloat32(slave byte, reg uint16, f float32) error {
	b.target(slave)
	_, err := b.client.WriteMultipleRegisters(reg, 2, EncodeFloat32(f, b.order))
	return err
}

// ReadFloat32 reads the register pair starting at reg.
func (b *Bus) ReadFloat32(slave byte, reg uint16) (float32, error) {
	b.target(slave)
	raw, err := b.client.ReadHoldingRegisters(reg, 2)
	if err != nil {
		return 0, err
	}
	if len(raw) < 4 {
		return 0, fmt.Errorf("mfc: short register read: %d bytes", len(raw))
	}
	return DecodeFloat32(raw, b.order), nil
}

// Actuator binds one MFC slave address on the bus.
type Actuator struct {
	bus  *Bus
	addr byte
}

// Actuator returns a handle for the MFC at addr.
func (b *Bus) Actuator(addr int) *Actuator {
	return &Actuator{bus: b, addr: byte(addr)}
}

// EnableDigitalControl switches the MFC to bus setpoint control, retried.
func (a *Actuator) EnableDigitalControl() error {
	return Try(func() error {
		return a.bus.WriteControlWord(a.addr, RegCtrlMode, CtrlModeDigital)
	})
}

// SetFlow commands the valve to f percent, retried.
func (a *Actuator) SetFlow(f float32) error {
	return Try(func() error {
		return a.bus.WriteFloat32(a.addr, RegValveCmd, f)
	})
}

// Flow reads back the measured flow, retried.
func (a *Actuator) Flow() (float32, error) {
	return TryFloat(func() (float32, error) {
		return a.bus.ReadFloat32(a.addr, RegFlowActual)
	})
}
