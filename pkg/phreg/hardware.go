package phreg

import (
	"github.com/MaulikItaliya/phreg/pkg/mfc"
	"github.com/MaulikItaliya/phreg/pkg/mm44"
)

// FlowActuator is one gas valve endpoint on the actuator bus.
type FlowActuator interface {
	EnableDigitalControl() error
	SetFlow(f float32) error
	Flow() (float32, error)
}

// ActuatorBus is the shared MFC serial line.
type ActuatorBus interface {
	Actuator(addr int) FlowActuator
	Close() error
}

// mfcBus adapts *mfc.Bus to the ActuatorBus interface.
type mfcBus struct {
	*mfc.Bus
}

func (b mfcBus) Actuator(addr int) FlowActuator {
	return b.Bus.Actuator(addr)
}

func openAnalyzerPort(port string) (mm44.LineSource, error) {
	return mm44.Open(port)
}

func openActuatorBus(port string, order mfc.WordOrder) (ActuatorBus, error) {
	b, err := mfc.OpenBus(port, order)
	if err != nil {
		return nil, err
	}
	return mfcBus{b}, nil
}
