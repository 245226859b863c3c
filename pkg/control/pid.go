package control

import (
	"math"
	"time"
)

// Integrator hard bound, applied independently of the output clamp.
const integratorLimit = 1000.0

// PID converts pH error into a gas demand signal.
//
// Error convention:
//
//	err = measured - setpoint
//	+err (pH too high) -> inject CO2
//	-err (pH too low)  -> boost AIR (split-range mode)
type PID struct {
	Kp float64
	Ki float64
	Kd float64

	// Output clamp. CO2-only mode uses [0, CO2Max]; split-range mode uses
	// [-100, CO2Max], where the negative range encodes an AIR boost.
	OutMin float64
	OutMax float64

	// Deadband is the tolerance around the setpoint inside which no control
	// action is taken.
	Deadband float64

	integrator float64
	prevErr    float64
	hasPrev    bool
}

// NewPID returns a controller with zeroed state.
func NewPID(kp, ki, kd, outMin, outMax, deadband float64) *PID {
	return &PID{Kp: kp, Ki: ki, Kd: kd, OutMin: outMin, OutMax: outMax, Deadband: deadband}
}

// Reset clears the integrator and the previous-error memory. The next Update
// has no derivative contribution.
func (p *PID) Reset() {
	p.integrator = 0
	p.prevErr = 0
	p.hasPrev = false
}

// Update advances the controller by the actual elapsed time dt and returns
// the clamped control signal.
//
// Inside the deadband the returned signal is exactly zero and the internal
// state is left untouched, so controller memory survives small excursions
// around the setpoint without driving valve chatter.
func (p *PID) Update(pv, sp float64, dt time.Duration) float64 {
	err := pv - sp
	if math.Abs(err) <= p.Deadband {
		return 0
	}

	dts := dt.Seconds()

	var dTerm float64
	if p.hasPrev && dts > 0 {
		dTerm = (err - p.prevErr) / dts
	}
	p.prevErr = err
	p.hasPrev = true

	p.integrator = Clamp(p.integrator+err*dts, -integratorLimit, integratorLimit)

	u := p.Kp*err + p.Ki*p.integrator + p.Kd*dTerm
	return Clamp(u, p.OutMin, p.OutMax)
}

// Integrator exposes the accumulator for diagnostics.
func (p *PID) Integrator() float64 { return p.integrator }
