// Package phreg is the core of the multi-reactor pH controller: the mapping
// validator, staleness detector, safety state machine and the fixed-period
// control loop that ties the MM44 analyzers to the MFC actuators.
//
// The controller is single-threaded and cooperative. Every hardware resource
// is opened once during INIT and owned exclusively by the loop; no two
// operations ever interleave on one transport.
package phreg

import (
	"context"
	"log"
	"time"

	"github.com/MaulikItaliya/phreg/pkg/alarm"
	"github.com/MaulikItaliya/phreg/pkg/config"
	"github.com/MaulikItaliya/phreg/pkg/control"
	"github.com/MaulikItaliya/phreg/pkg/mfc"
	"github.com/MaulikItaliya/phreg/pkg/mm44"
)

// Floor for the measured iteration time. Keeps the derivative term and the
// rate limiter sane when the scheduler fires two ticks back to back.
const minDt = 10 * time.Millisecond

// reactor is the per-reactor state arena entry. Each record is owned
// exclusively by its reactor's processing path within one iteration.
type reactor struct {
	cfg config.ReactorConfig
	pid *control.PID

	// Commands persist across iterations for rate limiting.
	co2Cmd float64
	airCmd float64

	// Zero means "never observed a valid pH", which is distinct from
	// "observed but old" for the staleness alarm.
	lastValidPH time.Time

	co2 FlowActuator
	air FlowActuator
}

// Options wires a Controller. The open functions and the clock default to
// the real hardware and time.Now; tests replace them.
type Options struct {
	Config config.Config
	Sinks  []Sink

	OpenAnalyzer func(port string) (mm44.LineSource, error)
	OpenBus      func(port string, order mfc.WordOrder) (ActuatorBus, error)
	Now          func() time.Time
}

// Controller owns all per-reactor state and the global safety state machine.
type Controller struct {
	cfg   config.Config
	order mfc.WordOrder

	state    State
	alarms   *alarm.Set
	channels *mm44.ChannelMap

	analyzers []mm44.LineSource
	bus       ActuatorBus
	reactors  []*reactor

	sinks []Sink

	now      func() time.Time
	lastTick time.Time

	openAnalyzer func(port string) (mm44.LineSource, error)
	openBus      func(port string, order mfc.WordOrder) (ActuatorBus, error)
}

// New builds a controller in INIT state. The configuration must already be
// validated; New only rejects what it cannot interpret.
func New(opts Options) (*Controller, error) {
	order, err := mfc.ParseWordOrder(opts.Config.WordOrder)
	if err != nil {
		return nil, err
	}
	if opts.OpenAnalyzer == nil {
		opts.OpenAnalyzer = openAnalyzerPort
	}
	if opts.OpenBus == nil {
		opts.OpenBus = openActuatorBus
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	c := &Controller{
		cfg:          opts.Config,
		order:        order,
		state:        StateInit,
		alarms:       alarm.NewSet(),
		channels:     mm44.NewChannelMap(),
		sinks:        opts.Sinks,
		now:          opts.Now,
		openAnalyzer: opts.OpenAnalyzer,
		openBus:      opts.OpenBus,
	}
	c.channels.Now = opts.Now

	outMin := 0.0
	if opts.Config.SplitRange {
		outMin = -100.0
	}
	for _, rc := range opts.Config.Reactors {
		c.reactors = append(c.reactors, &reactor{
			cfg:    rc,
			pid:    control.NewPID(opts.Config.Kp, opts.Config.Ki, opts.Config.Kd, outMin, control.CO2Max, opts.Config.Deadband),
			airCmd: rc.AirBaseline,
		})
	}
	return c, nil
}

// State returns the current global state.
func (c *Controller) State() State { return c.state }

// Alarms exposes the live alarm set.
func (c *Controller) Alarms() *alarm.Set { return c.alarms }

// Init runs bring-up: clear the alarm set, open both analyzer transports and
// the actuator bus, and switch the MFCs to digital control. Any failure
// raises an alarm; a non-empty alarm set after bring-up latches FAILSAFE,
// otherwise the controller enters RUN.
func (c *Controller) Init() State {
	c.alarms.Reset()

	c.analyzers = make([]mm44.LineSource, len(c.cfg.MM44Ports))
	for i, port := range c.cfg.MM44Ports {
		src, err := c.openAnalyzer(port)
		if err != nil {
			log.Printf("[mm44] open failed on %s: %v", port, err)
			c.alarms.Raise(alarm.AnalyzerOpenFail(i))
			continue
		}
		log.Printf("[mm44] open: %s", port)
		c.analyzers[i] = src
	}

	if !c.cfg.NoMFC {
		bus, err := c.openBus(c.cfg.MFCPort, c.order)
		if err != nil {
			log.Printf("[mfc] open failed on %s: %v", c.cfg.MFCPort, err)
			c.alarms.Raise(alarm.BusOpenFail())
		} else {
			c.bus = bus
			for _, r := range c.reactors {
				r.air = bus.Actuator(r.cfg.AirAddr)
				r.co2 = bus.Actuator(r.cfg.CO2Addr)
				if err := r.co2.EnableDigitalControl(); err != nil {
					log.Printf("[mfc] %s: CO2 control mode: %v", r.cfg.Name, err)
					c.alarms.Raise(alarm.ActuatorWriteFail(r.cfg.Name, "CO2"))
				}
				if err := r.air.EnableDigitalControl(); err != nil {
					log.Printf("[mfc] %s: AIR control mode: %v", r.cfg.Name, err)
					c.alarms.Raise(alarm.ActuatorWriteFail(r.cfg.Name, "AIR"))
				}
			}
		}
	}

	if c.alarms.Len() > 0 {
		log.Printf("[safety] bring-up alarms %v: entering FAILSAFE", c.alarms.Active())
		c.state = StateFailsafe
		c.failsafeAll()
	} else {
		c.state = StateRun
	}
	c.lastTick = c.now()
	return c.state
}

// Step executes one control iteration and returns the output snapshot. The
// elapsed time since the previous iteration is measured, not assumed, and
// floored at minDt.
func (c *Controller) Step() Snapshot {
	now := c.now()
	dt := now.Sub(c.lastTick)
	if dt < minDt {
		dt = minDt
	}
	c.lastTick = now

	switch c.state {
	case StateRun:
		c.readSensors()
		c.validateMapping()
		c.detectStaleness(now)
		c.controlStep(dt)
	case StateFailsafe:
		// Keep observing so alarms and the dashboard stay truthful, but
		// force every output regardless.
		c.readSensors()
		c.validateMapping()
		c.detectStaleness(now)
		c.failsafeAll()
	}

	return c.snapshot(now)
}

// Run drives Step at the nominal period until ctx is cancelled, fanning each
// snapshot out to the sinks.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap := c.Step()
			for _, s := range c.sinks {
				s.Emit(snap)
			}
		}
	}
}

// Shutdown best-effort closes every CO2 valve, then releases all transports.
// Every error is swallowed so shutdown always completes, hardware reachable
// or not.
func (c *Controller) Shutdown() {
	for _, r := range c.reactors {
		if r.co2 != nil {
			_ = r.co2.SetFlow(0)
		}
	}
	for _, src := range c.analyzers {
		if src != nil {
			_ = src.Close()
		}
	}
	if c.bus != nil {
		_ = c.bus.Close()
	}
}

// readSensors drains every analyzer for this iteration. A failing device
// raises its transport alarm and is skipped for the rest of the iteration;
// the other devices are unaffected.
func (c *Controller) readSensors() {
	for i, src := range c.analyzers {
		if src == nil {
			continue
		}
		err := mm44.Drain(src, i, c.channels, mm44.MaxLinesPerCycle)
		if err != nil {
			log.Printf("[mm44] read failed on device %d: %v", i, err)
		}
		c.alarms.SetIf(alarm.AnalyzerReadFail(i), err != nil)
	}
}

// controlStep runs the per-reactor control path. Faulted reactors are forced
// safe locally; this is fault isolation, not a global state change.
func (c *Controller) controlStep(dt time.Duration) {
	for _, r := range c.reactors {
		if c.reactorFaulted(r) {
			c.forceSafe(r)
			continue
		}

		if ph, ok := c.currentPH(r); ok {
			u := r.pid.Update(ph, r.cfg.Setpoint, dt)
			co2Target, airTarget := control.Allocate(u, r.cfg.AirBaseline, c.cfg.SplitRange)
			r.co2Cmd = control.RateLimit(co2Target, r.co2Cmd, control.CO2RatePerSec*dt.Seconds())
			r.airCmd = control.RateLimit(airTarget, r.airCmd, control.AirRatePerSec*dt.Seconds())
		}
		// Without a usable measurement the previous commands hold; the
		// staleness detector forces the reactor safe if that persists.

		c.writeCommands(r)
	}
}

func (c *Controller) reactorFaulted(r *reactor) bool {
	n := r.cfg.Name
	return !r.cfg.Enabled ||
		c.alarms.Has(alarm.StalePH(n)) ||
		c.alarms.Has(alarm.ChannelMissing(n, "PH")) ||
		c.alarms.Has(alarm.TypeMismatch(n, "PH")) ||
		c.alarms.Has(alarm.ChannelMissing(n, "DO")) ||
		c.alarms.Has(alarm.TypeMismatch(n, "DO"))
}

// currentPH returns the reactor's mapped pH value if one is present and
// physiologically plausible.
func (c *Controller) currentPH(r *reactor) (float64, bool) {
	reading, ok := c.channels.Lookup(r.cfg.PHDevice, r.cfg.PHChannel)
	if !ok || reading.Kind != mm44.KindPH || reading.Value == nil {
		return 0, false
	}
	v := *reading.Value
	if v < 0 || v > 14 {
		return 0, false
	}
	return v, true
}

func (c *Controller) writeCommands(r *reactor) {
	if r.co2 != nil {
		err := r.co2.SetFlow(float32(r.co2Cmd))
		if err != nil {
			log.Printf("[mfc] %s: CO2 write: %v", r.cfg.Name, err)
		}
		c.alarms.SetIf(alarm.ActuatorWriteFail(r.cfg.Name, "CO2"), err != nil)
	}
	if r.air != nil {
		err := r.air.SetFlow(float32(r.airCmd))
		if err != nil {
			log.Printf("[mfc] %s: AIR write: %v", r.cfg.Name, err)
		}
		c.alarms.SetIf(alarm.ActuatorWriteFail(r.cfg.Name, "AIR"), err != nil)
	}
}
