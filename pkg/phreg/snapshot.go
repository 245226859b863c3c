package phreg

import "time"

// ReactorStatus is one reactor's slice of the output snapshot. PH and DO are
// nil until the mapped channel has produced a parsable value.
type ReactorStatus struct {
	Name        string   `json:"name"`
	Enabled     bool     `json:"enabled"`
	PH          *float64 `json:"ph"`
	DO          *float64 `json:"do"`
	Setpoint    float64  `json:"ph_sp"`
	AirBaseline float64  `json:"air_baseline"`
	CO2Cmd      float64  `json:"co2_cmd"`
	AirCmd      float64  `json:"air_cmd"`
	CO2Flow     *float64 `json:"co2_flow,omitempty"`
	AirFlow     *float64 `json:"air_flow,omitempty"`
}

// Snapshot is the per-iteration output record consumed by the dashboard,
// the data log and the telemetry publisher. Alarm codes are sorted for
// deterministic serialization.
type Snapshot struct {
	Time     time.Time       `json:"ts"`
	State    string          `json:"state"`
	Alarms   []string        `json:"alarms"`
	Reactors []ReactorStatus `json:"reactors"`
}

// Sink consumes one snapshot per iteration. Sinks must not block the loop
// beyond ordinary write latency; hardware never waits on them.
type Sink interface {
	Emit(Snapshot)
}

func (c *Controller) snapshot(now time.Time) Snapshot {
	snap := Snapshot{
		Time:   now,
		State:  c.state.String(),
		Alarms: c.alarms.Active(),
	}
	for _, r := range c.reactors {
		st := ReactorStatus{
			Name:        r.cfg.Name,
			Enabled:     r.cfg.Enabled,
			PH:          c.channelValue(r.cfg.PHDevice, r.cfg.PHChannel),
			DO:          c.channelValue(r.cfg.DODevice, r.cfg.DOChannel),
			Setpoint:    r.cfg.Setpoint,
			AirBaseline: r.cfg.AirBaseline,
			CO2Cmd:      r.co2Cmd,
			AirCmd:      r.airCmd,
		}
		if c.cfg.ReadbackFlow {
			st.CO2Flow = readFlow(r.co2)
			st.AirFlow = readFlow(r.air)
		}
		snap.Reactors = append(snap.Reactors, st)
	}
	return snap
}

func (c *Controller) channelValue(dev int, ch string) *float64 {
	reading, ok := c.channels.Lookup(dev, ch)
	if !ok || reading.Value == nil {
		return nil
	}
	v := *reading.Value
	return &v
}

func readFlow(a FlowActuator) *float64 {
	if a == nil {
		return nil
	}
	f, err := a.Flow()
	if err != nil {
		return nil
	}
	v := float64(f)
	return &v
}
