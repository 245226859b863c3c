package phreg

// forceSafe drives a single reactor to safe output: CO2 and AIR commands set
// to exactly zero (not baseline; CO2 fails closed and sparging stops), with
// best-effort zero writes when hardware is present. Write failures are
// swallowed here: the safety action must never itself raise a failure that
// blocks the loop.
func (c *Controller) forceSafe(r *reactor) {
	r.co2Cmd = 0
	r.airCmd = 0
	if r.co2 != nil {
		_ = r.co2.SetFlow(0)
	}
	if r.air != nil {
		_ = r.air.SetFlow(0)
	}
}

// failsafeAll forces every reactor to safe output. Invoked from INIT failure
// and from the FAILSAFE state; deliberately not wired to any runtime trigger
// in RUN (an open question for the system owner, not behavior to invent).
func (c *Controller) failsafeAll() {
	for _, r := range c.reactors {
		c.forceSafe(r)
	}
}
