package phreg

import (
	"time"

	"github.com/MaulikItaliya/phreg/pkg/alarm"
)

// detectStaleness tracks the age of each reactor's last valid pH reading.
// Only readings inside [0,14] advance the timestamp; a reactor that has
// never produced a valid reading stays in "no data yet" and raises nothing.
// The alarm clears the moment a fresh valid reading arrives.
func (c *Controller) detectStaleness(now time.Time) {
	for _, r := range c.reactors {
		if reading, ok := c.channels.Lookup(r.cfg.PHDevice, r.cfg.PHChannel); ok {
			if reading.Value != nil && *reading.Value >= 0 && *reading.Value <= 14 {
				if reading.At.After(r.lastValidPH) {
					r.lastValidPH = reading.At
				}
			}
		}
		stale := !r.lastValidPH.IsZero() && now.Sub(r.lastValidPH) > c.cfg.StaleAfter
		c.alarms.SetIf(alarm.StalePH(r.cfg.Name), stale)
	}
}
