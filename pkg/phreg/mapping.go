package phreg

import (
	"github.com/MaulikItaliya/phreg/pkg/alarm"
	"github.com/MaulikItaliya/phreg/pkg/mm44"
)

// validateMapping cross-checks every reactor's configured channels against
// the live channel map. Safe to call every iteration: the only side effect
// is the level-triggered alarm set, and re-validation with unchanged data
// yields an identical set.
func (c *Controller) validateMapping() {
	for _, r := range c.reactors {
		c.validateRole(r.cfg.Name, r.cfg.PHDevice, r.cfg.PHChannel, mm44.KindPH, "PH")
		c.validateRole(r.cfg.Name, r.cfg.DODevice, r.cfg.DOChannel, mm44.KindDO, "DO")
	}
}

// validateRole maintains the missing/mismatch alarm pair for one mapped
// channel. "Missing" is raised only when the device is known, i.e. it has
// produced at least one reading; a device that simply has not reported yet
// raises nothing.
func (c *Controller) validateRole(name string, dev int, ch string, want mm44.Kind, role string) {
	missing := alarm.ChannelMissing(name, role)
	mismatch := alarm.TypeMismatch(name, role)

	reading, ok := c.channels.Lookup(dev, ch)
	if !ok {
		c.alarms.SetIf(missing, c.channels.DeviceKnown(dev))
		c.alarms.Clear(mismatch)
		return
	}
	c.alarms.Clear(missing)
	c.alarms.SetIf(mismatch, reading.Kind != want)
}
