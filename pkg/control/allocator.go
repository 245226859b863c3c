package control

// Gas command operating limits, percent of full scale. CO2 fails closed, so
// its floor is zero; AIR keeps a minimum sparge when commanded at all.
const (
	CO2Min = 0.0
	CO2Max = 100.0
	AirMin = 20.0
	AirMax = 100.0
)

// Valve slew bounds, percent per second.
const (
	CO2RatePerSec = 10.0
	AirRatePerSec = 10.0
)

// Clamp bounds x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// RateLimit moves from current toward target by at most maxDelta in either
// direction. maxDelta is the configured rate multiplied by the elapsed time
// of the iteration, which bounds valve slew regardless of how far the raw
// target jumped.
func RateLimit(target, current, maxDelta float64) float64 {
	delta := target - current
	if delta > maxDelta {
		return current + maxDelta
	}
	if delta < -maxDelta {
		return current - maxDelta
	}
	return target
}

// Allocate splits one control signal across the CO2 and AIR actuators.
//
// A non-negative signal (or any signal in CO2-only mode) demands CO2 with AIR
// held at the reactor baseline. A negative signal in split-range mode closes
// CO2 entirely and boosts AIR above the baseline by the signal magnitude.
func Allocate(u, airBaseline float64, split bool) (co2, air float64) {
	if u >= 0 || !split {
		return Clamp(u, CO2Min, CO2Max), airBaseline
	}
	return 0, Clamp(airBaseline-u, AirMin, AirMax)
}
