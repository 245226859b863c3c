// Package alarm implements the level-triggered alarm set shared by every
// stage of the controller. An alarm's presence always equals "triggering
// condition currently true": callers re-evaluate their conditions each
// iteration through SetIf, so membership is idempotent and order-independent.
package alarm

import (
	"fmt"
	"sort"
	"strings"
)

// Set holds the currently active alarm codes.
type Set struct {
	codes map[string]struct{}
}

// NewSet returns an empty alarm set.
func NewSet() *Set {
	return &Set{codes: make(map[string]struct{})}
}

// Raise marks code active. Raising an already-active code is a no-op.
func (s *Set) Raise(code string) {
	s.codes[code] = struct{}{}
}

// Clear marks code inactive. Clearing an inactive code is a no-op.
func (s *Set) Clear(code string) {
	delete(s.codes, code)
}

// SetIf raises code when cond is true and clears it otherwise. This is the
// add/discard-on-condition idiom every validator uses.
func (s *Set) SetIf(code string, cond bool) {
	if cond {
		s.Raise(code)
	} else {
		s.Clear(code)
	}
}

// Has reports whether code is currently active.
func (s *Set) Has(code string) bool {
	_, ok := s.codes[code]
	return ok
}

// Len returns the number of active alarms.
func (s *Set) Len() int { return len(s.codes) }

// Reset clears every active alarm.
func (s *Set) Reset() {
	s.codes = make(map[string]struct{})
}

// Active returns the active codes in sorted order, for deterministic
// serialization into snapshots and log records.
func (s *Set) Active() []string {
	out := make([]string, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Join returns the sorted active codes joined with commas.
func (s *Set) Join() string {
	return strings.Join(s.Active(), ",")
}

// Alarm code constructors. Mapping and staleness codes embed the reactor
// name; transport codes embed the device index or actuator role so faults
// stay attributable per device.

func AnalyzerOpenFail(device int) string {
	return fmt.Sprintf("MM44_OPEN_FAIL_%d", device)
}

func AnalyzerReadFail(device int) string {
	return fmt.Sprintf("MM44_READ_FAIL_%d", device)
}

func BusOpenFail() string {
	return "MFC_OPEN_FAIL"
}

func ActuatorWriteFail(reactor, gas string) string {
	return fmt.Sprintf("MFC_WRITE_FAIL_%s_%s", reactor, gas)
}

func ChannelMissing(reactor, role string) string {
	return fmt.Sprintf("MAP_CH_MISSING_%s_%s", reactor, role)
}

func TypeMismatch(reactor, role string) string {
	return fmt.Sprintf("MAP_TYPE_MISMATCH_%s_%s", reactor, role)
}

func StalePH(reactor string) string {
	return fmt.Sprintf("STALE_PH_%s", reactor)
}
