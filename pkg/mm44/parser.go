package mm44

import (
	"strconv"
	"strings"
	"time"
)

// Kind is the semantic type of a channel.
type Kind int

const (
	KindPH Kind = iota
	KindDO
)

func (k Kind) String() string {
	switch k {
	case KindPH:
		return "pH"
	case KindDO:
		return "DO"
	default:
		return "unknown"
	}
}

// Reading is the last-known state of one analyzer channel. Value is nil when
// the channel reported a token that did not parse as a number. At is the
// time the reading was last parsed, which feeds staleness detection.
type Reading struct {
	Kind  Kind
	Value *float64
	At    time.Time
}

// Key addresses a channel by analyzer device index and channel id.
type Key struct {
	Device  int
	Channel string
}

// ChannelMap holds the latest reading per (device, channel) plus the set of
// devices that have produced at least one parsed channel. Entries are
// overwritten on each successful parse and never deleted on read failure.
type ChannelMap struct {
	readings map[Key]Reading
	seen     map[int]struct{}

	// Now is the timestamp source for readings, replaceable in tests.
	Now func() time.Time
}

func NewChannelMap() *ChannelMap {
	return &ChannelMap{
		readings: make(map[Key]Reading),
		seen:     make(map[int]struct{}),
		Now:      time.Now,
	}
}

// Apply folds one line's parsed channels into the map under device.
func (m *ChannelMap) Apply(device int, parsed map[string]Reading) {
	if len(parsed) == 0 {
		return
	}
	now := m.Now()
	m.seen[device] = struct{}{}
	for ch, r := range parsed {
		r.At = now
		m.readings[Key{Device: device, Channel: ch}] = r
	}
}

// Lookup resolves a configured (device, channel) pair into the live map.
func (m *ChannelMap) Lookup(device int, channel string) (Reading, bool) {
	r, ok := m.readings[Key{Device: device, Channel: strings.ToUpper(channel)}]
	return r, ok
}

// DeviceKnown reports whether device has produced at least one parsed
// channel. The mapping validator only raises "missing" alarms against known
// devices, so a device that simply has not reported yet raises nothing.
func (m *ChannelMap) DeviceKnown(device int) bool {
	_, ok := m.seen[device]
	return ok
}

// ParseLine tokenizes one analyzer line into channel readings.
//
// The wire format is ';'-separated tokens. A channel id token (letter
// followed by one digit, e.g. "C1") announces a channel; the token after it
// names the kind ("PH", "DO", or the alias "OD") and the one after that
// carries the value. Anything else is skipped, which keeps the parser
// forward-compatible with fields this controller does not know about.
func ParseLine(line string) map[string]Reading {
	parts := strings.Split(line, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	parsed := make(map[string]Reading)
	for i := 0; i+2 < len(parts); i++ {
		if !isChannelID(parts[i]) {
			continue
		}
		kind, ok := parseKind(parts[i+1])
		if !ok {
			continue
		}
		parsed[strings.ToUpper(parts[i])] = Reading{
			Kind:  kind,
			Value: parseValue(parts[i+2]),
		}
	}
	return parsed
}

// isChannelID matches a letter followed by a single digit.
func isChannelID(tok string) bool {
	if len(tok) != 2 {
		return false
	}
	c, d := tok[0], tok[1]
	alpha := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
	return alpha && d >= '0' && d <= '9'
}

func parseKind(tok string) (Kind, bool) {
	switch strings.ToUpper(tok) {
	case "PH":
		return KindPH, true
	case "DO", "OD":
		return KindDO, true
	default:
		return 0, false
	}
}

// parseValue returns nil for unparsable numeric tokens rather than failing
// the line: the channel is still recorded, just without a usable value.
func parseValue(tok string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
	if err != nil {
		return nil
	}
	return &v
}
