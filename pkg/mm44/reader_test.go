package mm44

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource replays a fixed sequence of ReadLine results.
type scriptedSource struct {
	lines  []string
	errAt  int // index at which to fail, -1 for never
	cursor int
	closed bool
}

func (s *scriptedSource) ReadLine() (string, error) {
	if s.errAt >= 0 && s.cursor == s.errAt {
		return "", errors.New("serial: device unplugged")
	}
	if s.cursor >= len(s.lines) {
		return "", nil
	}
	line := s.lines[s.cursor]
	s.cursor++
	return line, nil
}

func (s *scriptedSource) Close() error {
	s.closed = true
	return nil
}

func TestDrainStopsOnEmptyRead(t *testing.T) {
	src := &scriptedSource{lines: []string{"C1;PH;7.00", "C2;DO;80.0"}, errAt: -1}
	m := NewChannelMap()

	require.NoError(t, Drain(src, 0, m, MaxLinesPerCycle))
	assert.Equal(t, 2, src.cursor)

	_, ok := m.Lookup(0, "C1")
	assert.True(t, ok)
	_, ok = m.Lookup(0, "C2")
	assert.True(t, ok)
}

func TestDrainBoundedByMaxLines(t *testing.T) {
	lines := make([]string, 20)
	for i := range lines {
		lines[i] = "C1;PH;7.00"
	}
	src := &scriptedSource{lines: lines, errAt: -1}
	m := NewChannelMap()

	require.NoError(t, Drain(src, 0, m, 6))
	assert.Equal(t, 6, src.cursor, "drain must stop at the per-cycle line budget")
}

func TestDrainReturnsTransportError(t *testing.T) {
	src := &scriptedSource{lines: []string{"C1;PH;7.00", "C2;DO;80.0"}, errAt: 1}
	m := NewChannelMap()

	err := Drain(src, 0, m, MaxLinesPerCycle)
	require.Error(t, err)

	// The line read before the failure is kept.
	r, ok := m.Lookup(0, "C1")
	require.True(t, ok)
	require.NotNil(t, r.Value)
	assert.InDelta(t, 7.00, *r.Value, 1e-9)
}

func TestDrainIgnoresGarbageLines(t *testing.T) {
	src := &scriptedSource{lines: []string{"## MM44 v2 ##", "C1;PH;7.00"}, errAt: -1}
	m := NewChannelMap()

	require.NoError(t, Drain(src, 0, m, MaxLinesPerCycle))
	_, ok := m.Lookup(0, "C1")
	assert.True(t, ok)
}
