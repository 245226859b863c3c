package mm44

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	parsed := ParseLine("C1;PH;7.21;C2;DO;85.4")
	require.Len(t, parsed, 2)

	r := parsed["C1"]
	assert.Equal(t, KindPH, r.Kind)
	require.NotNil(t, r.Value)
	assert.InDelta(t, 7.21, *r.Value, 1e-9)

	r = parsed["C2"]
	assert.Equal(t, KindDO, r.Kind)
	require.NotNil(t, r.Value)
	assert.InDelta(t, 85.4, *r.Value, 1e-9)
}

func TestParseLineODAliasesToDO(t *testing.T) {
	parsed := ParseLine("C3;OD;42.0")
	require.Len(t, parsed, 1)
	assert.Equal(t, KindDO, parsed["C3"].Kind)
}

func TestParseLineUnparsableValue(t *testing.T) {
	parsed := ParseLine("C1;PH;ERR")
	require.Len(t, parsed, 1)
	assert.Nil(t, parsed["C1"].Value, "bad numeric token yields an absent value, not a parse failure")
}

func TestParseLineSkipsUnknownRuns(t *testing.T) {
	tests := []struct {
		name string
		line string
		want int
	}{
		{"empty line", "", 0},
		{"garbage", "STATUS;OK;FW;1.2.3", 0},
		{"unknown kind", "C1;TEMP;25.0", 0},
		{"channel at end without value", "C1;PH", 0},
		{"long channel token", "C12;PH;7.0", 0},
		{"non-digit suffix", "CX;PH;7.0", 0},
		{"mixed", "HDR;C1;PH;7.0;TRAILER", 1},
		{"whitespace tolerated", "  C1 ; PH ; 7.00 ", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, ParseLine(tt.line), tt.want)
		})
	}
}

func TestChannelMapLastKnownValue(t *testing.T) {
	m := NewChannelMap()
	m.Apply(0, ParseLine("C1;PH;7.10"))
	m.Apply(0, ParseLine("C1;PH;7.35"))

	r, ok := m.Lookup(0, "c1")
	require.True(t, ok, "lookup is case-insensitive on the channel id")
	require.NotNil(t, r.Value)
	assert.InDelta(t, 7.35, *r.Value, 1e-9)
}

func TestChannelMapDeviceKnown(t *testing.T) {
	m := NewChannelMap()
	assert.False(t, m.DeviceKnown(0))

	m.Apply(0, ParseLine("C1;PH;7.10"))
	assert.True(t, m.DeviceKnown(0))
	assert.False(t, m.DeviceKnown(1))

	_, ok := m.Lookup(1, "C1")
	assert.False(t, ok)
}
