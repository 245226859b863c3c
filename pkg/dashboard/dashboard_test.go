package dashboard

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MaulikItaliya/phreg/pkg/phreg"
)

func sample() phreg.Snapshot {
	ph := 7.41
	return phreg.Snapshot{
		Time:   time.Unix(1_700_000_000, 0).UTC(),
		State:  "RUN",
		Alarms: []string{},
		Reactors: []phreg.ReactorStatus{{
			Name: "R1", Enabled: true, PH: &ph,
			Setpoint: 7.40, AirBaseline: 20.0, CO2Cmd: 3.5, AirCmd: 20.0,
		}},
	}
}

func TestEmitWritesReadableJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest.json")
	w := NewWriter(path)

	w.Emit(sample())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got phreg.Snapshot
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "RUN", got.State)
	require.Len(t, got.Reactors, 1)
	assert.Equal(t, "R1", got.Reactors[0].Name)
	require.NotNil(t, got.Reactors[0].PH)
	assert.InDelta(t, 7.41, *got.Reactors[0].PH, 1e-9)
}

func TestEmitReplacesPreviousSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latest.json")
	w := NewWriter(path)

	w.Emit(sample())

	next := sample()
	next.State = "FAILSAFE"
	next.Alarms = []string{"MFC_OPEN_FAIL"}
	w.Emit(next)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got phreg.Snapshot
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "FAILSAFE", got.State)
	assert.Equal(t, []string{"MFC_OPEN_FAIL"}, got.Alarms)

	// No temp file left behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestEmitUnwritablePathDoesNotPanic(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "missing", "latest.json"))
	assert.NotPanics(t, func() { w.Emit(sample()) })
}
