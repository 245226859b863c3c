package alarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetIdempotent(t *testing.T) {
	s := NewSet()
	s.Raise("A")
	s.Raise("A")
	assert.Equal(t, 1, s.Len())

	s.Clear("A")
	s.Clear("A")
	assert.Zero(t, s.Len())
	s.Clear("never-raised")
	assert.Zero(t, s.Len())
}

func TestSetIf(t *testing.T) {
	s := NewSet()
	s.SetIf("A", true)
	assert.True(t, s.Has("A"))

	// Re-evaluating an unchanged condition changes nothing.
	s.SetIf("A", true)
	assert.Equal(t, []string{"A"}, s.Active())

	s.SetIf("A", false)
	assert.False(t, s.Has("A"))
}

func TestActiveSorted(t *testing.T) {
	s := NewSet()
	s.Raise("STALE_PH_R2")
	s.Raise("MAP_CH_MISSING_R1_PH")
	s.Raise("MFC_OPEN_FAIL")
	assert.Equal(t, []string{"MAP_CH_MISSING_R1_PH", "MFC_OPEN_FAIL", "STALE_PH_R2"}, s.Active())
	assert.Equal(t, "MAP_CH_MISSING_R1_PH,MFC_OPEN_FAIL,STALE_PH_R2", s.Join())
}

func TestReset(t *testing.T) {
	s := NewSet()
	s.Raise("A")
	s.Raise("B")
	s.Reset()
	assert.Zero(t, s.Len())
	assert.Empty(t, s.Active())
}

func TestCodeConstructors(t *testing.T) {
	assert.Equal(t, "MM44_READ_FAIL_1", AnalyzerReadFail(1))
	assert.Equal(t, "MAP_CH_MISSING_R1_PH", ChannelMissing("R1", "PH"))
	assert.Equal(t, "MAP_TYPE_MISMATCH_R3_DO", TypeMismatch("R3", "DO"))
	assert.Equal(t, "STALE_PH_R2", StalePH("R2"))
	assert.Equal(t, "MFC_WRITE_FAIL_R1_CO2", ActuatorWriteFail("R1", "CO2"))
}
