package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidateTransportCount(t *testing.T) {
	c := Default()

	c.MM44Ports = []string{"/dev/ttyUSB0"}
	assert.Error(t, c.Validate(), "one analyzer port must be rejected")

	c.MM44Ports = []string{"/dev/ttyUSB0", "/dev/ttyUSB1", "/dev/ttyUSB3"}
	assert.Error(t, c.Validate(), "three analyzer ports must be rejected")

	c.MM44Ports = []string{"/dev/ttyUSB0", "/dev/ttyUSB1"}
	assert.NoError(t, c.Validate())
}

func TestValidateReactors(t *testing.T) {
	base := Default()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"duplicate names", func(c *Config) { c.Reactors[1].Name = c.Reactors[0].Name }},
		{"empty name", func(c *Config) { c.Reactors[0].Name = "" }},
		{"device out of range", func(c *Config) { c.Reactors[0].PHDevice = 2 }},
		{"negative device", func(c *Config) { c.Reactors[0].DODevice = -1 }},
		{"empty channel", func(c *Config) { c.Reactors[0].PHChannel = "" }},
		{"bad slave address", func(c *Config) { c.Reactors[0].CO2Addr = 0 }},
		{"no reactors", func(c *Config) { c.Reactors = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			c.Reactors = append([]ReactorConfig(nil), base.Reactors...)
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestValidateMFCPort(t *testing.T) {
	c := Default()
	c.MFCPort = ""
	assert.Error(t, c.Validate())

	c.NoMFC = true
	assert.NoError(t, c.Validate(), "empty MFC port is fine without actuators")
}

func TestLoadReactorsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reactors.yaml")
	doc := `reactors:
  - name: R1
    enabled: true
    ph_device: 0
    ph_channel: C1
    do_device: 1
    do_channel: C2
    air_addr: 1
    co2_addr: 2
    ph_setpoint: 7.35
    air_baseline: 25.0
  - name: R2
    enabled: false
    ph_device: 1
    ph_channel: C3
    do_device: 0
    do_channel: C4
    air_addr: 3
    co2_addr: 4
    ph_setpoint: 7.40
    air_baseline: 20.0
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	rs, err := LoadReactors(path)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, "R1", rs[0].Name)
	assert.True(t, rs[0].Enabled)
	assert.InDelta(t, 7.35, rs[0].Setpoint, 1e-9)
	assert.Equal(t, "C3", rs[1].PHChannel)
	assert.False(t, rs[1].Enabled)
}

func TestLoadReactorsErrors(t *testing.T) {
	_, err := LoadReactors(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reactors: []\n"), 0o644))
	_, err = LoadReactors(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PHREG_MM44_PORTS", "/dev/ttyA, /dev/ttyB")
	t.Setenv("PHREG_DEADBAND", "0.1")
	t.Setenv("PHREG_PERIOD_MS", "500")

	c := Default()
	require.NoError(t, c.ApplyEnv())
	assert.Equal(t, []string{"/dev/ttyA", "/dev/ttyB"}, c.MM44Ports)
	assert.InDelta(t, 0.1, c.Deadband, 1e-9)
	assert.Equal(t, 500*time.Millisecond, c.Period)
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	t.Setenv("PHREG_KP", "abc")
	c := Default()
	assert.Error(t, c.ApplyEnv())
}
