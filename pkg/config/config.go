// Package config holds the startup configuration of the controller. The
// reactor set and channel mapping are fixed for a process lifetime; nothing
// here is reloadable at runtime.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Default serial endpoints for the lab deployment.
const (
	defaultMM44Ports = "/dev/serial/by-id/usb-FTDI_USB__-__Serial_Cable_FTXWTKP3-if00-port0," +
		"/dev/serial/by-id/usb-FTDI_USB__-__Serial_Cable_FTXWTKP3-if01-port0"
	defaultMFCPort = "/dev/ttyUSB2"
)

// Conservative field defaults for the control algorithm.
const (
	DefaultKp       = 25.0
	DefaultKi       = 1.0
	DefaultKd       = 0.0
	DefaultDeadband = 0.05
)

// ReactorConfig is one reactor's immutable wiring and control targets.
type ReactorConfig struct {
	Name    string `yaml:"name"`
	Enabled bool   `yaml:"enabled"`

	// Analyzer channel mapping: (device index, channel id) for each role.
	PHDevice  int    `yaml:"ph_device"`
	PHChannel string `yaml:"ph_channel"`
	DODevice  int    `yaml:"do_device"`
	DOChannel string `yaml:"do_channel"`

	// MFC slave addresses on the actuator bus.
	AirAddr int `yaml:"air_addr"`
	CO2Addr int `yaml:"co2_addr"`

	Setpoint    float64 `yaml:"ph_setpoint"`
	AirBaseline float64 `yaml:"air_baseline"`
}

// Config is the full startup configuration.
type Config struct {
	MM44Ports []string
	MFCPort   string
	WordOrder string
	NoMFC     bool

	Period     time.Duration
	StaleAfter time.Duration

	Kp       float64
	Ki       float64
	Kd       float64
	Deadband float64

	// SplitRange allows negative PID output to boost AIR; otherwise the
	// controller is CO2-only and negative demand clamps to zero.
	SplitRange bool

	// ReadbackFlow reads measured flow into the snapshot each iteration.
	// Off by default: every readback spends bus time inside the loop.
	ReadbackFlow bool

	DashboardPath string
	LogDir        string
	LogInterval   time.Duration

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string

	Reactors []ReactorConfig
}

// Default returns the deployment defaults.
func Default() Config {
	return Config{
		MM44Ports:     strings.Split(defaultMM44Ports, ","),
		MFCPort:       defaultMFCPort,
		WordOrder:     "hi_lo",
		Period:        time.Second,
		StaleAfter:    3 * time.Second,
		Kp:            DefaultKp,
		Ki:            DefaultKi,
		Kd:            DefaultKd,
		Deadband:      DefaultDeadband,
		SplitRange:    true,
		DashboardPath: "/tmp/mm44_latest.json",
		LogDir:        getenv("PHREG_LOG_DIR", "/mnt/phreg_logs"),
		LogInterval:   60 * time.Second,
		MQTTClientID:  "phreg-controller",
		Reactors:      DefaultReactors(),
	}
}

// DefaultReactors is the built-in three-reactor topology.
func DefaultReactors() []ReactorConfig {
	return []ReactorConfig{
		{Name: "R1", Enabled: true, PHDevice: 0, PHChannel: "C1", DODevice: 1, DOChannel: "C2", AirAddr: 1, CO2Addr: 2, Setpoint: 7.40, AirBaseline: 20.0},
		{Name: "R2", Enabled: true, PHDevice: 0, PHChannel: "C2", DODevice: 1, DOChannel: "C3", AirAddr: 6, CO2Addr: 5, Setpoint: 7.40, AirBaseline: 20.0},
		{Name: "R3", Enabled: true, PHDevice: 1, PHChannel: "C1", DODevice: 0, DOChannel: "C3", AirAddr: 7, CO2Addr: 4, Setpoint: 7.40, AirBaseline: 20.0},
	}
}

// LoadReactors reads a reactor topology from a YAML file.
func LoadReactors(path string) ([]ReactorConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Reactors []ReactorConfig `yaml:"reactors"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if len(doc.Reactors) == 0 {
		return nil, fmt.Errorf("config: %s defines no reactors", path)
	}
	return doc.Reactors, nil
}

// ApplyEnv folds PHREG_* environment overrides into c.
func (c *Config) ApplyEnv() error {
	if v := getenv("PHREG_MM44_PORTS", ""); v != "" {
		c.MM44Ports = splitPorts(v)
	}
	c.MFCPort = getenv("PHREG_MFC_PORT", c.MFCPort)
	c.WordOrder = getenv("PHREG_WORD_ORDER", c.WordOrder)
	c.DashboardPath = getenv("PHREG_DASHBOARD", c.DashboardPath)
	c.MQTTBroker = getenv("PHREG_MQTT_BROKER", c.MQTTBroker)
	c.MQTTTopic = getenv("PHREG_MQTT_TOPIC", c.MQTTTopic)

	var err error
	if c.Period, err = durEnvMS("PHREG_PERIOD_MS", c.Period); err != nil {
		return err
	}
	if c.StaleAfter, err = durEnvMS("PHREG_STALE_MS", c.StaleAfter); err != nil {
		return err
	}
	if c.Deadband, err = atofEnv("PHREG_DEADBAND", c.Deadband); err != nil {
		return err
	}
	if c.Kp, err = atofEnv("PHREG_KP", c.Kp); err != nil {
		return err
	}
	if c.Ki, err = atofEnv("PHREG_KI", c.Ki); err != nil {
		return err
	}
	if c.Kd, err = atofEnv("PHREG_KD", c.Kd); err != nil {
		return err
	}
	return nil
}

// Validate enforces the startup invariants. A violation here is the only
// fatal condition in the system: the process must exit non-zero before the
// loop starts.
func (c Config) Validate() error {
	if len(c.MM44Ports) != 2 {
		return fmt.Errorf("config: exactly 2 MM44 analyzer ports required, got %d", len(c.MM44Ports))
	}
	if !c.NoMFC && c.MFCPort == "" {
		return fmt.Errorf("config: MFC port required unless running with --no-mfc")
	}
	if c.Period <= 0 {
		return fmt.Errorf("config: loop period must be positive")
	}
	if c.Deadband < 0 {
		return fmt.Errorf("config: deadband must not be negative")
	}
	if len(c.Reactors) == 0 {
		return fmt.Errorf("config: no reactors configured")
	}

	names := make(map[string]struct{}, len(c.Reactors))
	for _, r := range c.Reactors {
		if r.Name == "" {
			return fmt.Errorf("config: reactor with empty name")
		}
		if _, dup := names[r.Name]; dup {
			return fmt.Errorf("config: duplicate reactor name %q", r.Name)
		}
		names[r.Name] = struct{}{}

		for role, dev := range map[string]int{"pH": r.PHDevice, "DO": r.DODevice} {
			if dev < 0 || dev >= len(c.MM44Ports) {
				return fmt.Errorf("config: reactor %s: %s device index %d out of range", r.Name, role, dev)
			}
		}
		for role, ch := range map[string]string{"pH": r.PHChannel, "DO": r.DOChannel} {
			if ch == "" {
				return fmt.Errorf("config: reactor %s: empty %s channel", r.Name, role)
			}
		}
		for role, addr := range map[string]int{"air": r.AirAddr, "co2": r.CO2Addr} {
			if addr < 1 || addr > 247 {
				return fmt.Errorf("config: reactor %s: %s address %d outside 1..247", r.Name, role, addr)
			}
		}
	}
	return nil
}

func splitPorts(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atofEnv(key string, def float64) (float64, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	fv, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid float for %s: %v", key, err)
	}
	return fv, nil
}

func durEnvMS(key string, def time.Duration) (time.Duration, error) {
	v := getenv(key, "")
	if v == "" {
		return def, nil
	}
	iv, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || iv <= 0 {
		return 0, fmt.Errorf("config: invalid millisecond value for %s: %q", key, v)
	}
	return time.Duration(iv) * time.Millisecond, nil
}
