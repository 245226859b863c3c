package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/MaulikItaliya/phreg/pkg/config"
	"github.com/MaulikItaliya/phreg/pkg/dashboard"
	"github.com/MaulikItaliya/phreg/pkg/datalog"
	"github.com/MaulikItaliya/phreg/pkg/phreg"
	"github.com/MaulikItaliya/phreg/pkg/telemetry"
)

func main() {
	cfg := config.Default()

	var (
		mm44Ports    string
		reactorsPath string
		periodMS     int
		staleMS      int
	)

	root := &cobra.Command{
		Use:           "phreg",
		Short:         "Multi-reactor pH controller for MM44 analyzers and MFC gas lines",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mm44Ports != "" {
				cfg.MM44Ports = splitList(mm44Ports)
			}
			if periodMS > 0 {
				cfg.Period = time.Duration(periodMS) * time.Millisecond
			}
			if staleMS > 0 {
				cfg.StaleAfter = time.Duration(staleMS) * time.Millisecond
			}
			if reactorsPath != "" {
				reactors, err := config.LoadReactors(reactorsPath)
				if err != nil {
					return err
				}
				cfg.Reactors = reactors
			}
			if err := cfg.ApplyEnv(); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fl := root.Flags()
	fl.StringVar(&mm44Ports, "mm44-ports", "", "comma-separated analyzer serial ports (exactly 2)")
	fl.StringVar(&cfg.MFCPort, "mfc-port", cfg.MFCPort, "MFC bus serial port")
	fl.BoolVar(&cfg.NoMFC, "no-mfc", false, "run without the actuator bus (sensors and control math only)")
	fl.StringVar(&cfg.WordOrder, "word-order", cfg.WordOrder, "MFC float register word order: hi_lo or lo_hi")
	fl.IntVar(&periodMS, "period-ms", 0, "control loop period in milliseconds")
	fl.IntVar(&staleMS, "stale-ms", 0, "pH staleness threshold in milliseconds")
	fl.Float64Var(&cfg.Deadband, "deadband", cfg.Deadband, "pH error deadband")
	fl.Float64Var(&cfg.Kp, "kp", cfg.Kp, "PID proportional gain")
	fl.Float64Var(&cfg.Ki, "ki", cfg.Ki, "PID integral gain")
	fl.Float64Var(&cfg.Kd, "kd", cfg.Kd, "PID derivative gain")
	fl.BoolVar(&cfg.SplitRange, "split-range", cfg.SplitRange, "boost AIR on negative demand instead of clamping to CO2-only")
	fl.BoolVar(&cfg.ReadbackFlow, "readback", false, "read measured MFC flow into each snapshot")
	fl.StringVar(&reactorsPath, "reactors", "", "YAML file with the reactor topology (default: built-in three reactors)")
	fl.StringVar(&cfg.DashboardPath, "dashboard", cfg.DashboardPath, "path of the live JSON snapshot")
	fl.StringVar(&cfg.LogDir, "log-dir", cfg.LogDir, "directory for daily CSV logs")
	fl.StringVar(&cfg.MQTTBroker, "mqtt-broker", cfg.MQTTBroker, "MQTT broker URL for telemetry (empty disables)")
	fl.StringVar(&cfg.MQTTTopic, "mqtt-topic", "phreg/status", "MQTT topic for snapshots")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "phreg:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sinks := []phreg.Sink{
		dashboard.NewWriter(cfg.DashboardPath),
		datalog.NewLogger(cfg.LogDir, cfg.LogInterval),
		&consoleSink{},
	}
	var pub *telemetry.Publisher
	if cfg.MQTTBroker != "" {
		pub = telemetry.NewPublisher(cfg.MQTTBroker, cfg.MQTTTopic, cfg.MQTTClientID)
		sinks = append(sinks, pub)
	}

	ctl, err := phreg.New(phreg.Options{Config: cfg, Sinks: sinks})
	if err != nil {
		return err
	}

	state := ctl.Init()
	fmt.Println("PHREG controller started.")
	for _, r := range cfg.Reactors {
		status := "enabled"
		if !r.Enabled {
			status = "disabled"
		}
		fmt.Printf("  %s: setpoint %.2f, air baseline %.1f%% (%s)\n", r.Name, r.Setpoint, r.AirBaseline, status)
	}
	if state == phreg.StateFailsafe {
		log.Printf("[safety] started in FAILSAFE: %s", ctl.Alarms().Join())
	}

	ctl.Run(ctx)

	fmt.Println("Stopping controller. CO2 set to 0 for all reactors.")
	ctl.Shutdown()
	if pub != nil {
		pub.Close()
	}
	return nil
}

// consoleSink prints a one-line per-iteration status, the operator's view
// when running in a terminal.
type consoleSink struct {
	lastAlarms string
}

func (s *consoleSink) Emit(snap phreg.Snapshot) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", snap.Time.Format("15:04:05"), snap.State)
	for _, r := range snap.Reactors {
		ph := "--"
		if r.PH != nil {
			ph = fmt.Sprintf("%.2f", *r.PH)
		}
		fmt.Fprintf(&b, " | %s pH=%s co2=%.1f air=%.1f", r.Name, ph, r.CO2Cmd, r.AirCmd)
	}
	fmt.Println(b.String())

	alarms := strings.Join(snap.Alarms, ",")
	if alarms != s.lastAlarms {
		if alarms == "" {
			log.Printf("[safety] all alarms cleared")
		} else {
			log.Printf("[safety] active alarms: %s", alarms)
		}
		s.lastAlarms = alarms
	}
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
