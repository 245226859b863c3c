// Package datalog appends periodic CSV records of the controller's state,
// one row per reactor, to daily files. Rows are written at a fixed interval
// rather than every iteration to keep the files small enough for years of
// unattended operation.
package datalog

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/MaulikItaliya/phreg/pkg/phreg"
)

var header = []string{
	"ts", "reactor", "state", "enabled",
	"ph", "ph_sp", "co2_cmd", "air_cmd", "alarms",
}

// Logger writes one row per reactor every Interval. Files roll daily and get
// a header when created.
type Logger struct {
	dir      string
	interval time.Duration
	lastRow  time.Time
}

// NewLogger creates the log directory if needed and returns the logger.
// A directory that cannot be created disables logging rather than failing
// startup; the controller runs with or without a writable disk.
func NewLogger(dir string, interval time.Duration) *Logger {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[datalog] mkdir %s: %v (logging disabled)", dir, err)
		return &Logger{interval: interval}
	}
	return &Logger{dir: dir, interval: interval}
}

// Emit appends rows for snap when the logging interval has elapsed.
func (l *Logger) Emit(snap phreg.Snapshot) {
	if l.dir == "" {
		return
	}
	if !l.lastRow.IsZero() && snap.Time.Sub(l.lastRow) < l.interval {
		return
	}
	if err := l.append(snap); err != nil {
		log.Printf("[datalog] %v", err)
		return
	}
	l.lastRow = snap.Time
}

func (l *Logger) append(snap phreg.Snapshot) error {
	path := filepath.Join(l.dir, snap.Time.Format("20060102")+".csv")

	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	ts := snap.Time.Format(time.RFC3339)
	alarms := strings.Join(snap.Alarms, ",")
	for _, r := range snap.Reactors {
		row := []string{
			ts, r.Name, snap.State, strconv.FormatBool(r.Enabled),
			formatPH(r.PH),
			strconv.FormatFloat(r.Setpoint, 'f', 2, 64),
			strconv.FormatFloat(r.CO2Cmd, 'f', 2, 64),
			strconv.FormatFloat(r.AirCmd, 'f', 2, 64),
			alarms,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func formatPH(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}

var _ phreg.Sink = (*Logger)(nil)
