// Package mm44 reads and parses the line-oriented ASCII protocol of the MM44
// multi-channel pH/DO analyzers.
package mm44

import (
	"bytes"
	"strings"
	"time"

	serial "go.bug.st/serial"
)

// Serial parameters of the MM44 analyzers.
const (
	Baud        = 9600
	ReadTimeout = 150 * time.Millisecond
)

// MaxLinesPerCycle bounds how many lines a single device is drained for in
// one control iteration, keeping iteration latency bounded without assuming
// line boundaries align with iteration boundaries.
const MaxLinesPerCycle = 6

// LineSource is one analyzer transport. ReadLine returns the next complete
// line without its terminator, or ("", nil) when nothing is pending within
// the read timeout.
type LineSource interface {
	ReadLine() (string, error)
	Close() error
}

var _ LineSource = (*Port)(nil)

// Port is a LineSource over a physical serial port. Bytes that arrive after
// the last terminator stay buffered across calls, so a line split across
// iterations is reassembled instead of lost.
type Port struct {
	port    serial.Port
	pending []byte
	rbuf    []byte
}

// Open opens the analyzer port and configures the MM44 transport parameters.
func Open(device string) (*Port, error) {
	p, err := serial.Open(device, &serial.Mode{BaudRate: Baud})
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(ReadTimeout); err != nil {
		_ = p.Close()
		return nil, err
	}
	return &Port{port: p, rbuf: make([]byte, 256)}, nil
}

// ReadLine returns the next complete line. A read that times out with no
// complete line buffered yields ("", nil).
func (p *Port) ReadLine() (string, error) {
	for {
		if i := bytes.IndexByte(p.pending, '\n'); i >= 0 {
			line := strings.TrimRight(string(p.pending[:i]), "\r")
			p.pending = append(p.pending[:0], p.pending[i+1:]...)
			return line, nil
		}
		n, err := p.port.Read(p.rbuf)
		if err != nil {
			return "", err
		}
		if n == 0 {
			// Read timeout: nothing pending on the wire.
			return "", nil
		}
		p.pending = append(p.pending, p.rbuf[:n]...)
	}
}

func (p *Port) Close() error {
	return p.port.Close()
}

// Drain reads up to maxLines lines from src and folds every parsed channel
// into m under the given device index. An empty read stops the drain for
// this cycle; a transport error stops it and is returned to the caller so
// the device's transport alarm can be raised without touching other devices.
func Drain(src LineSource, device int, m *ChannelMap, maxLines int) error {
	for i := 0; i < maxLines; i++ {
		line, err := src.ReadLine()
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
		if parsed := ParseLine(line); len(parsed) > 0 {
			m.Apply(device, parsed)
		}
	}
	return nil
}
