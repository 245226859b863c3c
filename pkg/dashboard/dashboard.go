// Package dashboard publishes the latest controller snapshot as a JSON file
// for external viewers. The file is replaced atomically so a reader never
// observes a half-written document.
package dashboard

import (
	"encoding/json"
	"log"
	"os"

	"github.com/MaulikItaliya/phreg/pkg/phreg"
)

// Writer emits each snapshot to a fixed path via write-then-rename.
type Writer struct {
	path string
}

// NewWriter returns a dashboard writer for path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Emit serializes snap and swaps it into place. Failures are logged and
// dropped: the dashboard is an observer, never a reason to disturb the loop.
func (w *Writer) Emit(snap phreg.Snapshot) {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		log.Printf("[dashboard] marshal: %v", err)
		return
	}

	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		log.Printf("[dashboard] write %s: %v", tmp, err)
		return
	}
	if err := os.Rename(tmp, w.path); err != nil {
		log.Printf("[dashboard] rename to %s: %v", w.path, err)
		_ = os.Remove(tmp)
	}
}

// Path returns the target file path.
func (w *Writer) Path() string { return w.path }

var _ phreg.Sink = (*Writer)(nil)
