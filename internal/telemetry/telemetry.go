// Package telemetry writes agent events as JSON lines, correlated by turn ID.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Emitter appends events to a JSONL file. A nil or disabled Emitter drops
// events, so callers never need to guard their Emit calls.
type Emitter struct {
	path string
	mu   sync.Mutex
}

// NewEmitter returns an enabled emitter for path, or nil when observe is false.
func NewEmitter(observe bool, path string) *Emitter {
	if !observe {
		return nil
	}
	if path == "" {
		path = filepath.Join(".agent", "events.jsonl")
	}
	return &Emitter{path: path}
}

// Enabled reports whether events are persisted.
func (e *Emitter) Enabled() bool { return e != nil }

// Emit writes a single JSON line. It augments fields with RFC3339Nano time and
// the event name; write failures go to stderr and are otherwise ignored.
func (e *Emitter) Emit(name string, fields map[string]any) {
	if e == nil {
		return
	}

	// Make a shallow copy so callers' maps aren't mutated.
	m := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		m[k] = v
	}
	m["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	m["event"] = name

	b, err := json.Marshal(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: marshal: %v\n", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: mkdir %s: %v\n", filepath.Dir(e.path), err)
		return
	}
	f, err := os.OpenFile(e.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: open %s: %v\n", e.path, err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: write %s: %v\n", e.path, err)
	}
}
