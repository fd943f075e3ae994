package genclient

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// TraceEntry is one backend exchange written as an NDJSON line.
type TraceEntry struct {
	Timestamp   time.Time       `json:"timestamp"`
	Operation   string          `json:"operation"`
	Endpoint    string          `json:"endpoint"`
	Method      string          `json:"method"`
	RequestBody json.RawMessage `json:"request_body,omitempty"`
	StatusCode  int             `json:"status_code,omitempty"`
	ContentType string          `json:"content_type,omitempty"`
	Response    json.RawMessage `json:"response,omitempty"`
	Bytes       int             `json:"bytes,omitempty"`
	Error       string          `json:"error,omitempty"`
	DurationMs  int64           `json:"duration_ms"`
}

type traceFile struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

func (t *traceFile) write(entry TraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.enc.Encode(entry)
}

func (t *traceFile) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.f.Close()
}

var activeTrace atomic.Pointer[traceFile]

// EnableTracing appends every backend exchange to path as NDJSON until
// DisableTracing, which is also returned for convenience. A previously
// open trace file is closed.
func EnableTracing(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	if prev := activeTrace.Swap(&traceFile{f: f, enc: json.NewEncoder(f)}); prev != nil {
		prev.close()
	}
	return DisableTracing, nil
}

// DisableTracing stops tracing and closes the trace file.
func DisableTracing() {
	if prev := activeTrace.Swap(nil); prev != nil {
		prev.close()
	}
}

// IsTracingEnabled reports whether a trace file is open.
func IsTracingEnabled() bool {
	return activeTrace.Load() != nil
}

// Trace records entry when tracing is enabled. Response bodies that are not
// JSON are dropped and only their size is kept.
func Trace(entry TraceEntry) {
	t := activeTrace.Load()
	if t == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if len(entry.Response) > 0 && !json.Valid(entry.Response) {
		entry.Bytes = len(entry.Response)
		entry.Response = nil
	}
	t.write(entry)
}
