package genclient

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// FileSink saves downloads into a directory. Payloads are staged in a temp
// file next to the target and renamed into place on Save.
type FileSink struct {
	Dir string
}

// PathFor returns where Save stores filename.
func (s FileSink) PathFor(filename string) string {
	return filepath.Join(s.dir(), filepath.Base(filename))
}

func (s FileSink) dir() string {
	if strings.TrimSpace(s.Dir) == "" {
		return "."
	}
	return s.Dir
}

// Acquire implements Sink.
func (s FileSink) Acquire(payload []byte, _ string) (SinkHandle, error) {
	dir := s.dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".thumbsmith-*.part")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	return &fileHandle{sink: s, tmpPath: tmp.Name()}, nil
}

type fileHandle struct {
	sink     FileSink
	tmpPath  string
	saved    bool
	released bool
}

func (h *fileHandle) Save(filename string) error {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid filename %q", filename)
	}
	if err := os.Rename(h.tmpPath, h.sink.PathFor(name)); err != nil {
		return err
	}
	h.saved = true
	return nil
}

func (h *fileHandle) Release() {
	if h.released {
		return
	}
	h.released = true
	if h.saved {
		return
	}
	_ = os.Remove(h.tmpPath)
}

// ResponseSink writes downloads to an HTTP response as an attachment.
type ResponseSink struct {
	W http.ResponseWriter
}

// Acquire implements Sink.
func (s ResponseSink) Acquire(payload []byte, contentType string) (SinkHandle, error) {
	if s.W == nil {
		return nil, fmt.Errorf("response writer is required")
	}
	return &responseHandle{w: s.W, payload: payload, contentType: contentType}, nil
}

type responseHandle struct {
	w           http.ResponseWriter
	payload     []byte
	contentType string
}

func (h *responseHandle) Save(filename string) error {
	if h.payload == nil {
		return fmt.Errorf("download already released")
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filepath.Base(filename)})
	if disposition == "" {
		return fmt.Errorf("invalid filename %q", filename)
	}

	header := h.w.Header()
	header.Set("Content-Type", h.contentType)
	header.Set("Content-Disposition", disposition)
	header.Set("Content-Length", strconv.Itoa(len(h.payload)))
	h.w.WriteHeader(http.StatusOK)
	_, err := h.w.Write(h.payload)
	return err
}

func (h *responseHandle) Release() {
	h.payload = nil
}
