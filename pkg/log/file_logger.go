package log

import (
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger writes protocol events as a CBOR stream.
// It is safe for concurrent use from multiple goroutines.
type FileLogger struct {
	w       io.Writer
	closer  io.Closer
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
}

// NewFileLogger creates a FileLogger that appends to the file at path,
// creating it with permissions 0644 if needed.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	l := NewStreamLogger(f)
	l.closer = f
	return l, nil
}

// NewStreamLogger creates a FileLogger writing to w. Close does not close w.
func NewStreamLogger(w io.Writer) *FileLogger {
	return &FileLogger{
		w:       w,
		encoder: traceEnc.NewEncoder(w),
	}
}

// Log writes an event.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	// Encoding errors are dropped; tracing must not disrupt the client.
	_ = l.encoder.Encode(event)
}

// Close closes the log file. It is safe to call Close multiple times.
// After Close, Log calls are silently ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Compile-time interface satisfaction check.
var _ Logger = (*FileLogger)(nil)
