package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"

	"cubeworld.dev/internal/session"
)

// segmentLayout names one log segment per UTC hour.
const segmentLayout = "2006-01-02-15"

// TransitionLogger appends session.TransitionLogEntry values as zstd
// compressed JSON lines under <data>/transitions, one file per hour. Each
// entry is flushed through the encoder so a crash loses at most the
// unfinished zstd frame.
type TransitionLogger struct {
	dir   string
	clock func() time.Time

	mu      sync.Mutex
	segment string
	file    *os.File
	zw      *zstd.Encoder
	buf     *bufio.Writer
	enc     *json.Encoder

	entries  atomic.Uint64
	segments atomic.Uint64
}

func NewTransitionLogger(dataDir string) *TransitionLogger {
	return &TransitionLogger{
		dir:   filepath.Join(dataDir, "transitions"),
		clock: time.Now,
	}
}

// Entries is the number of entries written since start.
func (l *TransitionLogger) Entries() uint64 { return l.entries.Load() }

// Segments is the number of hourly files opened since start.
func (l *TransitionLogger) Segments() uint64 { return l.segments.Load() }

func (l *TransitionLogger) WriteTransition(e session.TransitionLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if seg := l.clock().UTC().Format(segmentLayout); seg != l.segment {
		if err := l.openSegment(seg); err != nil {
			return err
		}
	}
	// json.Encoder terminates each value with '\n'.
	if err := l.enc.Encode(e); err != nil {
		return err
	}
	if err := l.buf.Flush(); err != nil {
		return err
	}
	if err := l.zw.Flush(); err != nil {
		return err
	}
	l.entries.Add(1)
	return nil
}

func (l *TransitionLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeSegment()
}

func (l *TransitionLogger) openSegment(seg string) error {
	if err := l.closeSegment(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(segmentPath(l.dir, seg), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("zstd writer: %w", err)
	}
	l.file, l.zw = f, zw
	l.buf = bufio.NewWriterSize(zw, 64*1024)
	l.enc = json.NewEncoder(l.buf)
	l.segment = seg
	l.segments.Add(1)
	return nil
}

func (l *TransitionLogger) closeSegment() error {
	if l.file == nil {
		return nil
	}
	err := l.buf.Flush()
	if cerr := l.zw.Close(); err == nil {
		err = cerr
	}
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file, l.zw, l.buf, l.enc = nil, nil, nil, nil
	l.segment = ""
	return err
}

func segmentPath(dir, seg string) string {
	return filepath.Join(dir, "transitions-"+seg+".jsonl.zst")
}
