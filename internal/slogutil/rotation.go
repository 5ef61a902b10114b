package slogutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// RotatingFile is an append-only log file that is moved aside once it would
// grow past a size limit. Backups are numbered server.log.1 (newest) up to
// server.log.<keep>; older ones are removed.
type RotatingFile struct {
	mu        sync.Mutex
	path      string
	limit     int64
	keep      int
	f         *os.File
	written   int64
	rotations int
}

// OpenRotatingFile opens path for appending, creating parent directories.
// A limit of 0 disables rotation; keep 0 discards the old file on rotation.
func OpenRotatingFile(path string, limit int64, keep int) (*RotatingFile, error) {
	r := &RotatingFile{path: path, limit: limit, keep: keep}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RotatingFile) open() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	r.f = f
	r.written = info.Size()
	return nil
}

// Write appends p, rotating first when p would push the file past the
// limit. A record is never split across files. When rotation fails the
// record still goes to the current file.
func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.limit > 0 && r.written > 0 && r.written+int64(len(p)) > r.limit {
		_ = r.rotate()
	}
	if r.f == nil {
		if err := r.open(); err != nil {
			return 0, err
		}
	}
	n, err := r.f.Write(p)
	r.written += int64(n)
	return n, err
}

// Close closes the current file.
func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

// Rotations reports how many times the file has been moved aside.
func (r *RotatingFile) Rotations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rotations
}

func (r *RotatingFile) rotate() error {
	if r.f != nil {
		if err := r.f.Close(); err != nil {
			return err
		}
		r.f = nil
	}

	if r.keep > 0 {
		// Shift .n-1 -> .n from the oldest down; the rename over .keep drops it.
		for i := r.keep - 1; i >= 1; i-- {
			_ = os.Rename(r.backup(i), r.backup(i+1))
		}
		_ = os.Rename(r.path, r.backup(1))
	} else {
		_ = os.Remove(r.path)
	}

	r.rotations++
	return r.open()
}

func (r *RotatingFile) backup(n int) string {
	return r.path + "." + strconv.Itoa(n)
}

var sizeUnits = []struct {
	suffix string
	factor float64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseSize reads sizes such as "500KB", "10MB" or "1.5GB" (case-insensitive,
// binary multiples). A bare number is bytes. Empty or invalid input is 0.
func ParseSize(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	factor := 1.0
	for _, u := range sizeUnits {
		if strings.HasSuffix(s, u.suffix) {
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			factor = u.factor
			break
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return int64(v * factor)
}

// NewFileLoggerWithRotation opens a logger on a RotatingFile. An empty or
// invalid maxSize gives a plain append-only file.
func NewFileLoggerWithRotation(path string, level slog.Level, maxSize string, maxBackups int) (*slog.Logger, io.Closer, error) {
	limit := ParseSize(maxSize)
	if limit <= 0 {
		return NewFileLogger(path, level)
	}
	rf, err := OpenRotatingFile(path, limit, maxBackups)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return NewLogger(rf, level), rf, nil
}
