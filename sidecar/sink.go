package sidecar

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Sink is the append-only diagnostic destination for child output. It is
// safe for concurrent use by the drain task and the shutdown hook.
type Sink struct {
	mu     sync.Mutex
	stdout io.Writer
	stderr io.Writer

	stdoutFile *os.File
	stderrFile *os.File

	tail *TailBuffer
}

// NewSink creates a sink writing stdout-tagged lines to stdout and
// stderr-tagged lines to stderr. tailSize bytes of recent lines are kept
// in memory; zero disables the tail.
func NewSink(stdout, stderr io.Writer, tailSize int) *Sink {
	s := &Sink{
		stdout: stdout,
		stderr: stderr,
	}
	if tailSize > 0 {
		s.tail = NewTailBuffer(tailSize)
	}
	return s
}

// OpenLogFiles additionally appends every line to
// <dir>/<name>-stdout.log and <dir>/<name>-stderr.log.
func (s *Sink) OpenLogFiles(dir, name string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	stdoutPath := filepath.Join(dir, fmt.Sprintf("%s-stdout.log", name))
	stderrPath := filepath.Join(dir, fmt.Sprintf("%s-stderr.log", name))

	stdoutFile, err := os.OpenFile(stdoutPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open stdout log file: %w", err)
	}

	stderrFile, err := os.OpenFile(stderrPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		stdoutFile.Close()
		return fmt.Errorf("failed to open stderr log file: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeFilesLocked()
	s.stdoutFile = stdoutFile
	s.stderrFile = stderrFile
	return nil
}

// Close closes the log files, if any. Later lines still reach the writers.
func (s *Sink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeFilesLocked()
}

func (s *Sink) closeFilesLocked() {
	if s.stdoutFile != nil {
		s.stdoutFile.Close()
		s.stdoutFile = nil
	}
	if s.stderrFile != nil {
		s.stderrFile.Close()
		s.stderrFile = nil
	}
}

// Stdout records a line the child wrote to its standard output.
func (s *Sink) Stdout(line []byte) {
	s.write(false, "[child stdout] "+decodeLine(line))
}

// Stderr records a line the child wrote to its standard error.
func (s *Sink) Stderr(line []byte) {
	s.write(true, "[child stderr] "+decodeLine(line))
}

// Terminated records the child's exit. A nil code is reported as unknown.
func (s *Sink) Terminated(code *int) {
	status := "unknown"
	if code != nil {
		status = fmt.Sprintf("%d", *code)
	}
	s.write(false, "[child] terminated with code: "+status)
}

// Stopped records a successful kill from the shutdown hook.
func (s *Sink) Stopped() {
	s.write(false, "[child] stopped")
}

// Tail returns the most recent lines, oldest first.
func (s *Sink) Tail() []byte {
	if s.tail == nil {
		return nil
	}
	return s.tail.Read()
}

func (s *Sink) write(toStderr bool, msg string) {
	line := []byte(msg + "\n")

	s.mu.Lock()
	defer s.mu.Unlock()

	w, file := s.stdout, s.stdoutFile
	if toStderr {
		w, file = s.stderr, s.stderrFile
	}

	// Sink failures are not reportable anywhere; drop them.
	if w != nil {
		w.Write(line)
	}
	if file != nil {
		file.Write(line)
	}
	if s.tail != nil {
		s.tail.Write(line)
	}
}

// decodeLine strips the line terminator and replaces invalid UTF-8.
func decodeLine(line []byte) string {
	line = bytes.TrimRight(line, "\r\n")
	return strings.ToValidUTF8(string(line), "\uFFFD")
}

// TailBuffer is a fixed-size buffer keeping the newest bytes written to it.
type TailBuffer struct {
	data []byte
	size int
	mu   sync.RWMutex
}

// NewTailBuffer creates a tail buffer holding at most size bytes.
func NewTailBuffer(size int) *TailBuffer {
	return &TailBuffer{
		data: make([]byte, 0, size),
		size: size,
	}
}

// Write implements io.Writer
func (tb *TailBuffer) Write(p []byte) (n int, err error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	switch {
	case len(p) >= tb.size:
		tb.data = append(tb.data[:0], p[len(p)-tb.size:]...)
	case len(tb.data)+len(p) > tb.size:
		excess := len(tb.data) + len(p) - tb.size
		tb.data = append(tb.data[:0], tb.data[excess:]...)
		tb.data = append(tb.data, p...)
	default:
		tb.data = append(tb.data, p...)
	}

	return len(p), nil
}

// Read returns a copy of the buffer contents
func (tb *TailBuffer) Read() []byte {
	tb.mu.RLock()
	defer tb.mu.RUnlock()

	result := make([]byte, len(tb.data))
	copy(result, tb.data)
	return result
}
