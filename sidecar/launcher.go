package sidecar

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
)

// ErrAlreadySpawned is returned by a second Spawn on the same Launcher.
var ErrAlreadySpawned = errors.New("sidecar already spawned")

// eventBuffer bounds how far the pump may run ahead of the drain task.
const eventBuffer = 64

// LaunchConfig describes how the sidecar is started.
type LaunchConfig struct {
	BinDir  string            // Bundle directory; empty = directory of the host executable
	Args    []string          // Arguments passed to the sidecar
	Workdir string            // Working directory; empty = inherit
	Env     map[string]string // Overrides applied on top of the host environment and .env
}

// Launcher resolves and spawns the bundled sidecar. It spawns at most once.
type Launcher struct {
	cfg    LaunchConfig
	logger hclog.Logger

	mu      sync.Mutex
	spawned bool
}

// NewLauncher creates a launcher. A nil logger discards lifecycle logs.
func NewLauncher(cfg LaunchConfig, logger hclog.Logger) *Launcher {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Launcher{
		cfg:    cfg,
		logger: logger.Named("launcher"),
	}
}

// Spawn resolves name and starts it with stdout and stderr captured. The
// returned channel yields the child's output lines and a final
// EventTerminated, then closes.
func (l *Launcher) Spawn(name string) (<-chan OutputEvent, *Child, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.spawned {
		return nil, nil, ErrAlreadySpawned
	}
	l.spawned = true

	path, err := l.Resolve(name)
	if err != nil {
		return nil, nil, err
	}

	env, err := l.environ()
	if err != nil {
		return nil, nil, err
	}

	cmd := exec.Command(path, l.cfg.Args...)
	cmd.Env = env
	if l.cfg.Workdir != "" {
		cmd.Dir = l.cfg.Workdir
	}
	configureCmd(cmd)

	// Pipes are created by hand so that Wait does not close the read ends
	// before the pump has consumed them.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		stdoutR.Close()
		stdoutW.Close()
		return nil, nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	child := &Child{
		Path:   path,
		cmd:    cmd,
		exited: make(chan struct{}),
	}

	err = startCmd(child)
	stdoutW.Close()
	stderrW.Close()
	if err != nil {
		stdoutR.Close()
		stderrR.Close()
		return nil, nil, fmt.Errorf("failed to start sidecar %s: %w", filepath.Base(path), err)
	}
	child.pid = cmd.Process.Pid

	l.logger.Info("spawned sidecar", "path", path, "pid", child.pid)

	go child.wait()

	events := make(chan OutputEvent, eventBuffer)
	go pump(child, stdoutR, stderrR, events)

	return events, child, nil
}

// environ layers the host environment, an optional .env file in the
// bundle directory and the configured overrides, in that order.
func (l *Launcher) environ() ([]string, error) {
	envMap := make(map[string]string)

	for _, env := range os.Environ() {
		if idx := strings.Index(env, "="); idx > 0 {
			envMap[env[:idx]] = env[idx+1:]
		}
	}

	dir, err := l.binDir()
	if err != nil {
		return nil, err
	}
	dotenvPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(dotenvPath); err == nil {
		dotenvVars, err := godotenv.Read(dotenvPath)
		if err != nil {
			return nil, fmt.Errorf("failed to parse .env file: %w", err)
		}
		for k, v := range dotenvVars {
			envMap[k] = v
		}
		l.logger.Debug("loaded .env file", "path", dotenvPath, "vars", len(dotenvVars))
	}

	for k, v := range l.cfg.Env {
		envMap[k] = v
	}

	env := make([]string, 0, len(envMap))
	for k, v := range envMap {
		env = append(env, k+"="+v)
	}
	return env, nil
}

// pump turns the two output pipes into an ordered event stream. The
// terminal event is sent only after both pipes reach EOF and the process
// has been reaped, so no output is lost.
func pump(c *Child, stdout, stderr *os.File, events chan<- OutputEvent) {
	defer close(events)

	var wg sync.WaitGroup
	wg.Add(2)
	go readLines(&wg, stdout, EventStdout, events)
	go readLines(&wg, stderr, EventStderr, events)
	wg.Wait()

	<-c.exited

	var exitErr *exec.ExitError
	if err := c.waitErr; err != nil && !errors.As(err, &exitErr) {
		events <- OutputEvent{Kind: EventError, Err: err}
	}

	ev := OutputEvent{Kind: EventTerminated}
	if code, ok := c.ExitCode(); ok {
		ev.Code = &code
	}
	ev.Signal = exitSignal(c.cmd.ProcessState)
	events <- ev
}

// readLines forwards complete lines from pipe until EOF. A line is only
// emitted once its newline arrives, however long the child pauses in the
// middle of it; an unterminated tail is flushed at EOF.
func readLines(wg *sync.WaitGroup, pipe *os.File, kind EventKind, events chan<- OutputEvent) {
	defer wg.Done()
	defer pipe.Close()

	r := bufio.NewReaderSize(pipe, 64*1024)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			events <- OutputEvent{Kind: kind, Line: bytes.TrimSuffix(line, []byte("\n"))}
		}
		if err != nil {
			return
		}
	}
}
