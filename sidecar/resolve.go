package sidecar

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrNotFound is returned when no bundled executable matches a name.
var ErrNotFound = errors.New("sidecar executable not found")

// TargetTriple returns the packaging target triple for a GOOS/GOARCH pair.
// Bundled sidecars are named "<name>-<triple>" so that several platforms
// can ship from one build directory.
func TargetTriple(goos, goarch string) (string, error) {
	arch := map[string]string{
		"amd64": "x86_64",
		"arm64": "aarch64",
		"386":   "i686",
	}[goarch]
	if arch == "" {
		return "", fmt.Errorf("unsupported architecture: %s", goarch)
	}

	switch goos {
	case "darwin":
		if goarch == "386" {
			break
		}
		return arch + "-apple-darwin", nil
	case "windows":
		return arch + "-pc-windows-msvc", nil
	case "linux":
		return arch + "-unknown-linux-gnu", nil
	}
	return "", fmt.Errorf("unsupported platform: %s/%s", goos, goarch)
}

// candidates lists the file names tried for name, most specific first.
func candidates(name string) []string {
	var names []string
	if triple, err := TargetTriple(runtime.GOOS, runtime.GOARCH); err == nil {
		names = append(names, name+"-"+triple+exeSuffix)
	}
	return append(names, name+exeSuffix)
}

// Resolve locates the bundled executable for name inside the launcher's
// bundle directory.
func (l *Launcher) Resolve(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid sidecar name %q: %w", name, ErrNotFound)
	}

	dir, err := l.binDir()
	if err != nil {
		return "", err
	}

	tried := make([]string, 0, 2)
	for _, candidate := range candidates(name) {
		path := filepath.Join(dir, candidate)
		tried = append(tried, path)

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() || !isExecutable(info) {
			continue
		}
		return path, nil
	}

	return "", fmt.Errorf("%w: tried %s", ErrNotFound, strings.Join(tried, ", "))
}

func (l *Launcher) binDir() (string, error) {
	if l.cfg.BinDir != "" {
		return l.cfg.BinDir, nil
	}

	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate host executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(self); err == nil {
		self = resolved
	}
	return filepath.Dir(self), nil
}
