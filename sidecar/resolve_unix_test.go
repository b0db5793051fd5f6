//go:build !windows

package sidecar

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolve_SkipsNonExecutable(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "server"), []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	l := NewLauncher(LaunchConfig{BinDir: dir}, nil)
	if _, err := l.Resolve("server"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-executable file, got %v", err)
	}
}
