//go:build windows

package sidecar

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

// countProcessesByExeBasename returns number of running processes whose executable basename matches exeName (case-insensitive).
func countProcessesByExeBasename(exeName string) (int, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return 0, err
	}
	defer windows.CloseHandle(snap)

	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))

	if err := windows.Process32First(snap, &pe); err != nil {
		return 0, err
	}

	want := strings.ToLower(exeName)
	count := 0
	for {
		name := windows.UTF16ToString(pe.ExeFile[:])
		name = strings.ToLower(filepath.Base(name))
		if name == want {
			count++
		}

		err = windows.Process32Next(snap, &pe)
		if err != nil {
			if errno, ok := err.(syscall.Errno); ok && errno == syscall.ERROR_NO_MORE_FILES {
				break
			}
			return count, err
		}
	}
	return count, nil
}

// The job object must take the grandchild down together with the server.
func TestProcessTreeCleanup(t *testing.T) {
	if testing.Short() {
		t.Skip("builds helper binaries")
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("get working directory: %v", err)
	}
	testServiceDir := filepath.Join(wd, "..", "test-service")

	binDir := t.TempDir()
	if err := runGoBuild(filepath.Join(testServiceDir, "fakeserver"), filepath.Join(binDir, "server.exe")); err != nil {
		t.Fatalf("build fakeserver: %v", err)
	}
	if err := runGoBuild(filepath.Join(testServiceDir, "grandchild"), filepath.Join(binDir, "grandchild.exe")); err != nil {
		t.Fatalf("build grandchild: %v", err)
	}

	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	launcher := NewLauncher(LaunchConfig{
		BinDir: binDir,
		Args:   []string{"-spawn"},
		Env:    map[string]string{"SIDECAR_HOST": "127.0.0.1", "SIDECAR_PORT": "0"},
	}, nil)
	sup := NewSupervisor("server", launcher, NewSink(stdout, stderr, 0), nil)

	if err := sup.OnReady(); err != nil {
		t.Fatalf("OnReady: %v", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for !strings.Contains(stdout.String(), "grandchild-start") {
		if time.Now().After(deadline) {
			t.Fatalf("grandchild never started, stdout = %q", stdout.String())
		}
		time.Sleep(25 * time.Millisecond)
	}

	if !sup.OnExit(ExitSignal) {
		t.Fatal("OnExit should take the handle")
	}

	for i := 0; i < 40; i++ {
		count, err := countProcessesByExeBasename("grandchild.exe")
		if err != nil {
			t.Fatalf("count processes: %v", err)
		}
		if count == 0 {
			break
		}
		if i == 39 {
			t.Fatalf("grandchild processes not cleaned up: count=%d", count)
		}
		time.Sleep(50 * time.Millisecond)
	}

	waitClosed(t, sup.Drained(), 5*time.Second, "drain task")
}
