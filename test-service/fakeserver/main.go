package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

func main() {
	spawn := flag.Bool("spawn", false, "spawn a grandchild process")
	exitCode := flag.Int("exit", 0, "exit code")
	sleepMs := flag.Int("sleep", 30000, "sleep ms before exiting")
	flag.Parse()

	// Bind the endpoint the host advertises, like the real server does.
	addr := net.JoinHostPort(os.Getenv("SIDECAR_HOST"), os.Getenv("SIDECAR_PORT"))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "listen failed:", err)
	} else {
		defer ln.Close()
		fmt.Println("listening on", ln.Addr())
	}

	if *spawn {
		// The grandchild is built next to this binary.
		self, _ := os.Executable()
		name := "grandchild"
		if filepath.Ext(self) == ".exe" {
			name += ".exe"
		}
		cmd := exec.Command(filepath.Join(filepath.Dir(self), name))
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Start(); err != nil {
			fmt.Fprintln(os.Stderr, "failed to spawn grandchild:", err)
		} else {
			fmt.Println("spawned-grandchild", cmd.Process.Pid)
		}
	}

	time.Sleep(time.Duration(*sleepMs) * time.Millisecond)
	fmt.Println("fakeserver-exit", *exitCode)
	os.Exit(*exitCode)
}
