package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/mrexodia/sidecar-manager/config"
	"github.com/mrexodia/sidecar-manager/sidecar"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "sidecar.yaml", "path to the configuration file")
	initConfig := flag.Bool("init", false, "write a default configuration file and exit")
	flag.Parse()

	if *initConfig {
		if err := config.Write(*configPath, config.Default()); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			return 1
		}
		fmt.Printf("Wrote default configuration to %s\n", *configPath)
		return 0
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "sidecar-manager",
		Level:  hclog.LevelFromString(cfg.LogLevel),
		Output: os.Stderr,
	})

	args, err := cfg.ArgList()
	if err != nil {
		logger.Error("invalid sidecar arguments", "error", err)
		return 1
	}

	env := map[string]string{
		"SIDECAR_HOST": cfg.Host,
		"SIDECAR_PORT": fmt.Sprintf("%d", cfg.Port),
	}
	for k, v := range cfg.Env {
		env[k] = v
	}

	sink := sidecar.NewSink(os.Stdout, os.Stderr, cfg.TailSize)
	defer sink.Close()
	if cfg.LogDir != "" {
		if err := sink.OpenLogFiles(cfg.LogDir, cfg.Name); err != nil {
			logger.Error("failed to open log files", "error", err)
			return 1
		}
	}

	launcher := sidecar.NewLauncher(sidecar.LaunchConfig{
		BinDir:  cfg.BinDir,
		Args:    args,
		Workdir: cfg.Workdir,
		Env:     env,
	}, logger)
	supervisor := sidecar.NewSupervisor(cfg.Name, launcher, sink, logger)

	// Every exit path below runs the exit hook; a panic reaches
	// ShutdownOnPanic first and is reported as a crash.
	reason := sidecar.ExitRequested
	defer func() { supervisor.OnExit(reason) }()
	defer supervisor.ShutdownOnPanic()

	// Register before spawning so that a termination request arriving
	// during startup still reaches the exit hook.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	addr := cfg.Addr()
	if isPortInUse(addr) {
		logger.Warn("sidecar endpoint already in use; the sidecar may fail to bind", "addr", addr)
	}

	if err := supervisor.OnReady(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start sidecar %q: %v\n", cfg.Name, err)
		return 1
	}
	fmt.Printf("Server started on http://%s\n", addr)

	sig := <-sigChan
	reason = sidecar.ExitSignal
	fmt.Printf("\nReceived %v, shutting down...\n", sig)
	return 0
}

// isPortInUse checks if a port is already in use by attempting to listen on it
func isPortInUse(addr string) bool {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return true // Port is in use or unreachable
	}
	listener.Close()

	// Small delay to ensure port is fully released
	time.Sleep(10 * time.Millisecond)
	return false
}
