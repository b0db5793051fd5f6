package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/google/shlex"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

const (
	DefaultName     = "server"
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 8765
	DefaultLogLevel = "info"
	DefaultTailSize = 10 * 1024 // 10KB of recent child output kept in memory
)

// Config represents the sidecar.yaml file read by the host.
type Config struct {
	Name     string            `yaml:"name,omitempty"`    // Bundled executable base name
	BinDir   string            `yaml:"bin_dir,omitempty"` // empty = directory of the host executable
	Args     string            `yaml:"args,omitempty"`    // Shell-style argument string
	Workdir  string            `yaml:"workdir,omitempty"`
	Env      map[string]string `yaml:"env,omitempty"`
	Host     string            `yaml:"host,omitempty"`
	Port     int               `yaml:"port,omitempty"`
	LogDir   string            `yaml:"log_dir,omitempty"` // empty = no log files
	LogLevel string            `yaml:"log_level,omitempty"`
	TailSize int               `yaml:"tail_size,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration file at path. A missing file is not an
// error; the defaults are returned instead.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.TailSize == 0 {
		c.TailSize = DefaultTailSize
	}
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var mErr *multierror.Error

	if strings.ContainsAny(c.Name, `/\`) {
		mErr = multierror.Append(mErr, fmt.Errorf("name %q must be a bare executable name", c.Name))
	}
	if c.Port < 1 || c.Port > 65535 {
		mErr = multierror.Append(mErr, fmt.Errorf("port %d out of range", c.Port))
	}
	if net.ParseIP(c.Host) == nil && c.Host != "localhost" {
		mErr = multierror.Append(mErr, fmt.Errorf("host %q is not an IP address", c.Host))
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		mErr = multierror.Append(mErr, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	if c.TailSize < 0 {
		mErr = multierror.Append(mErr, fmt.Errorf("tail_size must not be negative"))
	}
	if _, err := c.ArgList(); err != nil {
		mErr = multierror.Append(mErr, err)
	}

	return mErr.ErrorOrNil()
}

// ArgList splits Args into the argument vector passed to the sidecar.
func (c *Config) ArgList() ([]string, error) {
	if strings.TrimSpace(c.Args) == "" {
		return nil, nil
	}
	args, err := shlex.Split(c.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse args: %w", err)
	}
	return args, nil
}

// Addr returns the loopback endpoint the sidecar is expected to bind.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}

// Write stores cfg at path atomically.
func Write(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp config file: %w", err)
	}

	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
