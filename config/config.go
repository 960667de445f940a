// Package config loads the prun configuration file.
//
// The file is named by the --config flag or the PRUN_CONFIG environment
// variable. Without one the built-in defaults apply. Keys the file does not set
// keep their default value; unknown keys are an error.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/prun-project/prun/pkg/idmap"
	"github.com/prun-project/prun/pkg/rlimit"
	"github.com/prun-project/prun/pkg/seccomp"
)

// EnvConfig names the environment variable holding the config file path
const EnvConfig = "PRUN_CONFIG"

// Config is the prun configuration
type Config struct {
	// FSRoot is the image base directory. Empty means the FS_ROOT environment
	// variable or its default.
	FSRoot string `yaml:"fs_root"`

	// HostName inside the container
	HostName string `yaml:"hostname"`

	// PollInterval of the supervisor loop
	PollInterval time.Duration `yaml:"poll_interval"`

	// KillGrace is how long the container init may ignore a forwarded
	// signal before it is killed
	KillGrace time.Duration `yaml:"kill_grace"`

	// UIDMap / GIDMap of the user namespace. Empty maps container root to
	// the effective uid / gid of the launcher.
	UIDMap []idmap.Mapping `yaml:"uid_map"`
	GIDMap []idmap.Mapping `yaml:"gid_map"`

	// AllowSetgroups leaves setgroups(2) usable in the container, which
	// needs a launcher privileged over its own user namespace
	AllowSetgroups bool `yaml:"allow_setgroups"`

	Seccomp SeccompConfig `yaml:"seccomp"`

	RLimits rlimit.RLimits `yaml:"rlimits"`

	Log LogConfig `yaml:"log"`
}

// SeccompConfig configures the syscall deny-list of the container init
type SeccompConfig struct {
	Enabled bool `yaml:"enabled"`

	// Deny lists syscall names, seccomp.DefaultDeny if empty
	Deny []string `yaml:"deny"`

	// Action answers a denied syscall: errno, errno:<n>, log or kill
	Action string `yaml:"action"`
}

// LogConfig configures logrus for the launcher and the container init
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		HostName:     "container",
		PollInterval: time.Second,
		KillGrace:    10 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := c.decode(data); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// an empty file is a valid config
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the values that can be checked before any process exists
func (c *Config) Validate() error {
	if c.HostName == "" {
		return errors.New("hostname is empty")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval)
	}
	if c.KillGrace <= 0 {
		return fmt.Errorf("kill_grace must be positive, got %v", c.KillGrace)
	}
	for _, m := range c.UIDMap {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("uid_map: %w", err)
		}
	}
	for _, m := range c.GIDMap {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("gid_map: %w", err)
		}
	}
	if err := seccomp.CheckNames(c.Seccomp.Deny); err != nil {
		return fmt.Errorf("seccomp.deny: %w", err)
	}
	if _, err := seccomp.ParseAction(c.Seccomp.Action); err != nil {
		return fmt.Errorf("seccomp.action: %w", err)
	}
	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	return nil
}
