package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Visibility modes
const (
	ModeToggle = "toggle" // OS-level hide/show
	ModeGlyph  = "glyph"  // swap the arrow glyph for a blank one
)

// Config holds all application configuration
type Config struct {
	// Controller configuration
	Controller ControllerConfig

	// Journal configuration
	Database DatabaseConfig

	// Daemon configuration
	Daemon DaemonConfig

	// Logging configuration
	Log LogConfig

	// Web server configuration
	Web WebConfig
}

// ControllerConfig holds the inactivity controller settings
type ControllerConfig struct {
	Timeout         time.Duration // Inactivity before hiding the pointer
	MinTimeout      time.Duration
	MaxTimeout      time.Duration
	PollInterval    time.Duration // How often to sample the pointer
	MinPollInterval time.Duration
	MaxPollInterval time.Duration
	Mode            string // ModeToggle or ModeGlyph
}

// DatabaseConfig holds journal database configuration
type DatabaseConfig struct {
	Path    string // Empty means cursorhide/cursorhide.db under the user config dir
	Enabled bool
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string
}

// LogConfig holds logging configuration
type LogConfig struct {
	File  string // Used by the background daemon only
	Level string
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string
	Port int
}

// Default returns a Config with sensible default values
func Default() *Config {
	uid := os.Getuid()
	if uid < 0 {
		uid = 0
	}
	return &Config{
		Controller: ControllerConfig{
			Timeout:         3 * time.Second,
			MinTimeout:      500 * time.Millisecond,
			MaxTimeout:      time.Hour,
			PollInterval:    100 * time.Millisecond,
			MinPollInterval: 10 * time.Millisecond,
			MaxPollInterval: time.Second,
			Mode:            ModeToggle,
		},
		Database: DatabaseConfig{
			Path:    "",
			Enabled: true,
		},
		Daemon: DaemonConfig{
			PIDFile: fmt.Sprintf("%s/cursorhide-%d.pid", os.TempDir(), uid),
		},
		Log: LogConfig{
			File:  fmt.Sprintf("%s/cursorhide-%d.log", os.TempDir(), uid),
			Level: "info",
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 10000 + uid%50000,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	ctl := c.Controller

	if ctl.Timeout < ctl.MinTimeout {
		return fmt.Errorf("timeout (%v) cannot be less than minimum (%v)", ctl.Timeout, ctl.MinTimeout)
	}
	if ctl.Timeout > ctl.MaxTimeout {
		return fmt.Errorf("timeout (%v) cannot be greater than maximum (%v)", ctl.Timeout, ctl.MaxTimeout)
	}

	if ctl.PollInterval < ctl.MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			ctl.PollInterval, ctl.MinPollInterval)
	}
	if ctl.PollInterval > ctl.MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			ctl.PollInterval, ctl.MaxPollInterval)
	}
	if ctl.PollInterval >= ctl.Timeout {
		return fmt.Errorf("poll interval (%v) must be shorter than timeout (%v)", ctl.PollInterval, ctl.Timeout)
	}

	if ctl.Mode != ModeToggle && ctl.Mode != ModeGlyph {
		return fmt.Errorf("mode must be %q or %q, got %q", ModeToggle, ModeGlyph, ctl.Mode)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	// Validate web config
	if c.Web.Port < 1 || c.Web.Port > 65535 {
		return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
	}

	if c.Web.Host == "" {
		return fmt.Errorf("web host cannot be empty")
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// SetTimeout sets the inactivity timeout with validation
func (c *Config) SetTimeout(timeout time.Duration) error {
	if timeout < c.Controller.MinTimeout {
		return fmt.Errorf("timeout cannot be less than %v", c.Controller.MinTimeout)
	}
	if timeout > c.Controller.MaxTimeout {
		return fmt.Errorf("timeout cannot be greater than %v", c.Controller.MaxTimeout)
	}
	c.Controller.Timeout = timeout
	return nil
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Controller.MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", c.Controller.MinPollInterval)
	}
	if interval > c.Controller.MaxPollInterval {
		return fmt.Errorf("poll interval cannot be greater than %v", c.Controller.MaxPollInterval)
	}
	c.Controller.PollInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	dbPath := c.Database.Path
	if dbPath == "" {
		dbPath = "(default)"
	}
	return fmt.Sprintf(`Configuration:
  Controller:
    Timeout: %v
    Poll Interval: %v
    Mode: %s
  Journal:
    Enabled: %v
    Path: %s
  Daemon:
    PID File: %s
  Log:
    File: %s
    Level: %s
  Web:
    Host: %s
    Port: %d`,
		c.Controller.Timeout,
		c.Controller.PollInterval,
		c.Controller.Mode,
		c.Database.Enabled,
		dbPath,
		c.Daemon.PIDFile,
		c.Log.File,
		c.Log.Level,
		c.Web.Host,
		c.Web.Port,
	)
}
