package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// EnvFile returns the optional env file read by New
func EnvFile() string {
	if path := os.Getenv("CURSORHIDE_ENV_FILE"); path != "" {
		return path
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cursorhide", "cursorhide.env")
}

// LoadEnvFile loads variables from path into the process environment.
// Variables already set in the environment win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}

// parseDuration accepts Go durations ("250ms", "3s") or whole seconds ("3")
func parseDuration(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

// LoadFromEnv loads configuration from environment variables
// Environment variables override default values
func LoadFromEnv(cfg *Config) {
	if timeout := os.Getenv("CURSORHIDE_TIMEOUT"); timeout != "" {
		if d, ok := parseDuration(timeout); ok {
			if d >= cfg.Controller.MinTimeout && d <= cfg.Controller.MaxTimeout {
				cfg.Controller.Timeout = d
			}
		}
	}

	if pollInterval := os.Getenv("CURSORHIDE_POLL_INTERVAL"); pollInterval != "" {
		if d, ok := parseDuration(pollInterval); ok {
			if d >= cfg.Controller.MinPollInterval && d <= cfg.Controller.MaxPollInterval {
				cfg.Controller.PollInterval = d
			}
		}
	}

	if mode := os.Getenv("CURSORHIDE_MODE"); mode != "" {
		cfg.Controller.Mode = strings.ToLower(strings.TrimSpace(mode))
	}

	// Journal configuration
	if dbPath := os.Getenv("CURSORHIDE_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if journal := os.Getenv("CURSORHIDE_JOURNAL"); journal != "" {
		if val, err := strconv.ParseBool(journal); err == nil {
			cfg.Database.Enabled = val
		}
	}

	if pidFile := os.Getenv("CURSORHIDE_PID_FILE"); pidFile != "" {
		cfg.Daemon.PIDFile = pidFile
	}

	if logFile := os.Getenv("CURSORHIDE_LOG_FILE"); logFile != "" {
		cfg.Log.File = logFile
	}

	if level := os.Getenv("CURSORHIDE_LOG_LEVEL"); level != "" {
		cfg.Log.Level = strings.ToLower(level)
	}

	// Web configuration
	if webHost := os.Getenv("CURSORHIDE_WEB_HOST"); webHost != "" {
		cfg.Web.Host = webHost
	}

	if webPort := os.Getenv("CURSORHIDE_WEB_PORT"); webPort != "" {
		if port, err := strconv.Atoi(webPort); err == nil && port > 0 && port <= 65535 {
			cfg.Web.Port = port
		}
	}
}

// New creates a new Config with default values, the env file and the environment
func New() *Config {
	if err := LoadEnvFile(EnvFile()); err != nil {
		logrus.Warnf("Ignoring env file: %v", err)
	}
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}
