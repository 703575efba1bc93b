// Package config loads and saves dbtcore's process-level settings: rule-file
// location, target architecture, register mapping, logging, and the matcher's
// per-process match budget (§4.4.4, §4.2.4 of the expanded spec).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config holds everything dbtcore needs to prepare a rule database and run
// the matcher/emitter over a guest block.
type Config struct {
	// Rules controls where the DSL rule file lives and which rule ids are
	// promoted into the cache table ahead of the general table (§4.2.2).
	Rules struct {
		Path     string `toml:"path"`
		HotRules []int  `toml:"hot_rules"`
	} `toml:"rules"`

	// Target selects the host architecture and the fixed guest-register to
	// host-register mapping tables (§4.5.4).
	Target struct {
		Arch string `toml:"arch"` // "arm64" or "riscv64"
	} `toml:"target"`

	// Match bounds the matcher's cumulative work (§4.4.4).
	Match struct {
		Budget int `toml:"budget"`
	} `toml:"match"`

	// CodeBuffer sizes the emitter's output buffer (§5).
	CodeBuffer struct {
		Size int `toml:"size"`
	} `toml:"code_buffer"`

	// Logging controls the zap logger threaded through load/match/emit.
	Logging struct {
		Level string `toml:"level"` // debug, info, warn, error
	} `toml:"logging"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Rules.Path = "~/rules4all"
	cfg.Rules.HotRules = nil

	cfg.Target.Arch = "arm64"

	cfg.Match.Budget = 1 << 20

	cfg.CodeBuffer.Size = 1 << 20

	cfg.Logging.Level = "info"

	return cfg
}

// GetConfigPath returns the platform-specific config file path.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "dbtcore")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "dbtcore")

	default:
		return "config.toml"
	}

	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// GetLogPath returns the platform-specific log directory path.
func GetLogPath() string {
	var logDir string

	switch runtime.GOOS {
	case "windows":
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, "dbtcore", "logs")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", "dbtcore", "logs")

	default:
		return "logs"
	}

	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "logs"
	}

	return logDir
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file. A missing file is
// not an error: it yields DefaultConfig().
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
