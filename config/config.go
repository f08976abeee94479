// Package config defines the structures to configure the zone filter daemon.
package config

import (
	"net"

	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/edgewatch/zonefilter/logging"
)

// Default values filled in by Ensure when the config file omits them.
const (
	DefaultBindAddress = "localhost:8420"
	DefaultStorePath   = "zonefilter.db"
)

// Config describes the daemon configuration read from disk.
type Config struct {
	// ConfigFilePath is where the config was read from, when it came from
	// a file.
	ConfigFilePath string `json:"-"`

	// BindAddress is the host:port the admin API listens on.
	BindAddress string `json:"bind_address,omitempty"`
	// StorePath is the SQLite settings database location.
	StorePath string `json:"store_path,omitempty"`
	// AllowedOrigins restricts API CORS origins; empty allows all.
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
	Log            Log      `json:"log,omitempty"`
}

// Log controls the daemon's log output.
type Log struct {
	// Level is the minimum level written to every appender.
	Level logging.Level `json:"level,omitempty"`
	// File, when set, additionally writes logs to a rotated file.
	File string `json:"file,omitempty"`
	// Console, when set, relays logs to a remote log console.
	Console *logging.ConsoleConfig `json:"console,omitempty"`
}

// Ensure validates the config and fills in defaults.
func (c *Config) Ensure() error {
	if c.BindAddress == "" {
		c.BindAddress = DefaultBindAddress
	}
	if _, _, err := net.SplitHostPort(c.BindAddress); err != nil {
		return utils.NewConfigValidationError("bind_address", err)
	}
	if c.StorePath == "" {
		c.StorePath = DefaultStorePath
	}
	if c.Log.Console != nil && c.Log.Console.Address == "" {
		return utils.NewConfigValidationFieldRequiredError("log.console", "address")
	}
	for idx, origin := range c.AllowedOrigins {
		if origin == "" {
			return utils.NewConfigValidationError(
				"allowed_origins", errors.Errorf("origin %d is empty", idx))
		}
	}
	return nil
}
