// Package config loads the gateway configuration from an INI file with
// environment variable overrides.
package config

import (
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// Config holds the gateway configuration.
type Config struct {
	Server ServerConfig
	Ops    OpsConfig
}

// ServerConfig holds the protocol listener configuration.
type ServerConfig struct {
	Listen         string // TCP listen address (e.g., ":5432")
	Datadir        string // directory holding the on-disk database files
	Workers        int    // maximum concurrent engine statements
	MaxMessageSize int    // maximum inbound protocol message size in bytes
}

// OpsConfig holds the operational HTTP endpoint configuration. An empty
// listen address disables the endpoint.
type OpsConfig struct {
	Listen string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:         ":5432",
			Datadir:        ".",
			Workers:        4,
			MaxMessageSize: 1 << 16,
		},
	}
}

// Load reads the configuration from an INI file with environment variable
// overrides. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		file, err := ini.Load(path)
		if err != nil {
			return nil, err
		}

		server := file.Section("server")
		config.Server.Listen = server.Key("listen").MustString(config.Server.Listen)
		config.Server.Datadir = server.Key("datadir").MustString(config.Server.Datadir)
		config.Server.Workers = server.Key("workers").MustInt(config.Server.Workers)
		config.Server.MaxMessageSize = server.Key("max_message_size").MustInt(config.Server.MaxMessageSize)

		ops := file.Section("ops")
		config.Ops.Listen = ops.Key("listen").MustString(config.Ops.Listen)
	}

	if v := os.Getenv("POSTDUCK_LISTEN"); v != "" {
		config.Server.Listen = v
	}
	if v := os.Getenv("POSTDUCK_DATADIR"); v != "" {
		config.Server.Datadir = v
	}
	if v := os.Getenv("POSTDUCK_OPS_LISTEN"); v != "" {
		config.Ops.Listen = v
	}

	config.Server.Datadir = strings.TrimRight(config.Server.Datadir, "/")
	if config.Server.Datadir == "" {
		config.Server.Datadir = "."
	}

	return config, nil
}
