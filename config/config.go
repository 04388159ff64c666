/*
Package config loads server configuration.

PURPOSE:
  Configuration comes from three layers, later layers winning:
  built-in defaults, an optional YAML file, and environment overrides.
  Command-line flags are applied last by cmd/server.

FILE DISCOVERY:
  When no explicit path is given, the loader tries ./configs/ledger.yaml
  then ./ledger.yaml. A missing file is not an error - defaults apply.
*/
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	CORS     CORSConfig     `yaml:"cors"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	// Path is the SQLite database path; ":memory:" for in-memory.
	Path string `yaml:"path"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Path: "escrow.db"},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		},
	}
}

// Load reads configuration starting from defaults, merging the YAML file
// at path (or the first discovered candidate when path is empty), then
// applying environment overrides. A missing file leaves defaults intact;
// a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	candidates := make([]string, 0, 2)
	if path != "" {
		candidates = append(candidates, path)
	} else {
		candidates = append(candidates,
			"configs/ledger.yaml",
			"ledger.yaml",
		)
	}

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			if path != "" {
				return Config{}, fmt.Errorf("failed to read config %s: %w", candidate, err)
			}
			continue
		}

		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", candidate, err)
		}
		merge(&cfg, parsed)
		break
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

// merge applies the parsed file over defaults: zero values leave the
// default in place.
func merge(cfg *Config, parsed Config) {
	if parsed.Server.Port != 0 {
		cfg.Server.Port = parsed.Server.Port
	}
	if parsed.Database.Path != "" {
		cfg.Database.Path = parsed.Database.Path
	}
	if len(parsed.CORS.AllowedOrigins) > 0 {
		cfg.CORS.AllowedOrigins = parsed.CORS.AllowedOrigins
	}
}

// applyEnvOverrides applies LEDGER_PORT and LEDGER_DB when set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LEDGER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LEDGER_DB"); v != "" {
		cfg.Database.Path = v
	}
}
