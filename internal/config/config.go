// Package config loads server configuration from an optional YAML
// file with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Environment variable names, taking precedence over the file.
const (
	envGameTable        = "CHESSLINK_GAME_TABLE"
	envUserTable        = "CHESSLINK_USER_TABLE"
	envUserChannelIndex = "CHESSLINK_USER_CHANNEL_INDEX"
	envListenAddr       = "CHESSLINK_LISTEN_ADDR"
	envDataDir          = "CHESSLINK_DATA_DIR"
)

// Config is the server configuration. GameTable and UserTable are
// required; UserChannelIndex is the optional secondary index used for
// the disconnect lookup (without it the store falls back to a scan).
type Config struct {
	GameTable        string `yaml:"gameTable"`
	UserTable        string `yaml:"userTable"`
	UserChannelIndex string `yaml:"userChannelIndex"`
	ListenAddr       string `yaml:"listenAddr"`
	DataDir          string `yaml:"dataDir"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		ListenAddr: ":8080",
		DataDir:    "data",
	}
}

// Load reads the file at path (skipped when empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnv(&cfg.GameTable, envGameTable)
	applyEnv(&cfg.UserTable, envUserTable)
	applyEnv(&cfg.UserChannelIndex, envUserChannelIndex)
	applyEnv(&cfg.ListenAddr, envListenAddr)
	applyEnv(&cfg.DataDir, envDataDir)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*target = v
	}
}

func (c *Config) validate() error {
	if c.GameTable == "" {
		return errors.New("config: game table name is required")
	}
	if c.UserTable == "" {
		return errors.New("config: user table name is required")
	}
	if c.GameTable == c.UserTable {
		return errors.New("config: game and user tables must differ")
	}
	return nil
}
