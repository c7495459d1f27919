package main

import (
	"fmt"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/couchplay/roomsync/go/internal/rules"
)

type Config struct {
	Session struct {
		TurnSeconds int `yaml:"turn_seconds"`
		MaxSkips    int `yaml:"max_skips"`
	} `yaml:"session"`
	Games struct {
		Enabled []string `yaml:"enabled"`
	} `yaml:"games"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.Session.TurnSeconds <= 0 {
		config.Session.TurnSeconds = 30
	}
	if config.Session.MaxSkips < 0 {
		config.Session.MaxSkips = 0
	}
	return &config, nil
}

// validateGames checks that every enabled game has a registered rule engine.
func validateGames(config *Config) error {
	if len(config.Games.Enabled) == 0 {
		return fmt.Errorf("no games enabled")
	}
	registered := rules.GameTypes()
	for _, gameType := range config.Games.Enabled {
		if !slices.Contains(registered, gameType) {
			return fmt.Errorf("game %q is enabled but has no registered engine (have %v)", gameType, registered)
		}
	}
	return nil
}

func (c *Config) turnTimeout() time.Duration {
	return time.Duration(c.Session.TurnSeconds) * time.Second
}
