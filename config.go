package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Config holds host settings. The matcher itself takes no configuration.
type Config struct {
	Port       string  `toml:"port"`
	CorpusPath string  `toml:"corpus"`
	SessionDB  string  `toml:"session_db"` // empty keeps sessions in memory
	Watch      bool    `toml:"watch"`
	RateLimit  float64 `toml:"rate_limit"` // requests per second per client, 0 disables
	Debug      bool    `toml:"debug"`
}

func DefaultConfig() Config {
	return Config{
		Port:       "8050",
		CorpusPath: "intents.json",
		Watch:      true,
	}
}

// LoadConfig layers an optional TOML file and then the environment over the defaults.
// An empty path skips the file; a named file that is missing is an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		c.Port = port
	}
	if corpus := os.Getenv("INTENT_CORPUS"); corpus != "" {
		c.CorpusPath = corpus
	}
	if db := os.Getenv("INTENT_SESSION_DB"); db != "" {
		c.SessionDB = db
	}
	if limit := os.Getenv("INTENT_RATE_LIMIT"); limit != "" {
		v, err := strconv.ParseFloat(limit, 64)
		if err != nil {
			return fmt.Errorf("invalid INTENT_RATE_LIMIT %q: %w", limit, err)
		}
		c.RateLimit = v
	}
	return nil
}

// openSessionStore picks the SQLite store when a database path is configured
func openSessionStore(dbPath string) (SessionStore, error) {
	if dbPath == "" {
		return NewMemorySessionStore(), nil
	}
	return NewSQLiteSessionStore(dbPath)
}
