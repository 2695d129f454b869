package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
)

type Config struct {
	Addr  string      `yaml:"addr"`
	Store StoreConfig `yaml:"store"`
	Log   LogConfig   `yaml:"log"`
	// LobbyIdle closes lobbies nobody has used for that long. Zero keeps
	// them open until shutdown.
	LobbyIdle time.Duration `yaml:"lobby_idle"`
	// Seed fixes the random source of every lobby when set, for
	// reproducible demos and debugging.
	Seed *uint64 `yaml:"seed"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"` // memory|file|postgres
	Dir    string `yaml:"dir"`
	DSN    string `yaml:"dsn"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Dev   bool   `yaml:"dev"`
}

func Default() Config {
	return Config{
		Addr:  ":8080",
		Store: StoreConfig{Driver: StoreMemory, Dir: ".lolpick"},
		Log:   LogConfig{Level: "info"},

		LobbyIdle: 30 * time.Minute,
	}
}

// Load reads an optional YAML file on top of the defaults, then applies
// environment overrides. A missing file is not an error; an empty path skips
// the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv("LOLPICK_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("LOLPICK_STORE"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("LOLPICK_STORE_DIR"); v != "" {
		cfg.Store.Dir = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("LOLPICK_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOLPICK_LOG_DEV"); v != "" {
		cfg.Log.Dev = v == "true"
	}
	if v := os.Getenv("LOLPICK_LOBBY_IDLE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("LOLPICK_LOBBY_IDLE: %w", err)
		}
		cfg.LobbyIdle = d
	}
	if v := os.Getenv("LOLPICK_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("LOLPICK_SEED: %w", err)
		}
		cfg.Seed = &seed
	}
	return nil
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var err error
	if strings.TrimSpace(c.Addr) == "" {
		err = multierr.Append(err, errors.New("addr is required"))
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StoreFile:
		if c.Store.Dir == "" {
			err = multierr.Append(err, errors.New("store.dir is required for the file store"))
		}
	case StorePostgres:
		if c.Store.DSN == "" {
			err = multierr.Append(err, errors.New("store.dsn (or DATABASE_URL) is required for the postgres store"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}
	if c.LobbyIdle < 0 {
		err = multierr.Append(err, fmt.Errorf("lobby_idle must not be negative, got %s", c.LobbyIdle))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	return err
}
