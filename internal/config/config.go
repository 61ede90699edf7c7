// Package config resolves nestq settings from a YAML file, a .env file,
// NESTQ_* environment variables and, last, command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

// ID generators.
const (
	IDGeneratorUUID  = "uuid"
	IDGeneratorKSUID = "ksuid"
	IDGeneratorNone  = "none"
)

// ErrUnknownBackend is returned for a backend name outside the Backend* set.
var ErrUnknownBackend = errors.New("unknown backend")

// Config holds every setting the CLI and the nestq facade need.
type Config struct {
	// Backend selects the persistence adapter.
	Backend string `yaml:"backend"`

	// DSN is the database file for sqlite, the directory for badger and the
	// connection string for postgres. Unused by memory.
	DSN string `yaml:"dsn"`

	// Namespace keys the queue's state inside the backend.
	Namespace string `yaml:"namespace"`

	BufferSize    int           `yaml:"buffer_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	AutoSave      bool          `yaml:"autosave"`

	// IDGenerator stamps ids on records added without one.
	IDGenerator string `yaml:"id_generator"`

	// Schema is an optional CUE file records are validated against.
	Schema string `yaml:"schema"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Backend:       BackendSQLite,
		DSN:           "nestq.db",
		Namespace:     "default",
		BufferSize:    100,
		FlushInterval: 5 * time.Second,
		AutoSave:      true,
		IDGenerator:   IDGeneratorUUID,
	}
}

// Load resolves the configuration.
//
// configPath names a YAML file; empty skips it. envPath names a .env file;
// empty loads ./.env when it exists. Variables already set in the
// environment win over .env entries.
func Load(configPath, envPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFile(configPath); err != nil {
			return nil, err
		}
	}

	if err := loadDotEnv(envPath); err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func loadDotEnv(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from NESTQ_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("NESTQ_BACKEND"); ok {
		c.Backend = v
	}
	if v, ok := lookup("NESTQ_DSN"); ok {
		c.DSN = v
	}
	if v, ok := lookup("NESTQ_NAMESPACE"); ok {
		c.Namespace = v
	}
	if v, ok := lookup("NESTQ_ID_GENERATOR"); ok {
		c.IDGenerator = v
	}
	if v, ok := lookup("NESTQ_SCHEMA"); ok {
		c.Schema = v
	}
	if v, ok := lookup("NESTQ_BUFFER_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NESTQ_BUFFER_SIZE: %w", err)
		}
		c.BufferSize = n
	}
	if v, ok := lookup("NESTQ_FLUSH_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NESTQ_FLUSH_INTERVAL: %w", err)
		}
		c.FlushInterval = d
	}
	if v, ok := lookup("NESTQ_AUTOSAVE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NESTQ_AUTOSAVE: %w", err)
		}
		c.AutoSave = b
	}
	return nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendMemory:
	case BackendSQLite, BackendBadger, BackendPostgres:
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for backend %s", c.Backend)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownBackend, c.Backend)
	}

	if c.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("buffer_size must be positive, got %d", c.BufferSize)
	}
	if c.FlushInterval < 0 {
		return fmt.Errorf("flush_interval must not be negative, got %s", c.FlushInterval)
	}

	switch c.IDGenerator {
	case IDGeneratorUUID, IDGeneratorKSUID, IDGeneratorNone:
	default:
		return fmt.Errorf("unknown id_generator %q", c.IDGenerator)
	}
	return nil
}
