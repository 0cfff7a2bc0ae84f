// Package config loads runtime settings for the anamnesis command.
//
// Values are layered: defaults, then an optional YAML file, then environment variables
// (a .env file is read first when present). Command flags are applied by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/anamnesis/internal/logging"
	"github.com/aretw0/anamnesis/pkg/session"
)

// Store kinds.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config is the full runtime configuration.
type Config struct {
	Graph        string             `yaml:"graph" env:"ANAMNESIS_GRAPH"`
	Store        StoreConfig        `yaml:"store" envPrefix:"ANAMNESIS_STORE_"`
	Security     SecurityConfig     `yaml:"security" envPrefix:"ANAMNESIS_"`
	Consultation ConsultationConfig `yaml:"consultation" envPrefix:"ANAMNESIS_"`
	HTTP         HTTPConfig         `yaml:"http" envPrefix:"ANAMNESIS_HTTP_"`
	MCP          MCPConfig          `yaml:"mcp" envPrefix:"ANAMNESIS_MCP_"`
	Log          LogConfig          `yaml:"log" envPrefix:"ANAMNESIS_LOG_"`
	Directory    DirectoryConfig    `yaml:"directory" envPrefix:"ANAMNESIS_"`
}

// StoreConfig selects and addresses the session store.
type StoreConfig struct {
	Kind string `yaml:"kind" env:"KIND"`
	// Dir is the directory of the file store.
	Dir string `yaml:"dir" env:"DIR"`
	// DSN is the SQLite path or the Postgres connection string.
	DSN   string      `yaml:"dsn" env:"DSN"`
	Redis RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
}

// RedisConfig addresses the redis store and its locker.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB"`
	Prefix   string `yaml:"prefix" env:"PREFIX"`
	Lock     bool   `yaml:"lock" env:"LOCK"`
}

// SecurityConfig controls at-rest protection of clinical text.
type SecurityConfig struct {
	// EncryptionKey is a base64 AES-256 key. Empty disables encryption.
	EncryptionKey  string   `yaml:"encryption_key" env:"ENCRYPTION_KEY"`
	FallbackKeys   []string `yaml:"fallback_keys" env:"FALLBACK_KEYS"`
	RedactPatterns []string `yaml:"redact_patterns" env:"REDACT_PATTERNS"`
}

// ConsultationConfig tunes the lifecycle manager.
type ConsultationConfig struct {
	BackNavigation bool          `yaml:"back_navigation" env:"BACK_NAVIGATION"`
	ReuseOpen      bool          `yaml:"reuse_open" env:"REUSE_OPEN"`
	LockTimeout    time.Duration `yaml:"lock_timeout" env:"LOCK_TIMEOUT"`
}

// HTTPConfig configures the session API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// MCPConfig configures the MCP transport.
type MCPConfig struct {
	Transport string `yaml:"transport" env:"TRANSPORT"`
	Addr      string `yaml:"addr" env:"ADDR"`
}

// LogConfig configures the application logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`
	Format string `yaml:"format" env:"FORMAT"`
}

// DirectoryConfig lists known patients and doctors. Empty lists accept any id.
type DirectoryConfig struct {
	Patients []string `yaml:"patients" env:"PATIENTS"`
	Doctors  []string `yaml:"doctors" env:"DOCTORS"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Graph: "graph.yaml",
		Store: StoreConfig{
			Kind: StoreMemory,
			Dir:  ".anamnesis/sessions",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "anamnesis:",
			},
		},
		Consultation: ConsultationConfig{
			BackNavigation: true,
			LockTimeout:    session.DefaultLockTimeout,
		},
		HTTP: HTTPConfig{Addr: ":8080"},
		MCP:  MCPConfig{Transport: "stdio", Addr: ":8081"},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds a Config from defaults, the YAML file at path (optional when empty)
// and the environment. envFile is loaded first when it exists.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// Consultations are kept for audit, so an expiry for stored sessions is refused.
	if _, ok := os.LookupEnv("ANAMNESIS_STORE_REDIS_TTL"); ok {
		return cfg, fmt.Errorf("ANAMNESIS_STORE_REDIS_TTL is not supported: consultations never expire")
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Store.Kind {
	case StoreMemory, StoreRedis:
	case StoreFile:
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the file store")
		}
	case StoreSQLite, StorePostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the %s store", c.Store.Kind)
		}
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	if (c.Store.Redis.Lock || c.Store.Kind == StoreRedis) && c.Store.Redis.Addr == "" {
		return fmt.Errorf("store.redis.addr is required")
	}
	switch strings.ToLower(c.MCP.Transport) {
	case "stdio", "sse":
	default:
		return fmt.Errorf("unknown mcp transport %q", c.MCP.Transport)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Consultation.LockTimeout < 0 {
		return fmt.Errorf("consultation.lock_timeout must not be negative")
	}
	return nil
}
