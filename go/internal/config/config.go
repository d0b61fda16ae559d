// Package config loads the engine configuration. Values come from the defaults, then
// the YAML file named by FOP_CONFIG, then the environment, which may be seeded from a
// .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Log         LogConfig         `yaml:"log"`
	NATS        NATSConfig        `yaml:"nats"`
	Database    DatabaseConfig    `yaml:"database"`
	Remote      RemoteConfig      `yaml:"remote"`
	Competition CompetitionConfig `yaml:"competition"`
	Platforms   []PlatformConfig  `yaml:"platforms"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr" env:"FOP_ADDR"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"FOP_ALLOWED_ORIGINS" envSeparator:","`
}

type LogConfig struct {
	Level   string `yaml:"level" env:"FOP_LOG_LEVEL"`
	Console bool   `yaml:"console" env:"FOP_LOG_CONSOLE"`
}

// NATSConfig enables the event relay and the command intake when URL is set.
type NATSConfig struct {
	URL           string `yaml:"url" env:"FOP_NATS_URL"`
	StreamName    string `yaml:"stream_name" env:"FOP_NATS_STREAM"`
	SubjectPrefix string `yaml:"subject_prefix" env:"FOP_NATS_SUBJECT_PREFIX"`
	Commands      bool   `yaml:"commands" env:"FOP_NATS_COMMANDS"`
}

// DatabaseConfig selects the Postgres roster when Enabled, the in-memory one otherwise.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled" env:"FOP_DB_ENABLED"`
	Listen   bool   `yaml:"listen" env:"FOP_DB_LISTEN"`
	Host     string `yaml:"host" env:"DB_HOST"`
	Port     int    `yaml:"port" env:"DB_PORT"`
	User     string `yaml:"user" env:"DB_USER"`
	Password string `yaml:"password" env:"DB_PASSWORD"`
	Name     string `yaml:"name" env:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" env:"DB_SSLMODE"`
}

// DSN returns the Postgres connection URL.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// RemoteConfig enables the event forwarder when URL is set.
type RemoteConfig struct {
	URL            string        `yaml:"url" env:"FOP_REMOTE_URL"`
	UpdateKey      string        `yaml:"update_key" env:"FOP_REMOTE_UPDATE_KEY"`
	Debounce       time.Duration `yaml:"debounce" env:"FOP_REMOTE_DEBOUNCE"`
	MaxInFlight    int64         `yaml:"max_in_flight" env:"FOP_REMOTE_MAX_IN_FLIGHT"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"FOP_REMOTE_TIMEOUT"`
	ConfigDir      string        `yaml:"config_dir" env:"FOP_REMOTE_CONFIG_DIR"`
}

type CompetitionConfig struct {
	AttemptTime            time.Duration `yaml:"attempt_time" env:"FOP_ATTEMPT_TIME"`
	ConsecutiveAttemptTime time.Duration `yaml:"consecutive_attempt_time" env:"FOP_CONSECUTIVE_ATTEMPT_TIME"`
	DecisionVisible        time.Duration `yaml:"decision_visible" env:"FOP_DECISION_VISIBLE"`
	LeaderCount            int           `yaml:"leader_count" env:"FOP_LEADER_COUNT"`
	Locale                 string        `yaml:"locale" env:"FOP_LOCALE"`
	TranslationsDir        string        `yaml:"translations_dir" env:"FOP_TRANSLATIONS_DIR"`
	RosterFile             string        `yaml:"roster_file" env:"FOP_ROSTER_FILE"`
	RecordsFile            string        `yaml:"records_file" env:"FOP_RECORDS_FILE"`
}

// PlatformConfig names a field of play and the group it opens on, if any.
type PlatformConfig struct {
	Name  string `yaml:"name"`
	Group string `yaml:"group"`
}

type overrides struct {
	Platforms []string `env:"FOP_PLATFORMS" envSeparator:","`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", AllowedOrigins: []string{"*"}},
		Log:    LogConfig{Level: "info", Console: true},
		NATS: NATSConfig{
			StreamName:    "FOP_EVENTS",
			SubjectPrefix: "fop.events",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Name:     "fieldofplay",
			SSLMode:  "disable",
		},
		Remote: RemoteConfig{
			Debounce:       time.Second,
			MaxInFlight:    4,
			RequestTimeout: 5 * time.Second,
		},
		Competition: CompetitionConfig{
			AttemptTime:            60 * time.Second,
			ConsecutiveAttemptTime: 120 * time.Second,
			DecisionVisible:        3 * time.Second,
			LeaderCount:            3,
			Locale:                 "en",
		},
		Platforms: []PlatformConfig{{Name: "A"}},
	}
}

// Load reads the configuration. envFiles are loaded into the environment first and
// never override variables that are already set; with none, ./.env is tried.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("FOP_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	for _, section := range []any{&cfg.Server, &cfg.Log, &cfg.NATS, &cfg.Database, &cfg.Remote, &cfg.Competition} {
		if err := env.Parse(section); err != nil {
			return nil, fmt.Errorf("parse env: %w", err)
		}
	}
	var o overrides
	if err := env.Parse(&o); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if len(o.Platforms) > 0 {
		cfg.Platforms = cfg.Platforms[:0]
		for _, name := range o.Platforms {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Platforms = append(cfg.Platforms, PlatformConfig{Name: name})
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first inconsistency found.
func (c *Config) Validate() error {
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if len(c.Platforms) == 0 {
		return errors.New("at least one platform is required")
	}
	seen := make(map[string]bool, len(c.Platforms))
	for _, p := range c.Platforms {
		if p.Name == "" {
			return errors.New("platform name is required")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate platform %q", p.Name)
		}
		seen[p.Name] = true
	}
	if c.Remote.URL != "" && c.Remote.UpdateKey == "" {
		return errors.New("remote.update_key is required with remote.url")
	}
	for name, d := range map[string]time.Duration{
		"competition.attempt_time":             c.Competition.AttemptTime,
		"competition.consecutive_attempt_time": c.Competition.ConsecutiveAttemptTime,
		"competition.decision_visible":         c.Competition.DecisionVisible,
		"remote.debounce":                      c.Remote.Debounce,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
