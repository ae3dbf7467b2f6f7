// Package config loads responder settings from defaults, an optional YAML
// file and environment variables, in that order of precedence.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

type Config struct {
	Log       Log       `yaml:"log"`
	Knowledge Knowledge `yaml:"knowledge"`
	History   History   `yaml:"history"`
	Responder Responder `yaml:"responder"`
	Server    Server    `yaml:"server"`
}

type Log struct {
	// Minimum level: debug, info, warn or error
	Level string `yaml:"level" example:"info" validate:"oneof=debug info warn error"`
	// Output format: json or console
	Format string `yaml:"format" example:"json" validate:"oneof=json console"`
	// Optional file receiving a JSON copy of every record
	File string `yaml:"file" example:"logs/chat.log"`
}

type Knowledge struct {
	// Storage backend: memory or sqlite
	Backend string `yaml:"backend" example:"sqlite" validate:"oneof=memory sqlite"`
	// SQLite database file, required for the sqlite backend
	SQLitePath string `yaml:"sqlite_path" example:"data/chat.db" validate:"required_if=Backend sqlite"`
	// SSM prefix whose knowledge/ children extend the curated seed set
	ParamPrefix string `yaml:"param_prefix" example:"/chat-responder"`
}

type History struct {
	// Storage backend: memory, sqlite or dynamodb
	Backend string `yaml:"backend" example:"dynamodb" validate:"oneof=memory sqlite dynamodb"`
	// SQLite database file, required for the sqlite backend
	SQLitePath string `yaml:"sqlite_path" example:"data/chat.db" validate:"required_if=Backend sqlite"`
	// DynamoDB table, required for the dynamodb backend
	Table string `yaml:"table" example:"chat-history" validate:"required_if=Backend dynamodb"`
	// Days before DynamoDB expires a turn
	TTLDays int `yaml:"ttl_days" example:"30" validate:"gte=0"`
}

type Responder struct {
	// Probability of naming the user after a knowledge answer
	PersonalizeRate float64 `yaml:"personalize_rate" example:"0.3" validate:"gte=0,lte=1"`
	// Random seed; 0 seeds from the clock
	Seed uint64 `yaml:"seed" example:"0"`
	// Sessions kept in memory before the least recently used is dropped
	MaxSessions int `yaml:"max_sessions" example:"1000" validate:"gte=1"`
}

type Server struct {
	// Listen address of the local HTTP server
	Addr string `yaml:"addr" example:":8080" validate:"required"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Log:       Log{Level: "info", Format: "json"},
		Knowledge: Knowledge{Backend: BackendMemory},
		History:   History{Backend: BackendMemory, TTLDays: 30},
		Responder: Responder{PersonalizeRate: 0.3, MaxSessions: 1000},
		Server:    Server{Addr: ":8080"},
	}
}

// Load builds the configuration. path may be empty, in which case CHAT_CONFIG
// names the YAML file, if any.
func Load(path string) (*Config, error) {
	result := Default()

	if path == "" {
		path = os.Getenv("CHAT_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, oops.Errorf("failed to read config file: %w", err)
		}
		if err = yaml.Unmarshal(data, &result); err != nil {
			return nil, oops.Errorf("failed to parse YAML config: %w", err)
		}
	}

	if err := applyEnv(&result); err != nil {
		return nil, err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func applyEnv(cfg *Config) error {
	envString("LOG_LEVEL", &cfg.Log.Level)
	envString("LOG_FORMAT", &cfg.Log.Format)
	envString("LOG_FILE", &cfg.Log.File)

	envString("KNOWLEDGE_BACKEND", &cfg.Knowledge.Backend)
	envString("KNOWLEDGE_DB", &cfg.Knowledge.SQLitePath)
	envString("PARAM_PREFIX", &cfg.Knowledge.ParamPrefix)

	envString("HISTORY_BACKEND", &cfg.History.Backend)
	envString("HISTORY_DB", &cfg.History.SQLitePath)
	envString("STATE_TABLE", &cfg.History.Table)
	if err := envInt("HISTORY_TTL_DAYS", &cfg.History.TTLDays); err != nil {
		return err
	}

	if v := strings.TrimSpace(os.Getenv("PERSONALIZE_RATE")); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return oops.With("key", "PERSONALIZE_RATE").Errorf("invalid float: %w", err)
		}
		cfg.Responder.PersonalizeRate = rate
	}
	if v := strings.TrimSpace(os.Getenv("RANDOM_SEED")); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return oops.With("key", "RANDOM_SEED").Errorf("invalid seed: %w", err)
		}
		cfg.Responder.Seed = seed
	}
	if err := envInt("MAX_SESSIONS", &cfg.Responder.MaxSessions); err != nil {
		return err
	}

	envString("ADDR", &cfg.Server.Addr)
	return nil
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return oops.With("key", key).Errorf("invalid integer: %w", err)
	}
	*dst = n
	return nil
}
