package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/georgeshao/canned-status/internal/journal"
)

// ListenAddr is fixed; load generators and monitors are pointed at it directly.
const ListenAddr = "0.0.0.0:8080"

const (
	BackendNone   = "none"
	BackendSQLite = "sqlite"
	BackendPebble = "pebble"
)

const (
	DefaultSQLitePath = "./data/journal.db"
	DefaultPebblePath = "./data/journal"
)

type Config struct {
	LogLevel  log.Level
	AccessLog bool
	Journal   JournalConfig
}

type JournalConfig struct {
	Backend          string
	Path             string
	RecordsPerSecond float64
	BufferSize       int
	MaxBatchSize     int
}

func (c JournalConfig) Enabled() bool {
	return c.Backend != BackendNone
}

func (c JournalConfig) WriterConfig() journal.WriterConfig {
	return journal.WriterConfig{
		MaxBatchSize:     c.MaxBatchSize,
		BufferSize:       c.BufferSize,
		FlushInterval:    time.Second,
		RecordsPerSecond: c.RecordsPerSecond,
	}
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	var cfg Config
	var err error

	get := func(key, defaultValue string) string {
		if value := strings.TrimSpace(getenv(key)); value != "" {
			return value
		}
		return defaultValue
	}

	if cfg.LogLevel, err = ParseLevel(get("LOG_LEVEL", "info")); err != nil {
		return Config{}, err
	}

	if cfg.AccessLog, err = strconv.ParseBool(get("ACCESS_LOG", "true")); err != nil {
		return Config{}, fmt.Errorf("invalid ACCESS_LOG: %w", err)
	}

	backend := strings.ToLower(get("JOURNAL_BACKEND", BackendNone))
	switch backend {
	case BackendNone:
	case BackendSQLite:
		cfg.Journal.Path = get("JOURNAL_PATH", DefaultSQLitePath)
	case BackendPebble:
		cfg.Journal.Path = get("JOURNAL_PATH", DefaultPebblePath)
	default:
		return Config{}, fmt.Errorf("invalid JOURNAL_BACKEND: %q", backend)
	}
	cfg.Journal.Backend = backend

	if cfg.Journal.RecordsPerSecond, err = strconv.ParseFloat(get("JOURNAL_RATE", "0"), 64); err != nil {
		return Config{}, fmt.Errorf("invalid JOURNAL_RATE: %w", err)
	}
	if cfg.Journal.RecordsPerSecond < 0 {
		return Config{}, fmt.Errorf("invalid JOURNAL_RATE: must not be negative")
	}

	if cfg.Journal.BufferSize, err = positiveInt(get("JOURNAL_BUFFER", "10000")); err != nil {
		return Config{}, fmt.Errorf("invalid JOURNAL_BUFFER: %w", err)
	}
	if cfg.Journal.MaxBatchSize, err = positiveInt(get("JOURNAL_BATCH", "500")); err != nil {
		return Config{}, fmt.Errorf("invalid JOURNAL_BATCH: %w", err)
	}

	return cfg, nil
}

// ParseLevel maps a level name onto fiber's log levels.
func ParseLevel(name string) (log.Level, error) {
	switch strings.ToLower(name) {
	case "trace":
		return log.LevelTrace, nil
	case "debug":
		return log.LevelDebug, nil
	case "info":
		return log.LevelInfo, nil
	case "warn", "warning":
		return log.LevelWarn, nil
	case "error":
		return log.LevelError, nil
	default:
		return log.LevelInfo, fmt.Errorf("invalid LOG_LEVEL: %q", name)
	}
}

func positiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
