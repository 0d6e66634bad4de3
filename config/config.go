// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config holds the settings shared by the lectern library and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/poiesic/lectern/core"
)

// Backend names a storage implementation.
type Backend string

const (
	BackendBadger   Backend = "badger"
	BackendPostgres Backend = "postgres"
)

// Environment variables read by FromEnv.
const (
	EnvBackend        = "LECTERN_BACKEND"
	EnvBadgerPath     = "LECTERN_DB"
	EnvBadgerMemTable = "LECTERN_BADGER_MEMTABLE_MB"
	EnvDatabaseURL    = "DATABASE_URL"
	EnvConcurrency    = "LECTERN_CONCURRENCY"
	EnvReloadMode     = "LECTERN_RELOAD"
	EnvMaxRetries     = "LECTERN_MAX_RETRIES"
	EnvRetryDelay     = "LECTERN_RETRY_DELAY"
	EnvTokenModel     = "LECTERN_TOKEN_MODEL"
	EnvConnectTimeout = "LECTERN_CONNECT_TIMEOUT"
)

// Config holds configuration for opening a store and running ingestion.
type Config struct {
	// Backend selects the store. Default: badger
	Backend Backend

	// BadgerPath is the directory of the embedded store.
	// Ignored when InMemory is set.
	BadgerPath string

	// InMemory keeps the embedded store in memory. Used by tests.
	InMemory bool

	// BadgerMemTableMB is the badger memtable size in megabytes. One document
	// is one transaction, and badger caps a transaction at 15% of the
	// memtable. Default: 128
	BadgerMemTableMB int

	// DatabaseURL is the PostgreSQL connection string.
	// Example: "postgres://lectern@localhost:5432/lectern?sslmode=disable"
	DatabaseURL string

	// Concurrency is the number of documents ingested in parallel.
	// Default: 1
	Concurrency int

	// ReloadMode controls what happens to the chapters of a textbook that is
	// ingested again. Default: append
	ReloadMode core.ReloadMode

	// MaxRetries is the number of attempts per document for transient
	// transaction conflicts. Default: 3
	MaxRetries int

	// RetryDelay is the base delay between attempts. Default: 50ms
	RetryDelay time.Duration

	// TokenModel selects the tokenizer used to estimate token counts.
	// Empty means the built-in approximation.
	TokenModel string

	// ConnectTimeout bounds how long opening the PostgreSQL pool may take.
	// Default: 10s
	ConnectTimeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBackend sets the storage backend.
func WithBackend(backend Backend) ConfigOption {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithBadgerPath selects the badger backend stored at path.
func WithBadgerPath(path string) ConfigOption {
	return func(c *Config) {
		c.Backend = BackendBadger
		c.BadgerPath = path
	}
}

// WithInMemory selects an in-memory badger store.
func WithInMemory() ConfigOption {
	return func(c *Config) {
		c.Backend = BackendBadger
		c.InMemory = true
	}
}

// WithBadgerMemTableMB sets the badger memtable size in megabytes.
func WithBadgerMemTableMB(mb int) ConfigOption {
	return func(c *Config) {
		c.BadgerMemTableMB = mb
	}
}

// WithDatabaseURL selects the postgres backend at url.
func WithDatabaseURL(url string) ConfigOption {
	return func(c *Config) {
		c.Backend = BackendPostgres
		c.DatabaseURL = url
	}
}

// WithConcurrency sets how many documents are ingested in parallel.
func WithConcurrency(n int) ConfigOption {
	return func(c *Config) {
		c.Concurrency = n
	}
}

// WithReloadMode sets the reload mode.
func WithReloadMode(mode core.ReloadMode) ConfigOption {
	return func(c *Config) {
		c.ReloadMode = mode
	}
}

// WithRetry sets the attempt limit and base delay for conflicting transactions.
func WithRetry(maxRetries int, delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithMaxRetries sets the attempt limit and keeps the current delay.
func WithMaxRetries(n int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

// WithRetryDelay sets the base retry delay and keeps the current limit.
func WithRetryDelay(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryDelay = d
	}
}

// WithTokenModel sets the tokenizer model.
func WithTokenModel(model string) ConfigOption {
	return func(c *Config) {
		c.TokenModel = model
	}
}

// WithConnectTimeout sets the PostgreSQL connect timeout.
func WithConnectTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.ConnectTimeout = d
	}
}

// DefaultConfig returns a Config for a local embedded store in ./lectern-data.
func DefaultConfig() *Config {
	return &Config{
		Backend:          BackendBadger,
		BadgerPath:       "lectern-data",
		BadgerMemTableMB: 128,
		Concurrency:      1,
		ReloadMode:       core.ReloadAppend,
		MaxRetries:       3,
		RetryDelay:       50 * time.Millisecond,
		ConnectTimeout:   10 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithDatabaseURL("postgres://localhost/lectern"),
//	    WithConcurrency(4),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// FromEnv builds a Config from the environment on top of the defaults.
// A .env file in the working directory is loaded first if present; variables
// already set in the environment win. Options are applied last.
func FromEnv(opts ...ConfigOption) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("lectern config: load .env: %w", err)
		}
	}

	cfg := DefaultConfig()
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		cfg.Backend = BackendPostgres
		cfg.DatabaseURL = v
	}
	if v := os.Getenv(EnvBadgerPath); v != "" {
		cfg.BadgerPath = v
	}
	if v := os.Getenv(EnvBackend); v != "" {
		cfg.Backend = Backend(v)
	}
	if v := os.Getenv(EnvReloadMode); v != "" {
		cfg.ReloadMode = core.ReloadMode(v)
	}
	cfg.TokenModel = os.Getenv(EnvTokenModel)

	var err error
	if cfg.BadgerMemTableMB, err = envInt(EnvBadgerMemTable, cfg.BadgerMemTableMB); err != nil {
		return nil, err
	}
	if cfg.Concurrency, err = envInt(EnvConcurrency, cfg.Concurrency); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = envInt(EnvMaxRetries, cfg.MaxRetries); err != nil {
		return nil, err
	}
	if cfg.RetryDelay, err = envDuration(EnvRetryDelay, cfg.RetryDelay); err != nil {
		return nil, err
	}
	if cfg.ConnectTimeout, err = envDuration(EnvConnectTimeout, cfg.ConnectTimeout); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("lectern config: %s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("lectern config: %s: %w", key, err)
	}
	return d, nil
}

// Normalize puts the configuration in canonical form.
func (c *Config) Normalize() {
	c.Backend = Backend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	if c.Backend == "" {
		c.Backend = BackendBadger
	}
	c.ReloadMode = core.ReloadMode(strings.ToLower(strings.TrimSpace(string(c.ReloadMode))))
	if c.ReloadMode == "" {
		c.ReloadMode = core.ReloadAppend
	}
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.BadgerPath = strings.TrimSpace(c.BadgerPath)
	c.TokenModel = strings.TrimSpace(c.TokenModel)
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration first.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Backend {
	case BackendBadger:
		if c.BadgerPath == "" && !c.InMemory {
			return errors.New("lectern config: BadgerPath is required for the badger backend")
		}
		if c.BadgerMemTableMB < 1 {
			return errors.New("lectern config: BadgerMemTableMB must be at least 1")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("lectern config: DatabaseURL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("lectern config: unknown backend %q", c.Backend)
	}

	if _, err := core.ParseReloadMode(string(c.ReloadMode)); err != nil {
		return fmt.Errorf("lectern config: %w", err)
	}
	if c.Concurrency < 1 {
		return errors.New("lectern config: Concurrency must be at least 1")
	}
	if c.MaxRetries < 1 {
		return errors.New("lectern config: MaxRetries must be at least 1")
	}
	if c.RetryDelay < 0 {
		return errors.New("lectern config: RetryDelay must not be negative")
	}
	if c.ConnectTimeout <= 0 {
		return errors.New("lectern config: ConnectTimeout must be positive")
	}
	return nil
}
