/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package config provides configuration management for the Aviary server.

The configuration system supports multiple sources with clear precedence:
 1. Command-line flags (highest priority)
 2. Environment variables
 3. Configuration file
 4. Default values (lowest priority)

Configuration File Format:
The configuration file is YAML.

Example configuration file:

	# Aviary Configuration
	port: 3000
	workers: 2
	data_dir: /var/lib/aviary
	snapshot_interval: 30m
	conn_timeout: 0s
	storage:
	  backend: xml        # xml, sqlite, postgres, leveldb, s3
	metrics:
	  enabled: true
	  addr: ":9094"
	health:
	  enabled: true
	  addr: ":9095"
	log_level: info
	log_json: false

Environment Variables:
  - AVIARY_PORT: Listening port (1-65535)
  - AVIARY_WORKERS: Number of request workers (>= 1)
  - AVIARY_DATA_DIR: Directory holding the snapshot files
  - AVIARY_SNAPSHOT_INTERVAL: Interval between snapshots (e.g. 30m)
  - AVIARY_CONN_TIMEOUT: Per-connection read/write deadline (0 = none)
  - AVIARY_MAX_CONNECTIONS: Cap on concurrently open client connections (0 = none)
  - AVIARY_STORAGE_BACKEND: Snapshot backend
  - AVIARY_SQLITE_PATH, AVIARY_POSTGRES_DSN, AVIARY_LEVELDB_PATH: Backend locations
  - AVIARY_S3_BUCKET, AVIARY_S3_REGION, AVIARY_S3_ENDPOINT, AVIARY_S3_PREFIX, AVIARY_S3_PATH_STYLE
  - AVIARY_METRICS_ADDR, AVIARY_HEALTH_ADDR: Setting either enables that endpoint
  - AVIARY_DISCOVERY: Advertise the server over mDNS (true/false)
  - AVIARY_LOG_LEVEL: Log level (debug, info, warn, error)
  - AVIARY_LOG_JSON: Enable JSON logging (true/false)
  - AVIARY_CONFIG_FILE: Path to configuration file
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names for configuration.
const (
	EnvPort             = "AVIARY_PORT"
	EnvWorkers          = "AVIARY_WORKERS"
	EnvDataDir          = "AVIARY_DATA_DIR"
	EnvSnapshotInterval = "AVIARY_SNAPSHOT_INTERVAL"
	EnvConnTimeout      = "AVIARY_CONN_TIMEOUT"
	EnvMaxConnections   = "AVIARY_MAX_CONNECTIONS"
	EnvStorageBackend   = "AVIARY_STORAGE_BACKEND"
	EnvSQLitePath       = "AVIARY_SQLITE_PATH"
	EnvPostgresDSN      = "AVIARY_POSTGRES_DSN"
	EnvLevelDBPath      = "AVIARY_LEVELDB_PATH"
	EnvS3Bucket         = "AVIARY_S3_BUCKET"
	EnvS3Region         = "AVIARY_S3_REGION"
	EnvS3Endpoint       = "AVIARY_S3_ENDPOINT"
	EnvS3Prefix         = "AVIARY_S3_PREFIX"
	EnvS3PathStyle      = "AVIARY_S3_PATH_STYLE"
	EnvMetricsAddr      = "AVIARY_METRICS_ADDR"
	EnvHealthAddr       = "AVIARY_HEALTH_ADDR"
	EnvDiscovery        = "AVIARY_DISCOVERY"
	EnvLogLevel         = "AVIARY_LOG_LEVEL"
	EnvLogJSON          = "AVIARY_LOG_JSON"
	EnvConfigFile       = "AVIARY_CONFIG_FILE"
)

// Storage backends.
const (
	BackendXML      = "xml"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendLevelDB  = "leveldb"
	BackendS3       = "s3"
)

// Defaults.
const (
	DefaultPort             = 3000
	DefaultWorkers          = 2
	DefaultSnapshotInterval = 30 * time.Minute
	DefaultDataFolder       = "serverdata"
)

// GetDefaultDataDir returns $HOME/serverdata, or ./serverdata when no
// home directory is known.
func GetDefaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, DefaultDataFolder)
	}
	return filepath.Join(".", DefaultDataFolder)
}

// DefaultConfigPaths are searched in order.
var DefaultConfigPaths = []string{
	"./aviary.yaml",
	"$HOME/.config/aviary/aviary.yaml",
	"/etc/aviary/aviary.yaml",
}

// StorageConfig selects and locates the snapshot backend.
type StorageConfig struct {
	Backend     string   `yaml:"backend" json:"backend"`
	SQLitePath  string   `yaml:"sqlite_path,omitempty" json:"sqlite_path,omitempty"`
	PostgresDSN string   `yaml:"postgres_dsn,omitempty" json:"-"`
	LevelDBPath string   `yaml:"leveldb_path,omitempty" json:"leveldb_path,omitempty"`
	S3          S3Config `yaml:"s3,omitempty" json:"s3,omitempty"`
}

// S3Config locates the snapshot objects in a bucket.
type S3Config struct {
	Bucket    string `yaml:"bucket,omitempty" json:"bucket,omitempty"`
	Region    string `yaml:"region,omitempty" json:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	Prefix    string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	PathStyle bool   `yaml:"path_style,omitempty" json:"path_style,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// HealthConfig controls the health check endpoint.
type HealthConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// DiscoveryConfig controls mDNS advertisement.
type DiscoveryConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Instance string `yaml:"instance,omitempty" json:"instance,omitempty"`
}

// Config holds all configuration values for the server.
type Config struct {
	Port             int           `yaml:"port" json:"port"`
	Workers          int           `yaml:"workers" json:"workers"`
	DataDir          string        `yaml:"data_dir" json:"data_dir"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval" json:"snapshot_interval"`
	ConnTimeout      time.Duration `yaml:"conn_timeout" json:"conn_timeout"`
	MaxConnections   int           `yaml:"max_connections" json:"max_connections"`

	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Metrics   MetricsConfig   `yaml:"metrics" json:"metrics"`
	Health    HealthConfig    `yaml:"health" json:"health"`
	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`

	LogLevel string `yaml:"log_level" json:"log_level"`
	LogJSON  bool   `yaml:"log_json" json:"log_json"`

	// Path to the loaded config file.
	ConfigFile string `yaml:"-" json:"-"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Port:             DefaultPort,
		Workers:          DefaultWorkers,
		DataDir:          GetDefaultDataDir(),
		SnapshotInterval: DefaultSnapshotInterval,
		Storage: StorageConfig{
			Backend: BackendXML,
			S3: S3Config{
				Region: "us-east-1",
				Prefix: "aviary/",
			},
		},
		Metrics:  MetricsConfig{Addr: ":9094"},
		Health:   HealthConfig{Addr: ":9095"},
		LogLevel: "info",
	}
}

// SQLitePath returns the configured sqlite file or the default inside DataDir.
func (c *Config) SQLitePath() string {
	if c.Storage.SQLitePath != "" {
		return c.Storage.SQLitePath
	}
	return filepath.Join(c.DataDir, "aviary.db")
}

// LevelDBPath returns the configured leveldb directory or the default inside DataDir.
func (c *Config) LevelDBPath() string {
	if c.Storage.LevelDBPath != "" {
		return c.Storage.LevelDBPath
	}
	return filepath.Join(c.DataDir, "aviary.ldb")
}

// ListenAddr returns the TCP address the server binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Manager handles configuration loading, validation, and access.
type Manager struct {
	config *Config
	mu     sync.RWMutex

	onReload []func(*Config)
}

// NewManager creates a new configuration manager with default values.
func NewManager() *Manager {
	return &Manager{
		config:   DefaultConfig(),
		onReload: make([]func(*Config), 0),
	}
}

var globalManager = NewManager()

// Global returns the global configuration manager.
func Global() *Manager {
	return globalManager
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := *m.config
	return &cfg
}

// Set updates the configuration.
func (m *Manager) Set(cfg *Config) {
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
}

// OnReload registers a callback to be called when configuration is reloaded.
func (m *Manager) OnReload(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReload = append(m.onReload, fn)
}

func (m *Manager) notifyReload() {
	m.mu.RLock()
	callbacks := make([]func(*Config), len(m.onReload))
	copy(callbacks, m.onReload)
	cfg := *m.config
	m.mu.RUnlock()

	for _, fn := range callbacks {
		fn(&cfg)
	}
}

// Validate checks if the configuration is valid. All violations are
// reported together.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port: %d (must be 1-65535)", c.Port))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Sprintf("invalid workers: %d (must be at least 1)", c.Workers))
	}
	if c.DataDir == "" {
		errs = append(errs, "data_dir cannot be empty")
	}
	if c.SnapshotInterval < 0 {
		errs = append(errs, fmt.Sprintf("invalid snapshot_interval: %s (must not be negative)", c.SnapshotInterval))
	}
	if c.ConnTimeout < 0 {
		errs = append(errs, fmt.Sprintf("invalid conn_timeout: %s (must not be negative)", c.ConnTimeout))
	}
	if c.MaxConnections < 0 {
		errs = append(errs, fmt.Sprintf("invalid max_connections: %d (must not be negative)", c.MaxConnections))
	}

	switch c.Storage.Backend {
	case BackendXML, BackendSQLite, BackendLevelDB:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			errs = append(errs, "storage.postgres_dsn is required for the postgres backend")
		}
	case BackendS3:
		if c.Storage.S3.Bucket == "" {
			errs = append(errs, "storage.s3.bucket is required for the s3 backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid storage.backend: %s (must be xml, sqlite, postgres, leveldb, or s3)", c.Storage.Backend))
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics.addr cannot be empty when metrics are enabled")
	}
	if c.Health.Enabled && c.Health.Addr == "" {
		errs = append(errs, "health.addr cannot be empty when health checks are enabled")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log_level: %s (must be debug, info, warn, or error)", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file on top of defaults.
func (m *Manager) LoadFromFile(path string) error {
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ConfigFile = path
	m.Set(cfg)
	return nil
}

// LoadFromEnv merges environment variables over the current configuration.
// Malformed numeric or duration values are ignored.
func (m *Manager) LoadFromEnv() {
	cfg := m.Get()

	if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv(EnvWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvSnapshotInterval); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SnapshotInterval = d
		}
	}
	if v := os.Getenv(EnvConnTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ConnTimeout = d
		}
	}
	if v := os.Getenv(EnvMaxConnections); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConnections = n
		}
	}
	if v := os.Getenv(EnvStorageBackend); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv(EnvSQLitePath); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv(EnvLevelDBPath); v != "" {
		cfg.Storage.LevelDBPath = v
	}
	if v := os.Getenv(EnvS3Bucket); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv(EnvS3Region); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv(EnvS3Endpoint); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
	if v := os.Getenv(EnvS3Prefix); v != "" {
		cfg.Storage.S3.Prefix = v
	}
	if v := os.Getenv(EnvS3PathStyle); v != "" {
		cfg.Storage.S3.PathStyle = parseBool(v)
	}
	if v := os.Getenv(EnvMetricsAddr); v != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv(EnvHealthAddr); v != "" {
		cfg.Health.Enabled = true
		cfg.Health.Addr = v
	}
	if v := os.Getenv(EnvDiscovery); v != "" {
		cfg.Discovery.Enabled = parseBool(v)
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(EnvLogJSON); v != "" {
		cfg.LogJSON = parseBool(v)
	}

	m.Set(cfg)
}

func parseBool(v string) bool {
	return strings.ToLower(v) == "true" || v == "1"
}

// FindConfigFile searches for a configuration file in default locations.
// Returns the path to the first file found, or empty string if none found.
func FindConfigFile() string {
	if envPath := os.Getenv(EnvConfigFile); envPath != "" {
		if _, err := os.Stat(os.ExpandEnv(envPath)); err == nil {
			return os.ExpandEnv(envPath)
		}
	}

	for _, path := range DefaultConfigPaths {
		expandedPath := os.ExpandEnv(path)
		if _, err := os.Stat(expandedPath); err == nil {
			return expandedPath
		}
	}

	return ""
}

// Load loads configuration from all sources with proper precedence.
// Order: defaults -> config file -> environment variables.
// Command-line flags are applied by the caller afterwards.
func (m *Manager) Load() error {
	if configPath := FindConfigFile(); configPath != "" {
		if err := m.LoadFromFile(configPath); err != nil {
			return err
		}
	}

	m.LoadFromEnv()
	return nil
}

// Reload reloads configuration from file and environment and notifies
// registered callbacks.
func (m *Manager) Reload() error {
	configPath := m.Get().ConfigFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	m.Set(DefaultConfig())

	if configPath != "" {
		if err := m.LoadFromFile(configPath); err != nil {
			return err
		}
	}

	m.LoadFromEnv()
	m.notifyReload()
	return nil
}

// String returns a human-readable summary of the configuration.
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("Aviary Configuration:\n")
	sb.WriteString(fmt.Sprintf("  Port:              %d\n", c.Port))
	sb.WriteString(fmt.Sprintf("  Workers:           %d\n", c.Workers))
	sb.WriteString(fmt.Sprintf("  Data Directory:    %s\n", c.DataDir))
	sb.WriteString(fmt.Sprintf("  Snapshot Interval: %s\n", c.SnapshotInterval))
	sb.WriteString(fmt.Sprintf("  Storage Backend:   %s\n", c.Storage.Backend))
	if c.Metrics.Enabled {
		sb.WriteString(fmt.Sprintf("  Metrics:           %s\n", c.Metrics.Addr))
	}
	if c.Health.Enabled {
		sb.WriteString(fmt.Sprintf("  Health:            %s\n", c.Health.Addr))
	}
	sb.WriteString(fmt.Sprintf("  Log Level:         %s\n", c.LogLevel))
	if c.ConfigFile != "" {
		sb.WriteString(fmt.Sprintf("  Config File:       %s\n", c.ConfigFile))
	}
	return sb.String()
}

// ToYAML returns the configuration as a YAML document.
func (c *Config) ToYAML() (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return "# Aviary Configuration\n" + string(data), nil
}

// SaveToFile saves the configuration to a file.
func (c *Config) SaveToFile(path string) error {
	path = os.ExpandEnv(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	doc, err := c.ToYAML()
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
