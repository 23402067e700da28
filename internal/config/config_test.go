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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Port != 3000 {
		t.Errorf("Expected default port 3000, got %d", cfg.Port)
	}
	if cfg.Workers != 2 {
		t.Errorf("Expected default workers 2, got %d", cfg.Workers)
	}
	if cfg.SnapshotInterval != 30*time.Minute {
		t.Errorf("Expected default snapshot interval 30m, got %s", cfg.SnapshotInterval)
	}
	if filepath.Base(cfg.DataDir) != "serverdata" {
		t.Errorf("Expected default data dir to end in 'serverdata', got '%s'", cfg.DataDir)
	}
	if cfg.Storage.Backend != BackendXML {
		t.Errorf("Expected default backend 'xml', got '%s'", cfg.Storage.Backend)
	}
	if cfg.ConnTimeout != 0 {
		t.Errorf("Expected no default connection timeout, got %s", cfg.ConnTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log_level 'info', got '%s'", cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

// validTestConfig returns a valid config rooted in a fixed data dir.
func validTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.DataDir = "/tmp/aviary-test"
	return cfg
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid default", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Port = 70000 }, true},
		{"port max", func(c *Config) { c.Port = 65535 }, false},
		{"zero workers", func(c *Config) { c.Workers = 0 }, true},
		{"one worker", func(c *Config) { c.Workers = 1 }, false},
		{"empty data dir", func(c *Config) { c.DataDir = "" }, true},
		{"negative interval", func(c *Config) { c.SnapshotInterval = -time.Second }, true},
		{"zero interval disables periodic saves", func(c *Config) { c.SnapshotInterval = 0 }, false},
		{"negative timeout", func(c *Config) { c.ConnTimeout = -time.Second }, true},
		{"negative max connections", func(c *Config) { c.MaxConnections = -1 }, true},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "tape" }, true},
		{"postgres without dsn", func(c *Config) { c.Storage.Backend = BackendPostgres }, true},
		{"postgres with dsn", func(c *Config) {
			c.Storage.Backend = BackendPostgres
			c.Storage.PostgresDSN = "postgres://localhost/aviary"
		}, false},
		{"s3 without bucket", func(c *Config) { c.Storage.Backend = BackendS3 }, true},
		{"metrics without addr", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Addr = ""
		}, true},
		{"invalid log level", func(c *Config) { c.LogLevel = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	cfg := validTestConfig()
	cfg.Port = 0
	cfg.Workers = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	if !strings.Contains(err.Error(), "invalid port") || !strings.Contains(err.Error(), "invalid workers") {
		t.Errorf("Expected both violations in error, got: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()

	configContent := `# Test configuration
port: 9000
workers: 4
data_dir: /tmp/birds
snapshot_interval: 5m
conn_timeout: 10s
storage:
  backend: sqlite
  sqlite_path: /tmp/birds/aviary.db
metrics:
  enabled: true
  addr: ":9100"
log_level: debug
log_json: true
`

	configPath := filepath.Join(tmpDir, "aviary.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	cfg := mgr.Get()

	if cfg.Port != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.Port)
	}
	if cfg.Workers != 4 {
		t.Errorf("Expected workers 4, got %d", cfg.Workers)
	}
	if cfg.SnapshotInterval != 5*time.Minute {
		t.Errorf("Expected snapshot interval 5m, got %s", cfg.SnapshotInterval)
	}
	if cfg.ConnTimeout != 10*time.Second {
		t.Errorf("Expected conn timeout 10s, got %s", cfg.ConnTimeout)
	}
	if cfg.Storage.Backend != BackendSQLite {
		t.Errorf("Expected backend sqlite, got '%s'", cfg.Storage.Backend)
	}
	if cfg.SQLitePath() != "/tmp/birds/aviary.db" {
		t.Errorf("Expected sqlite path from file, got '%s'", cfg.SQLitePath())
	}
	if !cfg.Metrics.Enabled || cfg.Metrics.Addr != ":9100" {
		t.Errorf("Expected metrics enabled on :9100, got %+v", cfg.Metrics)
	}
	if cfg.Health.Addr != ":9095" {
		t.Errorf("Expected unset health addr to keep default, got '%s'", cfg.Health.Addr)
	}
	if !cfg.LogJSON {
		t.Errorf("Expected log_json true, got %v", cfg.LogJSON)
	}
	if cfg.ConfigFile != configPath {
		t.Errorf("Expected ConfigFile '%s', got '%s'", configPath, cfg.ConfigFile)
	}
}

func TestLoadFromFileRejectsBadYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "aviary.yaml")
	if err := os.WriteFile(configPath, []byte("port: [not a number"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if err := NewManager().LoadFromFile(configPath); err == nil {
		t.Error("Expected parse error for malformed YAML")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvPort, "7777")
	t.Setenv(EnvWorkers, "8")
	t.Setenv(EnvSnapshotInterval, "90s")
	t.Setenv(EnvStorageBackend, "LEVELDB")
	t.Setenv(EnvHealthAddr, ":9999")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogJSON, "1")

	mgr := NewManager()
	mgr.LoadFromEnv()

	cfg := mgr.Get()

	if cfg.Port != 7777 {
		t.Errorf("Expected port 7777 from env, got %d", cfg.Port)
	}
	if cfg.Workers != 8 {
		t.Errorf("Expected workers 8 from env, got %d", cfg.Workers)
	}
	if cfg.SnapshotInterval != 90*time.Second {
		t.Errorf("Expected snapshot interval 90s from env, got %s", cfg.SnapshotInterval)
	}
	if cfg.Storage.Backend != BackendLevelDB {
		t.Errorf("Expected backend leveldb from env, got '%s'", cfg.Storage.Backend)
	}
	if !cfg.Health.Enabled || cfg.Health.Addr != ":9999" {
		t.Errorf("Expected health enabled on :9999 from env, got %+v", cfg.Health)
	}
	if cfg.LogLevel != "debug" || !cfg.LogJSON {
		t.Errorf("Expected debug JSON logging from env, got %s/%v", cfg.LogLevel, cfg.LogJSON)
	}
}

func TestLoadFromEnvIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv(EnvPort, "not-a-port")
	t.Setenv(EnvSnapshotInterval, "soon")

	mgr := NewManager()
	mgr.LoadFromEnv()
	cfg := mgr.Get()

	if cfg.Port != DefaultPort {
		t.Errorf("Expected default port to survive malformed env, got %d", cfg.Port)
	}
	if cfg.SnapshotInterval != DefaultSnapshotInterval {
		t.Errorf("Expected default interval to survive malformed env, got %s", cfg.SnapshotInterval)
	}
}

func TestConfigPrecedence(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "aviary.yaml")
	if err := os.WriteFile(configPath, []byte("port: 9000\nworkers: 3\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv(EnvPort, "7777")

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	mgr.LoadFromEnv()

	cfg := mgr.Get()
	if cfg.Port != 7777 {
		t.Errorf("Expected port 7777 (env override), got %d", cfg.Port)
	}
	if cfg.Workers != 3 {
		t.Errorf("Expected workers 3 from file, got %d", cfg.Workers)
	}
}

func TestSaveToFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "aviary.yaml")

	cfg := validTestConfig()
	cfg.Port = 4100
	cfg.SnapshotInterval = 45 * time.Second
	cfg.Storage.Backend = BackendLevelDB

	if err := cfg.SaveToFile(path); err != nil {
		t.Fatalf("SaveToFile failed: %v", err)
	}

	mgr := NewManager()
	if err := mgr.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	got := mgr.Get()

	if got.Port != 4100 || got.SnapshotInterval != 45*time.Second || got.Storage.Backend != BackendLevelDB {
		t.Errorf("Round trip mismatch: %+v", got)
	}
}

func TestManagerGetReturnsCopy(t *testing.T) {
	mgr := NewManager()
	cfg := mgr.Get()
	cfg.Port = 1

	if mgr.Get().Port == 1 {
		t.Error("Get should return a copy")
	}
}

func TestReloadNotifiesCallbacks(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "aviary.yaml")
	if err := os.WriteFile(configPath, []byte("workers: 5\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	mgr := NewManager()
	if err := mgr.LoadFromFile(configPath); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	var seen int
	mgr.OnReload(func(c *Config) { seen = c.Workers })

	if err := os.WriteFile(configPath, []byte("workers: 6\n"), 0644); err != nil {
		t.Fatalf("Failed to rewrite config file: %v", err)
	}
	if err := mgr.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if seen != 6 {
		t.Errorf("Expected reload callback to see workers 6, got %d", seen)
	}
}
