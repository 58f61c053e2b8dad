package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/saphari-core/internal/infrastructure/logging"
)

// writeConfig writes a config file into a temp dir and points
// SAPHARI_CONFIG at it.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv(configEnvVar, path)
	return path
}

func testConfig(dbPath string, brokerPort int) string {
	return `
site:
  id: test-site

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  broker:
    host: "127.0.0.1"
    port: ` + strconv.Itoa(brokerPort) + `
    client_id: "saphari-test"
  qos: 1
  namespace: saphari
  reconnect:
    initial_delay: 1
    max_delay: 5

logging:
  level: error
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: 18080
`
}

// TestRun_InvalidConfig verifies run fails when SAPHARI_CONFIG names a
// missing file.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv(configEnvVar, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with a missing explicit config path")
	}
}

// TestRun_MalformedConfig verifies run rejects unparsable YAML.
func TestRun_MalformedConfig(t *testing.T) {
	writeConfig(t, "site: [unclosed\n")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with malformed YAML")
	}
}

// TestRun_MissingDatabasePath verifies run fails validation when the
// database path is empty.
func TestRun_MissingDatabasePath(t *testing.T) {
	writeConfig(t, testConfig("", 1883))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
	if !strings.Contains(err.Error(), "database.path") {
		t.Errorf("error = %v, want database.path validation failure", err)
	}
}

// TestRun_BrokerUnreachable verifies startup fails when no broker answers.
func TestRun_BrokerUnreachable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "saphari.db")
	writeConfig(t, testConfig(dbPath, 19999))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail without a broker")
	}

	// Migrations ran before the broker connect was attempted.
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv(configEnvVar, "")

	path, explicit := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
	if explicit {
		t.Error("explicit = true, want false")
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv(configEnvVar, expected)

	path, explicit := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
	if !explicit {
		t.Error("explicit = false, want true")
	}
}

// TestLoadConfig_FallsBackToDefaults verifies a missing default config file
// is not an error.
func TestLoadConfig_FallsBackToDefaults(t *testing.T) {
	t.Setenv(configEnvVar, "")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() error = %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir() error = %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := loadConfig(logging.Discard())
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.MQTT.Namespace != "saphari" {
		t.Errorf("namespace = %q, want saphari", cfg.MQTT.Namespace)
	}
	if cfg.Layout.Columns != 12 {
		t.Errorf("columns = %d, want 12", cfg.Layout.Columns)
	}
}

// TestLoadConfig_File verifies values from the file override defaults.
func TestLoadConfig_File(t *testing.T) {
	writeConfig(t, testConfig("/tmp/x.db", 1884))

	cfg, err := loadConfig(logging.Discard())
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Site.ID != "test-site" {
		t.Errorf("site.id = %q, want test-site", cfg.Site.ID)
	}
	if cfg.MQTT.Broker.Port != 1884 {
		t.Errorf("broker port = %d, want 1884", cfg.MQTT.Broker.Port)
	}
	// Unset sections keep their defaults.
	if cfg.Commands.RateLimit != 10 {
		t.Errorf("commands.rate_limit = %v, want 10", cfg.Commands.RateLimit)
	}
}
