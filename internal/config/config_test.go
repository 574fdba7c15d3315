package config_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/example/exposure-bridge/internal/config"
)

var managedKeys = []string{
	"APP_ENV",
	"LOG_LEVEL",
	"LOG_FILE",
	"LOG_MAX_SIZE_MB",
	"LOG_MAX_BACKUPS",
	"LOG_MAX_AGE_DAYS",
	"EXPOSURE_ENGINE_BACKEND",
	"EXPOSURE_ENGINE_SCRIPT",
	"EXPOSURE_ENGINE_LATENCY_MS",
	"EXPOSURE_STATUS_MESSAGE_PATTERN",
	"EXPOSURE_FILE_DELETE_CONCURRENCY",
	"EXPOSURE_CALL_TIMEOUT_SECONDS",
	"OUTCOME_EVENTS_ENABLED",
	"KAFKA_BROKERS",
	"KAFKA_OUTCOME_TOPIC",
	"KAFKA_CLIENT_ID",
	"KAFKA_METADATA_REFRESH_SECONDS",
}

// clearEnv blanks every managed key so defaults apply regardless of the host
// environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range managedKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.App.Env != "development" {
		t.Fatalf("expected app env development, got %s", cfg.App.Env)
	}
	if cfg.App.LogLevel != "info" {
		t.Fatalf("expected log level info, got %s", cfg.App.LogLevel)
	}
	if cfg.Log.File != "" || cfg.Log.MaxSizeMB != 50 || cfg.Log.MaxBackups != 3 || cfg.Log.MaxAgeDays != 14 {
		t.Fatalf("unexpected log defaults: %+v", cfg.Log)
	}
	if cfg.Engine.Backend != "mock" {
		t.Fatalf("expected engine backend mock, got %s", cfg.Engine.Backend)
	}
	if cfg.Exposure.StatusMessagePattern != "" {
		t.Fatalf("expected empty status pattern, got %q", cfg.Exposure.StatusMessagePattern)
	}
	if cfg.Exposure.FileDeleteConcurrency != 4 {
		t.Fatalf("expected delete concurrency 4, got %d", cfg.Exposure.FileDeleteConcurrency)
	}
	if cfg.Exposure.CallTimeoutSeconds != 30 {
		t.Fatalf("expected call timeout 30, got %d", cfg.Exposure.CallTimeoutSeconds)
	}
	if cfg.Outcome.Enabled {
		t.Fatalf("expected outcome events disabled by default")
	}
	if len(cfg.Kafka.Brokers) != 0 {
		t.Fatalf("expected no brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Kafka.ClientID != "exposure-bridge" {
		t.Fatalf("expected default client id, got %s", cfg.Kafka.ClientID)
	}
	if cfg.Kafka.MetadataRefreshSeconds != 30 {
		t.Fatalf("expected metadata refresh 30, got %d", cfg.Kafka.MetadataRefreshSeconds)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FILE", "/var/log/exposure/bridge.log")
	t.Setenv("EXPOSURE_ENGINE_BACKEND", "MOCK")
	t.Setenv("EXPOSURE_ENGINE_SCRIPT", "./engine.yaml")
	t.Setenv("EXPOSURE_ENGINE_LATENCY_MS", "25")
	t.Setenv("EXPOSURE_STATUS_MESSAGE_PATTERN", `code=(\d+)`)
	t.Setenv("EXPOSURE_FILE_DELETE_CONCURRENCY", "8")
	t.Setenv("OUTCOME_EVENTS_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker-a:9092, broker-b:9093")
	t.Setenv("KAFKA_OUTCOME_TOPIC", "exposure.outcomes")
	t.Setenv("KAFKA_CLIENT_ID", "bridge-eu-1")
	t.Setenv("KAFKA_METADATA_REFRESH_SECONDS", "10")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantBrokers := []string{"broker-a:9092", "broker-b:9093"}
	if !reflect.DeepEqual(cfg.Kafka.Brokers, wantBrokers) {
		t.Fatalf("expected brokers %v, got %v", wantBrokers, cfg.Kafka.Brokers)
	}
	if cfg.Kafka.OutcomeTopic != "exposure.outcomes" {
		t.Fatalf("expected outcome topic, got %s", cfg.Kafka.OutcomeTopic)
	}
	if cfg.Kafka.ClientID != "bridge-eu-1" || cfg.Kafka.MetadataRefreshSeconds != 10 {
		t.Fatalf("unexpected kafka client settings: %+v", cfg.Kafka)
	}
	if !cfg.Outcome.Enabled {
		t.Fatalf("expected outcome events enabled")
	}
	if cfg.Engine.Backend != "mock" {
		t.Fatalf("expected backend normalised to mock, got %s", cfg.Engine.Backend)
	}
	if cfg.Engine.ScriptPath != "./engine.yaml" || cfg.Engine.LatencyMs != 25 {
		t.Fatalf("unexpected engine config: %+v", cfg.Engine)
	}
	if cfg.Exposure.StatusMessagePattern != `code=(\d+)` {
		t.Fatalf("unexpected status pattern %q", cfg.Exposure.StatusMessagePattern)
	}
	if cfg.Exposure.FileDeleteConcurrency != 8 {
		t.Fatalf("expected delete concurrency 8, got %d", cfg.Exposure.FileDeleteConcurrency)
	}
	if cfg.Log.File != "/var/log/exposure/bridge.log" {
		t.Fatalf("unexpected log file %s", cfg.Log.File)
	}
}

func TestLoadRequiresKafkaWhenOutcomeEnabled(t *testing.T) {
	clearEnv(t)
	t.Setenv("OUTCOME_EVENTS_ENABLED", "true")

	_, err := config.Load()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, key := range []string{"KAFKA_BROKERS", "KAFKA_OUTCOME_TOPIC"} {
		if !strings.Contains(err.Error(), key+" is required") {
			t.Fatalf("expected error to mention %s, got %v", key, err)
		}
	}
}

func TestLoadInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXPOSURE_ENGINE_LATENCY_MS", "-5")
	t.Setenv("EXPOSURE_FILE_DELETE_CONCURRENCY", "0")
	t.Setenv("EXPOSURE_CALL_TIMEOUT_SECONDS", "soon")
	t.Setenv("OUTCOME_EVENTS_ENABLED", "maybe")
	t.Setenv("KAFKA_METADATA_REFRESH_SECONDS", "-1")

	_, err := config.Load()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{
		"EXPOSURE_ENGINE_LATENCY_MS must not be negative",
		"EXPOSURE_FILE_DELETE_CONCURRENCY must be greater than zero",
		"EXPOSURE_CALL_TIMEOUT_SECONDS must be a valid integer",
		"OUTCOME_EVENTS_ENABLED must be a valid boolean",
		"KAFKA_METADATA_REFRESH_SECONDS must be greater than zero",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}
