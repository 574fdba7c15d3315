package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config captures all runtime configuration for the exposure bridge.
type Config struct {
	App      AppConfig
	Log      LogConfig
	Engine   EngineConfig
	Exposure ExposureConfig
	Outcome  OutcomeConfig
	Kafka    KafkaConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	LogLevel string
}

// LogConfig controls the optional rotating log file.
type LogConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// EngineConfig selects and tunes the exposure engine backend.
type EngineConfig struct {
	Backend    string
	ScriptPath string
	LatencyMs  int
}

// ExposureConfig tunes the adapter.
type ExposureConfig struct {
	StatusMessagePattern  string
	FileDeleteConcurrency int
	CallTimeoutSeconds    int
}

// OutcomeConfig toggles publishing of outcome events.
type OutcomeConfig struct {
	Enabled bool
}

// KafkaConfig defines broker information for outcome events.
type KafkaConfig struct {
	Brokers                []string
	OutcomeTopic           string
	ClientID               string
	MetadataRefreshSeconds int
}

// Load reads environment variables, applies defaults, validates required
// values and returns a populated Config instance.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	cfg.Log.File = ldr.getString("LOG_FILE", "", false)
	cfg.Log.MaxSizeMB = ldr.getPositiveInt("LOG_MAX_SIZE_MB", 50)
	cfg.Log.MaxBackups = ldr.getInt("LOG_MAX_BACKUPS", 3, false)
	cfg.Log.MaxAgeDays = ldr.getInt("LOG_MAX_AGE_DAYS", 14, false)

	cfg.Engine.Backend = strings.ToLower(ldr.getString("EXPOSURE_ENGINE_BACKEND", "mock", false))
	cfg.Engine.ScriptPath = ldr.getString("EXPOSURE_ENGINE_SCRIPT", "", false)
	cfg.Engine.LatencyMs = ldr.getInt("EXPOSURE_ENGINE_LATENCY_MS", 0, false)
	if cfg.Engine.LatencyMs < 0 {
		ldr.addError("EXPOSURE_ENGINE_LATENCY_MS must not be negative")
	}

	cfg.Exposure.StatusMessagePattern = ldr.getString("EXPOSURE_STATUS_MESSAGE_PATTERN", "", false)
	cfg.Exposure.FileDeleteConcurrency = ldr.getPositiveInt("EXPOSURE_FILE_DELETE_CONCURRENCY", 4)
	cfg.Exposure.CallTimeoutSeconds = ldr.getPositiveInt("EXPOSURE_CALL_TIMEOUT_SECONDS", 30)

	cfg.Outcome.Enabled = ldr.getBool("OUTCOME_EVENTS_ENABLED", false, false)

	// Brokers and topic are only needed when outcome events leave the process.
	cfg.Kafka.Brokers = ldr.getStringSlice("KAFKA_BROKERS", cfg.Outcome.Enabled)
	cfg.Kafka.OutcomeTopic = ldr.getString("KAFKA_OUTCOME_TOPIC", "", cfg.Outcome.Enabled)
	cfg.Kafka.ClientID = ldr.getString("KAFKA_CLIENT_ID", "exposure-bridge", false)
	cfg.Kafka.MetadataRefreshSeconds = ldr.getPositiveInt("KAFKA_METADATA_REFRESH_SECONDS", 30)

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		i, err := strconv.Atoi(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid integer", key))
			return def
		}
		return i
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getPositiveInt(key string, def int) int {
	v := l.getInt(key, def, false)
	if v <= 0 {
		l.addError(fmt.Sprintf("%s must be greater than zero", key))
		return def
	}
	return v
}

func (l *envLoader) getBool(key string, def bool, required bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			l.addError(fmt.Sprintf("%s must be a valid boolean", key))
			return def
		}
		return parsed
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	if raw == "" {
		if required {
			return nil
		}
		return []string{}
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
