package factory

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/exposure-bridge/internal/config"
	"github.com/example/exposure-bridge/internal/engine"
)

// Engine constructs the configured exposure engine. Only the mock backend is
// available in this process; a script file and latency tune its behaviour.
func Engine(cfg config.EngineConfig, logger zerolog.Logger) (engine.Engine, error) {
	backend := normalize(cfg.Backend, "mock")
	switch backend {
	case "mock":
		var opts []engine.MockOption
		if path := strings.TrimSpace(cfg.ScriptPath); path != "" {
			scripted, err := engine.LoadScriptFile(path)
			if err != nil {
				return nil, fmt.Errorf("factory: mock engine script: %w", err)
			}
			opts = append(opts, scripted...)
		}
		if cfg.LatencyMs > 0 {
			opts = append(opts, engine.WithLatency(time.Duration(cfg.LatencyMs)*time.Millisecond))
		}
		eng := engine.NewMockEngine(logger, opts...)
		logger.Info().
			Str("backend", "mock").
			Str("script", cfg.ScriptPath).
			Int("latency_ms", cfg.LatencyMs).
			Msg("exposure engine initialised")
		return eng, nil
	default:
		return nil, fmt.Errorf("factory: unsupported exposure engine backend %q", cfg.Backend)
	}
}

func normalize(value, def string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return def
	}
	return value
}
