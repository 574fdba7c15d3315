package factory_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/exposure-bridge/internal/config"
	"github.com/example/exposure-bridge/internal/engine"
	"github.com/example/exposure-bridge/internal/engine/factory"
)

const script = `
enabled: true
failures:
  start:
    code: 6
    resolution: consent
`

func TestEngineDefaultsToMock(t *testing.T) {
	eng, err := factory.Engine(config.EngineConfig{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := eng.(*engine.MockEngine); !ok {
		t.Fatalf("expected mock engine, got %T", eng)
	}
}

func TestEngineLoadsScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte(script), 0o600); err != nil {
		t.Fatalf("write script: %v", err)
	}

	eng, err := factory.Engine(config.EngineConfig{Backend: "Mock", ScriptPath: path, LatencyMs: 1}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mock := eng.(*engine.MockEngine)
	if !mock.Enabled() {
		t.Fatalf("expected script to enable the engine")
	}

	done := make(chan error, 1)
	mock.Start(engine.Callback[struct{}]{
		OnSuccess: func(struct{}) { done <- nil },
		OnFailure: func(err error) { done <- err },
	})
	select {
	case err := <-done:
		code, ok := engine.CodeOf(err)
		if !ok || code != engine.ResolutionRequired {
			t.Fatalf("expected resolution failure, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("start callback did not fire")
	}
}

func TestEngineRejectsBadInput(t *testing.T) {
	if _, err := factory.Engine(config.EngineConfig{Backend: "nearby"}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := factory.Engine(config.EngineConfig{ScriptPath: missing}, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for missing script")
	}
}
