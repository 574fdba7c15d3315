package engine

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Script is the YAML description of a mock engine.
//
//	enabled: false
//	latency_ms: 20
//	keys:
//	  - key: "z4Vp2K4ZhYmNUQ8uRSg3Fw=="
//	    rolling_start_number: 2650000
//	    rolling_period: 144
//	    transmission_risk: 4
//	summary:
//	  matched_key_count: 2
//	failures:
//	  is_enabled:
//	    code: 17
//	    message: "ConnectionResult{statusCode=SERVICE_DISABLED(17), resolution=null, message=null}"
//	  start:
//	    code: 6
//	    resolution: consent
type Script struct {
	Enabled   bool                     `yaml:"enabled"`
	LatencyMs int                      `yaml:"latency_ms"`
	Keys      []ScriptKey              `yaml:"keys"`
	Summary   *Summary                 `yaml:"summary"`
	Failures  map[string]ScriptFailure `yaml:"failures"`
}

// ScriptKey is one temporary exposure key entry.
type ScriptKey struct {
	Key                string `yaml:"key"`
	RollingStartNumber int32  `yaml:"rolling_start_number"`
	RollingPeriod      int32  `yaml:"rolling_period"`
	TransmissionRisk   int    `yaml:"transmission_risk"`
}

// ScriptFailure configures the failure of one operation. A non-empty
// Resolution attaches a MockResolution with that action.
type ScriptFailure struct {
	Code       int    `yaml:"code"`
	Message    string `yaml:"message"`
	Resolution string `yaml:"resolution"`
}

// LoadScript decodes a YAML script and converts it into mock options.
func LoadScript(r io.Reader) ([]MockOption, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && err != io.EOF {
		return nil, fmt.Errorf("engine: decode script: %w", err)
	}
	return s.Options()
}

// LoadScriptFile reads a script from path.
func LoadScriptFile(path string) ([]MockOption, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("engine: open script: %w", err)
	}
	defer f.Close()
	return LoadScript(f)
}

// Options converts the script into mock options.
func (s Script) Options() ([]MockOption, error) {
	if s.LatencyMs < 0 {
		return nil, fmt.Errorf("engine: latency_ms cannot be negative")
	}

	opts := []MockOption{
		WithEnabled(s.Enabled),
		WithLatency(time.Duration(s.LatencyMs) * time.Millisecond),
	}

	if len(s.Keys) > 0 {
		keys := make([]TemporaryExposureKey, 0, len(s.Keys))
		for _, k := range s.Keys {
			keys = append(keys, TemporaryExposureKey{
				Key:              k.Key,
				IntervalNumber:   k.RollingStartNumber,
				IntervalCount:    k.RollingPeriod,
				TransmissionRisk: k.TransmissionRisk,
			})
		}
		opts = append(opts, WithKeys(keys))
	}
	if s.Summary != nil {
		summary := *s.Summary
		opts = append(opts, WithSummary(&summary))
	}

	for name, f := range s.Failures {
		op, err := ParseOperation(name)
		if err != nil {
			return nil, err
		}
		code := StatusCode(f.Code)
		if code == Success {
			return nil, fmt.Errorf("engine: failure for %s needs a non-zero code", op)
		}
		if f.Resolution != "" {
			if code != ResolutionRequired {
				return nil, fmt.Errorf("engine: resolution on %s requires code %d", op, int(ResolutionRequired))
			}
			opts = append(opts, WithResolutionFailure(op, f.Resolution))
			continue
		}
		opts = append(opts, WithFailure(op, NewPlatformError(code, f.Message)))
	}

	return opts, nil
}
