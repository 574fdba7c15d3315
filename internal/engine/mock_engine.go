package engine

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/example/exposure-bridge/internal/keyfile"
)

// Operation names one engine call. The values double as keys in engine scripts.
type Operation string

const (
	OpIsEnabled            Operation = "is_enabled"
	OpStart                Operation = "start"
	OpStop                 Operation = "stop"
	OpKeyHistory           Operation = "key_history"
	OpProvideDiagnosisKeys Operation = "provide_diagnosis_keys"
	OpExposureSummary      Operation = "exposure_summary"
)

// Operations lists every engine operation in a stable order.
var Operations = []Operation{
	OpIsEnabled,
	OpStart,
	OpStop,
	OpKeyHistory,
	OpProvideDiagnosisKeys,
	OpExposureSummary,
}

// ParseOperation normalizes s and matches it against the known operations.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	for _, known := range Operations {
		if op == known {
			return op, nil
		}
	}
	return "", errors.New("engine: unknown operation " + s)
}

// MockResolution is the resolution handle the mock engine hands out.
type MockResolution struct {
	ID     string
	Action string
}

// MockOption customises the mock engine.
type MockOption func(*MockEngine)

// WithEnabled sets the initial enabled state.
func WithEnabled(enabled bool) MockOption {
	return func(m *MockEngine) {
		m.enabled = enabled
	}
}

// WithLatency configures the artificial delay before a callback fires.
func WithLatency(d time.Duration) MockOption {
	return func(m *MockEngine) {
		if d < 0 {
			d = 0
		}
		m.latency = d
	}
}

// WithKeys sets the key history returned on success.
func WithKeys(keys []TemporaryExposureKey) MockOption {
	return func(m *MockEngine) {
		m.keys = keys
	}
}

// WithSummary sets the summary returned on success.
func WithSummary(summary *Summary) MockOption {
	return func(m *MockEngine) {
		m.summary = summary
	}
}

// WithFailure makes op fail with err until cleared with a nil err.
func WithFailure(op Operation, err error) MockOption {
	return func(m *MockEngine) {
		if err == nil {
			delete(m.failures, op)
			return
		}
		m.failures[op] = err
	}
}

// WithResolutionFailure makes op fail with ResolutionRequired and a fresh
// MockResolution handle.
func WithResolutionFailure(op Operation, action string) MockOption {
	return func(m *MockEngine) {
		m.failures[op] = NewResolutionError(MockResolution{ID: uuid.NewString(), Action: action}, "resolution required: "+action)
	}
}

// WithDoubleCallback makes every call fire both callbacks, simulating an
// engine that breaks the exactly-once contract.
func WithDoubleCallback() MockOption {
	return func(m *MockEngine) {
		m.double = true
	}
}

// MockEngine is a deterministic in-memory exposure engine. Start and Stop flip
// the enabled state on success so sequences of calls behave like a device.
type MockEngine struct {
	logger  zerolog.Logger
	latency time.Duration
	double  bool

	mu       sync.Mutex
	enabled  bool
	keys     []TemporaryExposureKey
	summary  *Summary
	failures map[Operation]error
	calls    map[Operation]int
	tokens   []string
}

var _ Engine = (*MockEngine)(nil)

// NewMockEngine constructs a mock engine. By default every call succeeds,
// the engine starts disabled and callbacks fire on a new goroutine.
func NewMockEngine(logger zerolog.Logger, opts ...MockOption) *MockEngine {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	m := &MockEngine{
		logger:   logger,
		failures: make(map[Operation]error),
		calls:    make(map[Operation]int),
	}
	m.Apply(opts...)
	return m
}

// Apply reconfigures the engine. Safe to call between operations.
func (m *MockEngine) Apply(opts ...MockOption) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
}

// Calls returns how many times op was invoked.
func (m *MockEngine) Calls(op Operation) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// Tokens returns the tokens seen by ProvideDiagnosisKeys and GetExposureSummary.
func (m *MockEngine) Tokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tokens...)
}

// Enabled reports the current simulated state.
func (m *MockEngine) Enabled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled
}

// IsEnabled reports the simulated enabled state.
func (m *MockEngine) IsEnabled(cb Callback[bool]) {
	err := m.begin(OpIsEnabled)
	m.mu.Lock()
	enabled := m.enabled
	m.mu.Unlock()
	complete(m, OpIsEnabled, cb, enabled, err)
}

// Start enables the engine unless a failure is configured.
func (m *MockEngine) Start(cb Callback[struct{}]) {
	err := m.begin(OpStart)
	if err == nil {
		m.setEnabled(true)
	}
	complete(m, OpStart, cb, struct{}{}, err)
}

// Stop disables the engine unless a failure is configured.
func (m *MockEngine) Stop(cb Callback[struct{}]) {
	err := m.begin(OpStop)
	if err == nil {
		m.setEnabled(false)
	}
	complete(m, OpStop, cb, struct{}{}, err)
}

// TemporaryExposureKeyHistory returns the configured keys.
func (m *MockEngine) TemporaryExposureKeyHistory(cb Callback[[]TemporaryExposureKey]) {
	err := m.begin(OpKeyHistory)
	m.mu.Lock()
	keys := m.keys
	m.mu.Unlock()
	complete(m, OpKeyHistory, cb, keys, err)
}

// ProvideDiagnosisKeys records token and completes. Files are never touched.
func (m *MockEngine) ProvideDiagnosisKeys(files []keyfile.File, _ Configuration, token string, cb Callback[struct{}]) {
	err := m.begin(OpProvideDiagnosisKeys)
	m.mu.Lock()
	m.tokens = append(m.tokens, token)
	m.mu.Unlock()
	m.logger.Debug().
		Str("operation", string(OpProvideDiagnosisKeys)).
		Int("files", len(files)).
		Str("token", token).
		Msg("mock engine received diagnosis keys")
	complete(m, OpProvideDiagnosisKeys, cb, struct{}{}, err)
}

// GetExposureSummary returns the configured summary.
func (m *MockEngine) GetExposureSummary(token string, cb Callback[*Summary]) {
	err := m.begin(OpExposureSummary)
	m.mu.Lock()
	m.tokens = append(m.tokens, token)
	summary := m.summary
	m.mu.Unlock()
	complete(m, OpExposureSummary, cb, summary, err)
}

func (m *MockEngine) begin(op Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[op]++
	return m.failures[op]
}

func (m *MockEngine) setEnabled(enabled bool) {
	m.mu.Lock()
	m.enabled = enabled
	m.mu.Unlock()
}

func complete[T any](m *MockEngine, op Operation, cb Callback[T], value T, err error) {
	m.mu.Lock()
	latency, double := m.latency, m.double
	m.mu.Unlock()
	go func() {
		if latency > 0 {
			time.Sleep(latency)
		}
		if err != nil {
			m.logger.Debug().Str("operation", string(op)).Err(err).Msg("mock engine failing call")
			cb.Fail(err)
			if double {
				cb.Succeed(value)
			}
			return
		}
		cb.Succeed(value)
		if double {
			cb.Fail(errors.New("engine mock: duplicate completion"))
		}
	}()
}
