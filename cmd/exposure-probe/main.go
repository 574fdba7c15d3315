package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/exposure-bridge/internal/config"
	"github.com/example/exposure-bridge/internal/engine"
	"github.com/example/exposure-bridge/internal/engine/factory"
	"github.com/example/exposure-bridge/internal/exposure"
	"github.com/example/exposure-bridge/internal/kafka/producer"
	kafkapublisher "github.com/example/exposure-bridge/internal/kafka/publisher"
	"github.com/example/exposure-bridge/internal/keyfile"
	"github.com/example/exposure-bridge/internal/logger"
	"github.com/example/exposure-bridge/internal/outcome"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fail("config load", err)
	}

	baseLogger, logFile, err := logger.NewWithFile(cfg.App.Env, cfg.App.LogLevel, logger.FileOptions{
		Path:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fail("logger init", err)
	}
	log := baseLogger.With().Str("service", "exposure-probe").Logger()

	runErr := run(ctx, cfg, log)
	if runErr != nil {
		log.Error().Err(runErr).Msg("exposure probe failed")
	} else {
		log.Info().Msg("exposure probe finished")
	}
	// os.Exit skips deferred calls; close the rotating file first.
	if err := logFile.Close(); err != nil {
		fail("log file close", err)
	}
	if runErr != nil {
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	eng, err := factory.Engine(cfg.Engine, log.With().Str("component", "exposure-engine").Logger())
	if err != nil {
		return fmt.Errorf("initialise exposure engine: %w", err)
	}

	var sink outcome.Sink = outcome.NopSink{}
	var prod *producer.Producer
	if cfg.Outcome.Enabled {
		prod, err = producer.New(cfg.Kafka.Brokers, log.With().Str("component", "kafka").Logger(),
			producer.WithClientID(cfg.Kafka.ClientID),
			producer.WithMetadataRefreshInterval(time.Duration(cfg.Kafka.MetadataRefreshSeconds)*time.Second),
		)
		if err != nil {
			return fmt.Errorf("create kafka producer: %w", err)
		}
		defer func() {
			if err := prod.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close kafka producer")
			}
		}()
		logReadiness(log, prod, "before run")

		sink, err = kafkapublisher.NewOutcomePublisher(prod, cfg.Kafka.OutcomeTopic, log.With().Str("component", "outcome-publisher").Logger())
		if err != nil {
			return fmt.Errorf("create outcome publisher: %w", err)
		}
	}

	refiner, err := exposure.NewRefiner(cfg.Exposure.StatusMessagePattern)
	if err != nil {
		return fmt.Errorf("invalid status message pattern: %w", err)
	}

	adapter, err := exposure.NewAdapter(eng, log.With().Str("component", "exposure-adapter").Logger(),
		exposure.WithRefiner(refiner),
		exposure.WithSink(sink),
		exposure.WithFileDeleteConcurrency(cfg.Exposure.FileDeleteConcurrency),
	)
	if err != nil {
		return fmt.Errorf("initialise exposure adapter: %w", err)
	}

	p := &probe{
		adapter: adapter,
		log:     log,
		timeout: time.Duration(cfg.Exposure.CallTimeoutSeconds) * time.Second,
	}
	err = p.run(ctx)
	if prod != nil {
		logReadiness(log, prod, "after run")
	}
	return err
}

// logReadiness reports whether outcome events can currently reach Kafka.
func logReadiness(log zerolog.Logger, prod *producer.Producer, stage string) {
	if prod.Ready() {
		log.Info().Str("stage", stage).Bool("kafka_ready", true).Msg("outcome events deliverable")
		return
	}
	log.Warn().Str("stage", stage).Bool("kafka_ready", false).Msg("outcome events may be dropped: kafka not ready")
}

type probe struct {
	adapter *exposure.Adapter
	log     zerolog.Logger
	timeout time.Duration
}

func (p *probe) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.timeout)
}

func (p *probe) run(ctx context.Context) error {
	p.status(ctx)
	p.enable(ctx)
	p.status(ctx)
	p.keyHistory(ctx)
	if err := p.provideKeys(ctx); err != nil {
		return err
	}
	p.summary(ctx)
	p.disable(ctx)
	return ctx.Err()
}

func (p *probe) report(op exposure.Operation, r exposure.Result) *zerolog.Event {
	st := exposure.Status(r)
	return p.log.Info().
		Str("operation", string(op)).
		Str("outcome", r.Outcome()).
		Str("disposition", r.Disposition().String()).
		Str("grpc_code", st.Code().String())
}

func (p *probe) status(ctx context.Context) {
	callCtx, cancel := p.call(ctx)
	defer cancel()

	r := p.adapter.GetStatus(callCtx)
	ev := p.report(exposure.OpGetStatus, r)
	switch v := r.(type) {
	case exposure.StatusEnabled, exposure.StatusDisabled:
	case exposure.StatusUnavailable:
		ev = ev.Int("refined_code", int(v.Code)).Str("refined_status", v.Code.String())
	case exposure.StatusUnknownError:
		ev = ev.AnErr("cause", v.Cause)
	}
	ev.Msg("status checked")
}

func (p *probe) enable(ctx context.Context) {
	callCtx, cancel := p.call(ctx)
	defer cancel()

	r := p.adapter.Enable(callCtx)
	ev := p.report(exposure.OpEnable, r)
	switch v := r.(type) {
	case exposure.EnableEnabled:
	case exposure.EnableResolutionRequired:
		ev = ev.Str("resolution", fmt.Sprint(v.Handle))
	case exposure.EnableUnknownError:
		ev = ev.AnErr("cause", v.Cause)
	}
	ev.Msg("enable requested")
}

func (p *probe) disable(ctx context.Context) {
	callCtx, cancel := p.call(ctx)
	defer cancel()

	r := p.adapter.Disable(callCtx)
	ev := p.report(exposure.OpDisable, r)
	if v, ok := r.(exposure.DisableUnknownError); ok {
		ev = ev.AnErr("cause", v.Cause)
	}
	ev.Msg("disable requested")
}

func (p *probe) keyHistory(ctx context.Context) {
	callCtx, cancel := p.call(ctx)
	defer cancel()

	r := p.adapter.GetKeyHistory(callCtx)
	ev := p.report(exposure.OpGetKeyHistory, r)
	switch v := r.(type) {
	case exposure.KeyHistorySuccess:
		ev = ev.Int("keys", len(v.Keys))
	case exposure.KeyHistoryRequireConsent:
		ev = ev.Str("resolution", fmt.Sprint(v.Handle))
	case exposure.KeyHistoryUnknownError:
		ev = ev.AnErr("cause", v.Cause)
	}
	ev.Msg("key history requested")
}

func (p *probe) provideKeys(ctx context.Context) error {
	dir, err := os.MkdirTemp("", "exposure-probe-*")
	if err != nil {
		return fmt.Errorf("create key file dir: %w", err)
	}
	defer os.RemoveAll(dir)

	files, err := sampleKeyFiles(dir, 2)
	if err != nil {
		return err
	}

	callCtx, cancel := p.call(ctx)
	defer cancel()

	r := p.adapter.ProvideDiagnosisKeys(callCtx, files, engine.Configuration{
		MinimumRiskScore:  1,
		AttenuationWeight: 50,
		DurationWeight:    50,
	}, "probe-token")
	ev := p.report(exposure.OpProvideDiagnosisKeys, r)
	switch v := r.(type) {
	case exposure.DiagnosisKeysSuccess, exposure.DiagnosisKeysFailedDiskIO:
	case exposure.DiagnosisKeysUnknownError:
		ev = ev.AnErr("cause", v.Cause)
	}

	remaining, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list key file dir: %w", err)
	}
	ev.Int("files_remaining", len(remaining)).Msg("diagnosis keys provided")
	return nil
}

func (p *probe) summary(ctx context.Context) {
	callCtx, cancel := p.call(ctx)
	defer cancel()

	s := p.adapter.GetSummary(callCtx, "probe-token")
	if s == nil {
		p.log.Info().Str("operation", string(exposure.OpGetSummary)).Msg("no exposure summary available")
		return
	}
	p.log.Info().
		Str("operation", string(exposure.OpGetSummary)).
		Int("matched_key_count", s.MatchedKeyCount).
		Int("days_since_last_exposure", s.DaysSinceLastExposure).
		Int("maximum_risk_score", s.MaximumRiskScore).
		Msg("exposure summary fetched")
}

func sampleKeyFiles(dir string, n int) ([]keyfile.File, error) {
	files := make([]keyfile.File, 0, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("export-%d.zip", i+1))
		if err := os.WriteFile(path, []byte("EK Export v1    "), 0o600); err != nil {
			return nil, fmt.Errorf("write key file: %w", err)
		}
		f, err := keyfile.New(path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func fail(stage string, err error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	logger.Fatal().Err(err).Str("stage", stage).Msg("exposure probe init failed")
}
