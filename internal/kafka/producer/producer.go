package producer

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

const (
	defaultClientID        = "exposure-bridge"
	defaultMetadataRefresh = 30 * time.Second
)

// Message is one record handed to Kafka.
type Message struct {
	Topic   string
	Key     []byte
	Headers map[string][]byte
	Value   []byte
}

// Delivery is where the broker stored an acknowledged message.
type Delivery struct {
	Partition int32
	Offset    int64
}

// Option tunes the sarama configuration before the client is created.
type Option func(*sarama.Config)

// WithClientID sets the client id reported to the brokers.
func WithClientID(id string) Option {
	return func(c *sarama.Config) {
		if id = strings.TrimSpace(id); id != "" {
			c.ClientID = id
		}
	}
}

// WithMetadataRefreshInterval sets how often cluster metadata, and with it
// readiness, is refreshed.
func WithMetadataRefreshInterval(d time.Duration) Option {
	return func(c *sarama.Config) {
		if d > 0 {
			c.Metadata.RefreshFrequency = d
		}
	}
}

// Producer publishes outcome events synchronously. Events are low volume and
// must be acknowledged by every in-sync replica.
type Producer struct {
	logger zerolog.Logger
	client sarama.Client
	sp     sarama.SyncProducer

	ready atomic.Bool

	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New connects to brokers and starts a metadata watcher that keeps Ready
// current.
func New(brokers []string, logger zerolog.Logger, opts ...Option) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka producer: at least one broker is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	cfg := outcomeConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer: invalid config: %w", err)
	}

	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: create client: %w", err)
	}
	sp, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka producer: create sync producer: %w", err)
	}

	p := &Producer{
		logger: logger.With().Str("client_id", cfg.ClientID).Logger(),
		client: client,
		sp:     sp,
		stop:   make(chan struct{}),
	}
	p.refresh()

	p.wg.Add(1)
	go p.watch(cfg.Metadata.RefreshFrequency)

	return p, nil
}

// Wrap adapts an existing sync producer, typically sarama/mocks in tests.
// Without a client there is no watcher; readiness follows publish results.
func Wrap(sp sarama.SyncProducer, logger zerolog.Logger) (*Producer, error) {
	if sp == nil {
		return nil, errors.New("kafka producer: sync producer is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	p := &Producer{logger: logger, sp: sp, stop: make(chan struct{})}
	p.ready.Store(true)
	return p, nil
}

// Publish sends m and waits for the acknowledgement.
func (p *Producer) Publish(m Message) (Delivery, error) {
	if strings.TrimSpace(m.Topic) == "" {
		return Delivery{}, errors.New("kafka producer: topic is required")
	}

	msg := &sarama.ProducerMessage{
		Topic:   m.Topic,
		Value:   sarama.ByteEncoder(m.Value),
		Headers: recordHeaders(m.Headers),
	}
	if len(m.Key) > 0 {
		msg.Key = sarama.ByteEncoder(m.Key)
	}

	partition, offset, err := p.sp.SendMessage(msg)
	if err != nil {
		p.setReady(false, err)
		return Delivery{}, fmt.Errorf("kafka producer: send to %s: %w", m.Topic, err)
	}
	p.setReady(true, nil)
	return Delivery{Partition: partition, Offset: offset}, nil
}

// Ready reports whether the last metadata refresh or publish succeeded.
func (p *Producer) Ready() bool {
	return p.ready.Load()
}

// Close stops the watcher and releases the producer and client.
func (p *Producer) Close() error {
	var errs []error
	p.closeOnce.Do(func() {
		close(p.stop)
		p.wg.Wait()

		if err := p.sp.Close(); err != nil {
			errs = append(errs, err)
		}
		if p.client != nil {
			if err := p.client.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func (p *Producer) watch(every time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.refresh()
		}
	}
}

func (p *Producer) refresh() {
	p.setReady(p.client.RefreshMetadata() == nil, nil)
}

// setReady logs only transitions so a flapping cluster does not flood the log.
func (p *Producer) setReady(ready bool, cause error) {
	if p.ready.Swap(ready) == ready {
		return
	}
	if ready {
		p.logger.Info().Msg("kafka producer ready")
		return
	}
	p.logger.Warn().Err(cause).Msg("kafka producer not ready")
}

func recordHeaders(headers map[string][]byte) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	out := make([]sarama.RecordHeader, 0, len(headers))
	for k, v := range headers {
		out = append(out, sarama.RecordHeader{Key: []byte(k), Value: append([]byte(nil), v...)})
	}
	return out
}

func outcomeConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.ClientID = defaultClientID
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Retry.Max = 6
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Metadata.RefreshFrequency = defaultMetadataRefresh
	return cfg
}
