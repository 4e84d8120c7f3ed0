package streamworker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/codec"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/observability"
)

// storedRecord is one accepted, decoded record waiting to be claimed by a
// FetchByCorrelation call.
type storedRecord struct {
	key     domain.CloudEvent
	value   []byte
	headers map[string]string
}

type pendingFetch struct {
	correlationID string
	replyTo       chan domain.ConsumedResult
}

// Consumer is C3: one instance per (testId, topic) in role consumer,
// owning a long-lived Kafka subscription. A single goroutine owns both
// the poll loop's decoded output and the fetch-request inbox, so the
// stored-records map and pending-fetch queue never need a lock — the
// same single-writer shape the teacher's pipeline.Run uses for its
// extract/transform/load state.
type Consumer struct {
	topic         string
	reader        *kafkago.Reader
	codec         *codec.Codec
	eventFilters  []domain.EventFilter
	fetchTimeout  time.Duration
	logger        *slog.Logger
	metrics       *observability.Metrics

	records    chan storedRecord
	fetch      chan fetchRequest
	expire     chan *pendingFetch
	stop       chan stopRequest
	done       chan struct{}
	cancelPoll context.CancelFunc
}

// NewConsumer builds a Consumer subscribed to topic, decoding each record's
// CloudEvent key and filtering to just the eventFilters' (type,
// payloadVersion) pairs. Record values are not decoded: they are kept as
// the Confluent-framed bytes read from Kafka.
func NewConsumer(topic, bootstrapServers string, security domain.KafkaCredentials, protocol domain.SecurityProtocol, eventFilters []domain.EventFilter, c *codec.Codec, logger *slog.Logger, metrics *observability.Metrics, fetchTimeout time.Duration) (*Consumer, error) {
	tlsConfig, err := buildTLSConfig(protocol, security)
	if err != nil {
		return nil, err
	}
	mechanism, err := buildSASLMechanism(security)
	if err != nil {
		return nil, err
	}

	dialer := &kafkago.Dialer{
		Timeout:       10 * time.Second,
		TLS:           tlsConfig,
		SASLMechanism: mechanism,
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: splitBootstrap(bootstrapServers),
		Topic:   topic,
		Dialer:  dialer,
	})

	consumer := &Consumer{
		topic:        topic,
		reader:       reader,
		codec:        c,
		eventFilters: eventFilters,
		fetchTimeout: fetchTimeout,
		logger:       logger.With("component", "consumer", "topic", topic),
		metrics:      metrics,
		records:      make(chan storedRecord, 256),
		fetch:        make(chan fetchRequest),
		expire:       make(chan *pendingFetch, 256),
		stop:         make(chan stopRequest, 1),
		done:         make(chan struct{}),
	}

	pollCtx, cancelPoll := context.WithCancel(context.Background())
	consumer.cancelPoll = cancelPoll
	go consumer.poll(pollCtx)
	go consumer.run()
	return consumer, nil
}

func (c *Consumer) FetchByCorrelation(ctx context.Context, correlationID string, expectedType interface{}) <-chan domain.ConsumedResult {
	reply := make(chan domain.ConsumedResult, 1)
	fetchCtx, cancel := context.WithTimeout(ctx, c.fetchTimeout)

	req := fetchRequest{correlationID: correlationID, expectedType: expectedType, replyTo: reply, ctx: fetchCtx}
	pending := &pendingFetch{correlationID: correlationID, replyTo: reply}

	go func() {
		<-fetchCtx.Done()
		cancel()
		select {
		case c.expire <- pending:
		default:
		}
	}()

	select {
	case c.fetch <- req:
	case <-ctx.Done():
		cancel()
		reply <- domain.NotAvailable(domain.ReasonCancelled)
	}
	return reply
}

// Stop commits pending offsets, closes the subscription, and replies
// NotAvailable(Cancelled) to any fetch still waiting.
func (c *Consumer) Stop(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case c.stop <- stopRequest{done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) poll(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			c.logger.Error("kafka fetch failed", "error", err)
			return
		}

		record, keep := c.decodeAndFilter(ctx, msg)
		if keep {
			c.records <- record
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("commit offset failed", "error", err)
		}
	}
}

func (c *Consumer) decodeAndFilter(ctx context.Context, msg kafkago.Message) (storedRecord, bool) {
	var key domain.CloudEvent
	if err := c.codec.Deserialize(ctx, msg.Key, c.topic, true, &key); err != nil {
		c.logger.Error("deserialize key failed", "error", err)
		return storedRecord{}, false
	}

	if !c.matchesFilter(key) {
		return storedRecord{}, false
	}

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}

	return storedRecord{key: key, value: msg.Value, headers: headers}, true
}

func (c *Consumer) matchesFilter(key domain.CloudEvent) bool {
	if len(c.eventFilters) == 0 {
		return true
	}
	for _, f := range c.eventFilters {
		if f.EventType == key.Type && f.Version == key.PayloadVersion {
			return true
		}
	}
	return false
}

func (c *Consumer) run() {
	defer close(c.done)
	stored := make(map[string][]storedRecord)
	pending := make(map[string][]*pendingFetchState)

	for {
		select {
		case rec := <-c.records:
			if waiters, ok := pending[rec.key.CorrelationID]; ok && len(waiters) > 0 {
				w := waiters[0]
				pending[rec.key.CorrelationID] = waiters[1:]
				w.fulfill(rec)
				continue
			}
			stored[rec.key.CorrelationID] = append(stored[rec.key.CorrelationID], rec)

		case req := <-c.fetch:
			if recs, ok := stored[req.correlationID]; ok && len(recs) > 0 {
				rec := recs[0]
				stored[req.correlationID] = recs[1:]
				req.replyTo <- domain.Success(rec.key, rec.value, rec.headers)
				continue
			}
			w := &pendingFetchState{replyTo: req.replyTo}
			pending[req.correlationID] = append(pending[req.correlationID], w)

		case p := <-c.expire:
			list := pending[p.correlationID]
			for i, w := range list {
				if sameChan(w.replyTo, p.replyTo) {
					pending[p.correlationID] = append(list[:i], list[i+1:]...)
					w.expire()
					break
				}
			}

		case stopReq := <-c.stop:
			c.cancelPoll()
			for _, waiters := range pending {
				for _, w := range waiters {
					if w.replied {
						continue
					}
					w.replied = true
					select {
					case w.replyTo <- domain.NotAvailable(domain.ReasonCancelled):
					default:
					}
				}
			}
			if err := c.reader.Close(); err != nil {
				c.logger.Error("consumer close failed", "error", err)
			}
			close(stopReq.done)
			return
		}
	}
}

type pendingFetchState struct {
	replyTo  chan domain.ConsumedResult
	replied  bool
}

func (w *pendingFetchState) fulfill(rec storedRecord) {
	if w.replied {
		return
	}
	w.replied = true
	select {
	case w.replyTo <- domain.Success(rec.key, rec.value, rec.headers):
	default:
	}
}

func (w *pendingFetchState) expire() {
	if w.replied {
		return
	}
	w.replied = true
	select {
	case w.replyTo <- domain.NotAvailable(domain.ReasonTimedOut):
	default:
	}
}

func sameChan(a, b chan domain.ConsumedResult) bool {
	return a == b
}
