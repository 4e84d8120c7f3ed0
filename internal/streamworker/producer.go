package streamworker

import (
	"context"
	"log/slog"
	"sync"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/codec"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/observability"
)

// Producer is C2: one instance per (testId, topic) in role producer.
// Processes its bounded inbox strictly FIFO on a single goroutine — request
// N+1 never starts before request N has replied — which gives per-stream
// ordering without a lock. Grounded on the teacher's pipeline.Run loop:
// one goroutine owns the Kafka client end to end.
type Producer struct {
	topic   string
	writer  *kafkago.Writer
	codec   *codec.Codec
	logger  *slog.Logger
	metrics *observability.Metrics

	inbox chan produceRequest
	stop  chan stopRequest
	done  chan struct{}

	// mu guards stopped, which ProduceEvent and Stop both check/set from
	// arbitrary caller goroutines. The inbox channel itself is never
	// closed — only the goroutine that sets stopped=true is allowed to
	// send the stop signal, so no send can ever race a close.
	mu      sync.Mutex
	stopped bool
}

// NewProducer builds a Producer for topic against the given bootstrap
// servers and security directive, with inboxSize pending requests before
// Overflow nacks apply.
func NewProducer(topic, bootstrapServers string, security domain.KafkaCredentials, protocol domain.SecurityProtocol, c *codec.Codec, logger *slog.Logger, metrics *observability.Metrics, inboxSize int) (*Producer, error) {
	tlsConfig, err := buildTLSConfig(protocol, security)
	if err != nil {
		return nil, err
	}
	mechanism, err := buildSASLMechanism(security)
	if err != nil {
		return nil, err
	}

	transport := &kafkago.Transport{
		TLS:  tlsConfig,
		SASL: mechanism,
	}

	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(splitBootstrap(bootstrapServers)...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		Transport:    transport,
	}

	p := &Producer{
		topic:   topic,
		writer:  writer,
		codec:   c,
		logger:  logger.With("component", "producer", "topic", topic),
		metrics: metrics,
		inbox:   make(chan produceRequest, inboxSize),
		stop:    make(chan stopRequest, 1),
		done:    make(chan struct{}),
	}
	go p.run()
	return p, nil
}

// ProduceEvent enqueues a produce request and returns the reply channel;
// a full inbox fails fast with Nack(Overflow) rather than blocking the
// caller, per spec §4.2's back-pressure rule. A request arriving after
// Stop has been called is nacked the same way rather than risking a send
// on an inbox the run loop has already stopped reading from.
func (p *Producer) ProduceEvent(ctx context.Context, key domain.CloudEvent, value interface{}) <-chan domain.ProduceResult {
	reply := make(chan domain.ProduceResult, 1)
	req := produceRequest{key: key, value: value, replyTo: reply, ctx: ctx}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		reply <- domain.Nack(domain.NackCancelled, domain.ErrCancelled)
		return reply
	}
	select {
	case p.inbox <- req:
		p.mu.Unlock()
	default:
		p.mu.Unlock()
		reply <- domain.Nack(domain.NackOverflow, domain.ErrOverflow)
	}
	return reply
}

// Stop drains the inbox and closes the Kafka writer. Any request still
// queued when Stop is called is replied to with Nack(Cancelled) rather
// than dropped. stopped is latched under mu before the stop signal is
// even sent, so no ProduceEvent call admitted after this point can reach
// the inbox once the run loop retires it.
func (p *Producer) Stop(ctx context.Context) error {
	p.mu.Lock()
	alreadyStopped := p.stopped
	p.stopped = true
	p.mu.Unlock()
	if alreadyStopped {
		<-p.done
		return nil
	}

	done := make(chan struct{})
	select {
	case p.stop <- stopRequest{done: done}:
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

func (p *Producer) run() {
	defer close(p.done)
	for {
		select {
		case req := <-p.inbox:
			req.replyTo <- p.handle(req)

		case stopReq := <-p.stop:
			p.drainAndClose(stopReq)
			return
		}
	}
}

func (p *Producer) handle(req produceRequest) domain.ProduceResult {
	keyBytes, err := p.codec.Serialize(req.ctx, req.key, p.topic, true)
	if err != nil {
		p.recordResult(domain.NackBrokerError)
		return domain.Nack(domain.NackBrokerError, err)
	}

	valueBytes, err := p.codec.Serialize(req.ctx, req.value, p.topic, false)
	if err != nil {
		p.recordResult(domain.NackBrokerError)
		return domain.Nack(domain.NackBrokerError, err)
	}

	err = p.writer.WriteMessages(req.ctx, kafkago.Message{
		Key:   keyBytes,
		Value: valueBytes,
		Headers: []kafkago.Header{
			{Key: "correlationid", Value: []byte(req.key.CorrelationID)},
		},
	})
	if err != nil {
		cause := domain.NackBrokerError
		if req.ctx.Err() != nil {
			cause = domain.NackCancelled
		}
		p.recordResult(cause)
		p.logger.Error("produce failed", "error", err, "correlation_id", req.key.CorrelationID)
		return domain.Nack(cause, err)
	}

	p.recordResult("")
	return domain.Ack()
}

func (p *Producer) recordResult(cause domain.NackCause) {
	if p.metrics == nil {
		return
	}
	outcome := "ack"
	if cause != "" {
		outcome = "nack"
	}
	p.metrics.ProduceResults.WithLabelValues(outcome, string(cause)).Inc()
}

// drainAndClose nacks every request already buffered in the inbox at stop
// time. It never closes p.inbox: ProduceEvent's stopped check (under mu,
// latched before this ever runs) guarantees nothing sends into it again,
// so there is nothing left to race.
func (p *Producer) drainAndClose(stopReq stopRequest) {
drain:
	for {
		select {
		case req := <-p.inbox:
			req.replyTo <- domain.Nack(domain.NackCancelled, domain.ErrCancelled)
		default:
			break drain
		}
	}
	if err := p.writer.Close(); err != nil {
		p.logger.Error("producer close failed", "error", err)
	}
	close(stopReq.done)
}
