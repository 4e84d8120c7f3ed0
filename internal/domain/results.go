package domain

// ProduceOutcome tags which arm of the ProduceResult sum type a reply holds.
type ProduceOutcome int

const (
	ProduceAck ProduceOutcome = iota
	ProduceNack
)

// NackCause names why a producer Stream Worker nacked a request.
type NackCause string

const (
	NackOverflow   NackCause = "overflow"
	NackCancelled  NackCause = "cancelled"
	NackTimeout    NackCause = "timeout"
	NackBrokerError NackCause = "broker_error"
)

// ProduceResult is the sum type `Ack | Nack(cause)` returned for every
// produce request.
type ProduceResult struct {
	Outcome ProduceOutcome
	Cause   NackCause
	Err     error
}

// Ack builds a successful ProduceResult.
func Ack() ProduceResult { return ProduceResult{Outcome: ProduceAck} }

// Nack builds a failed ProduceResult with the given cause.
func Nack(cause NackCause, err error) ProduceResult {
	return ProduceResult{Outcome: ProduceNack, Cause: cause, Err: err}
}

// IsAck reports whether the result is the Ack arm.
func (r ProduceResult) IsAck() bool { return r.Outcome == ProduceAck }

// ConsumedOutcome tags which arm of the ConsumedResult sum type a reply holds.
type ConsumedOutcome int

const (
	ConsumedSuccess ConsumedOutcome = iota
	ConsumedNotAvailable
)

// NotAvailableReason names why a fetch-by-correlation found nothing.
type NotAvailableReason string

const (
	ReasonTimedOut   NotAvailableReason = "timed_out"
	ReasonCancelled  NotAvailableReason = "cancelled"
)

// ConsumedResult is the sum type `Success(key, value, headers) | NotAvailable(reason)`.
type ConsumedResult struct {
	Kind    ConsumedOutcome
	Key     CloudEvent
	Value   []byte // record value bytes as read from Kafka (Confluent-framed, not decoded)
	Headers map[string]string
	Reason  NotAvailableReason
}

// Success builds a successful ConsumedResult.
func Success(key CloudEvent, value []byte, headers map[string]string) ConsumedResult {
	return ConsumedResult{Kind: ConsumedSuccess, Key: key, Value: value, Headers: headers}
}

// NotAvailable builds a failed ConsumedResult with the given reason.
func NotAvailable(reason NotAvailableReason) ConsumedResult {
	return ConsumedResult{Kind: ConsumedNotAvailable, Reason: reason}
}

// IsSuccess reports whether the result is the Success arm.
func (r ConsumedResult) IsSuccess() bool { return r.Kind == ConsumedSuccess }
