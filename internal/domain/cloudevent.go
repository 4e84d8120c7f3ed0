package domain

import "time"

// CloudEvent is the message envelope used as the key of every Kafka record
// the core produces or expects. correlationid is the lookup handle for
// fetch-by-correlation and must be preserved bit-identical across any
// mirroring.
type CloudEvent struct {
	ID                     string    `json:"id"`
	Source                 string    `json:"source"`
	SpecVersion            string    `json:"specversion"`
	Type                   string    `json:"type"`
	Subject                string    `json:"subject,omitempty"`
	CorrelationID          string    `json:"correlationid"`
	PayloadVersion         string    `json:"payloadversion,omitempty"`
	DataContentType        string    `json:"datacontenttype,omitempty"`
	Time                   time.Time `json:"time,omitempty"`
	TimeEpochMicroSource   int64     `json:"time_epoch_micro_source,omitempty"`
}

// Validate checks the CloudEvent's required fields: id, source, specversion,
// correlationid, and type.
func (e CloudEvent) Validate() error {
	switch {
	case e.ID == "":
		return errMissingField("id")
	case e.Source == "":
		return errMissingField("source")
	case e.SpecVersion == "":
		return errMissingField("specversion")
	case e.Type == "":
		return errMissingField("type")
	case e.CorrelationID == "":
		return errMissingField("correlationid")
	}
	return nil
}

func errMissingField(name string) error {
	return &MissingFieldError{Field: name}
}

// MissingFieldError reports a required CloudEvent field left unset.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "cloud event missing required field: " + e.Field
}

// NewCloudEvent builds a CloudEvent with specversion defaulted to "1.0".
func NewCloudEvent(id, source, eventType, correlationID string) CloudEvent {
	return CloudEvent{
		ID:            id,
		Source:        source,
		SpecVersion:   "1.0",
		Type:          eventType,
		CorrelationID: correlationID,
		Time:          time.Now().UTC(),
	}
}
