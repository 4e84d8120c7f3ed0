package codec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/domain"
)

// registryClient is the Schema Registry HTTP client, grounded on
// orbit's services/kafka schema.Client: a thin REST wrapper with one
// *http.Client, subject/version/id endpoints, and typed not-found
// handling. Wrapped with a gobreaker circuit breaker and bounded
// exponential backoff retries (base 500ms, cap ~8s) per spec §7.
type registryClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
}

func newRegistryClient(baseURL string, maxRetries int) *registryClient {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "schema-registry",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &registryClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    breaker,
		maxRetries: maxRetries,
	}
}

// fetchLatest fetches the latest registered schema for subject.
func (c *registryClient) fetchLatest(ctx context.Context, subject string) (domain.RegisteredSchema, error) {
	reqURL := fmt.Sprintf("%s/subjects/%s/versions/latest", c.baseURL, url.PathEscape(subject))
	var out schemaResponse
	if err := c.doWithRetry(ctx, http.MethodGet, reqURL, nil, &out); err != nil {
		return domain.RegisteredSchema{}, err
	}
	return out.toDomain(subject), nil
}

// fetchByID fetches a schema by its registry-assigned id. The registry's
// "schemas/ids/{id}" endpoint does not return a subject, so the returned
// schema carries whatever subject the caller passes in.
func (c *registryClient) fetchByID(ctx context.Context, id int, subject string) (domain.RegisteredSchema, error) {
	reqURL := fmt.Sprintf("%s/schemas/ids/%d", c.baseURL, id)
	var out schemaByIDResponse
	if err := c.doWithRetry(ctx, http.MethodGet, reqURL, nil, &out); err != nil {
		return domain.RegisteredSchema{}, err
	}
	return domain.RegisteredSchema{
		Subject:    subject,
		SchemaID:   id,
		Format:     parseSchemaType(out.SchemaType),
		SchemaText: out.Schema,
	}, nil
}

// register registers schemaText under subject (development/auto-register
// mode only) and returns the assigned id.
func (c *registryClient) register(ctx context.Context, subject string, format domain.SchemaFormat, schemaText string) (int, error) {
	body, err := json.Marshal(map[string]string{
		"schema":     schemaText,
		"schemaType": schemaTypeString(format),
	})
	if err != nil {
		return 0, fmt.Errorf("marshal register request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/subjects/%s/versions", c.baseURL, url.PathEscape(subject))
	var out registerResponse
	if err := c.doWithRetry(ctx, http.MethodPost, reqURL, body, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

type schemaResponse struct {
	Version    int    `json:"version"`
	ID         int    `json:"id"`
	SchemaType string `json:"schemaType"`
	Schema     string `json:"schema"`
}

func (r schemaResponse) toDomain(subject string) domain.RegisteredSchema {
	return domain.RegisteredSchema{
		Subject:    subject,
		SchemaID:   r.ID,
		Format:     parseSchemaType(r.SchemaType),
		SchemaText: r.Schema,
	}
}

type schemaByIDResponse struct {
	SchemaType string `json:"schemaType"`
	Schema     string `json:"schema"`
}

type registerResponse struct {
	ID int `json:"id"`
}

func parseSchemaType(raw string) domain.SchemaFormat {
	switch raw {
	case "AVRO":
		return domain.FormatAvro
	case "PROTOBUF":
		return domain.FormatProtobuf
	default:
		return domain.FormatJSON
	}
}

func schemaTypeString(format domain.SchemaFormat) string {
	switch format {
	case domain.FormatAvro:
		return "AVRO"
	case domain.FormatProtobuf:
		return "PROTOBUF"
	default:
		return "JSON"
	}
}

// doWithRetry executes one registry call through the circuit breaker,
// retrying transient failures with bounded exponential backoff. A 404 is
// never retried — it means the subject/id genuinely doesn't exist.
func (c *registryClient) doWithRetry(ctx context.Context, method, reqURL string, body []byte, out interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffDelay(attempt)):
			}
		}

		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, c.doOnce(ctx, method, reqURL, body, out)
		})
		if err == nil {
			return nil
		}
		if errIsNotFound(err) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("schema registry request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func backoffDelay(attempt int) time.Duration {
	base := 500 * time.Millisecond
	capDelay := 8 * time.Second
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
	if delay > capDelay {
		delay = capDelay
	}
	return delay
}

type notFoundError struct{ subject string }

func (e *notFoundError) Error() string { return fmt.Sprintf("schema not found: %s", e.subject) }

func errIsNotFound(err error) bool {
	_, ok := err.(*notFoundError)
	return ok
}

func (c *registryClient) doOnce(ctx context.Context, method, reqURL string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/vnd.schemaregistry.v1+json")
	req.Header.Set("Accept", "application/vnd.schemaregistry.v1+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("schema registry unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &notFoundError{subject: reqURL}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("schema registry returned %d: %s", resp.StatusCode, string(payload))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode schema registry response: %w", err)
	}
	return nil
}
