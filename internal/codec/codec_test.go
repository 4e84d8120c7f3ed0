package codec

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthew-bram/enterprise-confluent-test-probe-sub001/internal/observability"
)

type orderPlaced struct {
	OrderID string `json:"orderId"`
	Amount  int    `json:"amount"`
}

// fakeRegistry serves a single JSON subject so Serialize/Deserialize can
// round-trip without a live Schema Registry.
func fakeRegistry(t *testing.T, schemaID int, schemaText string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/subjects/orders-orderPlaced/versions/latest", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id": schemaID, "version": 1, "schemaType": "JSON", "schema": schemaText,
		})
	})
	mux.HandleFunc(fmt.Sprintf("/schemas/ids/%d", schemaID), func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"schemaType": "JSON", "schema": schemaText,
		})
	})
	return httptest.NewServer(mux)
}

func TestCodec_SerializeDeserialize_JSONRoundTrip(t *testing.T) {
	srv := fakeRegistry(t, 101, `{"type":"object"}`)
	defer srv.Close()

	c := New(srv.URL, 3, observability.NewMetricsForTesting())
	ctx := context.Background()

	payload := orderPlaced{OrderID: "o-1", Amount: 42}
	framed, err := c.Serialize(ctx, payload, "orders", false)
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), framed[0])

	var out orderPlaced
	err = c.Deserialize(ctx, framed, "orders", false, &out)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestCodec_Deserialize_CachesAfterFirstFetch(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/schemas/ids/7", func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"schemaType": "JSON", "schema": `{}`})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, 3, observability.NewMetricsForTesting())
	ctx := context.Background()

	framed := encodeHeader(7, []byte(`{"orderId":"o-1","amount":5}`))

	var out orderPlaced
	require.NoError(t, c.Deserialize(ctx, framed, "orders", false, &out))
	require.NoError(t, c.Deserialize(ctx, framed, "orders", false, &out))

	assert.Equal(t, 1, calls)
}

func TestCodec_Deserialize_WireFormatErrorOnShortPayload(t *testing.T) {
	c := New("http://unused.invalid", 0, observability.NewMetricsForTesting())
	err := c.Deserialize(context.Background(), []byte{0x00}, "orders", false, &orderPlaced{})
	require.Error(t, err)
}
