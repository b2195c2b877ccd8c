package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestClient(url string, timeout time.Duration) *Client {
	return NewClient(noop.NewTracerProvider().Tracer("test"), StaticResolver(url), "storefront-api", timeout)
}

func TestPostJSON_DecodesBusinessErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in map[string]any
		_ = json.NewDecoder(r.Body).Decode(&in)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"success":false,"error":"sin stock","reason":"item_unavailable"}`))
	}))
	defer srv.Close()

	var out struct {
		Success bool   `json:"success"`
		Reason  string `json:"reason"`
	}
	status, err := newTestClient(srv.URL, time.Second).PostJSON(context.Background(), "/rpc/create_order", map[string]any{"a": 1}, &out)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.False(t, out.Success)
	assert.Equal(t, "item_unavailable", out.Reason)
}

func TestPostJSON_ClassifiesTransportFailures(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer broken.Close()
	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer garbage.Close()

	tests := []struct {
		name string
		url  string
		want error
	}{
		{name: "timeout", url: slow.URL, want: ErrTransport},
		{name: "server error", url: broken.URL, want: ErrTransport},
		{name: "connection refused", url: "http://127.0.0.1:1", want: ErrTransport},
		{name: "not json", url: garbage.URL, want: ErrBadResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out map[string]any
			_, err := newTestClient(tt.url, 50*time.Millisecond).PostJSON(context.Background(), "/rpc/x", struct{}{}, &out)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestStaticResolver(t *testing.T) {
	url, err := StaticResolver("http://localhost:8080/").ServiceURL("anything")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", url)
}
