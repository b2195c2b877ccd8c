package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"huerta/internal/pkg/httpclient"
)

func newClient(url string) *Client {
	return NewClient(httpclient.NewClient(noop.NewTracerProvider().Tracer("test"), httpclient.StaticResolver(url), "storefront-api", time.Second))
}

func TestCreateOrder_SendsNoPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rpc/create_order", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		items := body["items"].([]any)
		require.Len(t, items, 1)
		assert.Equal(t, map[string]any{"id": "tomate-cherry", "quantity": float64(2)}, items[0])
		assert.Equal(t, float64(1440), body["expectedTotal"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"orderId":"o-1","subtotal":1600,"discountAmount":160,"total":1440,"status":"nuevo","replayed":false}`))
	}))
	defer srv.Close()

	resp, err := newClient(srv.URL).CreateOrder(context.Background(), &CreateOrderRequest{
		Items:         []ItemRef{{ID: "tomate-cherry", Quantity: 2}},
		CustomerName:  "Ana",
		ExpectedTotal: decimal.NewNullDecimal(decimal.NewFromInt(1440)),
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "o-1", resp.OrderID)
	require.True(t, resp.Total.Valid)
	assert.True(t, resp.Total.Decimal.Equal(decimal.NewFromInt(1440)))
}

func TestCreateOrder_DecodesRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false,"error":"El precio cambió","reason":"price_changed","expectedTotal":500,"total":700}`))
	}))
	defer srv.Close()

	resp, err := newClient(srv.URL).CreateOrder(context.Background(), &CreateOrderRequest{CustomerName: "Ana"})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "price_changed", resp.Reason)
	assert.True(t, resp.ExpectedTotal.Decimal.Equal(decimal.NewFromInt(500)))
	assert.True(t, resp.Total.Decimal.Equal(decimal.NewFromInt(700)))
}

func TestValidateDiscountCode_ServerErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).ValidateDiscountCode(context.Background(), &RedeemRequest{Code: "TEST10"})
	assert.ErrorIs(t, err, httpclient.ErrTransport)
}

func TestProduct_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"error":"product not found"}`))
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Product(context.Background(), "mango")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProducts_CollapsesConcurrentReads(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"lechuga","name":"Lechuga","price":350,"effectivePrice":350}]`))
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	var wg sync.WaitGroup
	results := make([][]Product, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			products, err := c.Products(context.Background())
			assert.NoError(t, err)
			results[i] = products
		}(i)
	}
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, products := range results {
		require.Len(t, products, 1)
		assert.Equal(t, "lechuga", products[0].ID)
	}
}

func TestProducts_CancelledCallerDoesNotFailOthers(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"lechuga","name":"Lechuga","price":350,"effectivePrice":350}]`))
	}))
	defer srv.Close()

	c := newClient(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Products(ctx)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan []Product, 1)
	go func() {
		products, err := c.Products(context.Background())
		assert.NoError(t, err)
		second <- products
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	products := <-second
	require.Len(t, products, 1)
	assert.Equal(t, "lechuga", products[0].ID)
	assert.Equal(t, int32(1), calls.Load())
}
