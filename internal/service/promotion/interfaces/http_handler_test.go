package interfaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"huerta/internal/pkg/bootstrap"
	"huerta/internal/pkg/storage"
	"huerta/internal/service/promotion/application"
	"huerta/internal/service/promotion/infrastructure"
	"huerta/internal/service/promotion/infrastructure/rule"
)

type noPrices struct{}

func (noPrices) UnitPrices(context.Context, []string) (map[string]decimal.Decimal, error) {
	return map[string]decimal.Decimal{}, nil
}

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	repo := infrastructure.NewMemoryRepository()
	engine, err := rule.NewCELRuleEngine()
	require.NoError(t, err)
	svc := application.NewPromotionService(repo, storage.NewMemoryTxManager(repo), engine, noPrices{}, noop.NewTracerProvider().Tracer("test"))
	require.NoError(t, svc.Seed(context.Background()))

	h := NewPromotionHandler(svc)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		r.Use(bootstrap.APIKeyAuth([]string{"admin-key"}))
		h.RegisterAdminRoutes(r)
	})
	return r
}

func post(r http.Handler, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestValidateDiscountCode(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		want       map[string]any
	}{
		{
			name:       "success",
			body:       `{"code":"TEST10","orderTotal":1600}`,
			wantStatus: http.StatusOK,
			want:       map[string]any{"success": true, "discountAmount": float64(160), "promotionName": "10% de descuento"},
		},
		{
			name:       "expired",
			body:       `{"code":"EXPIRED","orderTotal":1600}`,
			wantStatus: http.StatusOK,
			want:       map[string]any{"success": false, "reason": "promotion_expired"},
		},
		{
			name:       "minimum purchase carries the minimum",
			body:       `{"code":"MIN5000","orderTotal":1600}`,
			wantStatus: http.StatusOK,
			want:       map[string]any{"success": false, "reason": "minimum_purchase_not_met", "minPurchase": float64(5000)},
		},
		{
			name:       "unknown code",
			body:       `{"code":"NADA","orderTotal":1600}`,
			wantStatus: http.StatusOK,
			want:       map[string]any{"success": false, "reason": "code_not_found"},
		},
		{
			name:       "malformed json",
			body:       `{"code":`,
			wantStatus: http.StatusBadRequest,
			want:       map[string]any{"success": false},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(newTestRouter(t), "/rpc/validate_discount_code", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			for k, v := range tt.want {
				assert.Equal(t, v, body[k], k)
			}
			if body["success"] == false {
				assert.NotEmpty(t, body["error"])
			}
		})
	}
}

func TestAdminCodes(t *testing.T) {
	r := newTestRouter(t)

	rec := post(r, "/admin/discount-codes", `{"code":"nuevo","promotionId":"diez-por-ciento","maxUses":3}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(r, "/admin/discount-codes", `{"code":"nuevo","promotionId":"diez-por-ciento","maxUses":3}`, bootstrap.APIKeyHeader, "admin-key")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "NUEVO", created["code"])

	rec = post(r, "/admin/discount-codes", `{"code":"NUEVO","promotionId":"diez-por-ciento"}`, bootstrap.APIKeyHeader, "admin-key")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(r, "/admin/discount-codes", `{"code":"OTRO","promotionId":"no-existe"}`, bootstrap.APIKeyHeader, "admin-key")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/discount-codes", nil)
	req.Header.Set(bootstrap.APIKeyHeader, "admin-key")
	list := httptest.NewRecorder()
	r.ServeHTTP(list, req)
	require.Equal(t, http.StatusOK, list.Code)
	var codes []map[string]any
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &codes))
	assert.Len(t, codes, 6)
}
