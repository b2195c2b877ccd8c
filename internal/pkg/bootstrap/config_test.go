package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FileAndEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  name: storefront-api
  port: 9090
  admin_api_keys: ["file-key"]
orders:
  price_tolerance_percent: 2.5
  idempotency_ttl: 1h
`), 0o600))

	t.Setenv("HUERTA_ADMIN_API_KEYS", "k1, k2")
	t.Setenv("HUERTA_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, []string{"k1", "k2"}, cfg.App.AdminAPIKeys)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 2.5, cfg.Orders.PriceTolerancePercent)
	assert.Equal(t, "1h0m0s", cfg.Orders.IdempotencyTTL.String())
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Same(t, cfg, GetCurrentConfig())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.App.Port = 0 }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "sqlite" }, wantErr: true},
		{name: "mysql without dsn", mutate: func(c *Config) { c.Storage.Driver = StorageMySQL }, wantErr: true},
		{
			name: "mysql with dsn",
			mutate: func(c *Config) {
				c.Storage.Driver = StorageMySQL
				c.Storage.MySQLDSN = "huerta:secret@tcp(localhost:3306)/huerta?parseTime=true"
			},
		},
		{name: "negative tolerance", mutate: func(c *Config) { c.Orders.PriceTolerancePercent = -1 }, wantErr: true},
		{
			name: "kafka enabled without brokers",
			mutate: func(c *Config) {
				c.Infra.Kafka.Enabled = true
				c.Infra.Kafka.Brokers = nil
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAPIKeyAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := APIKeyAuth([]string{"apitest", "testkey123"})(ok)

	tests := []struct {
		name           string
		apiKey         string
		expectedStatus int
	}{
		{name: "valid key", apiKey: "apitest", expectedStatus: http.StatusOK},
		{name: "second valid key", apiKey: "testkey123", expectedStatus: http.StatusOK},
		{name: "missing key", apiKey: "", expectedStatus: http.StatusUnauthorized},
		{name: "unknown key", apiKey: "wrongkey", expectedStatus: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
			if tt.apiKey != "" {
				req.Header.Set(APIKeyHeader, tt.apiKey)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tt.expectedStatus, rr.Code)
		})
	}
}

func TestNewRouter_Healthz(t *testing.T) {
	r := NewRouter(DefaultConfig())
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
