package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bobmcallan/bagboard/internal/app"
	"github.com/bobmcallan/bagboard/internal/cache"
	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/interfaces"
	"github.com/bobmcallan/bagboard/internal/models"
	"github.com/bobmcallan/bagboard/internal/services/auth"
	"github.com/bobmcallan/bagboard/internal/services/imageproxy"
	"github.com/bobmcallan/bagboard/internal/services/leaderboard"
	"github.com/bobmcallan/bagboard/internal/services/metadata"
	"github.com/bobmcallan/bagboard/internal/services/portfolio"
	"github.com/bobmcallan/bagboard/internal/services/sharecard"
	"github.com/bobmcallan/bagboard/internal/storage/memory"
)

const (
	bonkMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	bscToken = "0x55d398326f99059ff775485246999027b3197955"
)

// stubSource answers every address with fixed market data.
type stubSource struct{}

func (stubSource) Name() string         { return "stub" }
func (stubSource) Supports(string) bool { return true }
func (stubSource) Fields() models.Field { return models.FieldIdentity | models.FieldMarket }
func (stubSource) Fetch(_ context.Context, address, chain string) (*models.TokenMetadata, error) {
	return &models.TokenMetadata{
		Address:   address,
		Chain:     chain,
		Symbol:    "STUB",
		Name:      "Stub Token",
		LogoURL:   "https://example.com/stub.png",
		PriceUSD:  models.Float(1.5),
		Change24h: models.Float(12.5),
		MarketCap: models.Float(1_000_000),
	}, nil
}

type stubFourMeme struct{}

func (stubFourMeme) MarketData(_ context.Context, address string) (*models.MarketSnapshot, error) {
	return &models.MarketSnapshot{Address: address, Symbol: "FOUR", PriceUSD: models.Float(0.01)}, nil
}

// newTestServer builds a server over in-memory storage with a stub
// metadata source and no outbound clients.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := common.NewSilentLogger()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Backend = "memory"

	mgr := memory.NewManager(logger)
	t.Cleanup(func() { mgr.Close() })

	sources := []interfaces.MetadataSource{stubSource{}}
	metaService := metadata.NewService(sources, cache.NewMemoryCache(time.Minute, 0), 2, logger)

	a := &app.App{
		Config:             cfg,
		Logger:             logger,
		Storage:            mgr,
		Sources:            sources,
		AuthService:        auth.NewService(mgr, nil, cfg, logger),
		MetadataService:    metaService,
		PortfolioService:   portfolio.NewService(mgr, metaService, &cfg.Portfolio, logger),
		LeaderboardService: leaderboard.NewService(mgr.UserStore(), metaService, logger),
		ImageProxy:         imageproxy.NewService(&cfg.ImageProxy, nil, logger),
		ShareCard:          sharecard.NewRenderer(),
		StartupTime:        time.Now(),
	}
	return NewServer(a)
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return bytes.NewBuffer(data)
}

// do sends a request through the full router. token, when set, is sent as
// a Bearer header.
func do(t *testing.T, srv *Server, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, jsonBody(t, body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// decodeData returns the data member of a success envelope.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp struct {
		Status string                 `json:"status"`
		Data   map[string]interface{} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected status 'ok', got %q", resp.Status)
	}
	return resp.Data
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp.Error
}

// signup creates an account and returns its session token.
func signup(t *testing.T, srv *Server, username string) string {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/auth", map[string]string{
		"action":   "signup",
		"username": username,
		"password": "hunter22",
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("signup %s: expected 200, got %d: %s", username, rec.Code, rec.Body.String())
	}
	data := decodeData(t, rec)
	token, _ := data["token"].(string)
	if token == "" {
		t.Fatalf("signup %s: no token in response", username)
	}
	return token
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/api/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeData(t, rec)
	if _, ok := data["uptime"]; !ok {
		t.Errorf("expected uptime in health response, got %v", data)
	}
}

func TestVersion(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/api/version", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeData(t, rec)
	if data["version"] != common.GetVersion() {
		t.Errorf("expected version %q, got %v", common.GetVersion(), data["version"])
	}
}

func TestUnknownRoute_JSON404(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodGet, "/api/nope", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON content type, got %q", ct)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	rec := do(t, srv, http.MethodDelete, "/api/health", nil, "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
