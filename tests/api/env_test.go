package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/bobmcallan/bagboard/internal/app"
	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/server"
	tcommon "github.com/bobmcallan/bagboard/tests/common"
)

// Env is an API server running in-process against a SurrealDB container.
// Every Env gets its own database so tests do not see each other's users.
type Env struct {
	t      *testing.T
	app    *app.App
	server *httptest.Server
	ctx    context.Context
	cancel context.CancelFunc
}

// newEnv starts an isolated API environment. Outbound market-data sources
// are disabled; metadata comes back with address and chain only.
func newEnv(t *testing.T) *Env {
	t.Helper()

	if os.Getenv("BAGBOARD_TEST_DOCKER") != "true" {
		t.Skip("Docker tests disabled (set BAGBOARD_TEST_DOCKER=true to enable)")
		return nil
	}

	db := tcommon.StartSurrealDB(t)

	timeout := 60 * time.Second
	if envTimeout := os.Getenv("BAGBOARD_TEST_TIMEOUT"); envTimeout != "" {
		if d, err := time.ParseDuration(envTimeout); err == nil {
			timeout = d
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	cfg := common.NewDefaultConfig()
	cfg.Storage = db.StorageConfig(t)
	cfg.Clients.DexScreener.Enabled = false
	cfg.Clients.CoinGecko.Enabled = false
	cfg.Clients.Jupiter.Enabled = false
	cfg.Clients.PumpFun.Enabled = false
	cfg.Clients.Scraper.Enabled = false
	cfg.Clients.Bitquery.Enabled = false

	a, err := app.NewAppWithConfig(ctx, cfg, common.NewSilentLogger())
	if err != nil {
		cancel()
		t.Fatalf("Failed to initialize app: %v", err)
	}

	env := &Env{
		t:      t,
		app:    a,
		server: httptest.NewServer(server.NewServer(a).Handler()),
		ctx:    ctx,
		cancel: cancel,
	}
	t.Logf("API started at %s (database %s)", env.server.URL, cfg.Storage.Database)
	return env
}

// Cleanup stops the server and releases the app.
func (e *Env) Cleanup() {
	if e == nil {
		return
	}
	if e.server != nil {
		e.server.Close()
	}
	if e.app != nil {
		e.app.Close()
	}
	if e.cancel != nil {
		e.cancel()
	}
}

// Context returns the test context
func (e *Env) Context() context.Context {
	return e.ctx
}

// URL returns the base URL of the API.
func (e *Env) URL() string {
	return e.server.URL
}

// HTTPRequest sends a request with an optional JSON body and Bearer token.
func (e *Env) HTTPRequest(method, path string, body interface{}, token string) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequestWithContext(e.ctx, method, e.server.URL+path, reader)
	} else {
		req, err = http.NewRequestWithContext(e.ctx, method, e.server.URL+path, nil)
	}
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return http.DefaultClient.Do(req)
}

// HTTPGet sends an anonymous GET.
func (e *Env) HTTPGet(path string) (*http.Response, error) {
	return e.HTTPRequest(http.MethodGet, path, nil, "")
}

// HTTPPost sends an anonymous JSON POST.
func (e *Env) HTTPPost(path string, body interface{}) (*http.Response, error) {
	return e.HTTPRequest(http.MethodPost, path, body, "")
}
