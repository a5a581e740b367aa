package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bobmcallan/bagboard/internal/app"
	"github.com/bobmcallan/bagboard/internal/common"
	"github.com/bobmcallan/bagboard/internal/server"
)

// writeTestConfig writes a config with the memory backend and every
// outbound source disabled.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	config := `
[storage]
backend = "memory"

[clients.dexscreener]
enabled = false
[clients.coingecko]
enabled = false
[clients.jupiter]
enabled = false
[clients.pumpfun]
enabled = false
[clients.scraper]
enabled = false

[logging]
level = "disabled"
`
	path := filepath.Join(t.TempDir(), "bagboard.toml")
	if err := os.WriteFile(path, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCmd(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if strings.TrimSpace(out) != common.GetFullVersion() {
		t.Errorf("expected %q, got %q", common.GetFullVersion(), out)
	}
}

func TestResolveCommand(t *testing.T) {
	out, err := runCmd(t, "resolve", "https://pump.fun/coin/DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
	if got["address"] != "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263" || got["chain"] != "solana" {
		t.Errorf("unexpected result %v", got)
	}
}

func TestResolveCommand_NoAddress(t *testing.T) {
	if _, err := runCmd(t, "resolve", "gm frens"); err == nil {
		t.Fatal("expected error for input without an address")
	}
}

func TestMetadataCommand_NoSources(t *testing.T) {
	out, err := runCmd(t, "--config", writeTestConfig(t), "metadata", "0x55d398326f99059ff775485246999027b3197955")
	if err != nil {
		t.Fatalf("metadata failed: %v", err)
	}
	var tokens []map[string]interface{}
	if err := json.Unmarshal([]byte(out), &tokens); err != nil {
		t.Fatalf("invalid JSON output %q: %v", out, err)
	}
	if len(tokens) != 1 || tokens[0]["chain"] != "bsc" {
		t.Errorf("unexpected tokens %v", tokens)
	}
}

// testServer creates an httptest.Server with the full bagboard handler.
func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	a, err := app.NewApp(t.Context(), writeTestConfig(t))
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	ts := httptest.NewServer(server.NewServer(a).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthEndpoint(t *testing.T) {
	ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("Expected status=ok, got %v", body["status"])
	}
}

func TestSignupAndListOverHTTP(t *testing.T) {
	ts := testServer(t)

	body := strings.NewReader(`{"action":"signup","username":"carol","password":"hunter22"}`)
	resp, err := http.Post(ts.URL+"/api/auth", "application/json", body)
	if err != nil {
		t.Fatalf("POST /api/auth failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}

	var session *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "sessionToken" {
			session = c
		}
	}
	if session == nil {
		t.Fatal("Expected session cookie")
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/portfolios", nil)
	req.AddCookie(session)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /api/portfolios failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
}
