package jupiter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bobmcallan/bagboard/internal/models"
)

const tokenList = `[
	{"address":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v","chainId":101,"decimals":6,"name":"USD Coin","symbol":"USDC","logoURI":"https://img/usdc.png"},
	{"address":"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263","chainId":101,"decimals":5,"name":"Bonk","symbol":"Bonk","logoURI":"https://img/bonk.png"}
]`

func TestFetch_LoadsListOnce(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(tokenList))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	ctx := context.Background()

	meta, err := client.Fetch(ctx, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", models.ChainSolana)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if meta.Symbol != "USDC" || meta.LogoURL != "https://img/usdc.png" {
		t.Errorf("unexpected metadata %+v", meta)
	}

	if _, err := client.Fetch(ctx, "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263", models.ChainSolana); err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("expected list downloaded once, got %d", n)
	}

	if n, _ := client.Len(ctx); n != 2 {
		t.Errorf("Len = %d, want 2", n)
	}
}

func TestFetch_UnknownMint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(tokenList))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Fetch(context.Background(), "unknown", models.ChainSolana)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFetch_FailedLoadIsAttemptedAgain(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(tokenList))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	if _, err := client.Fetch(context.Background(), "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", models.ChainSolana); err == nil {
		t.Fatal("expected first fetch to fail")
	}
	if _, err := client.Fetch(context.Background(), "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", models.ChainSolana); err != nil {
		t.Fatalf("expected second fetch to succeed, got %v", err)
	}
}
