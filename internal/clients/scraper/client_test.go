package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bobmcallan/bagboard/internal/models"
)

func TestExtractImage(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "og image",
			html: `<html><head><meta property="og:image" content="https://img/a.png"></head></html>`,
			want: "https://img/a.png",
		},
		{
			name: "og preferred over twitter",
			html: `<head><meta name="twitter:image" content="https://img/t.png"/><meta property="og:image" content="https://img/o.png"/></head>`,
			want: "https://img/o.png",
		},
		{
			name: "twitter fallback",
			html: `<head><meta name="twitter:image" content="https://img/t.png"/></head>`,
			want: "https://img/t.png",
		},
		{
			name: "body ignored",
			html: `<head><title>x</title></head><body><meta property="og:image" content="https://img/late.png"></body>`,
			want: "",
		},
		{
			name: "no image",
			html: `<html><head><meta charset="utf-8"></head></html>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractImage(strings.NewReader(tt.html)); got != tt.want {
				t.Errorf("ExtractImage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetch_ResolvesRelativeImage(t *testing.T) {
	var capturedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><meta property="og:image" content="/img/token.png"></head></html>`))
	}))
	defer srv.Close()

	meta, err := NewClient(WithBaseURL(srv.URL)).Fetch(context.Background(), "0xabc", models.ChainBSC)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if capturedPath != "/bsc/0xabc" {
		t.Errorf("unexpected path %s", capturedPath)
	}
	if meta.LogoURL != srv.URL+"/img/token.png" {
		t.Errorf("logo = %q", meta.LogoURL)
	}
}

func TestFetch_NoImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head></head></html>`))
	}))
	defer srv.Close()

	_, err := NewClient(WithBaseURL(srv.URL)).Fetch(context.Background(), "mint", models.ChainSolana)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
