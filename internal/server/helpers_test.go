package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/bagboard/internal/models"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{models.Invalid("name", "required"), http.StatusBadRequest},
		{fmt.Errorf("bad: %w", models.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("no: %w", models.ErrUnauthorized), http.StatusUnauthorized},
		{fmt.Errorf("no: %w", models.ErrForbidden), http.StatusForbidden},
		{fmt.Errorf("portfolio x: %w", models.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("dup: %w", models.ErrConflict), http.StatusConflict},
		{fmt.Errorf("cdn: %w", models.ErrUpstream), http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _ := statusFor(tt.err); got != tt.status {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}

func TestWriteServiceError_StripsSentinel(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	srv.writeServiceError(rec, req, fmt.Errorf("portfolio %q: %w", "main", models.ErrNotFound), "fallback")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != `portfolio "main"` {
		t.Errorf("expected sentinel-free message, got %q", msg)
	}
}

func TestWriteServiceError_HidesInternalErrors(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	srv.writeServiceError(rec, req, errors.New("connection refused to ws://db"), "Failed to load user")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "Failed to load user" {
		t.Errorf("expected fallback message, got %q", msg)
	}
}

func TestWriteServiceError_UpstreamIsBadGateway(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	srv.writeServiceError(rec, req, fmt.Errorf("upstream returned 503: %w", models.ErrUpstream), "fallback")

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if msg := decodeError(t, rec); msg != "upstream returned 503" {
		t.Errorf("expected upstream message, got %q", msg)
	}
}

func TestWriteImage_Headers(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteImage(rec, "image/webp", []byte("RIFF"), time.Hour)

	if ct := rec.Header().Get("Content-Type"); ct != "image/webp" {
		t.Errorf("expected image/webp, got %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=3600" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
}

func TestDecodeJSON_Invalid(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	var v map[string]string
	if DecodeJSON(rec, req, &v) {
		t.Fatal("expected DecodeJSON to fail")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, ,b,,c ")
	if strings.Join(got, "|") != "a|b|c" {
		t.Errorf("unexpected split %v", got)
	}
	if splitList("") != nil {
		t.Error("expected nil for empty input")
	}
}
