package handlers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"apotek/internal/http/handlers"
)

func TestAvailabilityIsRateLimited(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})

	var last *http.Response
	entries := captureLogs(t, func() {
		for i := 0; i < 16; i++ {
			last, _ = ta.api(t, session{}, "GET", "/api/v1/availability?product_id=paracetamol-500", nil)
			if i < 15 && last.StatusCode != http.StatusOK {
				t.Fatalf("request %d: expected 200, got %d", i+1, last.StatusCode)
			}
		}
	})
	if last.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("16th request: expected 429, got %d", last.StatusCode)
	}
	if _, ok := findLog(entries, "rate.availability.hit"); !ok {
		t.Fatalf("expected rate.availability.hit log, got %+v", entries)
	}
}

func TestOversizedBodyIsRefused(t *testing.T) {
	ta := newTestApp(t, handlers.Options{BodyLimit: 1 << 20})
	s := ta.guest(t)

	big := bytes.Repeat([]byte("a"), 2<<20)
	req := httptest.NewRequest("POST", "/api/v1/cart/items", bytes.NewReader(big))
	req.Header.Set("Content-Type", "application/json")
	s.attach(req)

	resp, err := ta.app.Test(req, -1)
	if err != nil {
		if !strings.Contains(strings.ToLower(err.Error()), "body") {
			t.Fatalf("unexpected error: %v", err)
		}
		return
	}
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.StatusCode)
	}
}
