package handlers_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"apotek/internal/http/handlers"
)

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})

	// signed out: pages redirect, API answers 401
	resp := ta.send(t, httptest.NewRequest("GET", "/admin/orders", nil))
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/admin/login" {
		t.Fatalf("anonymous admin page: expected redirect to /admin/login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	resp, _ = ta.api(t, session{}, "GET", "/admin/api/counters", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous admin api: expected 401, got %d", resp.StatusCode)
	}

	customer := ta.login(t, "/login", "budi@apotek.test")
	var denied *http.Response
	entries := captureLogs(t, func() {
		req := httptest.NewRequest("GET", "/admin", nil)
		customer.attach(req)
		denied = ta.send(t, req)
	})
	if denied.StatusCode != http.StatusForbidden {
		t.Fatalf("customer on admin page: expected 403, got %d", denied.StatusCode)
	}
	body, _ := io.ReadAll(denied.Body)
	if !strings.Contains(string(body), "Access denied") {
		t.Fatalf("denial page missing message: %s", body)
	}
	e, ok := findLog(entries, "access.denied.admin")
	if !ok {
		t.Fatalf("expected access.denied.admin log, got %+v", entries)
	}
	if e.Level != "warn" || e.UserID != "u-budi" {
		t.Fatalf("unexpected denial entry: %+v", e)
	}

	admin := ta.login(t, "/admin/login", "admin@apotek.test")
	resp, out := ta.api(t, admin, "GET", "/admin/api/counters", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin counters: expected 200, got %d", resp.StatusCode)
	}
	counters, _ := out["counters"].(map[string]any)
	// seed: vitamin D3 (8) and hand sanitizer (5) sit under the threshold of 10
	if counters["low_stock"] != float64(2) {
		t.Fatalf("unexpected counters: %v", out)
	}
}

func TestAdminLoginRejectsCustomer(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})
	s := ta.guest(t)

	var resp *http.Response
	entries := captureLogs(t, func() {
		resp, _ = ta.api(t, s, "POST", "/admin/login", map[string]any{"email": "budi@apotek.test", "password": seedPassword})
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("customer admin login: expected 403, got %d", resp.StatusCode)
	}
	if _, ok := findLog(entries, "auth.login.fail"); !ok {
		t.Fatalf("expected auth.login.fail log, got %+v", entries)
	}

	// the customer was signed straight back out
	sid := extractCookie(resp, "sid")
	me, _ := ta.api(t, session{sid: sid}, "GET", "/api/v1/me", nil)
	if me.StatusCode != http.StatusUnauthorized {
		t.Fatalf("customer kept a session after admin login: %d", me.StatusCode)
	}
}

func TestAdminModeratesOrders(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})
	customer := ta.login(t, "/login", "budi@apotek.test")
	orderID := placeOrder(t, ta, customer, "paracetamol-500", 2, "transfer")

	admin := ta.login(t, "/admin/login", "admin@apotek.test")

	resp, _ := ta.api(t, admin, "POST", "/admin/api/orders/"+orderID+"/status", map[string]any{"status": "delivered"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("pending -> delivered: expected 409, got %d", resp.StatusCode)
	}

	var out map[string]any
	entries := captureLogs(t, func() {
		resp, out = ta.api(t, admin, "POST", "/admin/api/orders/"+orderID+"/status", map[string]any{"status": "processing"})
	})
	if resp.StatusCode != http.StatusOK || out["status"] != "processing" {
		t.Fatalf("pending -> processing: got %d %v", resp.StatusCode, out)
	}
	if e, ok := findLog(entries, "admin.orders.update"); !ok || e.Level != "audit" {
		t.Fatalf("expected admin.orders.update audit entry, got %+v", entries)
	}

	resp, out = ta.api(t, admin, "GET", "/admin/api/orders?status=processing", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin order list: %d", resp.StatusCode)
	}
	if list, _ := out["orders"].([]any); len(list) != 1 {
		t.Fatalf("expected one processing order, got %v", out)
	}
}
