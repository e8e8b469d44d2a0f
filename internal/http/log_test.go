package handlers_test

import (
	"net/http"
	"net/url"
	"testing"

	"apotek/internal/http/handlers"
)

func TestFailedLoginIsLoggedWithoutPassword(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})
	s := ta.guest(t)

	var resp *http.Response
	entries := captureLogs(t, func() {
		resp = ta.postForm(t, s, "/login", url.Values{"email": {"budi@apotek.test"}, "password": {"Salah#123"}})
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	e, ok := findLog(entries, "auth.login.fail")
	if !ok {
		t.Fatalf("expected auth.login.fail log, got %+v", entries)
	}
	if e.Level != "warn" || e.Fields["email"] != "budi@apotek.test" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	for _, v := range e.Fields {
		if v == "Salah#123" {
			t.Fatalf("password leaked into log: %+v", e)
		}
	}
}

func TestAdminStockChangeIsAudited(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})
	admin := ta.login(t, "/admin/login", "admin@apotek.test")

	var resp *http.Response
	entries := captureLogs(t, func() {
		resp, _ = ta.api(t, admin, "POST", "/admin/api/inventory", map[string]any{"product_id": "paracetamol-500", "qty": 50})
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stock update: expected 200, got %d", resp.StatusCode)
	}
	e, ok := findLog(entries, "admin.inventory.save")
	if !ok {
		t.Fatalf("expected admin.inventory.save log, got %+v", entries)
	}
	if e.Level != "audit" || e.UserID != "u-admin" || e.Fields["product"] != "paracetamol-500" || e.Fields["qty"] != float64(50) {
		t.Fatalf("unexpected audit entry: %+v", e)
	}

	_, out := ta.api(t, session{}, "GET", "/api/v1/availability?product_id=paracetamol-500", nil)
	if out["qty"] != float64(50) {
		t.Fatalf("stock not updated: %v", out)
	}

	resp, _ = ta.api(t, admin, "POST", "/admin/api/inventory", map[string]any{"product_id": "paracetamol-500", "qty": -3})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative stock: expected 400, got %d", resp.StatusCode)
	}
}

func TestCSRFFailureIsLogged(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})
	s := ta.login(t, "/login", "budi@apotek.test")
	s.csrf = ""

	var resp *http.Response
	entries := captureLogs(t, func() {
		resp, _ = ta.api(t, s, "POST", "/api/v1/addresses", budiAddress)
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf, got %d", resp.StatusCode)
	}
	if _, ok := findLog(entries, "csrf.fail"); !ok {
		t.Fatalf("expected csrf.fail log, got %+v", entries)
	}
}
