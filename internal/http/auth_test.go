package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"apotek/internal/http/handlers"
	"apotek/internal/repos"
)

// Seeded accounts never store the password in clear text.
func TestPasswordsSeededAreHashed(t *testing.T) {
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	var hashes []string
	if err := db.Select(&hashes, `SELECT password_hash FROM users`); err != nil {
		t.Fatalf("select hashes: %v", err)
	}
	if len(hashes) == 0 {
		t.Fatal("no users seeded")
	}
	for _, h := range hashes {
		if strings.Contains(h, seedPassword) {
			t.Fatalf("hash contains plaintext password")
		}
		if !strings.HasPrefix(h, "$2") {
			t.Fatalf("unexpected hash format: %s", h)
		}
		if err := bcrypt.CompareHashAndPassword([]byte(h), []byte(seedPassword)); err != nil {
			t.Fatalf("seed hash does not validate known password: %v", err)
		}
	}
}

func TestLoginSuccessFailAndThrottle(t *testing.T) {
	ta := newTestApp(t, handlers.Options{LoginRateMax: 2})
	s := ta.guest(t)

	respBad := ta.postForm(t, s, "/login", url.Values{"email": {"budi@apotek.test"}, "password": {"wrongpass!"}})
	if respBad.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad creds, got %d", respBad.StatusCode)
	}

	respGood := ta.postForm(t, s, "/login", url.Values{"email": {"budi@apotek.test"}, "password": {seedPassword}})
	if respGood.StatusCode != http.StatusFound {
		t.Fatalf("expected redirect on success, got %d", respGood.StatusCode)
	}
	if extractCookie(respGood, "sid") == "" {
		t.Fatal("session cookie not set")
	}

	respThird := ta.postForm(t, s, "/login", url.Values{"email": {"budi@apotek.test"}, "password": {"wrongpass!"}})
	if respThird.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after throttle, got %d", respThird.StatusCode)
	}
}

func TestLoginWithoutCSRFIsRejected(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})
	form := url.Values{"email": {"budi@apotek.test"}, "password": {seedPassword}}
	req := httptest.NewRequest("POST", "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := ta.send(t, req)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf token, got %d", resp.StatusCode)
	}
}

func TestMeReportsSessionUser(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})

	resp, _ := ta.api(t, session{}, "GET", "/api/v1/me", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous /me: expected 401, got %d", resp.StatusCode)
	}

	s := ta.login(t, "/login", "budi@apotek.test")
	resp, body := ta.api(t, s, "GET", "/api/v1/me", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/me: expected 200, got %d", resp.StatusCode)
	}
	u, _ := body["user"].(map[string]any)
	if u["email"] != "budi@apotek.test" {
		t.Fatalf("unexpected user: %v", body)
	}
	if body["admin"] != false {
		t.Fatalf("customer reported as admin: %v", body)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})
	s := ta.login(t, "/login", "budi@apotek.test")

	resp, _ := ta.api(t, s, "POST", "/api/v1/auth/logout", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", resp.StatusCode)
	}
	resp, _ = ta.api(t, s, "GET", "/api/v1/orders", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("old session still valid: %d", resp.StatusCode)
	}
}

func TestSignupConfirmThenLogin(t *testing.T) {
	ta := newTestApp(t, handlers.Options{})
	s := ta.guest(t)

	resp, _ := ta.api(t, s, "POST", "/api/v1/auth/signup", map[string]any{
		"email": "rina@apotek.test", "password": "Rahasia#2024", "name": "Rina",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", resp.StatusCode)
	}

	resp, _ = ta.api(t, s, "POST", "/api/v1/auth/login", map[string]any{"email": "rina@apotek.test", "password": "Rahasia#2024"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unconfirmed login: expected 401, got %d", resp.StatusCode)
	}

	msg, ok := ta.mail.Last("rina@apotek.test")
	if !ok {
		t.Fatal("no confirmation mail sent")
	}
	i := strings.Index(msg.Body, "/confirm?token=")
	if i < 0 {
		t.Fatalf("confirmation link missing: %q", msg.Body)
	}
	link := strings.Fields(msg.Body[i:])[0]
	req := httptest.NewRequest("GET", link, nil)
	if confirm := ta.send(t, req); confirm.StatusCode != http.StatusOK {
		t.Fatalf("confirm: expected 200, got %d", confirm.StatusCode)
	}

	resp, _ = ta.api(t, s, "POST", "/api/v1/auth/login", map[string]any{"email": "rina@apotek.test", "password": "Rahasia#2024"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirmed login: expected 200, got %d", resp.StatusCode)
	}
}
