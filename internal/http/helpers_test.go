package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"

	"apotek/internal/cart"
	"apotek/internal/config"
	"apotek/internal/events"
	"apotek/internal/http/handlers"
	"apotek/internal/mail"
	"apotek/internal/poller"
	"apotek/internal/repos"
	"apotek/internal/storage"
	"apotek/internal/tokens"
	"apotek/internal/verify"
)

const seedPassword = "Passw0rd!"

type testApp struct {
	app    *fiber.App
	db     *sqlx.DB
	events *events.Recorder
	mail   *mail.Recorder
}

// newTestApp mounts the real routes against an in-memory database.
// opts may override the login throttle or the body limit.
func newTestApp(t *testing.T, opts handlers.Options) *testApp {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	media := t.TempDir()
	st, err := storage.NewLocal(media)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	signer, err := tokens.NewSigner("test-secret")
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	pm := poller.New(time.Hour, time.Hour)
	t.Cleanup(pm.Stop)

	ta := &testApp{db: db, events: &events.Recorder{}, mail: &mail.Recorder{}}
	cfg := config.Config{
		BaseURL:           "http://apotek.test",
		MediaDir:          media,
		DeliveryFee:       15000,
		CODLimit:          100000,
		LowStockThreshold: 10,
	}
	deps := handlers.NewDeps(db, cfg, handlers.Infra{
		Carts:   cart.NewMemoryStore(),
		Events:  ta.events,
		Mail:    ta.mail,
		Tokens:  signer,
		Storage: st,
		Poller:  pm,
		Verify:  verify.NewDemoProvider(time.Minute),
	})
	opts.TemplatesDir = "../../web/templates"
	opts.MediaDir = media
	if opts.LoginRateMax == 0 {
		opts.LoginRateMax = 50
	}
	ta.app = handlers.New(deps, opts)
	return ta
}

// session carries the cookies a browser would send back.
type session struct {
	csrf string
	sid  string
}

func extractCookie(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (ta *testApp) send(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := ta.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	return resp
}

// guest fetches the login page to obtain a csrf cookie.
func (ta *testApp) guest(t *testing.T) session {
	t.Helper()
	resp := ta.send(t, httptest.NewRequest("GET", "/login", nil))
	tok := extractCookie(resp, "csrf_")
	if tok == "" {
		t.Fatal("csrf token missing")
	}
	return session{csrf: tok}
}

func (ta *testApp) postForm(t *testing.T, s session, path string, form url.Values) *http.Response {
	t.Helper()
	form.Set("csrf", s.csrf)
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.attach(req)
	return ta.send(t, req)
}

// login signs in through the HTML form and returns the session cookies.
func (ta *testApp) login(t *testing.T, path, email string) session {
	t.Helper()
	s := ta.guest(t)
	resp := ta.postForm(t, s, path, url.Values{"email": {email}, "password": {seedPassword}})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("login %s: expected redirect, got %d", email, resp.StatusCode)
	}
	s.sid = extractCookie(resp, "sid")
	if s.sid == "" {
		t.Fatalf("login %s: no session cookie", email)
	}
	return s
}

func (s session) attach(req *http.Request) {
	if s.csrf != "" {
		req.AddCookie(&http.Cookie{Name: "csrf_", Value: s.csrf})
		req.Header.Set("X-Csrf-Token", s.csrf)
	}
	if s.sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: s.sid})
	}
}

// api sends a JSON request and decodes a JSON object response (if any).
func (ta *testApp) api(t *testing.T, s session, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	s.attach(req)
	resp := ta.send(t, req)
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	_ = json.Unmarshal(raw, &out)
	return resp, out
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	b  *bytes.Buffer
	mu *sync.Mutex
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

// captureLogs redirects the standard logger while fn runs and returns the
// JSON entries written.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedBuf{b: &buf, mu: &mu})
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var e logEntry
		if err := json.Unmarshal([]byte(line), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func findLog(entries []logEntry, action string) (logEntry, bool) {
	for _, e := range entries {
		if e.Action == action {
			return e, true
		}
	}
	return logEntry{}, false
}

var budiAddress = map[string]any{
	"label":          "Rumah",
	"recipient_name": "Budi",
	"phone":          "081234567890",
	"address_line":   "Jl. Melati No. 5",
	"city":           "Bandung",
	"province":       "Jawa Barat",
	"postal_code":    "40115",
}

func withPayment(addr map[string]any, method string) map[string]any {
	out := map[string]any{"payment_method": method}
	for k, v := range addr {
		out[k] = v
	}
	return out
}
