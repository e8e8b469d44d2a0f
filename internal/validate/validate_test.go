package validate

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPhone(t *testing.T) {
	ok := []string{"081234567890", "+6281234567890", "62 812-3456-789"}
	for _, s := range ok {
		if _, v := Phone(s); !v {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	bad := []string{"", "12345", "021555123", "08abc"}
	for _, s := range bad {
		if _, v := Phone(s); v {
			t.Fatalf("expected %q to be invalid", s)
		}
	}
}

func TestCategory(t *testing.T) {
	if c, ok := Category(""); !ok || c != "all" {
		t.Fatalf("empty category should mean all, got %q %v", c, ok)
	}
	if c, ok := Category("Semua"); !ok || c != "all" {
		t.Fatalf("semua should mean all, got %q %v", c, ok)
	}
	if c, ok := Category("Vitamin"); !ok || c != "vitamin" {
		t.Fatalf("vitamin: got %q %v", c, ok)
	}
	if _, ok := Category("narkotika"); ok {
		t.Fatal("unknown category accepted")
	}
}

func TestQKeepsWildcards(t *testing.T) {
	if got, ok := Q("  50% off\x00 "); !ok || got != "50% off" {
		t.Fatalf("got %q %v", got, ok)
	}
}

func TestQCountsCharactersNotBytes(t *testing.T) {
	// 100 three-byte runes fit; the term must come back whole.
	wide := strings.Repeat("药", MaxQ)
	got, ok := Q(wide)
	if !ok || got != wide || !utf8.ValidString(got) {
		t.Fatalf("multibyte term altered: ok=%v len=%d", ok, len(got))
	}
	if _, ok := Q(wide + "x"); ok {
		t.Fatal("term over the limit accepted")
	}
	if _, ok := Q(strings.Repeat("a", MaxQ+1)); ok {
		t.Fatal("ascii term over the limit accepted")
	}
}

func TestQtyClamp(t *testing.T) {
	if Qty("abc") != 1 || Qty("0") != 1 || Qty("500") != 99 || Qty("3") != 3 {
		t.Fatal("qty clamp mismatch")
	}
}

func TestPassword(t *testing.T) {
	if !Password("Passw0rd!") {
		t.Fatal("strong password rejected")
	}
	if Password("password") {
		t.Fatal("weak password accepted")
	}
}
