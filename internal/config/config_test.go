package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadRequiresBaseURLAndSecret(t *testing.T) {
	t.Setenv("APP_BASE_URL", "")
	t.Setenv("APP_SECRET", "")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error when required settings are missing")
	}
	if !strings.Contains(err.Error(), "APP_BASE_URL") || !strings.Contains(err.Error(), "APP_SECRET") {
		t.Fatalf("error should name both keys: %v", err)
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("APP_BASE_URL", "http://localhost:8080/")
	t.Setenv("APP_SECRET", "s3cret")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("COD_LIMIT", "50000")
	t.Setenv("COUNTER_POLL_INTERVAL", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Fatalf("base url not trimmed: %q", cfg.BaseURL)
	}
	if cfg.DeliveryFee != 15000 || cfg.CODLimit != 50000 {
		t.Fatalf("fee/limit mismatch: %d %d", cfg.DeliveryFee, cfg.CODLimit)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.CounterPollInterval != 5*time.Second {
		t.Fatalf("interval: %v", cfg.CounterPollInterval)
	}
	if cfg.TrackInterval != time.Second {
		t.Fatalf("tracking interval should default to 1s: %v", cfg.TrackInterval)
	}
	if strings.Contains(cfg.String(), "s3cret") {
		t.Fatal("secret leaked in String()")
	}
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("APP_BASE_URL", "http://x")
	t.Setenv("APP_SECRET", "s")
	t.Setenv("DELIVERY_FEE", "lima ribu")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric DELIVERY_FEE")
	}
}

func TestLoadTrackInterval(t *testing.T) {
	t.Setenv("APP_BASE_URL", "http://x")
	t.Setenv("APP_SECRET", "s")
	t.Setenv("TRACK_INTERVAL", "250ms")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TrackInterval != 250*time.Millisecond {
		t.Fatalf("interval: %v", cfg.TrackInterval)
	}
	t.Setenv("TRACK_INTERVAL", "-1s")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "TRACK_INTERVAL") {
		t.Fatalf("expected TRACK_INTERVAL error, got %v", err)
	}
}
