package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	DBDSN    string
	MediaDir string
	LogFile  string

	BaseURL string
	Secret  string

	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string

	DeliveryFee         int64
	CODLimit            int64
	LowStockThreshold   int
	CounterPollInterval time.Duration
	TrackInterval       time.Duration
	LoginRateMax        int
}

// Load reads .env (if present) and the process environment. The base URL
// and secret have no defaults; running without them is a startup error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:                getenv("PORT", "8080"),
		DBDSN:               getenv("DB_DSN", "apotek.db"),
		MediaDir:            getenv("MEDIA_DIR", "./web/media"),
		LogFile:             getenv("LOG_FILE", ""),
		BaseURL:             strings.TrimRight(getenv("APP_BASE_URL", ""), "/"),
		Secret:              getenv("APP_SECRET", ""),
		RedisAddr:           getenv("REDIS_ADDR", ""),
		KafkaBrokers:        splitCSV(getenv("KAFKA_BROKERS", "")),
		KafkaTopic:          getenv("KAFKA_TOPIC", "apotek.lifecycle"),
		DeliveryFee:         15000,
		CODLimit:            100000,
		LowStockThreshold:   10,
		CounterPollInterval: 10 * time.Second,
		TrackInterval:       time.Second,
		LoginRateMax:        5,
	}

	var errs []error
	if cfg.BaseURL == "" {
		errs = append(errs, errors.New("APP_BASE_URL is not set"))
	}
	if cfg.Secret == "" {
		errs = append(errs, errors.New("APP_SECRET is not set"))
	}
	var err error
	if cfg.DeliveryFee, err = getenvInt64("DELIVERY_FEE", cfg.DeliveryFee); err != nil {
		errs = append(errs, err)
	}
	if cfg.CODLimit, err = getenvInt64("COD_LIMIT", cfg.CODLimit); err != nil {
		errs = append(errs, err)
	}
	var n int64
	if n, err = getenvInt64("LOW_STOCK_THRESHOLD", int64(cfg.LowStockThreshold)); err != nil {
		errs = append(errs, err)
	}
	cfg.LowStockThreshold = int(n)
	if n, err = getenvInt64("LOGIN_RATE_MAX", int64(cfg.LoginRateMax)); err != nil {
		errs = append(errs, err)
	}
	cfg.LoginRateMax = int(n)
	if cfg.CounterPollInterval, err = getenvDuration("COUNTER_POLL_INTERVAL", cfg.CounterPollInterval); err != nil {
		errs = append(errs, err)
	}
	if cfg.TrackInterval, err = getenvDuration("TRACK_INTERVAL", cfg.TrackInterval); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	log.Printf("[config] %s", cfg)
	return cfg, nil
}

// String masks the secret.
func (c Config) String() string {
	return fmt.Sprintf("PORT=%s DB_DSN=%s MEDIA_DIR=%s LOG_FILE=%s APP_BASE_URL=%s APP_SECRET=*** REDIS_ADDR=%s KAFKA_BROKERS=%s",
		c.Port, c.DBDSN, c.MediaDir, c.LogFile, c.BaseURL, c.RedisAddr, strings.Join(c.KafkaBrokers, ","))
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt64(k string, def int64) (int64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid integer for %s: %q", k, v)
	}
	return n, nil
}

func getenvDuration(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid duration for %s: %q", k, v)
	}
	return d, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
