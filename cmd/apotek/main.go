package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"apotek/internal/cart"
	"apotek/internal/config"
	"apotek/internal/events"
	"apotek/internal/http/handlers"
	applog "apotek/internal/log"
	"apotek/internal/mail"
	"apotek/internal/poller"
	"apotek/internal/repos"
	"apotek/internal/storage"
	"apotek/internal/tokens"
	"apotek/internal/verify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[config] %v", err)
	}

	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	// Carts live in Redis when configured so they survive restarts.
	var carts cart.Store = cart.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Fatalf("[redis] %s: %v", cfg.RedisAddr, err)
		}
		defer rdb.Close()
		carts = cart.NewRedisStore(rdb, 7*24*time.Hour)
		log.Printf("[cart] redis %s", cfg.RedisAddr)
	}

	var pub events.Publisher = events.LogPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, 0)
		kp.Start()
		pub = kp
		log.Printf("[events] kafka topic %s", cfg.KafkaTopic)
	}
	defer func() {
		if err := pub.Close(); err != nil {
			applog.Bg("events.close", err, nil)
		}
	}()

	signer, err := tokens.NewSigner(cfg.Secret)
	if err != nil {
		log.Fatal(err)
	}
	st, err := storage.NewLocal(cfg.MediaDir)
	if err != nil {
		log.Fatal(err)
	}
	pm := poller.New(cfg.CounterPollInterval, 3*cfg.CounterPollInterval)
	defer pm.Stop()

	deps := handlers.NewDeps(db, cfg, handlers.Infra{
		Carts:   carts,
		Events:  pub,
		Mail:    mail.NewBreakerSender(mail.LogSender{}, 3, time.Minute),
		Tokens:  signer,
		Storage: st,
		Poller:  pm,
		Verify:  verify.NewDemoProvider(5 * time.Minute),
	})

	app := handlers.New(deps, handlers.Options{
		TemplatesDir:  "./web/templates",
		StaticDir:     "./web/static",
		MediaDir:      cfg.MediaDir,
		LoginRateMax:  cfg.LoginRateMax,
		GlobalRateMax: 120,
		ReloadViews:   true,
		AccessLog:     true,
	})
	log.Printf("[static] /static -> ./web/static")
	log.Printf("[static] /media  -> %s", cfg.MediaDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Printf("[server] shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			applog.Bg("server.shutdown", err, nil)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Printf("[server] %v", err)
	}
}
