package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cyimg.org/internal/auth"
	"cyimg.org/internal/config"
	"cyimg.org/internal/httpapi"
	"cyimg.org/internal/kv"
	"cyimg.org/internal/obs"
	"cyimg.org/internal/settings"
	memstore "cyimg.org/internal/store/mem"
	pgstore "cyimg.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var (
		users     auth.UserStore
		setStore  settings.Store
		db        *sql.DB
		kvBackend kv.Store
	)
	if cfg.DB.DSN != "" {
		store, err := pgstore.Open(cfg.DB.DSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()
		users, setStore, db = store, store, store.DB()

		pgKV := kv.NewPG(db)
		kvBackend = pgKV
		go purgeLoop(pgKV)
	} else {
		// Demo mode: everything in process memory.
		store := memstore.New()
		store.SeedSettings(memstore.DefaultSettings())
		users, setStore = store, store

		memKV := kv.NewMem()
		defer memKV.Close()
		kvBackend = memKV
		log.Printf("no DATABASE_URL set, running with in-memory stores")
	}

	settingsSvc, err := settings.NewService(setStore)
	if err != nil {
		log.Fatalf("settings service: %v", err)
	}
	cipher, err := auth.NewCipher(cfg.Auth.CipherKey)
	if err != nil {
		log.Fatalf("cipher: %v", err)
	}
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	authSvc, err := auth.NewService(users, tokens, cipher, auth.NewRevocationList(kvBackend),
		auth.WithSettings(settingsSvc),
		auth.WithDefaultTTL(cfg.Auth.TokenTTL))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	api := httpapi.New(authSvc, settingsSvc, httpapi.ReadyProbe{DB: db}, httpapi.Options{
		Version:      version,
		MaxBodyBytes: cfg.HTTPServer.MaxBodyBytes,
		RateRPS:      cfg.RateLimit.RPS,
		RateBurst:    cfg.RateLimit.Burst,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPServer.Address,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.HTTPServer.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTPServer.ReadTimeout,
		WriteTimeout:      cfg.HTTPServer.WriteTimeout,
		IdleTimeout:       cfg.HTTPServer.IdleTimeout,
	}

	log.Printf("starting cyimg-api %s on %s", version, srv.Addr)
	obs.SetReady(true)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("shutting down...")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Println("stopped")
}

// purgeLoop removes expired revocation rows so the kv table does not grow
// unbounded.
func purgeLoop(store *kv.PG) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if n, err := store.Purge(ctx); err != nil {
			log.Printf("kv purge: %v", err)
		} else if n > 0 {
			log.Printf("kv purge: removed %d expired entries", n)
		}
		cancel()
	}
}
