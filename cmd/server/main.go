package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/TimurManjosov/godecide/internal/api"
	"github.com/TimurManjosov/godecide/internal/audit"
	"github.com/TimurManjosov/godecide/internal/config"
	"github.com/TimurManjosov/godecide/internal/snapshot"
	"github.com/TimurManjosov/godecide/internal/store"
	"github.com/TimurManjosov/godecide/internal/telemetry"
	"github.com/TimurManjosov/godecide/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil { log.Fatalf("config: %v", err) }
	if err := cfg.Validate(); err != nil { log.Fatalf("config: %v", err) }

	telemetry.Init()

	ctx := context.Background()
	st, err := store.NewStore(ctx, cfg.StoreType, cfg.DatabaseDSN)
	if err != nil { log.Fatalf("store: %v", err) }
	defer st.Close()

	// API server with deps
	srvAPI := api.NewServer(st, cfg.Env, cfg.AdminAPIKey)

	// durable audit trail when running on postgres
	if ps, ok := st.(*store.PostgresStore); ok {
		if err := audit.EnsureSchema(ctx, ps.Pool()); err != nil { log.Fatalf("audit schema: %v", err) }
		srvAPI.SetAudit(audit.NewService(audit.NewPostgresSink(ps.Pool()), 256))
	}

	// initial snapshot
	if err := srvAPI.RebuildSnapshot(ctx, cfg.Env, snapshot.Change{Type: snapshot.ChangeReload, Env: cfg.Env}); err != nil {
		log.Fatalf("load rule sets: %v", err)
	}
	s := snapshot.Load()
	log.Printf("snapshot: %d rule sets, etag=%s", len(s.RuleSets), s.ETag)

	// webhook dispatcher fed from snapshot change notifications
	dispatcher := webhook.NewDispatcher(cfg.WebhookURLs, cfg.WebhookSecret)
	dispatcher.Start()
	defer dispatcher.Close()

	changes, unsubscribe := snapshot.Subscribe()
	defer unsubscribe()
	go func() {
		for change := range changes {
			if event, ok := webhook.FromChange(change); ok {
				dispatcher.Dispatch(event)
			}
		}
	}()

	// metrics server
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		log.Printf("metrics on %s", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics server: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctxShut, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShut)
	_ = metricsSrv.Shutdown(ctxShut)
	log.Println("stopped")
}
