package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"opiniq.org/internal/audit"
	"opiniq.org/internal/authz"
	"opiniq.org/internal/credstore"
	credpg "opiniq.org/internal/credstore/pg"
	"opiniq.org/internal/httpapi"
	"opiniq.org/internal/obs"
	"opiniq.org/internal/survey"
	surveypg "opiniq.org/internal/survey/pg"
	"opiniq.org/internal/tokens"
)

var version = "0.3.0"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("OPINIQ_COMMIT"))

	// Database, when a DSN is provided. Without one the service runs with
	// in-memory stores (dev mode).
	var db *sql.DB
	if dsn := os.Getenv("OPINIQ_PG_DSN"); dsn != "" {
		var err error
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	var surveys survey.Reader
	var backend credstore.Backend
	if db != nil {
		surveys = surveypg.NewReader(db)
		backend = credpg.NewBackend(db)
	} else {
		log.Println("OPINIQ_PG_DSN is not set; using in-memory stores")
		surveys = survey.NewInMemory()
		backend = credstore.NewMemoryBackend()
	}

	gate := authz.NewGate(surveys, audit.LogRecorder{})
	registry := credstore.NewRegistry(backend)
	acquirer := tokens.NewAcquirer(registry, tokens.DevSource{TTL: time.Hour})

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, gate, acquirer)

	srv := &http.Server{
		Addr:              listenAddr("OPINIQ_HTTP_ADDR", ":8080"),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// gRPC health endpoint for platform probes.
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcSrv, healthSrv)

	grpcAddr := listenAddr("OPINIQ_GRPC_ADDR", ":9090")
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		log.Fatalf("listen grpc: %v", err)
	}

	log.Printf("Starting opiniq-iam %s on %s (grpc health on %s)", version, srv.Addr, grpcAddr)

	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	healthSrv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	grpcSrv.GracefulStop()
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

func listenAddr(env, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	return fallback
}
