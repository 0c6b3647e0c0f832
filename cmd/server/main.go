// Package main runs the leaderboard REST server:
// - /api/*: leaderboard, profile, username, referral and activity endpoints
// - /health, /status, /metrics: operational endpoints
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"rugal-dominion/internal/api"
	"rugal-dominion/internal/config"
	"rugal-dominion/internal/leaderboard"
	"rugal-dominion/internal/observability"
	"rugal-dominion/internal/storage"
	chstore "rugal-dominion/internal/storage/clickhouse"
	"rugal-dominion/internal/storage/memory"
	"rugal-dominion/internal/storage/migrations"
	pgstore "rugal-dominion/internal/storage/postgres"
)

// Server holds the HTTP server state.
type Server struct {
	addr      string
	useMemory bool
	eventSink string

	svc    *leaderboard.Service
	logger *log.Logger

	mu       sync.Mutex
	started  time.Time
	requests int64
}

// allStores holds the storage implementations.
type allStores struct {
	leaderboardStore storage.LeaderboardStore
	actionEventStore storage.ActionEventStore
	eventSink        string
}

func main() {
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Flags override config (env vars and RUGAL_CONFIG as defaults)
	addr := flag.String("addr", cfg.HTTPAddr, "HTTP listen address")
	postgresDSN := flag.String("postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", cfg.ClickHouseDSN, "ClickHouse connection string (optional, action audit log)")
	useMemory := flag.Bool("use-memory", cfg.UseMemory, "Use in-memory storage instead of PostgreSQL")
	flag.Parse()

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	svc := leaderboard.NewService(
		stores.leaderboardStore,
		leaderboard.WithEventStore(stores.actionEventStore),
		leaderboard.WithLogger(log.New(os.Stdout, "[leaderboard] ", log.LstdFlags|log.Lshortfile)),
	)

	server := &Server{
		addr:      *addr,
		useMemory: *useMemory,
		eventSink: stores.eventSink,
		svc:       svc,
		logger:    logger,
		started:   time.Now(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Second signal forces exit
		sig = <-sigCh
		logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	if err := server.Run(ctx); err != nil {
		logger.Fatalf("Server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores creates the leaderboard and audit stores.
// The audit log goes to ClickHouse when configured and to PostgreSQL otherwise.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			leaderboardStore: memory.NewLeaderboardStore(),
			actionEventStore: memory.NewActionEventStore(),
			eventSink:        "memory",
		}
		return stores, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if _, err := migrations.RunPostgres(ctx, pool, migrations.WithLogger(logger)); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	stores := &allStores{
		leaderboardStore: pgstore.NewLeaderboardStore(pool),
		actionEventStore: pgstore.NewActionEventStore(pool),
		eventSink:        "postgres",
	}
	cleanup := func() { pool.Close() }

	if clickhouseDSN != "" {
		chConn, _, err := migrations.RunClickhouse(ctx, clickhouseDSN, migrations.WithLogger(logger))
		if err != nil {
			logger.Printf("ClickHouse unavailable, recording actions in postgres: %v", err)
			return stores, cleanup, nil
		}
		stores.actionEventStore = chstore.NewActionEventStore(chConn)
		stores.eventSink = "clickhouse"
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}

// Run serves HTTP until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting HTTP server on %s (storage: %s, actions: %s)", s.addr, s.storageName(), s.eventSink)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	apiHandler := api.NewHandler(s.svc, api.WithLogger(s.logger))
	mux.Handle("/api/", s.countRequests(apiHandler))
	return mux
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) storageName() string {
	if s.useMemory {
		return "memory"
	}
	return "postgres"
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	Started     time.Time `json:"started"`
	Storage     string    `json:"storage"`
	ActionSink  string    `json:"action_sink"`
	APIRequests int64     `json:"api_requests"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).String(),
		Started:     s.started,
		Storage:     s.storageName(),
		ActionSink:  s.eventSink,
		APIRequests: s.requests,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
