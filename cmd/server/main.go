// Market context server: periodically refreshes crypto market data, derives
// metrics, and serves snapshots and LLM-ready context blocks over HTTP behind
// bearer-token auth.
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
	"strings"
	"sync"
	"syscall"
	"time"

	"market-context-lab/internal/auth"
	"market-context-lab/internal/config"
	"market-context-lab/internal/contextblock"
	"market-context-lab/internal/derive"
	"market-context-lab/internal/fetch"
	"market-context-lab/internal/observability"
	"market-context-lab/internal/orchestrator"
	"market-context-lab/internal/storage"
	"market-context-lab/internal/storage/clickhouse"
	"market-context-lab/internal/storage/memory"
	"market-context-lab/internal/storage/migrations"
	"market-context-lab/internal/storage/postgres"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = 1 * time.Hour
)

func main() {
	verbose := flag.Bool("verbose", false, "Verbose refresh cycle logging")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapStore, sessionStore, sampleStore, cleanup, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	authService, err := auth.NewService(sessionStore, cfg.AuthPassword, auth.WithTTL(cfg.SessionTTL))
	if err != nil {
		logger.Fatalf("Failed to create auth service: %v", err)
	}

	market, coinbase, kraken, binance, closeSources := createSources(ctx, cfg, logger)
	defer closeSources()

	engineCfg := derive.DefaultConfig()
	engineCfg.VolatilityThresholdUSD = cfg.VolatilityThresholdUSD
	engineCfg.HypeRankThreshold = cfg.HypeRankThreshold
	engineCfg.MoonshotRankThreshold = cfg.MoonshotRankThreshold

	orch := orchestrator.New(orchestrator.Options{
		Engine:           derive.New(engineCfg),
		MarketData:       market,
		SnapshotStore:    snapStore,
		PriceSampleStore: sampleStore,
		Coinbase:         coinbase,
		Kraken:           kraken,
		Binance:          binance,
		TopCoinsCount:    cfg.TopCoinsCount,
		ChartDays:        cfg.ChartDays,
		Verbose:          *verbose,
	})

	srv := &Server{
		auth:      authService,
		orch:      orch,
		snapshots: snapStore,
		logger:    logger,
		startedAt: time.Now(),
	}

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.routes(),
	}

	go func() {
		logger.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// First refresh right away, then on the configured interval.
	go srv.refreshLoop(ctx, cfg.RefreshInterval)
	go srv.sweepLoop(ctx)

	// Graceful shutdown. A second signal forces exit.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Println("Shutting down (signal again to force)...")
	cancel()

	go func() {
		<-sigCh
		logger.Println("Forced exit")
		os.Exit(1)
	}()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown error: %v", err)
	}
	logger.Println("Server stopped")
}

// createStores wires either the in-memory stores or Postgres + ClickHouse,
// running migrations on startup.
func createStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (
	storage.SnapshotStore, storage.SessionStore, storage.PriceSampleStore, func(), error,
) {
	if cfg.UseMemory {
		logger.Println("Using in-memory stores")
		return memory.NewSnapshotStore(), memory.NewSessionStore(), memory.NewPriceSampleStore(), func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	logger.Println("Postgres ready")

	conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	logger.Println("ClickHouse ready")

	cleanup := func() {
		pool.Close()
		if err := conn.Close(); err != nil {
			logger.Printf("ClickHouse close error: %v", err)
		}
	}

	return postgres.NewSnapshotStore(pool), postgres.NewSessionStore(pool),
		clickhouse.NewPriceSampleStore(conn), cleanup, nil
}

// createSources builds the upstream market data clients. The Binance quote
// comes from the websocket stream when enabled, with REST fallback; stream
// setup failure degrades to REST only.
func createSources(ctx context.Context, cfg *config.Config, logger *log.Logger) (
	market fetch.MarketDataSource, coinbase, kraken, binance fetch.QuoteSource, closeAll func(),
) {
	market = fetch.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoAPIKey)
	coinbase = fetch.NewCoinbaseClient(cfg.CoinbaseURL)
	kraken = fetch.NewKrakenClient(cfg.KrakenURL)

	binanceREST := fetch.NewBinanceRESTClient(cfg.BinanceURL)
	binance = binanceREST
	closeAll = func() {}

	if !cfg.DisableBinance {
		stream, err := fetch.NewBinanceStream(ctx, cfg.BinanceWSURL, binanceREST, nil)
		if err != nil {
			logger.Printf("Binance stream unavailable, using REST quotes: %v", err)
		} else {
			binance = stream
			closeAll = func() {
				if err := stream.Close(); err != nil {
					logger.Printf("Binance stream close error: %v", err)
				}
			}
		}
	}

	return market, coinbase, kraken, binance, closeAll
}

// Server holds HTTP handlers and refresh state.
type Server struct {
	auth      *auth.Service
	orch      *orchestrator.Orchestrator
	snapshots storage.SnapshotStore
	logger    *log.Logger

	startedAt time.Time

	mu             sync.Mutex
	refreshRunning bool
	refreshCount   int
	lastRefresh    time.Time
	lastResult     *orchestrator.RunResult
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("/api/refresh", s.requireAuth(s.handleRefresh))
	mux.HandleFunc("/api/context", s.requireAuth(s.handleContext))
	mux.HandleFunc("/api/snapshot", s.requireAuth(s.handleSnapshot))
	return mux
}

// refreshLoop runs one refresh immediately, then on every tick. A tick is
// skipped if the previous cycle is still running.
func (s *Server) refreshLoop(ctx context.Context, interval time.Duration) {
	s.runRefresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runRefresh(ctx)
		}
	}
}

func (s *Server) runRefresh(ctx context.Context) {
	s.mu.Lock()
	if s.refreshRunning {
		s.mu.Unlock()
		s.logger.Println("Refresh already running, skipping tick")
		return
	}
	s.refreshRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.refreshRunning = false
		s.mu.Unlock()
	}()

	result, err := s.orch.Run(ctx)
	if err != nil {
		s.logger.Printf("Refresh failed: %v", err)
		return
	}

	s.mu.Lock()
	s.refreshCount++
	s.lastRefresh = time.Now()
	s.lastResult = result
	s.mu.Unlock()

	if result.Skipped {
		s.logger.Printf("Refresh skipped, mandatory sources missing (errors: %v)", result.Errors)
	} else {
		s.logger.Printf("Refresh done: %d sources, %d samples archived",
			len(result.SourcesPresent), result.SamplesArchived)
	}
}

// sweepLoop deletes expired sessions once an hour.
func (s *Server) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.auth.SweepExpired(ctx)
			if err != nil {
				s.logger.Printf("Session sweep failed: %v", err)
				continue
			}
			observability.RecordSessionsSwept(n)
			if n > 0 {
				s.logger.Printf("Swept %d expired sessions", n)
			}
		}
	}
}

// requireAuth validates the bearer token before calling next.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		if _, err := s.auth.Validate(r.Context(), token); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		next(w, r)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	UptimeSeconds  int64    `json:"uptime_seconds"`
	RefreshCount   int      `json:"refresh_count"`
	RefreshRunning bool     `json:"refresh_running"`
	LastRefresh    string   `json:"last_refresh,omitempty"`
	SourcesPresent []string `json:"sources_present,omitempty"`
	LastSkipped    bool     `json:"last_skipped"`
	LastErrors     []string `json:"last_errors,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	uptime := time.Since(s.startedAt)
	observability.DefaultMetrics.UptimeSeconds.Set(uptime.Seconds())

	s.mu.Lock()
	resp := StatusResponse{
		UptimeSeconds:  int64(uptime.Seconds()),
		RefreshCount:   s.refreshCount,
		RefreshRunning: s.refreshRunning,
	}
	if !s.lastRefresh.IsZero() {
		resp.LastRefresh = s.lastRefresh.UTC().Format(time.RFC3339)
	}
	if s.lastResult != nil {
		resp.SourcesPresent = s.lastResult.SourcesPresent
		resp.LastSkipped = s.lastResult.Skipped
		resp.LastErrors = s.lastResult.Errors
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, err := s.auth.Login(r.Context(), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			observability.RecordLogin("denied")
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		s.logger.Printf("Login failed: %v", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	observability.RecordLogin("ok")
	writeJSON(w, http.StatusOK, loginResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	token, _ := bearerToken(r)
	if err := s.auth.Logout(r.Context(), token); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Printf("Logout failed: %v", err)
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	result, err := s.orch.Run(r.Context())
	if err != nil {
		s.logger.Printf("On-demand refresh failed: %v", err)
		writeError(w, http.StatusInternalServerError, "refresh failed")
		return
	}

	s.mu.Lock()
	s.refreshCount++
	s.lastRefresh = time.Now()
	s.lastResult = result
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshots.Get(r.Context())
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Printf("Snapshot load failed: %v", err)
		writeError(w, http.StatusInternalServerError, "snapshot load failed")
		return
	}

	// RenderSnapshot emits the fallback line when no snapshot exists yet.
	block := contextblock.RenderSnapshot(snap)
	observability.RecordContextRender()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(block))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.snapshots.Get(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no snapshot available yet")
			return
		}
		s.logger.Printf("Snapshot load failed: %v", err)
		writeError(w, http.StatusInternalServerError, "snapshot load failed")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[server] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
