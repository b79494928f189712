package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"cosmossdk.io/log"
	"github.com/gorilla/mux"

	"github.com/openalpha/stakevault/api/middleware"
	"github.com/openalpha/stakevault/api/websocket"
	"github.com/openalpha/stakevault/custody"
	"github.com/openalpha/stakevault/metrics"
	"github.com/openalpha/stakevault/x/vault/keeper"
)

// Server represents the API server
type Server struct {
	httpServer *http.Server
	config     *Config

	keeper    *keeper.Keeper
	msgServer *keeper.MsgServer
	ledger    *custody.Ledger
	hub       *websocket.Hub

	// Rate limiter
	rateLimiter *middleware.RateLimiter

	logger log.Logger
}

// Config contains server configuration
type Config struct {
	Host             string
	Port             int
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	DisableRateLimit bool // For testing purposes
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// NewServer creates a new API server over the vault engine. The hub doubles
// as the engine's event emitter; pass the same hub to the keeper.
func NewServer(config *Config, k *keeper.Keeper, ledger *custody.Ledger, hub *websocket.Hub, logger log.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if hub == nil {
		hub = websocket.NewHub(nil)
	}

	return &Server{
		config:      config,
		keeper:      k,
		msgServer:   keeper.NewMsgServer(k),
		ledger:      ledger,
		hub:         hub,
		rateLimiter: middleware.NewRateLimiter(middleware.DefaultRateLimitConfig()),
		logger:      logger.With("module", "api"),
	}
}

// Hub returns the WebSocket hub
func (s *Server) Hub() *websocket.Hub {
	return s.hub
}

// Router builds the HTTP routing table
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	// Health and operational endpoints
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	// WebSocket
	r.HandleFunc("/ws", s.hub.ServeWS)

	v1 := r.PathPrefix("/v1").Subrouter()

	// Read endpoints
	v1.HandleFunc("/pool", s.handlePool).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{address}", s.handleAccount).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{address}/withdrawal", s.handlePendingWithdrawal).Methods(http.MethodGet)
	v1.HandleFunc("/accounts/{address}/balance", s.handleBalance).Methods(http.MethodGet)

	// Mutating endpoints
	v1.HandleFunc("/deposits", s.handleDeposit).Methods(http.MethodPost)
	v1.HandleFunc("/withdrawals", s.handleRequestWithdrawal).Methods(http.MethodPost)
	v1.HandleFunc("/withdrawals/claim", s.handleClaimWithdrawal).Methods(http.MethodPost)
	v1.HandleFunc("/rewards", s.handleAddReward).Methods(http.MethodPost)
	v1.HandleFunc("/admin", s.handleChangeAdmin).Methods(http.MethodPost)

	// Apply middleware chain: CORS -> metrics -> rate limit -> handler
	var handler http.Handler = r
	if !s.config.DisableRateLimit {
		handler = middleware.RateLimitMiddleware(s.rateLimiter)(handler)
	}
	handler = metricsMiddleware(handler)
	handler = corsMiddleware(handler)

	return handler
}

// Start starts the API server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	// Start WebSocket hub
	go s.hub.Run()
	s.refreshPoolSnapshot()

	s.logger.Info("api server starting", "addr", addr, "rate_limit", !s.config.DisableRateLimit)
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Stop()
	s.rateLimiter.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// refreshPoolSnapshot pushes the current pool view to the hub buffer and the
// Prometheus gauges. Called after every successful mutating operation.
func (s *Server) refreshPoolSnapshot() {
	state, err := s.keeper.PoolState()
	if err != nil {
		s.logger.Error("pool snapshot failed", "error", err)
		return
	}

	s.hub.UpdatePool(&websocket.PoolMessage{
		TotalShares: state.TotalShares.String(),
		PoolBalance: state.PoolBalance.String(),
		Timestamp:   s.keeper.Clock().Now().Unix(),
	})

	balance, _ := strconv.ParseFloat(state.PoolBalance.String(), 64)
	shares, _ := strconv.ParseFloat(state.TotalShares.String(), 64)
	metrics.GetCollector().UpdatePoolMetrics(balance, shares)
}

// allowTx applies the per-address mutation rate limit. Returns false after
// writing the rejection when the address is over its allowance.
func (s *Server) allowTx(w http.ResponseWriter, address string) bool {
	if s.config.DisableRateLimit {
		return true
	}
	allowed, info := s.rateLimiter.AllowTx(address)
	if !allowed {
		if info.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(info.RetryAfter))
		}
		writeError(w, http.StatusTooManyRequests, "too many operations for this address")
		return false
	}
	return true
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().Unix(),
		"ws_clients":  s.hub.GetClientCount(),
		"ws_channels": s.hub.GetChannelCount(),
	})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": message,
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// Hijack passes through to the underlying writer so WebSocket upgrades work
// behind the metrics middleware.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := metrics.NewTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		metrics.GetCollector().RecordAPIRequest(
			r.Method, r.URL.Path, strconv.Itoa(rec.status), timer.ElapsedMs())
	})
}
