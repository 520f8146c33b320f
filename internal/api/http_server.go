package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"velorent/internal/config"
	"velorent/internal/database"
	"velorent/internal/domain"
	"velorent/internal/metrics"
	"velorent/internal/payment"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HTTPServer exposes the booking API consumed by the mobile client.
type HTTPServer struct {
	cfg     *config.Config
	rentals domain.RentalService
	server  *http.Server
	auth    *HTTPAuth
	logger  *zerolog.Logger
}

func NewHTTPServer(cfg *config.Config, rentals domain.RentalService, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, rentals: rentals, logger: logger}
	srv.auth = NewHTTPAuth(cfg.API)

	mux.HandleFunc("/api/v1/bikes", srv.handleBikes)
	mux.HandleFunc("/api/v1/bikes/", srv.handleBikeAvailability)
	mux.HandleFunc("/api/v1/quote", srv.handleQuote)
	mux.HandleFunc("/api/v1/rentals", srv.handleCreateRental)
	mux.HandleFunc("/api/v1/rentals/export", srv.handleExport)
	mux.HandleFunc("/api/v1/rentals/", srv.handleRental)
	mux.HandleFunc("/api/v1/renters/", srv.handleRenterHistory)
	mux.HandleFunc("/api/v1/leaderboard", srv.handleLeaderboard)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the configured root handler for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) renterID(r *http.Request) string {
	header := strings.TrimSpace(strings.ToLower(s.cfg.API.Auth.HeaderRenterID))
	if header == "" {
		header = "x-renter-id"
	}
	return strings.TrimSpace(r.Header.Get(header))
}

// HTTPAuth provides API-key auth and per-key rate limiting.
type HTTPAuth struct {
	cfg      config.APIConfig
	clients  map[string]config.APIClientKey
	limiters sync.Map // map[string]*rate.Limiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Auth.Enabled && len(a.clients) > 0 {
			if err := a.checkAuth(r); err != nil {
				statusCode := http.StatusUnauthorized
				if err == errPermissionDenied {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

var errPermissionDenied = fmt.Errorf("permission denied")

func (a *HTTPAuth) checkAuth(r *http.Request) error {
	apiKeyHeader := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if apiKeyHeader == "" {
		apiKeyHeader = "x-api-key"
	}

	apiKey := strings.TrimSpace(r.Header.Get(apiKeyHeader))
	if apiKey == "" {
		return fmt.Errorf("missing api key header")
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return fmt.Errorf("invalid api key")
	}

	return a.checkPermissions(client, r)
}

func (a *HTTPAuth) checkPermissions(client config.APIClientKey, r *http.Request) error {
	required := requiredPermissionHTTP(r)
	if required == "" {
		return nil
	}
	if len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermissionHTTP(r *http.Request) string {
	path := r.URL.Path
	switch {
	case path == "/api/v1/rentals" && r.Method == http.MethodPost:
		return "write:rentals"
	case strings.HasPrefix(path, "/api/v1/rentals/") && strings.HasSuffix(path, "/end"):
		return "write:rentals"
	case path == "/api/v1/rentals/export":
		return "read:reports"
	case strings.HasPrefix(path, "/api/v1/"):
		return "read:rentals"
	}
	return ""
}

func (a *HTTPAuth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	key := a.clientKey(r)
	lim := a.getLimiter(key)
	if !lim.Allow() {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	apiKeyHeader := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if apiKeyHeader == "" {
		apiKeyHeader = "x-api-key"
	}

	if apiKey := strings.TrimSpace(r.Header.Get(apiKeyHeader)); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *HTTPAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		metrics.IncHTTP(r.URL.Path)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// httpStatusFor maps domain errors to HTTP statuses. Decline reasons stay
// distinct so the client can message the renter accurately.
func httpStatusFor(err error) int {
	switch {
	case errors.Is(err, database.ErrInvalidInterval),
		errors.Is(err, database.ErrPastDate),
		errors.Is(err, database.ErrDateTooFar):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrMissingRenter):
		return http.StatusUnauthorized
	case errors.Is(err, database.ErrBikeNotFound),
		errors.Is(err, database.ErrBookingNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrNotAvailable),
		errors.Is(err, database.ErrSlotTaken),
		errors.Is(err, database.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, database.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, database.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, payment.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, database.ErrPersistenceFailure):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// errorCode is the stable machine-readable code for a domain error.
func errorCode(err error) string {
	switch {
	case errors.Is(err, database.ErrInvalidInterval):
		return "invalid_interval"
	case errors.Is(err, database.ErrPastDate):
		return "past_date"
	case errors.Is(err, database.ErrDateTooFar):
		return "date_too_far"
	case errors.Is(err, database.ErrMissingRenter):
		return "missing_renter_identity"
	case errors.Is(err, database.ErrBikeNotFound):
		return "bike_not_found"
	case errors.Is(err, database.ErrBookingNotFound):
		return "booking_not_found"
	case errors.Is(err, database.ErrNotAvailable):
		return "slot_unavailable"
	case errors.Is(err, database.ErrSlotTaken):
		return "slot_no_longer_available"
	case errors.Is(err, database.ErrPaymentDeclined):
		return "payment_declined"
	case errors.Is(err, database.ErrTooManyAttempts):
		return "too_many_attempts"
	case errors.Is(err, database.ErrPersistenceFailure):
		return "persistence_failure"
	}
	return "internal_error"
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatusFor(err), map[string]string{
		"error": err.Error(),
		"code":  errorCode(err),
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
