package shrike

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address. Defaults to ":8081".
	Addr string

	// Logger receives request and error logs. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// ReadTimeout bounds reading the full request. Defaults to 10s.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing the full response. Defaults to 30s.
	WriteTimeout time.Duration

	// MaxBodySize limits the request body in bytes. Defaults to 4096.
	MaxBodySize int64
}

func (c ServerConfig) withDefaults() ServerConfig {
	if c.Addr == "" {
		c.Addr = ":8081"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.MaxBodySize == 0 {
		c.MaxBodySize = 4096
	}
	return c
}

// Server exposes a Validator over HTTP.
//
// Routes:
//
//	POST /validate   validate an email address
//	GET  /healthz    liveness probe
//	GET  /metrics    Prometheus metrics
type Server struct {
	config    ServerConfig
	validator *Validator
	httpSrv   *http.Server
}

// NewServer returns a Server around v.
func NewServer(v *Validator, config ServerConfig) *Server {
	config = config.withDefaults()
	s := &Server{config: config, validator: v}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /validate", s.handleValidate)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /{$}", s.handleRoot)

	handler := chain(mux,
		Recovery(config.Logger),
		RequestID(),
		Logging(config.Logger),
		CORS(),
	)

	s.httpSrv = &http.Server{
		Addr:         config.Addr,
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return s
}

// Handler returns the server's root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// ListenAndServe serves until Shutdown is called, then returns
// ErrServerClosed.
func (s *Server) ListenAndServe() error {
	s.config.Logger.Info("http server listening", slog.String("addr", s.config.Addr))
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return ErrServerClosed
	}
	return err
}

// Shutdown gracefully stops the server, waiting for in-flight
// requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

type validateRequest struct {
	Email string `json:"email"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodySize)

	var req validateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Email == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email is required"})
		return
	}

	result, err := s.validator.Validate(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		case errors.Is(err, ErrResolverUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "dns resolution unavailable"})
		default:
			s.config.Logger.Error("validate failed",
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.Any("error", err),
			)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "shrike email domain validation service")
	fmt.Fprintln(w, "POST /validate {\"email\": \"user@example.com\"}")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
