package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"banking-chatbot-backend/internal/config"
	"banking-chatbot-backend/internal/dialog"
	"banking-chatbot-backend/internal/metrics"
	"banking-chatbot-backend/internal/pipeline"
	"banking-chatbot-backend/internal/types"
)

// MessageHandler runs one chat turn.
type MessageHandler interface {
	Handle(ctx context.Context, req pipeline.Request) (*dialog.Result, error)
}

// Readiness reports startup progress for the health endpoint.
type Readiness interface {
	WorkspaceID() (string, bool)
	Err() error
}

// Deps are the collaborators the HTTP layer serves. Only Chat is required.
type Deps struct {
	Chat      MessageHandler
	Readiness Readiness
	Search    pipeline.Searcher
	// DBHealth pings the database; nil when running on the bundled dataset.
	DBHealth func(ctx context.Context) error
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

type Server struct {
	router *chi.Mux
	cfg    config.Config
	deps   Deps
	logger *zap.Logger
}

func NewServer(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(accessLog(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.AllowedOrigin},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))

	s := &Server{router: r, cfg: cfg, deps: deps, logger: logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Post("/api/message", s.handleMessage)
	if s.deps.Gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}
	if s.cfg.StaticDir != "" {
		if info, err := os.Stat(s.cfg.StaticDir); err == nil && info.IsDir() {
			s.router.Handle("/*", http.FileServer(http.Dir(s.cfg.StaticDir)))
		} else {
			s.logger.Info("static UI directory not found, serving API only", zap.String("dir", s.cfg.StaticDir))
		}
	}
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := types.HealthResponse{Status: "ok", Database: "disabled"}
	if s.deps.Readiness != nil {
		_, resp.WorkspaceReady = s.deps.Readiness.WorkspaceID()
		if err := s.deps.Readiness.Err(); err != nil {
			resp.Status = "degraded"
			resp.SetupError = err.Error()
		}
	}
	if s.deps.Search != nil {
		resp.DiscoveryReady = s.deps.Search.Ready()
	}
	if s.deps.DBHealth != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.DBHealth(ctx); err != nil {
			s.logger.Warn("database health check failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Database = "error"
		} else {
			resp.Database = "ok"
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() { s.deps.Metrics.ObserveRequest(status, time.Since(start)) }()

	var req types.MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status = http.StatusBadRequest
		s.writeError(w, status, "invalid JSON body")
		return
	}

	res, err := s.deps.Chat.Handle(r.Context(), pipeline.Request{Input: req.Input, Context: req.Context})
	if err != nil {
		status = statusFor(err)
		loggerFrom(r.Context(), s.logger).Error("message handling failed", zap.Int("status", status), zap.Error(err))
		s.writeError(w, status, err.Error())
		return
	}
	if res.Output.Text == nil {
		res.Output.Text = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: code})
}

// statusFor maps an upstream failure to the HTTP status it reported, or 500.
func statusFor(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	return http.StatusInternalServerError
}
