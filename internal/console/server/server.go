package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/xela07ax/vehicle-health-pipeline/internal/console/handler"
	"go.uber.org/zap"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	// Обработчики
	runHandler   *handler.RunHandler   // /v1/runs
	auditHandler *handler.AuditHandler // /v1/audit
	fleetHandler *handler.FleetHandler // /v1/fleet, /v1/strategy
}

// NewConsoleServer собирает HTTP API конвейера
func NewConsoleServer(
	logger *zap.Logger,
	runH *handler.RunHandler,
	auditH *handler.AuditHandler,
	fleetH *handler.FleetHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:       chi.NewRouter(),
		logger:       logger.Named("console-api"),
		runHandler:   runH,
		auditHandler: auditH,
		fleetHandler: fleetH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TracingMiddleware)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/runs", s.runHandler.Create)

		r.Get("/audit", s.auditHandler.GetLogs)
		r.Delete("/audit", s.auditHandler.Clear)

		r.Get("/fleet", s.fleetHandler.List)
		r.Get("/strategy", s.fleetHandler.Strategy)
	})
}

// accessLog пишет одну строку на запрос через zap вместо стандартного middleware.Logger
func (s *ConsoleServer) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
			zap.String("trace_id", TraceID(r.Context())),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
