package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Server struct {
	httpServer *http.Server
	handler    *Handler
}

func NewServer(port string, handler *Handler) *Server {
	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      NewRouter(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
	}
}

func NewRouter(handler *Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(TracingMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Post("/api/tokens", handler.IssueToken)
	r.Post("/api/wallets", handler.CreateWallet)
	r.Get("/api/wallets/{owner}", handler.GetWallet)

	r.Route("/api/facility", func(r chi.Router) {
		r.Post("/", handler.CreateFacility)
		r.Get("/", handler.GetFacility)
		r.Get("/slots", handler.ListSlots)
		r.Get("/slots/{number}", handler.GetSlot)

		// Mutating operations require a caller identity.
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(handler.cfg.TokenSecret))
			r.Post("/slots", handler.CreateSlot)
			r.Post("/slots/{number}/reserve", handler.ReserveSlot)
			r.Post("/slots/{number}/enter", handler.EnterSlot)
			r.Post("/slots/{number}/exit", handler.ExitSlot)
			r.Post("/slots/{number}/distribute", handler.Distribute)
			r.Post("/withdraw", handler.Withdraw)
			r.Post("/sweep", handler.Sweep)
			r.Get("/records", handler.ListRecords)
		})
	})

	return r
}

func (s *Server) Start() error {
	zap.L().Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	zap.L().Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
