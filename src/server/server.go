package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradejournal/src/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	logger "github.com/sirupsen/logrus"
)

// Services are the collaborators routed by the API. Each field is the
// narrow interface its handlers need.
type Services struct {
	Auth      handler.Authenticator
	Positions handler.PositionService
	Trades    handler.TradeService
	Dashboard handler.DashboardGenerator
}

// NewRouter builds the HTTP routes. Everything except the healthcheck
// requires an X-API-Key header.
func NewRouter(cfg *Config, svc Services) *chi.Mux {
	r := chi.NewRouter()

	// === Global Middleware ===
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", handler.APIKeyHeader},
		MaxAge:         300,
	}))

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("healthcheck write failed")
		}
	})

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(handler.RequireAPIKey(svc.Auth))
		r.Use(handler.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

		r.Get("/positions", handler.ListPositionsHandler(svc.Positions))
		r.Post("/positions/rebuild", handler.RebuildPositionsHandler(svc.Positions))

		r.Get("/trades", handler.ListTradesHandler(svc.Trades))
		r.Post("/trades/process", handler.ProcessTradesHandler(svc.Trades))
		r.Get("/trades/{id}", handler.GetTradeHandler(svc.Trades))
		r.Patch("/trades/{id}", handler.AnnotateTradeHandler(svc.Trades))

		r.Get("/dashboard", handler.DashboardHandler(svc.Dashboard))
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.WithFields(logger.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("http request")
	})
}

// StartServer serves handler until SIGINT or SIGTERM, then shuts down
// gracefully. onShutdown runs after the listener is closed.
func StartServer(cfg *Config, h http.Handler, onShutdown func()) {
	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}

	if onShutdown != nil {
		onShutdown()
	}
}
