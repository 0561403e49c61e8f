// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clivon254/TEO-KICKS-sub002/internal/handler"
)

func SetupRoutes(
	authHandler *handler.AuthHandler,
	checkoutHandler *handler.CheckoutHandler,
	paymentHandler *handler.PaymentHandler,
	resourceHandler *handler.ResourceHandler,
	analyticsHandler *handler.AnalyticsHandler,
	wsHandler *handler.WSHandler,
	rdb *redis.Client,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(RateLimit(rdb, 100, time.Minute, logger))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/admin/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/admin/api", func(r chi.Router) {
		// ---- Session ----
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/logout", authHandler.HandleLogout)
		r.Get("/auth/session", authHandler.HandleSession)

		// ---- Checkout & payment tracking ----
		r.Post("/checkout", checkoutHandler.HandleCheckout)
		r.Get("/payments/track", paymentHandler.HandleTrackPayment)
		r.Get("/payments/attempts", analyticsHandler.HandleAttemptHistory)

		// ---- Notifications ----
		r.Get("/ws", wsHandler.HandleNotifications)

		// ---- CRUD pages (one pattern per entity) ----
		r.Route("/{entity}", func(r chi.Router) {
			r.Get("/", resourceHandler.List)
			r.Post("/", resourceHandler.Create)
			r.Get("/{id}", resourceHandler.Get)
			r.Patch("/{id}", resourceHandler.Update)
			r.Delete("/{id}", resourceHandler.Delete)
		})
	})

	return r
}

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr))
		})
	}
}
