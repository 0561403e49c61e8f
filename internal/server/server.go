// internal/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/clivon254/TEO-KICKS-sub002/config"
	"github.com/clivon254/TEO-KICKS-sub002/internal/apiclient"
	"github.com/clivon254/TEO-KICKS-sub002/internal/handler"
	"github.com/clivon254/TEO-KICKS-sub002/internal/pushchan"
	"github.com/clivon254/TEO-KICKS-sub002/internal/querycache"
	"github.com/clivon254/TEO-KICKS-sub002/internal/repository"
	"github.com/clivon254/TEO-KICKS-sub002/internal/router"
	"github.com/clivon254/TEO-KICKS-sub002/internal/session"
)

// New wires the gateway and returns the HTTP server plus a cleanup func.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*http.Server, func(), error) {
	// --- Redis (session store, query cache, rate limiting) ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// --- Postgres (attempt audit log) ---
	dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL())
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := repository.Migrate(ctx, dbPool); err != nil {
		dbPool.Close()
		return nil, nil, err
	}

	// --- Session store and backend client ---
	// The store feeds tokens to the client; the client serves the store's
	// login/refresh calls. Bind after both exist.
	sessions := session.NewStore(rdb, logger)
	api := apiclient.New(cfg.Backend.BaseURL, cfg.Backend.HTTPTimeout, sessions, logger)
	sessions.BindAuth(api)
	if err := sessions.Hydrate(ctx); err != nil {
		logger.Warn("session hydration failed", zap.Error(err))
	}

	// --- Supporting services ---
	cache := querycache.New(rdb, logger)
	push := pushchan.New(cfg.Backend.PushWSURL, logger)
	attempts := repository.NewAttemptRepository(dbPool)

	// --- Notification hub ---
	hub := handler.NewHub(logger)
	go hub.Run()

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(sessions, logger)
	checkoutHandler := handler.NewCheckoutHandler(api, logger)
	paymentHandler := handler.NewPaymentHandler(api, push, attempts, cfg.Tracker.FallbackWindow, logger)
	resourceHandler := handler.NewResourceHandler(api, cache, hub, logger)
	analyticsHandler := handler.NewAnalyticsHandler(attempts, logger)
	wsHandler := handler.NewWSHandler(hub, logger)

	// --- Router ---
	r := router.SetupRoutes(
		authHandler,
		checkoutHandler,
		paymentHandler,
		resourceHandler,
		analyticsHandler,
		wsHandler,
		rdb,
		logger,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websocket endpoints hold their connections open
		IdleTimeout:  60 * time.Second,
	}

	cleanup := func() {
		dbPool.Close()
		if err := rdb.Close(); err != nil {
			logger.Warn("redis close failed", zap.Error(err))
		}
	}
	return srv, cleanup, nil
}
