package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"orderdesk-be/internal/api"
	"orderdesk-be/internal/config"
	"orderdesk-be/internal/db"
	"orderdesk-be/internal/item"
	"orderdesk-be/internal/logger"
	"orderdesk-be/internal/middleware"
	"orderdesk-be/internal/order"

	"go.uber.org/zap"
)

const limiterCleanupInterval = time.Minute

var (
	initDBFunc      = db.InitDB
	startServerFunc = startServer
)

func main() {
	if err := run(); err != nil {
		logger.L().Fatal("server stopped", zap.Error(err))
	}
}

func run() error {
	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv, cfg.LogLevel)
	defer logger.Sync()

	database := initDBFunc(cfg)
	defer database.Close()

	addr := ":" + cfg.AppPort
	logger.L().Info("server running", zap.String("addr", addr), zap.String("env", cfg.AppEnv))
	return startServerFunc(addr, newServer(cfg, database))
}

// newServer wires repositories, services and the middleware chain.
func newServer(cfg *config.Config, database *sql.DB) http.Handler {
	itemSvc := item.NewService(item.NewRepository(database))
	orderSvc := order.NewService(order.NewRepository(database))

	router := api.NewRouter(&api.Handler{
		ItemSvc:  itemSvc,
		OrderSvc: orderSvc,
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	limiter.StartCleanup(limiterCleanupInterval, nil)

	var h http.Handler = router
	h = limiter.Middleware(h)
	h = middleware.CORS(h)
	h = middleware.LoggingMiddleware(h)
	h = logger.RequestIDMiddleware(h)
	h = middleware.Recoverer(h)
	return h
}

// startServer serves until SIGINT/SIGTERM, then drains in-flight requests.
func startServer(addr string, handler http.Handler) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
