package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/traininglog/internal/api"
	"example.com/traininglog/internal/auth"
	"example.com/traininglog/internal/config"
	"example.com/traininglog/internal/domain"
	persistence "example.com/traininglog/internal/persistence/postgres"
	"example.com/traininglog/internal/ratelimit"
	httptransport "example.com/traininglog/internal/transport/http"
	"example.com/traininglog/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.New(cfg.LogFile, os.Getenv("DEBUG") != "")
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	repo := persistence.NewRepository(pool)
	service := domain.NewService(repo, log)

	store := auth.NewMemoryStore(cfg.SessionIdleTimeout)
	sessions := auth.NewManager(store, cfg.SecureCookies)
	limiter := ratelimit.NewLoginLimiter(cfg.LoginMaxAttempts, cfg.LoginWindow)

	handler := api.NewHandler(service, sessions, limiter, api.Credentials{
		Username:     cfg.AppUser,
		PasswordHash: cfg.AppPassHash,
	}, cfg.SyncToken, log)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Basic security headers
	secure := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			next.ServeHTTP(w, r)
		})
	}

	// Request logger
	logged := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Info("request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
		})
	}

	identity := auth.NewMiddleware(sessions)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, identity.Wrap(logged(secure(mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("training-log api listening", zap.String("address", cfg.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
}
