package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"lfpanel/backend/internal/cache"
	"lfpanel/backend/internal/config"
	"lfpanel/backend/internal/domain"
	"lfpanel/backend/internal/httpapi"
	"lfpanel/backend/internal/logger"
	"lfpanel/backend/internal/service"
	"lfpanel/backend/internal/store"
	"lfpanel/backend/internal/store/memory"
	pgstore "lfpanel/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatal().Err(err).Msg("invalid security configuration")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set; refusing to start with in-memory fallback")
		}
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("schema migration failed")
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Info().Str("repository", "postgres").Msg("storage ready")
	} else {
		repo = memory.NewSeeded()
		log.Info().Str("repository", "memory").Msg("storage ready")
	}

	backend, closeBackend := reportBackend(ctx, cfg)
	if closeBackend != nil {
		closers = append(closers, closeBackend)
	}

	reports := cache.NewReportCache(backend, time.Duration(cfg.ReportCacheTTLSeconds)*time.Second)
	svc := service.New(repo, reports, cfg.DefaultLocale)
	auth := httpapi.NewAuthManager(ctx, cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	if err := bootstrapAdmin(ctx, auth, cfg.BootstrapAdminPass); err != nil {
		log.Fatal().Err(err).Msg("failed to create bootstrap admin")
	}
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Address()).Msg("lfpanel backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error().Err(err).Msg("close error")
		}
	}

	log.Info().Msg("server stopped")
}

// reportBackend picks redis when configured and reachable, otherwise an
// in-process cache.
func reportBackend(ctx context.Context, cfg config.Config) (cache.Backend, func() error) {
	if cfg.RedisAddr == "" {
		log.Info().Str("cache", "memory").Msg("report cache ready")
		return cache.NewMemoryBackend(), nil
	}

	redisBackend := cache.NewRedisBackend(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := redisBackend.Ping(ctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, using in-process report cache")
		_ = redisBackend.Close()
		return cache.NewMemoryBackend(), nil
	}
	log.Info().Str("cache", "redis").Str("addr", cfg.RedisAddr).Msg("report cache ready")
	return redisBackend, redisBackend.Close
}

func bootstrapAdmin(ctx context.Context, auth *httpapi.AuthManager, password string) error {
	if password == "" {
		return nil
	}
	_, err := auth.CreateUser(ctx, domain.UserCreateRequest{
		Username: "admin",
		Password: password,
		Role:     httpapi.RoleAdmin,
	})
	if err != nil && strings.Contains(err.Error(), "already exists") {
		return nil
	}
	return err
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.BootstrapAdminPass != "" && len(cfg.BootstrapAdminPass) < 8 {
		return fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD must be at least 8 characters")
	}
	return nil
}
