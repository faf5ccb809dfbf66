package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/railconcession/concession_backend/internal/config"
	"github.com/railconcession/concession_backend/internal/database"
	"github.com/railconcession/concession_backend/internal/logger"
	"github.com/railconcession/concession_backend/internal/metrics"
	"github.com/railconcession/concession_backend/internal/routes"
	"github.com/railconcession/concession_backend/internal/services"
	"github.com/railconcession/concession_backend/internal/storage"
	"github.com/railconcession/concession_backend/internal/ws"
)

const revocationPurgeInterval = time.Hour

func main() {
	// Load .env (non-fatal if missing in production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration failed")
	}
	logger.Configure(cfg.LogLevel, cfg.LogPretty, os.Stdout)
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database connection failed")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}
	if err := database.SeedStaff(db, cfg); err != nil {
		log.Fatal().Err(err).Msg("staff seed failed")
	}

	files, err := storage.NewLocalStorage(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Msg("document storage init failed")
	}

	hubs := ws.NewHubs()
	hubs.Run()

	r := gin.New()
	r.Use(logger.GinLogger(), gin.Recovery(), metrics.Middleware())
	r.MaxMultipartMemory = cfg.MaxUploadBytes()
	authSvc := routes.Register(r, db, cfg, files, hubs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go purgeRevocations(ctx, authSvc)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed to start")
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info().Msg("server stopped")
}

// purgeRevocations drops expired revocation rows until ctx is cancelled.
func purgeRevocations(ctx context.Context, auth *services.AuthService) {
	ticker := time.NewTicker(revocationPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := auth.PurgeExpiredRevocations(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("revocation purge failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("rows", n).Msg("purged expired revocations")
			}
		}
	}
}
