package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobflow-backend/internal/auth"
	"jobflow-backend/internal/cache"
	"jobflow-backend/internal/config"
	"jobflow-backend/internal/database"
	"jobflow-backend/internal/db"
	"jobflow-backend/internal/handlers"
	"jobflow-backend/internal/health"
	httpserver "jobflow-backend/internal/http"
	"jobflow-backend/internal/middleware"
	"jobflow-backend/internal/nas"
	"jobflow-backend/internal/repositories"
	"jobflow-backend/internal/services"
	"jobflow-backend/internal/storagepath"
	"jobflow-backend/internal/timeutil"
	"jobflow-backend/migrations"
)

func main() {
	// Load configuration
	cfg := config.Load()

	drives, err := storagepath.ParseDriveMappings(cfg.NAS.DriveMappings)
	if err != nil {
		log.Fatalf("Invalid drive mappings %q: %v", cfg.NAS.DriveMappings, err)
	}

	// Connect to database
	pool := db.Connect(cfg)
	defer pool.Close()
	log.Printf("Connected to database: %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)

	// Run database migrations
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.NewMigrator(pool, migrations.FS).RunMigrations(ctx); err != nil {
		cancel()
		log.Fatalf("Failed to run migrations: %v", err)
	}
	cancel()

	// Initialize Redis cache (optional - graceful fallback if unavailable)
	var redisHealth func() bool
	if err := cache.Init(cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Printf("[Redis] Cache unavailable: %v (NAS session falls back to Postgres)", err)
	} else {
		log.Println("[Redis] Cache connected successfully")
		redisHealth = cache.IsHealthy
	}
	defer cache.Close()

	// Initialize repositories
	orderRepo := repositories.NewOrderRepository(pool)
	employeeRepo := repositories.NewEmployeeRepository(pool)
	jobEventRepo := repositories.NewJobEventRepository(pool)
	systemSettingRepo := repositories.NewSystemSettingRepository(pool)

	// NAS session: shared through Redis when possible so every instance reuses one login
	var sessions nas.SessionStore
	if client := cache.GetClient(); client != nil {
		sessions = cache.NewSessionStore(client, cfg.NASSessionTTL())
	} else {
		sessions = repositories.NewSettingSessionStore(systemSettingRepo)
	}

	nasClient := nas.NewClient(nas.Config{
		Protocol: cfg.NAS.Protocol,
		Host:     cfg.NAS.Host,
		Port:     cfg.NAS.Port,
		Username: cfg.NAS.Username,
		Password: cfg.NAS.Password,
		Timeout:  cfg.NASTimeout(),
	}, sessions)

	if cfg.NAS.Host != "" {
		pingCtx, pingCancel := context.WithTimeout(context.Background(), cfg.NASTimeout())
		if err := nasClient.Ping(pingCtx); err != nil {
			log.Printf("[NAS] Warning: storage unreachable at startup: %v", err)
		} else {
			log.Printf("[NAS] Connected to %s", cfg.NAS.Host)
		}
		pingCancel()
	} else {
		log.Println("[NAS] Warning: NAS_HOST not set, file moves will fail")
	}

	// Initialize services
	mover := services.NewFileMover(nasClient, drives, services.RetryPolicy{
		MaxRetries: uint64(cfg.NAS.MoveRetries),
		Backoff:    cfg.MoveBackoff(),
	})
	jobService := services.NewJobService(orderRepo, employeeRepo, mover, auth.HasPermission, timeutil.SystemClock{})
	jobService.SetEventRepo(jobEventRepo)

	// Initialize handlers and middleware
	jwtManager := auth.NewJWTManager(cfg)
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)
	jobHandler := handlers.NewJobHandler(jobService)
	healthHandler := handlers.NewHealthHandler(health.NewHealthChecker(pool, redisHealth))

	router := httpserver.NewRouter(jobHandler, healthHandler, authMiddleware)
	corsMiddleware := middleware.NewCORS(cfg)

	// Wrap with panic recovery, request logging and CORS
	handler := middleware.PanicRecovery(middleware.RequestLogging(corsMiddleware(router)))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server running on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server stopped")
}
