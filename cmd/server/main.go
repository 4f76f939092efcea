package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"doubtabase/internal/auth"
	"doubtabase/internal/cache"
	"doubtabase/internal/config"
	"doubtabase/internal/email"
	"doubtabase/internal/handler"
	"doubtabase/internal/middleware"
	"doubtabase/internal/repository/postgres"
	"doubtabase/internal/service"
	"doubtabase/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier for Supabase authentication
	jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Create repositories
	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	doubtRepo := postgres.NewDoubtRepository(repoConfig)
	attachmentRepo := postgres.NewAttachmentRepository(repoConfig)
	commentRepo := postgres.NewCommentRepository(repoConfig)
	roomRepo := postgres.NewRoomRepository(repoConfig)
	inviteRepo := postgres.NewInviteRepository(repoConfig)
	ingestKeyRepo := postgres.NewIngestKeyRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Create attachment blob store
	blobStore, err := storage.NewMinioStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create blob store: %v", err)
	}

	// Signed-URL / suggestion cache is optional; a nil cache degrades to misses
	var urlCache *cache.Cache
	if cfg.RedisURL != "" {
		urlCache, err = cache.New(cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, caching disabled", "error", err)
			urlCache = nil
		} else {
			defer urlCache.Close()
			logger.Info("redis cache connected")
		}
	}

	// Outbound notification email and user lookups
	mailer := email.NewService(cfg.SMTP)
	adminClient := auth.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	if !mailer.IsConfigured() {
		logger.Info("smtp not configured, doubt notifications disabled")
	}

	// Create services
	roomService := service.NewRoomService(roomRepo, inviteRepo, txManager, logger)
	doubtService := service.NewDoubtService(
		doubtRepo,
		attachmentRepo,
		commentRepo,
		roomService,
		blobStore,
		urlCache,
		mailer,
		adminClient,
		cfg.AppBaseURL,
		logger,
	)
	ingestService := service.NewIngestService(doubtRepo, attachmentRepo, ingestKeyRepo, roomService, blobStore, logger)
	exportService := service.NewExportService(doubtRepo, attachmentRepo, roomService, blobStore, logger)

	// Create handlers
	doubtHandler := handler.NewDoubtHandler(doubtService, logger)
	ingestHandler := handler.NewIngestHandler(ingestService, jwtVerifier, logger)
	exportHandler := handler.NewExportHandler(exportService, logger)
	roomHandler := handler.NewRoomHandler(roomService, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", handler.Health)

	// Doubt routes
	mux.HandleFunc("GET /api/doubts", doubtHandler.List)
	mux.HandleFunc("POST /api/doubts", doubtHandler.Create)
	mux.HandleFunc("GET /api/doubts/meta", doubtHandler.Meta)      // Must come before {id} routes
	mux.HandleFunc("GET /api/doubts/export", exportHandler.Candidates)
	mux.HandleFunc("POST /api/doubts/export/pdf", exportHandler.BuildPDF)
	mux.HandleFunc("POST /api/doubts/ingest", ingestHandler.Ingest)
	mux.HandleFunc("GET /api/doubts/{id}", doubtHandler.Get)
	mux.HandleFunc("PATCH /api/doubts/{id}", doubtHandler.Update)
	mux.HandleFunc("DELETE /api/doubts/{id}", doubtHandler.Delete)
	mux.HandleFunc("PATCH /api/doubts/{id}/clear", doubtHandler.SetCleared)
	mux.HandleFunc("GET /api/doubts/{id}/comments", doubtHandler.ListComments)
	mux.HandleFunc("POST /api/doubts/{id}/comments", doubtHandler.AddComment)
	mux.HandleFunc("POST /api/doubts/{id}/attachments/presign", doubtHandler.PresignAttachment)

	// Attachment routes
	mux.HandleFunc("DELETE /api/attachments/{id}", doubtHandler.DeleteAttachment)

	// Room routes
	mux.HandleFunc("GET /api/rooms", roomHandler.List)
	mux.HandleFunc("POST /api/rooms", roomHandler.Create)
	mux.HandleFunc("POST /api/rooms/join", roomHandler.Join)
	mux.HandleFunc("GET /api/rooms/{roomId}/members", roomHandler.ListMembers)
	mux.HandleFunc("POST /api/rooms/{roomId}/invite/rotate", roomHandler.RotateInvite)

	// Ingest key routes
	mux.HandleFunc("POST /api/auth/ingest-key", ingestHandler.RotateKey)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	// The ingest route authenticates itself (JWT or X-API-Key), so it is exempt
	root = middleware.Auth(jwtVerifier, "/health", "/api/doubts/ingest")(root)
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // PDF generation can be slow on large rooms
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
