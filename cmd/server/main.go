package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quickblog/internal/config"
	"github.com/quickblog/internal/db"
	"github.com/quickblog/internal/handler"
	"github.com/quickblog/internal/metrics"
	"github.com/quickblog/internal/router"
	"github.com/quickblog/internal/service"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	// 初始化数据库
	if err := db.Init(cfg.DatabaseDriver, cfg.DatabaseDSN); err != nil {
		logger.Fatal("Failed to initialize database", zap.String("driver", cfg.DatabaseDriver), zap.Error(err))
	}
	created, err := db.EnsureUser(db.DB, cfg.AdminUserName, cfg.AdminPassword)
	if err != nil {
		logger.Fatal("Failed to ensure admin user", zap.Error(err))
	}
	if created {
		logger.Info("Admin user created", zap.String("username", cfg.AdminUserName))
	}

	m := metrics.New(logger)

	images, err := newImageStore(context.Background(), cfg)
	if err != nil {
		logger.Fatal("Failed to initialize image store", zap.String("provider", cfg.Image.Provider), zap.Error(err))
	}

	blogs := service.NewBlogService(db.DB, images)
	blogs.SetLogger(logger)
	blogs.SetRecorder(m)

	cache, closeCache, err := newPublishedCache(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize cache", zap.String("backend", cfg.Cache.Backend), zap.Error(err))
	}
	defer closeCache()
	blogs.SetCache(cache)

	comments := service.NewCommentService(db.DB)
	comments.SetLogger(logger)

	content, err := service.NewAIContentService(service.AIContentConfig{
		Provider: cfg.AI.Provider,
		APIKey:   cfg.AI.APIKey,
		BaseURL:  cfg.AI.BaseURL,
		Model:    cfg.AI.Model,
		Timeout:  cfg.UpstreamTimeout,
		Logger:   logger,
		Recorder: m,
	})
	if err != nil {
		logger.Fatal("Failed to initialize content generator", zap.String("provider", cfg.AI.Provider), zap.Error(err))
	}

	auth := service.NewAuthService(db.DB, service.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL))

	sweeper, err := service.NewOrphanSweeper(cfg.OrphanSweepSchedule, comments, logger)
	if err != nil {
		logger.Fatal("Failed to schedule orphan sweep", zap.Error(err))
	}
	sweeper.OnSwept(m.AddOrphansRemoved)
	sweeper.Start()

	api := handler.NewAPI(handler.Dependencies{
		Blogs:          blogs,
		Comments:       comments,
		Dashboard:      service.NewDashboardService(db.DB),
		Content:        content,
		Auth:           auth,
		Logger:         logger,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	opts := router.Options{
		Logger:             logger,
		Metrics:            m,
		MaxMultipartMemory: cfg.MaxUploadBytes,
	}
	if cfg.Image.Provider == config.ImageProviderLocal {
		opts.UploadDir = cfg.Image.UploadDir
		opts.UploadURLPath = cfg.Image.UploadURLPath
	}
	r := router.SetupRouter(api, opts)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started",
			zap.String("address", srv.Addr),
			zap.String("image_provider", cfg.Image.Provider),
			zap.String("cache_backend", cfg.Cache.Backend),
			zap.String("ai_provider", cfg.AI.Provider),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	sweeper.Stop(ctx)

	logger.Info("Server exited gracefully")
}

func newImageStore(ctx context.Context, cfg config.AppConfig) (service.ImageStore, error) {
	switch cfg.Image.Provider {
	case config.ImageProviderS3:
		store, err := service.NewS3ImageStore(ctx, service.S3Options{
			Bucket:    cfg.Image.S3Bucket,
			Region:    cfg.Image.S3Region,
			Endpoint:  cfg.Image.S3Endpoint,
			AccessKey: cfg.Image.S3AccessKey,
			SecretKey: cfg.Image.S3SecretKey,
			PublicURL: cfg.Image.S3PublicURL,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.ImageProviderImageKit:
		return service.NewImageKitStore(
			cfg.Image.ImageKitPrivateKey,
			cfg.Image.ImageKitURLEndpoint,
			cfg.Image.ImageKitUploadURL,
			cfg.UpstreamTimeout,
		), nil
	default:
		return service.NewLocalImageStore(cfg.Image.UploadDir, cfg.Image.UploadURLPath), nil
	}
}

func newPublishedCache(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (service.PublishedCache, func(), error) {
	if cfg.Cache.Backend == config.CacheBackendRedis {
		cache, err := service.NewRedisPublishedCache(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL, logger)
		if err != nil {
			return nil, nil, err
		}
		return cache, func() {
			if err := cache.Close(); err != nil {
				logger.Warn("Failed to close redis cache", zap.Error(err))
			}
		}, nil
	}
	return service.NewMemoryPublishedCache(cfg.Cache.TTL), func() {}, nil
}

// initLogger initializes the zap logger with the specified level
func initLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      zapLevel == zapcore.DebugLevel,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapConfig.Build()
}
