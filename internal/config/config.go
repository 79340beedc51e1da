package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr string
	Port       string
	GinMode    string
	LogLevel   string

	DatabaseDriver string
	DatabaseDSN    string

	JWTSecret     string
	JWTTTL        time.Duration
	AdminUserName string
	AdminPassword string

	Image ImageConfig
	AI    AIConfig
	Cache CacheConfig

	UpstreamTimeout     time.Duration
	OrphanSweepSchedule string
	MaxUploadBytes      int64
}

// ImageConfig selects and configures the image hosting backend.
type ImageConfig struct {
	Provider      string
	UploadDir     string
	UploadURLPath string

	ImageKitPrivateKey  string
	ImageKitURLEndpoint string
	ImageKitUploadURL   string

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
}

// AIConfig configures the text generation collaborator.
type AIConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
}

// CacheConfig configures the published blog list cache.
type CacheConfig struct {
	Backend  string
	RedisURL string
	TTL      time.Duration
}

const (
	ImageProviderLocal    = "local"
	ImageProviderS3       = "s3"
	ImageProviderImageKit = "imagekit"

	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Load 从 .env、可选配置文件与环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() (AppConfig, error) {
	// .env 只在本地开发时存在
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return AppConfig{}, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if file := strings.TrimSpace(os.Getenv("CONFIG_FILE")); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return AppConfig{}, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "quickblog.db")
	v.SetDefault("JWT_SECRET", "quickblog-dev-secret")
	v.SetDefault("JWT_TTL", "12h")
	v.SetDefault("IMAGE_PROVIDER", ImageProviderLocal)
	v.SetDefault("UPLOAD_DIR", "web/static/uploads")
	v.SetDefault("UPLOAD_URL_PATH", "/static/uploads")
	v.SetDefault("IMAGEKIT_UPLOAD_URL", "https://upload.imagekit.io/api/v1/files/upload")
	v.SetDefault("AI_PROVIDER", "gemini")
	v.SetDefault("UPSTREAM_TIMEOUT", "60s")
	v.SetDefault("CACHE_BACKEND", CacheBackendMemory)
	v.SetDefault("CACHE_TTL", "5m")
	v.SetDefault("ORPHAN_SWEEP_SCHEDULE", "@every 1h")
	v.SetDefault("MAX_UPLOAD_BYTES", int64(10<<20))
}

func fromViper(v *viper.Viper) (AppConfig, error) {
	get := func(key string) string {
		return strings.TrimSpace(v.GetString(key))
	}

	port := get("PORT")
	listenAddr := get("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	jwtTTL, err := parseDuration(get("JWT_TTL"), "JWT_TTL")
	if err != nil {
		return AppConfig{}, err
	}
	upstreamTimeout, err := parseDuration(get("UPSTREAM_TIMEOUT"), "UPSTREAM_TIMEOUT")
	if err != nil {
		return AppConfig{}, err
	}
	cacheTTL, err := parseDuration(get("CACHE_TTL"), "CACHE_TTL")
	if err != nil {
		return AppConfig{}, err
	}

	cfg := AppConfig{
		ListenAddr:     listenAddr,
		Port:           port,
		GinMode:        get("GIN_MODE"),
		LogLevel:       strings.ToLower(get("LOG_LEVEL")),
		DatabaseDriver: strings.ToLower(get("DATABASE_DRIVER")),
		DatabaseDSN:    get("DATABASE_DSN"),
		JWTSecret:      get("JWT_SECRET"),
		JWTTTL:         jwtTTL,
		AdminUserName:  get("ADMIN_USERNAME"),
		AdminPassword:  get("ADMIN_PASSWORD"),
		Image: ImageConfig{
			Provider:            strings.ToLower(get("IMAGE_PROVIDER")),
			UploadDir:           get("UPLOAD_DIR"),
			UploadURLPath:       get("UPLOAD_URL_PATH"),
			ImageKitPrivateKey:  get("IMAGEKIT_PRIVATE_KEY"),
			ImageKitURLEndpoint: strings.TrimRight(get("IMAGEKIT_URL_ENDPOINT"), "/"),
			ImageKitUploadURL:   get("IMAGEKIT_UPLOAD_URL"),
			S3Bucket:            get("S3_BUCKET"),
			S3Region:            get("S3_REGION"),
			S3Endpoint:          get("S3_ENDPOINT"),
			S3AccessKey:         get("S3_ACCESS_KEY"),
			S3SecretKey:         get("S3_SECRET_KEY"),
			S3PublicURL:         strings.TrimRight(get("S3_PUBLIC_URL"), "/"),
		},
		AI: AIConfig{
			Provider: strings.ToLower(get("AI_PROVIDER")),
			APIKey:   get("AI_API_KEY"),
			BaseURL:  get("AI_BASE_URL"),
			Model:    get("AI_MODEL"),
		},
		Cache: CacheConfig{
			Backend:  strings.ToLower(get("CACHE_BACKEND")),
			RedisURL: get("REDIS_URL"),
			TTL:      cacheTTL,
		},
		UpstreamTimeout:     upstreamTimeout,
		OrphanSweepSchedule: get("ORPHAN_SWEEP_SCHEDULE"),
		MaxUploadBytes:      v.GetInt64("MAX_UPLOAD_BYTES"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

func (c AppConfig) validate() error {
	switch c.Image.Provider {
	case ImageProviderLocal:
	case ImageProviderS3:
		if c.Image.S3Bucket == "" || c.Image.S3Region == "" {
			return errors.New("S3_BUCKET and S3_REGION are required for the s3 image provider")
		}
	case ImageProviderImageKit:
		if c.Image.ImageKitPrivateKey == "" || c.Image.ImageKitURLEndpoint == "" {
			return errors.New("IMAGEKIT_PRIVATE_KEY and IMAGEKIT_URL_ENDPOINT are required for the imagekit image provider")
		}
	default:
		return fmt.Errorf("unsupported IMAGE_PROVIDER %q", c.Image.Provider)
	}

	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.Cache.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND %q", c.Cache.Backend)
	}

	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

func parseDuration(raw, key string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
