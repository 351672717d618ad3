package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DuplicatePolicy определяет, может ли пользователь подать несколько заявок на один турнир.
type DuplicatePolicy string

const (
	DuplicateAllow               DuplicatePolicy = "allow"
	DuplicateAllowAfterRejection DuplicatePolicy = "allow_after_rejection"
	DuplicateDeny                DuplicatePolicy = "deny"
)

// CounterMode определяет поведение счетчика зарегистрированных участников.
type CounterMode string

const (
	// CounterMonotonic counts every application ever made.
	CounterMonotonic CounterMode = "monotonic"
	// CounterActive tracks pending + approved registrations.
	CounterActive CounterMode = "active"
)

// R2Config holds the Cloudflare R2 (S3 compatible) credentials used for exports.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
}

// Enabled reports whether every R2 field is set.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" &&
		c.BucketName != "" && c.PublicBaseURL != ""
}

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL        string
	JWTSecretKey       string
	ServerPort         int
	LogLevel           slog.Level
	Location           *time.Location
	DuplicatePolicy    DuplicatePolicy
	CounterMode        CounterMode
	QueryBatchSize     int
	ActivityFeedLimit  int
	StatusSyncInterval time.Duration
	CORSAllowedOrigins []string
	R2                 R2Config
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv(os.Getenv)
}

func fromEnv(getenv func(string) string) (*Config, error) {
	dbURL := getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intOrDefault(getenv, "SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	var level slog.Level
	if raw := getenv("LOG_LEVEL"); raw != "" {
		if err := level.UnmarshalText([]byte(raw)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL environment variable: %w", err)
		}
	}

	loc := time.Local
	if tz := getenv("TIMEZONE"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE environment variable: %w", err)
		}
	}

	policy := DuplicatePolicy(strings.ToLower(getenv("DUPLICATE_REGISTRATION_POLICY")))
	switch policy {
	case "":
		policy = DuplicateAllow
	case DuplicateAllow, DuplicateAllowAfterRejection, DuplicateDeny:
	default:
		return nil, fmt.Errorf("unknown DUPLICATE_REGISTRATION_POLICY %q", policy)
	}

	mode := CounterMode(strings.ToLower(getenv("REGISTRATION_COUNTER_MODE")))
	switch mode {
	case "":
		mode = CounterMonotonic
	case CounterMonotonic, CounterActive:
	default:
		return nil, fmt.Errorf("unknown REGISTRATION_COUNTER_MODE %q", mode)
	}

	batchSize, err := intOrDefault(getenv, "QUERY_BATCH_SIZE", 10)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("QUERY_BATCH_SIZE must be positive, got %d", batchSize)
	}

	feedLimit, err := intOrDefault(getenv, "ACTIVITY_FEED_LIMIT", 10)
	if err != nil {
		return nil, err
	}
	if feedLimit <= 0 {
		return nil, fmt.Errorf("ACTIVITY_FEED_LIMIT must be positive, got %d", feedLimit)
	}

	var syncInterval time.Duration
	if raw := getenv("STATUS_SYNC_INTERVAL"); raw != "" {
		syncInterval, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid STATUS_SYNC_INTERVAL environment variable: %w", err)
		}
		if syncInterval < 0 {
			return nil, fmt.Errorf("STATUS_SYNC_INTERVAL must not be negative, got %s", syncInterval)
		}
	}

	origins := []string{"*"}
	if raw := getenv("CORS_ALLOWED_ORIGINS"); raw != "" {
		origins = origins[:0]
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	cfg := &Config{
		DatabaseURL:        dbURL,
		JWTSecretKey:       jwtKey,
		ServerPort:         port,
		LogLevel:           level,
		Location:           loc,
		DuplicatePolicy:    policy,
		CounterMode:        mode,
		QueryBatchSize:     batchSize,
		ActivityFeedLimit:  feedLimit,
		StatusSyncInterval: syncInterval,
		CORSAllowedOrigins: origins,
		R2: R2Config{
			AccountID:       getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   getenv("R2_PUBLIC_BASE_URL"),
		},
	}

	return cfg, nil
}

func intOrDefault(getenv func(string) string, key string, def int) (int, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}
