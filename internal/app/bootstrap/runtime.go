package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/riskdesk-demo/internal/config"
	httpmiddleware "github.com/wolfman30/riskdesk-demo/internal/http/middleware"
	"github.com/wolfman30/riskdesk-demo/internal/notify"
	"github.com/wolfman30/riskdesk-demo/internal/submissions"
	"github.com/wolfman30/riskdesk-demo/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildRateLimiter shares limits through Redis when a client is given and
// falls back to a per-process token bucket otherwise.
func BuildRateLimiter(ctx context.Context, cfg *appconfig.Config, client *redis.Client, logger *logging.Logger) httpmiddleware.Limiter {
	if cfg.RateLimitPerMinute <= 0 {
		logger.Warn("rate limiting disabled")
		return nil
	}
	if client != nil {
		logger.Info("rate limiter ready", "backend", "redis", "per_minute", cfg.RateLimitPerMinute)
		return httpmiddleware.NewRedisLimiter(client, cfg.RateLimitPerMinute, time.Minute)
	}
	logger.Info("rate limiter ready", "backend", "memory", "per_minute", cfg.RateLimitPerMinute, "burst", cfg.RateLimitBurst)
	return httpmiddleware.NewMemoryLimiter(ctx, cfg.RateLimitPerMinute, cfg.RateLimitBurst)
}

// BuildStore opens the configured submission store. The returned cleanup
// releases any connection it holds. s3Client is only used by the s3 backend.
func BuildStore(ctx context.Context, cfg *appconfig.Config, s3Client submissions.S3API, logger *logging.Logger) (submissions.Store, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case appconfig.StoreFile:
		store := submissions.NewFileStore(cfg.StoreFilePath, logger)
		logger.Info("submission store ready", "backend", "file", "path", store.Path())
		return store, noop, nil

	case appconfig.StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: open postgres: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("bootstrap: ping postgres: %w", err)
		}
		logger.Info("submission store ready", "backend", "postgres")
		return submissions.NewPostgresStore(pool, logger), pool.Close, nil

	case appconfig.StoreS3:
		if s3Client == nil {
			return nil, noop, fmt.Errorf("bootstrap: s3 store needs an s3 client")
		}
		logger.Info("submission store ready", "backend", "s3", "bucket", cfg.StoreS3Bucket, "key", cfg.StoreS3Key)
		return submissions.NewS3Store(s3Client, cfg.StoreS3Bucket, cfg.StoreS3Key, logger), noop, nil

	default:
		return nil, noop, fmt.Errorf("bootstrap: unknown store backend %q", cfg.StoreBackend)
	}
}

// BuildEmailSender picks the confirmation email transport. sesClient is only
// used when SES is selected.
func BuildEmailSender(cfg *appconfig.Config, sesClient notify.SESAPI, logger *logging.Logger) notify.EmailSender {
	provider := cfg.ResolvedEmailProvider()
	switch provider {
	case appconfig.EmailSendGrid:
		if sender := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger); sender != nil {
			logger.Info("email sender ready", "provider", provider)
			return sender
		}
	case appconfig.EmailSES:
		if sender := notify.NewSESSender(sesClient, notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		}, logger); sender != nil {
			logger.Info("email sender ready", "provider", provider)
			return sender
		}
	}
	logger.Warn("email sender not configured, confirmations are logged only", "provider", provider)
	return notify.NewStubEmailSender(logger)
}
