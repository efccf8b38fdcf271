package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/riskdesk-demo/cmd/mainconfig"
	"github.com/wolfman30/riskdesk-demo/internal/api/router"
	"github.com/wolfman30/riskdesk-demo/internal/app/bootstrap"
	"github.com/wolfman30/riskdesk-demo/internal/calendar"
	appconfig "github.com/wolfman30/riskdesk-demo/internal/config"
	"github.com/wolfman30/riskdesk-demo/internal/demo"
	"github.com/wolfman30/riskdesk-demo/internal/intake"
	"github.com/wolfman30/riskdesk-demo/internal/notify"
	"github.com/wolfman30/riskdesk-demo/internal/observability/metrics"
	"github.com/wolfman30/riskdesk-demo/internal/submissions"
	"github.com/wolfman30/riskdesk-demo/pkg/logging"
)

func main() {
	// Local development reads a .env file; deployed environments set variables directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting riskdesk demo API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"store", cfg.StoreBackend,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	app, err := build(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.cleanup()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.EmailTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

type application struct {
	handler http.Handler
	cleanup func()
}

// build wires every dependency from cfg. AWS is only initialized when the
// store or the email provider needs it.
func build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*application, error) {
	var (
		s3Client  submissions.S3API
		sesClient notify.SESAPI
	)
	if needsAWS(cfg) {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		if cfg.StoreBackend == appconfig.StoreS3 {
			s3Client = mainconfig.NewS3Client(awsCfg, cfg)
		}
		if cfg.ResolvedEmailProvider() == appconfig.EmailSES {
			sesClient = sesv2.NewFromConfig(awsCfg)
		}
	}

	store, closeStore, err := bootstrap.BuildStore(ctx, cfg, s3Client, logger)
	if err != nil {
		return nil, err
	}

	metricsHandler, intakeMetrics := setupMetrics()

	sender := bootstrap.BuildEmailSender(cfg, sesClient, logger)
	dispatcher := notify.NewDispatcher(sender, notify.DispatcherConfig{
		ProductName:      cfg.ProductName,
		FollowUpWindowFR: cfg.FollowUpWindowFR,
		FollowUpWindowEN: cfg.FollowUpWindowEN,
		Timeout:          cfg.EmailTimeout,
	}, logger)

	service := intake.NewService(intake.Config{
		ProductName: cfg.ProductName,
		Organizer:   calendar.Person{Name: cfg.OrganizerName, Email: cfg.OrganizerEmail},
		Duration:    cfg.DemoDuration,
		FollowUpWindow: map[demo.Language]string{
			demo.LanguageFrench:  cfg.FollowUpWindowFR,
			demo.LanguageEnglish: cfg.FollowUpWindowEN,
		},
		StoreBackend: cfg.StoreBackend,
	}, dispatcher, store, logger, intake.WithMetrics(intakeMetrics))

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	limiter := bootstrap.BuildRateLimiter(ctx, cfg, redisClient, logger)

	handler := router.New(&router.Config{
		Logger:             logger,
		IntakeHandler:      intake.NewHandler(service, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
		RateLimiter:        limiter,
		OnRateLimited:      intakeMetrics.ObserveRateLimited,
	})

	return &application{
		handler: handler,
		cleanup: func() {
			closeStore()
			if redisClient != nil {
				_ = redisClient.Close()
			}
		},
	}, nil
}

func needsAWS(cfg *appconfig.Config) bool {
	return cfg.StoreBackend == appconfig.StoreS3 || cfg.ResolvedEmailProvider() == appconfig.EmailSES
}

// setupMetrics registers pipeline and runtime collectors on a private registry.
func setupMetrics() (http.Handler, *metrics.IntakeMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewIntakeMetrics(reg)
}
