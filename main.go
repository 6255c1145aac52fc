package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/order-ingestion-service/config"
	"github.com/yashrajoria/order-ingestion-service/controllers"
	"github.com/yashrajoria/order-ingestion-service/database"
	"github.com/yashrajoria/order-ingestion-service/kafka"
	"github.com/yashrajoria/order-ingestion-service/pkg/auth"
	awspkg "github.com/yashrajoria/order-ingestion-service/pkg/aws"
	"github.com/yashrajoria/order-ingestion-service/pkg/logger"
	"github.com/yashrajoria/order-ingestion-service/pkg/metrics"
	pkgmw "github.com/yashrajoria/order-ingestion-service/pkg/middleware"
	"github.com/yashrajoria/order-ingestion-service/repository"
	"github.com/yashrajoria/order-ingestion-service/routes"
	"github.com/yashrajoria/order-ingestion-service/services"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "order-ingestion-service"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("config load failed: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- AWS setup ---
	var awsCfg sdkaws.Config
	if cfg.NeedsAWS() {
		awsCfg, err = awspkg.LoadAWSConfig(ctx, nil)
		if err != nil {
			panic("failed to load AWS config: " + err.Error())
		}
	}

	// --- Logger ---
	var cwLogs *awspkg.CloudWatchLogsClient
	if cfg.CloudWatchLogGroup != "" {
		cwLogs, err = awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.CloudWatchLogGroup, serviceName)
		if err != nil {
			os.Stderr.WriteString("CloudWatch Logs disabled: " + err.Error() + "\n")
		} else {
			defer cwLogs.Close()
		}
	}
	var log *zap.Logger
	if cwLogs != nil {
		log, err = logger.Initialize(cfg.AppEnv, cwLogs)
	} else {
		log, err = logger.Initialize(cfg.AppEnv, nil)
	}
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Database ---
	db, err := database.ConnectPostgres(cfg.PostgresDSN(), log)
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}
	store := repository.NewGormStore(db)

	var cache repository.OrderCache
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, order cache disabled", zap.Error(err))
		} else {
			defer redisClient.Close()
			cache = repository.NewRedisOrderCache(redisClient, cfg.OrderCacheTTL)
		}
	}

	// --- Metrics ---
	prom := metrics.New("order_ingestion")
	var cwMetrics *awspkg.MetricsClient
	if cfg.CloudWatchMetrics {
		cwMetrics = awspkg.NewMetricsClient(awsCfg, "OrderIngestion", true)
	}

	// --- Ingestion ---
	gateway := services.NewStripeGateway(cfg.StripeAPIKey, cfg.StripeWebhookSecret)
	opts := []services.IngestionOption{
		services.WithMetrics(prom, cwMetrics),
		services.WithTimeout(cfg.IngestTimeout),
	}

	switch cfg.EventsBackend {
	case config.EventsBackendKafka:
		producer := kafka.NewOrderEventProducer(cfg.KafkaBrokers, cfg.OrderEventsTopic, log)
		defer producer.Close()
		opts = append(opts, services.WithEventPublisher(producer))
	case config.EventsBackendSNS:
		snsClient := awspkg.NewSNSClient(awsCfg)
		opts = append(opts, services.WithEventPublisher(services.NewSNSOrderEventPublisher(snsClient, cfg.OrderSNSTopicARN)))
	}
	if cfg.EventArchiveBucket != "" {
		opts = append(opts, services.WithArchiver(awspkg.NewPayloadArchiver(awsCfg, cfg.EventArchiveBucket)))
	}

	ingestion := services.NewIngestionService(store, gateway, log, opts...)
	eventHandler := services.NewCheckoutEventHandler(ingestion, log)
	orderService := services.NewOrderService(store, cache, log)

	// --- SQS checkout events (optional) ---
	consumerDone := make(chan struct{})
	if cfg.CheckoutQueueURL != "" {
		sqsConsumer := awspkg.NewSQSConsumer(awsCfg, cfg.CheckoutQueueURL, log)
		checkoutConsumer := services.NewSQSCheckoutConsumer(sqsConsumer, eventHandler, log).WithMetrics(cwMetrics)
		go func() {
			defer close(consumerDone)
			checkoutConsumer.Start(ctx)
		}()
	} else {
		close(consumerDone)
	}

	// --- HTTP router ---
	r := routes.NewRouter(routes.Dependencies{
		Webhooks:       controllers.NewWebhookController(gateway, eventHandler, log),
		Orders:         controllers.NewOrderController(orderService, log),
		Validator:      auth.NewTokenValidator(cfg.JWTSecret),
		AdminLimiter:   pkgmw.NewRateLimiter(rate.Limit(5), 10, 10*time.Minute),
		Metrics:        prom,
		MetricsClient:  cwMetrics,
		Logger:         log,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	// --- HTTP server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Order ingestion service started", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	<-ctx.Done()
	log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		log.Warn("checkout events consumer did not stop in time")
	}

	if err := database.Close(db); err != nil {
		log.Error("Database close error", zap.Error(err))
	}
	log.Info("Shutdown complete")
}
