package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tahmid-hossain/clinicflow/libs/config"
	"github.com/tahmid-hossain/clinicflow/libs/db"
	"github.com/tahmid-hossain/clinicflow/libs/httpx"
	"github.com/tahmid-hossain/clinicflow/libs/kafkax"
	otelx "github.com/tahmid-hossain/clinicflow/libs/otel"
	"github.com/tahmid-hossain/clinicflow/libs/runtime"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/consumer"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/handlers"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/inbox"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/outbox"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	service := config.String("SERVICE_NAME", "queue-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(config.Int("DB_MAX_CONNS", 10))})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	queueRepo := storage.NewQueueRepository(pool)
	settingsRepo := storage.NewSettingsRepository(pool)
	subsRepo := storage.NewSubscriptionRepository(pool)
	apptRepo := storage.NewAppointmentRepository(pool)
	outboxRepo := outbox.NewRepository(pool)

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	inboxRepo := inbox.NewRepository(pool)
	subscriptionHandler := consumer.SubscriptionEvents(pool, subsRepo, logger)
	startConsumer := func(topic string) {
		if topic == "" {
			return
		}
		eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: config.String("KAFKA_BROKERS", ""),
			GroupID: config.String("KAFKA_GROUP_ID", "queue-service"),
			Topic:   topic,
		}, subscriptionHandler)
		go eventConsumer.Run(ctx)
	}
	startConsumer(config.String("KAFKA_TOPIC_SUBSCRIPTION_ACTIVATED", "billing.subscription.activated.v1"))
	startConsumer(config.String("KAFKA_TOPIC_SUBSCRIPTION_CANCELED", "billing.subscription.canceled.v1"))

	checkInHandler := handlers.NewCheckInHandler(queueRepo, settingsRepo, subsRepo, apptRepo, outboxRepo, logger)
	queueHandler := handlers.NewQueueHandler(queueRepo, settingsRepo, outboxRepo, logger)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo, logger)
	featuresHandler := handlers.NewFeaturesHandler(subsRepo)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)

	// Kiosk check-in is the only unauthenticated write path, so it gets its
	// own rate limit. Redis makes the limit shared across replicas; without
	// Redis each replica falls back to a local window.
	checkIn := http.Handler(http.HandlerFunc(checkInHandler.CheckIn))
	limit := config.Int("CHECKIN_RATE_LIMIT", 30)
	window := time.Duration(config.Int("CHECKIN_RATE_WINDOW_SECONDS", 60)) * time.Second
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		limiter := httpx.NewRedisRateLimiter(rdb, limit, window, "queue:checkin")
		checkIn = httpx.Chain(checkIn, limiter.Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)))
	} else {
		checkIn = httpx.Chain(checkIn, httpx.NewRateLimiter(limit, window).Middleware())
	}

	mux.Handle("/api/v1/checkin", checkIn)
	mux.HandleFunc("/api/v1/queue", queueHandler.List)
	mux.HandleFunc("/api/v1/queue/call-next", queueHandler.CallNext)
	mux.HandleFunc("/api/v1/queue/complete", queueHandler.Complete)
	mux.HandleFunc("/api/v1/queue/no-show", queueHandler.NoShow)
	mux.HandleFunc("/api/v1/queue/cancel", queueHandler.Cancel)
	mux.HandleFunc("/api/v1/settings", settingsHandler.Handle)
	mux.HandleFunc("/api/v1/features", featuresHandler.Get)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "queue")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
