package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/xavierca1/lead-webhooks/internal/config"
	"github.com/xavierca1/lead-webhooks/internal/infra/database"
	"github.com/xavierca1/lead-webhooks/internal/infra/http/handlers"
	"github.com/xavierca1/lead-webhooks/internal/infra/http/middleware"
	"github.com/xavierca1/lead-webhooks/internal/infra/mail"
	"github.com/xavierca1/lead-webhooks/internal/infra/queue"
	"github.com/xavierca1/lead-webhooks/internal/usecase"
	"github.com/xavierca1/lead-webhooks/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		errLogger := zerolog.New(os.Stderr)
		errLogger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := newLogger(cfg.Env)

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	// 1. Repository
	leadRepo := database.NewLeadRepository(db, cfg.DBTimeout)

	// 2. Queue + mail worker. Optional: webhooks keep flowing without alerts.
	var producer usecase.QueueProducerInterface
	var rabbitConn *amqp.Connection
	if cfg.RabbitURL != "" {
		rabbitMQ, err := queue.NewRabbitMQ(cfg.RabbitURL)
		if err != nil {
			logger.Warn().Err(err).Msg("RabbitMQ unavailable, alert notifications disabled")
		} else {
			defer rabbitMQ.Conn.Close()
			defer rabbitMQ.Ch.Close()

			producer = queue.NewProducer(rabbitMQ.Conn, rabbitMQ.Ch)
			rabbitConn = rabbitMQ.Conn

			mailSender := mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom)
			worker := queue.NewWorker(rabbitMQ.Ch, mailSender, cfg.AlertEmail, logger)
			go worker.Start(queue.QueueName)
		}
	}

	// 3. UseCase
	processUC := usecase.NewProcessWebhookEventUseCase(
		leadRepo,
		producer,
		webhook.Options{LegacyCounters: cfg.LegacyCounters},
		logger,
	)

	// 4. Handlers
	webhookHandler := handlers.NewWebhookHandler(processUC, cfg.MailgunAPIKey, logger)
	leadHandler := handlers.NewLeadHandler(leadRepo)
	healthHandler := handlers.NewHealthHandler(db, rabbitConn)

	// 5. Router
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
	}))
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Get("/api", handlers.Index)
	r.Get("/api/v1", handlers.Index)
	r.Get("/api/v1/index", handlers.Index)

	r.Post("/api/v1/wh/mg/lead/email/delivered", webhookHandler.Handle(webhook.KindDelivered))
	r.Post("/api/v1/wh/mg/lead/email/dropped", webhookHandler.Handle(webhook.KindDropped))
	r.Post("/api/v1/wh/mg/lead/email/bounced", webhookHandler.Handle(webhook.KindBounced))
	r.Post("/api/v1/wh/mg/lead/email/spam/complaint", webhookHandler.Handle(webhook.KindSpamComplaint))
	r.Post("/api/v1/wh/mg/lead/email/unsubscribe", webhookHandler.Handle(webhook.KindUnsubscribe))
	r.Post("/api/v1/wh/mg/lead/email/click", webhookHandler.Handle(webhook.KindClick))
	r.Post("/api/v1/wh/mg/lead/email/open", webhookHandler.Handle(webhook.KindOpen))

	r.Post("/api/v1/lead", leadHandler.CaptureLead)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("🔥 lead webhook server running")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown failed")
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
