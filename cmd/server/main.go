package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bobotcho/concierge-server-go/internal/ai"
	"github.com/bobotcho/concierge-server-go/internal/config"
	"github.com/bobotcho/concierge-server-go/internal/database"
	"github.com/bobotcho/concierge-server-go/internal/handler"
	"github.com/bobotcho/concierge-server-go/internal/jobs"
	"github.com/bobotcho/concierge-server-go/internal/middleware"
	"github.com/bobotcho/concierge-server-go/internal/observability/metrics"
	"github.com/bobotcho/concierge-server-go/internal/redis"
	"github.com/bobotcho/concierge-server-go/internal/repository"
	"github.com/bobotcho/concierge-server-go/internal/service"
	"github.com/bobotcho/concierge-server-go/internal/sse"
	"github.com/bobotcho/concierge-server-go/internal/twilio"
)

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	isProduction := os.Getenv("FLY_APP_NAME") != "" || os.Getenv("ENV") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	setLogLevel(cfg.LogLevel)

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	shopRepo := repository.NewShopRepository(db.DB)
	convRepo := repository.NewConversationRepository(db.DB)
	msgRepo := repository.NewMessageRepository(db.DB)
	aiLogRepo := repository.NewAILogRepository(db.DB)
	campaignRepo := repository.NewCampaignRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	var sender twilio.Sender
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioWhatsAppFrom != "" {
		sender = twilio.NewClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom)
	} else {
		log.Warn().Msg("twilio credentials incomplete, outbound sends disabled")
	}

	var backend *ai.BackendClient
	if cfg.BackendURL != "" {
		backend = ai.NewBackendClient(cfg.BackendURL, cfg.BackendAPIKey, nil)
	}
	var workflow *ai.WorkflowClient
	if cfg.WorkflowURL != "" {
		workflow = ai.NewWorkflowClient(cfg.WorkflowURL, cfg.WorkflowToken, nil)
	}
	dispatcher := ai.NewDispatcher(backend, workflow, cfg.AITimeout())

	webhookMetrics := metrics.NewWebhookMetrics(nil)

	convService := service.NewConversationService(convRepo)
	msgService := service.NewMessageService(msgRepo)
	aiLogService := service.NewAILogService(aiLogRepo)
	campaignService := service.NewCampaignService(campaignRepo, convService, sender)

	twilioSignatureMiddleware := middleware.NewTwilioSignatureMiddleware(cfg.TwilioAuthToken, cfg.PublicBaseURL)
	dashboardAuthMiddleware := middleware.NewDashboardAuthMiddleware(cfg.DashboardTokenHash)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, config.DefaultRateLimitPerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	webhookHandler := handler.NewWebhookHandler(
		shopRepo, convService, msgService, aiLogService, dispatcher, broker, webhookMetrics,
	)
	conversationsHandler := handler.NewConversationsHandler(shopRepo, convService, msgService)
	messagesHandler := handler.NewMessagesHandler(convService, msgService, sender, broker, webhookMetrics)
	analyticsHandler := handler.NewAnalyticsHandler(shopRepo, convRepo, msgRepo, aiLogService)
	aiLogsHandler := handler.NewAILogsHandler(shopRepo, aiLogService)
	campaignsHandler := handler.NewCampaignsHandler(shopRepo, campaignService)
	eventsHandler := handler.NewEventsHandler(shopRepo, broker)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(bodyLimitMiddleware.Handler)

	// The event stream holds its connection open indefinitely, so the
	// request timeout applies per route group rather than globally.
	requestTimeout := chimiddleware.Timeout(config.ServerRequestTimeout)

	r.With(requestTimeout).Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.With(requestTimeout).Handle("/metrics", promhttp.Handler())

	// Signature verification is bound to the POST route so that other
	// methods get chi's 405 instead of a 401 from the middleware.
	r.With(requestTimeout, twilioSignatureMiddleware.Handler).
		Post("/webhooks/twilio", webhookHandler.Inbound)

	r.Route("/api", func(r chi.Router) {
		r.Use(dashboardAuthMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)

		r.Group(func(r chi.Router) {
			r.Use(requestTimeout)

			r.Get("/conversations", conversationsHandler.List)
			r.Get("/conversations/{id}/messages", conversationsHandler.Messages)
			r.Post("/conversations/{id}/close", conversationsHandler.Close)

			r.Post("/messages/send", messagesHandler.Send)

			r.Get("/analytics/summary", analyticsHandler.Summary)
			r.Get("/ai-logs", aiLogsHandler.List)

			r.Get("/campaigns", campaignsHandler.List)
			r.Post("/campaigns", campaignsHandler.Create)
			r.Get("/campaigns/{id}", campaignsHandler.Get)
			r.Post("/campaigns/{id}/send", campaignsHandler.Send)
		})

		// Long-lived stream, deliberately outside the request timeout.
		r.Get("/events", eventsHandler.ServeHTTP)
	})

	retentionJob := jobs.NewRetentionJob(
		convRepo, aiLogRepo,
		cfg.ConversationIdleWindow(), cfg.AILogRetention(),
		config.RetentionJobInterval,
	)
	retentionJob.Start()
	defer retentionJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
