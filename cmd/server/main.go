package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shivam222343/aura/internal/assistant"
	"github.com/shivam222343/aura/internal/config"
	"github.com/shivam222343/aura/internal/database"
	"github.com/shivam222343/aura/internal/logging"
	"github.com/shivam222343/aura/internal/metrics"
	"github.com/shivam222343/aura/internal/push"
	postgresrepo "github.com/shivam222343/aura/internal/repository/postgres"
	"github.com/shivam222343/aura/internal/service"
	"github.com/shivam222343/aura/internal/tasks"
	"github.com/shivam222343/aura/internal/transport/http/handlers"
	"github.com/shivam222343/aura/internal/transport/http/middleware"
	"github.com/shivam222343/aura/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env)
	if err != nil {
		stdlog.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// Database
	pool, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Repositories
	userRepo := postgresrepo.NewUserRepo(pool)
	messageRepo := postgresrepo.NewMessageRepo(pool)
	clubRepo := postgresrepo.NewClubRepo(pool)
	notificationRepo := postgresrepo.NewNotificationRepo(pool)

	// The assistant account mentions resolve to
	assistantUser, err := userRepo.EnsureAssistant(context.Background(), "aura", "Aura AI")
	if err != nil {
		logger.Fatal("seeding assistant user failed", zap.Error(err))
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	// Real-time hub
	hub := ws.NewHub(logger, m, userRepo)
	go hub.Run()

	// Background tasks
	dispatcher := tasks.New(logger, m, cfg.TaskWorkers, cfg.TaskQueueSize)

	// Outbound clients
	pushClient := push.NewClient(cfg.PushURL, cfg.PushTimeout)
	assistantClient := assistant.NewClient(cfg.AssistantBaseURL, cfg.AssistantAPIKey, cfg.AssistantModel, cfg.AssistantTimeout)

	// Services
	notificationService := service.NewNotificationService(notificationRepo, userRepo, clubRepo, pushClient, dispatcher, m, logger)
	assistantService := service.NewAssistantService(messageRepo, clubRepo, assistantClient, notificationService, assistantUser, m, logger)
	messageService := service.NewMessageService(messageRepo, userRepo, notificationService, assistantService, dispatcher, m, logger)
	clubService := service.NewClubService(clubRepo, notificationService, assistantService, dispatcher, m, logger)
	userService := service.NewUserService(userRepo)

	notifier := ws.NewHubNotifier(hub)
	messageService.SetNotifier(notifier)
	clubService.SetNotifier(notifier)
	notificationService.SetNotifier(notifier)
	assistantService.SetNotifier(notifier)

	// Handlers
	messageHandler := handlers.NewMessageHandler(messageService, logger)
	clubHandler := handlers.NewClubHandler(clubService, logger)
	notificationHandler := handlers.NewNotificationHandler(notificationService, logger)
	deviceHandler := handlers.NewDeviceHandler(userService, logger)

	auth := middleware.Auth(cfg.JWTSecret)

	// Routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	// Direct messages
	mux.Handle("POST /api/v1/messages", auth(http.HandlerFunc(messageHandler.Send)))
	mux.Handle("GET /api/v1/messages/{userID}", auth(http.HandlerFunc(messageHandler.ListConversation)))
	mux.Handle("POST /api/v1/messages/{userID}/read", auth(http.HandlerFunc(messageHandler.MarkRead)))
	mux.Handle("POST /api/v1/messages/{id}/reactions", auth(http.HandlerFunc(messageHandler.React)))
	mux.Handle("DELETE /api/v1/messages/{id}", auth(http.HandlerFunc(messageHandler.Delete)))
	mux.Handle("GET /api/v1/conversations", auth(http.HandlerFunc(messageHandler.ListConversations)))

	// Club messages
	mux.Handle("POST /api/v1/clubs/{id}/messages", auth(http.HandlerFunc(clubHandler.Send)))
	mux.Handle("GET /api/v1/clubs/{id}/messages", auth(http.HandlerFunc(clubHandler.List)))
	mux.Handle("POST /api/v1/clubs/{id}/read", auth(http.HandlerFunc(clubHandler.MarkRead)))
	mux.Handle("GET /api/v1/clubs/{id}/unread", auth(http.HandlerFunc(clubHandler.Unread)))
	mux.Handle("POST /api/v1/clubs/messages/{id}/reactions", auth(http.HandlerFunc(clubHandler.React)))
	mux.Handle("DELETE /api/v1/clubs/messages/{id}", auth(http.HandlerFunc(clubHandler.Delete)))

	// Notifications
	mux.Handle("GET /api/v1/notifications", auth(http.HandlerFunc(notificationHandler.List)))
	mux.Handle("POST /api/v1/notifications/read", auth(http.HandlerFunc(notificationHandler.MarkAllRead)))
	mux.Handle("POST /api/v1/notifications/{id}/read", auth(http.HandlerFunc(notificationHandler.MarkRead)))
	mux.Handle("DELETE /api/v1/notifications", auth(http.HandlerFunc(notificationHandler.DeleteAll)))
	mux.Handle("DELETE /api/v1/notifications/{id}", auth(http.HandlerFunc(notificationHandler.Delete)))

	// Devices
	mux.Handle("PUT /api/v1/users/me/push-token", auth(http.HandlerFunc(deviceHandler.RegisterPushToken)))
	mux.Handle("DELETE /api/v1/users/me/push-token", auth(http.HandlerFunc(deviceHandler.ClearPushToken)))

	// Admin
	announceLimit := middleware.RateLimit(rate.Every(time.Second), 5)
	mux.Handle("POST /api/v1/admin/notifications", auth(announceLimit(http.HandlerFunc(notificationHandler.Announce))))

	// The WebSocket endpoint bypasses the logging wrapper so the
	// upgrade can hijack the connection.
	root := http.NewServeMux()
	root.Handle("GET /ws", ws.ServeWS(hub, cfg.JWTSecret))
	root.Handle("/", middleware.CORS(middleware.Logging(logger)(mux)))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: root,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Close live connections, then drain queued tasks.
	hub.Stop()
	dispatcher.Stop()

	logger.Info("stopped")
}
