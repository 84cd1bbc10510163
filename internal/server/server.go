// Package server contains the HTTP and WebSocket gateway for the portal.
package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"unihub/internal/auth"
	"unihub/internal/cache"
	"unihub/internal/config"
	"unihub/internal/database"
	"unihub/internal/email"
	"unihub/internal/localstate"
	"unihub/internal/middleware"
	"unihub/internal/notifications"
	"unihub/internal/observability"
	"unihub/internal/repository"
	"unihub/internal/storage"
	"unihub/internal/store"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	logger         *observability.Logger

	users repository.UserRepository
	chats repository.ChatRepository

	authSvc  *auth.Service
	notifier *notifications.Notifier
	streams  *notifications.Streams
	hub      *notifications.Hub

	files *storage.FileStore
	local *localstate.Store

	// tasks serves this gateway's own device profile; task state is
	// device-scoped and never synced between devices.
	tasks *store.TaskStore

	// Per-user in-app notification lists, created lazily.
	notifyMu     sync.Mutex
	notifyStores map[uint]*store.NotificationStore
}

// NewServer creates a server instance with all dependencies.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	middleware.InitMiddleware(cfg)

	userRepo := repository.NewUserRepository(db)
	chatRepo := repository.NewChatRepository(db)

	files, err := storage.NewFileStore(cfg.StorageRoot, cfg.StoragePublicURL)
	if err != nil {
		return nil, err
	}

	local, err := localstate.Open(cfg.LocalStatePath)
	if err != nil {
		return nil, err
	}
	tasks, err := store.NewTaskStore(local)
	if err != nil {
		return nil, err
	}

	mail := email.FromConfig(cfg.SendGridAPIKey, "UniHub", cfg.EmailFrom)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("unihub-api"),
		logger:         observability.Named("server"),
		users:          userRepo,
		chats:          chatRepo,
		authSvc:        auth.NewService(userRepo, redisClient, mail, cfg.JWTSecret, cfg.ResetURLBase),
		notifier:       notifications.NewNotifier(redisClient),
		streams:        notifications.NewStreams(redisClient, chatRepo),
		hub:            notifications.NewHub(),
		files:          files,
		local:          local,
		tasks:          tasks,
		notifyStores:   make(map[uint]*store.NotificationStore),
	}
	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP).
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "UniHub Gateway Metrics",
	}))

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.Post("/signup", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	authGroup.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	authGroup.Post("/password-reset", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "password_reset"), s.RequestPasswordReset)
	authGroup.Post("/password-reset/confirm", s.ConfirmPasswordReset)

	// Public file downloads
	app.Get("/files/:key", s.ServeFile)

	// Protected routes
	protected := api.Group("", middleware.AuthRequired)

	users := protected.Group("/users")
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/search", s.SearchUsers)

	chats := protected.Group("/chats")
	chats.Get("/", s.GetChats)
	chats.Post("/", s.StartChat)
	chats.Get("/:id/messages", s.GetMessages)
	chats.Post("/:id/messages", middleware.RateLimit(
		s.redis, 15, time.Minute, "send_chat"), s.SendMessage)
	chats.Post("/:id/messages/:messageId/read", s.MarkMessageRead)
	chats.Delete("/:id", s.DeleteChat)

	tasks := protected.Group("/tasks")
	tasks.Get("/", s.GetTasks)
	tasks.Post("/", s.CreateTask)
	tasks.Put("/:id", s.UpdateTask)
	tasks.Post("/:id/toggle", s.ToggleTask)
	tasks.Delete("/:id", s.DeleteTask)

	notifs := protected.Group("/notifications")
	notifs.Get("/", s.GetNotifications)
	notifs.Post("/", s.AddNotification)
	notifs.Post("/read-all", s.MarkAllNotificationsRead)
	notifs.Post("/:id/read", s.MarkNotificationRead)
	notifs.Delete("/all", s.ClearNotifications)
	notifs.Delete("/:id", s.DeleteNotification)

	protected.Post("/files", s.UploadFile)

	// Websocket endpoints
	ws := api.Group("/ws", middleware.AuthRequired)
	ws.Get("/chat", s.WebSocketChatHandler())
	ws.Get("/", s.WebSocketNotifyHandler())
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Without Redis the portal serves snapshots but no live updates.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// RunNotificationFanout bridges the Redis user channels into the websocket
// hub. Blocks until the context is cancelled; a no-op without Redis.
func (s *Server) RunNotificationFanout(ctx context.Context) {
	notifications.WireHub(ctx, s.redis, s.hub)
}

// Shutdown releases server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.hub.Shutdown(ctx); err != nil {
		return err
	}
	return s.local.Close()
}

// notificationsFor returns (creating if needed) the user's notification list.
func (s *Server) notificationsFor(userID uint) *store.NotificationStore {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	ns, ok := s.notifyStores[userID]
	if !ok {
		ns = store.NewNotificationStore()
		s.notifyStores[userID] = ns
	}
	return ns
}
