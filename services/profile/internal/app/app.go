package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"thsnd/pkg/cache"
	"thsnd/pkg/config"
	"thsnd/pkg/database"
	"thsnd/pkg/jwt"
	"thsnd/pkg/logger"
	"thsnd/pkg/password"
	"thsnd/pkg/queue"
	"thsnd/pkg/s3"
	profileHTTP "thsnd/services/profile/internal/controller/http"
	"thsnd/services/profile/internal/model"
	profileCache "thsnd/services/profile/internal/repo/cache"
	"thsnd/services/profile/internal/repo/persistent"
	"thsnd/services/profile/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	_ "thsnd/services/profile/docs" // Swagger docs
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	s3Client    *s3.Client
	jwtService  *jwt.Service
	queueClient *queue.Client
	httpServer  *http.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	baseLog, err := logger.NewWithLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log := baseLog.With("service", "profile", "env", cfg.AppEnv)

	db, err := database.NewDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	if err := db.AutoMigrate(&model.UserModel{}); err != nil {
		log.Error("Failed to migrate database: %v", err)
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Failed to connect to redis: %v (continuing without profile cache)", err)
		redisClient = nil
	}

	s3Client, err := s3.NewClient(cfg)
	if err != nil {
		log.Error("Failed to create S3 client: %v", err)
		return nil, err
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Warn("Failed to connect to RabbitMQ: %v (continuing without queue)", err)
		queueClient = nil
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		s3Client:    s3Client,
		jwtService:  jwt.NewService(cfg.JWTSecret),
		queueClient: queueClient,
	}, nil
}

func (a *App) Run() error {
	if a.cfg.AppEnv != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	userRepo := persistent.NewUserRepository(a.db)

	// Optional collaborators stay nil interfaces when their backend is down.
	var profiles usecase.ProfileCache
	if a.redisClient != nil {
		profiles = profileCache.NewProfileCache(a.redisClient, a.cfg.ProfileCacheTTL, a.log)
	}
	var events usecase.EventPublisher
	if a.queueClient != nil {
		events = a.queueClient
	}

	profileUseCase := usecase.NewProfileUseCase(
		userRepo,
		password.NewHasher(a.cfg.BcryptCost),
		a.jwtService,
		a.s3Client,
		profiles,
		events,
		a.log,
	)

	handler := profileHTTP.NewProfileHandler(profileUseCase, a.log)
	r := profileHTTP.NewRouter(handler, a.jwtService, a.cfg.AllowedOrigins())

	a.httpServer = &http.Server{
		Addr:              ":" + a.cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		a.log.Info("Profile service starting on port %s", a.cfg.ServerPort)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	return nil
}

func (a *App) Wait() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	a.log.Info("Shutting down profile service...")
}

func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Drain HTTP before closing the stores.
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.log.Error("Server forced to shutdown: %v", err)
		return err
	}

	if a.queueClient != nil {
		if err := a.queueClient.Close(); err != nil {
			a.log.Error("Error closing RabbitMQ: %v", err)
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Error("Error closing Redis: %v", err)
		}
	}

	sqlDB, err := a.db.DB()
	if err == nil {
		if err := sqlDB.Close(); err != nil {
			a.log.Error("Error closing database: %v", err)
		}
	}

	a.log.Info("Profile service exited")
	_ = a.log.Sync()
	return nil
}
