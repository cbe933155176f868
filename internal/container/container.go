package container

import (
	"github.com/campusdesk/cd-backend/internal/api"
	"github.com/campusdesk/cd-backend/internal/auth"
	"github.com/campusdesk/cd-backend/internal/booking"
	"github.com/campusdesk/cd-backend/internal/catalog"
	"github.com/campusdesk/cd-backend/internal/config"
	"github.com/campusdesk/cd-backend/internal/database"
	"github.com/campusdesk/cd-backend/internal/events"
	"github.com/campusdesk/cd-backend/internal/logging"
	"github.com/campusdesk/cd-backend/internal/queue"
	"github.com/campusdesk/cd-backend/internal/workflow"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	Config         *config.Config
	Database       *database.Database
	Queue          *queue.TaskQueue
	RedisClient    *redis.Client
	AuthService    *auth.AuthService
	Authenticator  *auth.Authenticator
	Catalog        *catalog.Catalog
	WorkflowEngine *workflow.Engine
	BookingEngine  *booking.Engine
	Server         *api.Server
}

func New(cfg *config.Config) (*Container, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, err
	}

	taskQueue, err := queue.NewQueue(&cfg.Redis)
	if err != nil {
		return nil, err
	}

	// Two separate Redis connection pools are used: the asynq task
	// queue manages its own connection, and this client is used
	// for auth state (OTP hashes, refresh tokens).
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	jwtService, err := auth.NewJWTService([]byte(cfg.JWT.SigningKey), cfg.JWT.Issuer, cfg.JWT.Expiry)
	if err != nil {
		return nil, err
	}

	st := db.Store()
	authService := auth.NewAuthService(redisClient, jwtService, st, cfg.Auth)
	authenticator := auth.NewAuthenticator(jwtService, st)

	publisher := events.NewQueuePublisher(taskQueue)
	cat := catalog.New(st)
	workflowEngine := workflow.New(st, cat, publisher)
	bookingEngine := booking.New(st, publisher)

	server := api.NewServer(st, workflowEngine, bookingEngine, cat, authService, taskQueue)

	logging.Info("Connected to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port)

	return &Container{
		Config:         cfg,
		Database:       db,
		Queue:          taskQueue,
		RedisClient:    redisClient,
		AuthService:    authService,
		Authenticator:  authenticator,
		Catalog:        cat,
		WorkflowEngine: workflowEngine,
		BookingEngine:  bookingEngine,
		Server:         server,
	}, nil
}

func (c *Container) Cleanup() {
	if c.Queue != nil {
		c.Queue.Close()
		logging.Info("Queue client closed")
	}
	if c.RedisClient != nil {
		c.RedisClient.Close()
		logging.Info("Redis client closed")
	}
	if c.Database != nil {
		c.Database.Close()
		logging.Info("Database connection closed")
	}
}
