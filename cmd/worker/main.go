package main

import (
	"context"
	"log"

	"github.com/campusdesk/cd-backend/internal/aws"
	"github.com/campusdesk/cd-backend/internal/config"
	"github.com/campusdesk/cd-backend/internal/database"
	"github.com/campusdesk/cd-backend/internal/logging"
	"github.com/campusdesk/cd-backend/internal/notifications"
	"github.com/campusdesk/cd-backend/internal/queue"
)

func main() {
	cfg := config.Load()

	if err := logging.Init(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Filename:   cfg.Logging.Filename,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	emailSvc, err := aws.NewEmailService(cfg.AWS)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	// localstack-specific setup (sender identity not managed by app in prod)
	if cfg.AWS.EndpointURL != "" {
		log.Printf("Verifying sender identity %s...", emailSvc.Sender())
		if _, err := emailSvc.VerifyEmailIdentity(context.Background()); err != nil {
			log.Fatalf("Failed to verify email identity: %v", err)
		}
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	taskQueue, err := queue.NewQueue(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to task queue: %v", err)
	}
	defer taskQueue.Close()

	templates, err := notifications.LoadTemplates()
	if err != nil {
		log.Fatalf("Failed to load notification templates: %v", err)
	}

	dispatcher := notifications.NewDispatcher(db.Store(), taskQueue, templates)

	worker := queue.NewWorker(&cfg.Redis, emailSvc, dispatcher.HandleEvent)

	log.Println("Starting queue worker...")
	if err := worker.Start(); err != nil {
		log.Fatalf("Worker failed to start: %v", err)
	}

	select {}
}
