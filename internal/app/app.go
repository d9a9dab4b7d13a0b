package app

import (
	"context"
	"fmt"

	"kaamsetu_backend/database"
	"kaamsetu_backend/internal/config"
	"kaamsetu_backend/internal/email"
	"kaamsetu_backend/internal/handlers"
	"kaamsetu_backend/internal/logger"
	"kaamsetu_backend/internal/payments"
	"kaamsetu_backend/internal/repositories"
	"kaamsetu_backend/internal/routes"
	"kaamsetu_backend/internal/services"
	"kaamsetu_backend/internal/workers"
	"kaamsetu_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.Server.Env)
	logger.Info("logger initialized", "env", cfg.Server.Env)

	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("database connection failed", "error", err)
	}
	if err := database.AutoMigrate(); err != nil {
		logger.Fatal("migration failed", "error", err)
	}
	logger.Info("database connected")

	engine := SetupRouter(cfg, gormDB)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server starting", "address", address)
	if err := engine.Run(address); err != nil {
		logger.Fatal("server startup error", "error", err)
	}
}

// SetupRouter builds the full dependency graph and returns the router.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	jobRepo := repositories.NewJobRepository(gormDB)
	proposalRepo := repositories.NewProposalRepository(gormDB)
	transactionRepo := repositories.NewTransactionRepository(gormDB)
	notificationRepo := repositories.NewNotificationRepository(gormDB)
	userRepo := repositories.NewUserRepository(gormDB)

	hub := ws.NewHub()

	var mailer email.Provider = &email.NoopProvider{}
	if cfg.Email.Enabled {
		mailer = email.NewSMTPProvider(cfg)
	}

	processor := payments.NewStripeProcessor(cfg.Payments.StripeKey)

	notificationService := services.NewNotificationService(notificationRepo, hub)
	escrowService := services.NewEscrowService(
		transactionRepo, jobRepo, proposalRepo, notificationService, processor, cfg.Payments.Currency)
	container := &services.ServiceContainer{
		Auth:          services.NewAuthService(userRepo),
		Jobs:          services.NewJobService(jobRepo, proposalRepo, userRepo, escrowService, notificationService, mailer),
		Proposals:     services.NewProposalService(proposalRepo, jobRepo, userRepo, notificationService),
		Escrow:        escrowService,
		Notifications: notificationService,
	}

	reminder := workers.NewReminderWorker(jobRepo, notificationService, cfg.Worker.UnpaidReminderAfter)
	reminder.Start(context.Background())

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	appHandlers := handlers.NewAppHandlers(container)
	wsHandler := ws.NewHandler(hub)
	routes.RegisterRoutes(engine, appHandlers, wsHandler)

	return engine
}
