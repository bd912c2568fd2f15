package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"certshield/coi-backend/internal/audit"
	"certshield/coi-backend/internal/auth"
	"certshield/coi-backend/internal/compliance"
	"certshield/coi-backend/internal/config"
	"certshield/coi-backend/internal/escalation"
	"certshield/coi-backend/internal/exceptions"
	"certshield/coi-backend/internal/notices"
	"certshield/coi-backend/internal/notifications"
	"certshield/coi-backend/internal/reports"
	"certshield/coi-backend/internal/verification"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Logging.Level)
	defer logger.Sync()

	// TranslateError is required: exception exclusivity relies on the
	// duplicate-key error surfacing as gorm.ErrDuplicatedKey.
	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("failed to access database pool", zap.Error(err))
	}
	if cfg.Database.MaxConnections > 0 {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxConnections)
	}
	if cfg.Database.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	defer sqlDB.Close()

	if err := db.AutoMigrate(
		&compliance.Project{},
		&compliance.Subcontractor{},
		&compliance.Assignment{},
		&verification.Verdict{},
		&exceptions.Exception{},
		&notifications.Communication{},
		&audit.Entry{},
	); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.Providers.AWSRegion))
	if err != nil {
		logger.Fatal("failed to load AWS config", zap.Error(err))
	}
	emailSender := notifications.NewSESEmailSender(sesv2.NewFromConfig(awsCfg), cfg.Providers.FromEmail, cfg.Providers.FromName)
	smsSender := notifications.NewSNSSMSSender(sns.NewFromConfig(awsCfg), cfg.Providers.SMSSenderID)

	recorder := audit.NewRecorder(db, logger)

	complianceRepo := compliance.NewRepository(db)
	verificationRepo := verification.NewRepository(db)
	exceptionRepo := exceptions.NewRepository(db)
	commRepo := notifications.NewRepository(db)

	complianceService := compliance.NewService(complianceRepo,
		verification.NewOutcomeSource(verificationRepo), exceptionRepo, recorder, logger)
	exceptionService := exceptions.NewService(exceptionRepo, complianceRepo, complianceService, recorder, logger)

	dispatcher := notifications.NewDispatcher(commRepo, emailSender, smsSender, logger,
		cfg.Escalation.DispatchConcurrency, cfg.Providers.SendTimeout)
	escalationService := escalation.NewService(complianceRepo, verificationRepo, commRepo,
		dispatcher, recorder, cfg.Escalation, logger)

	verificationService := verification.NewService(verificationRepo, complianceService,
		exceptionService, escalationService, recorder, logger)

	notificationService := notifications.NewService(commRepo, recorder, logger)
	reportService := reports.NewService(complianceRepo, verificationRepo, logger)

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	notificationHandler := notifications.NewHandler(notificationService, cfg.Providers.CallbackSecret)
	notificationHandler.RegisterCallbackRoutes(router)

	api := router.Group("/api/v1")
	api.Use(auth.RequireAuth(cfg.Security.JWTSecret))
	{
		verification.NewHandler(verificationService).RegisterRoutes(api)
		compliance.NewHandler(complianceService).RegisterRoutes(api)
		exceptions.NewHandler(exceptionService).RegisterRoutes(api)
		escalation.NewHandler(escalationService).RegisterRoutes(api)
		notificationHandler.RegisterRoutes(api)
		audit.NewHandler(recorder).RegisterRoutes(api)
		reports.NewHandler(reportService).RegisterRoutes(api)
		notices.NewHandler(complianceRepo, verificationRepo).RegisterRoutes(api)
	}

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("addr", srv.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}

func newLogger(level string) *zap.Logger {
	if level == "debug" {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	logger, _ := zap.NewProduction()
	return logger
}
