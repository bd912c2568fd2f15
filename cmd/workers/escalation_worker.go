package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"certshield/coi-backend/internal/audit"
	"certshield/coi-backend/internal/compliance"
	"certshield/coi-backend/internal/config"
	"certshield/coi-backend/internal/escalation"
	"certshield/coi-backend/internal/exceptions"
	"certshield/coi-backend/internal/notifications"
	"certshield/coi-backend/internal/verification"
)

const (
	escalationSchedule = "@every 6h"
	expirySchedule     = "@every 1h"
	sweepTimeout       = 30 * time.Minute
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
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

	scheduler := cron.New()

	_, err = scheduler.AddFunc(escalationSchedule, func() {
		runEscalationSweeps(complianceRepo, escalationService, logger)
	})
	if err != nil {
		logger.Fatal("failed to schedule escalation sweep", zap.Error(err))
	}

	_, err = scheduler.AddFunc(expirySchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		if _, err := exceptionService.ExpireSweep(ctx); err != nil {
			logger.Error("exception expiry sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("failed to schedule expiry sweep", zap.Error(err))
	}

	scheduler.Start()
	logger.Info("escalation worker started",
		zap.String("escalation_schedule", escalationSchedule),
		zap.String("expiry_schedule", expirySchedule))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("stopping escalation worker")
	<-scheduler.Stop().Done()
	logger.Info("escalation worker exited")
}

// runEscalationSweeps runs one sweep per company with assignments on record.
// A failed company sweep is logged and the rest proceed.
func runEscalationSweeps(repo compliance.Repository, svc escalation.Service, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	companyIDs, err := repo.ListCompanyIDs(ctx)
	if err != nil {
		logger.Error("failed to list companies for sweep", zap.Error(err))
		return
	}

	for _, companyID := range companyIDs {
		if _, err := svc.RunSweep(ctx, escalation.SweepRequest{CompanyID: companyID}); err != nil {
			logger.Error("escalation sweep failed",
				zap.String("company_id", companyID.String()),
				zap.Error(err))
		}
	}
}
