package main

import (
	"fmt"
	"os"
	"time"

	"Mansoor88-6/overtime-agent/internal/client"
	"Mansoor88-6/overtime-agent/internal/config"
	"Mansoor88-6/overtime-agent/internal/database"
	"Mansoor88-6/overtime-agent/internal/history"
	"Mansoor88-6/overtime-agent/internal/logger"
	"Mansoor88-6/overtime-agent/internal/service"
	"Mansoor88-6/overtime-agent/internal/validation"
	"Mansoor88-6/overtime-agent/internal/workflow"

	"go.uber.org/zap"
)

// app holds the components shared by the commands
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.DB
	apiClient *client.APIClient
	history   *history.Store
	service   *service.AttendanceService
}

func newApp(configPath string) (*app, error) {
	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Debug("Starting overtime agent",
		zap.String("env", cfg.Env),
		zap.String("config_path", configPath),
	)

	// Initialize database
	db, err := database.New(cfg.StoragePath, log.Logger)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize API client
	cache := client.NewEmployeeCache(time.Duration(cfg.Cache.EmployeeTTL)*time.Second, nil)
	apiClient := client.NewAPIClient(
		cfg.Backend.BaseURL,
		time.Duration(cfg.Backend.Timeout)*time.Second,
		cache,
		log.Logger,
	)
	apiClient.SetActions(client.Actions{
		GetEmployees:     cfg.Backend.Actions.GetEmployees,
		GetShifts:        cfg.Backend.Actions.GetShifts,
		GetEngineers:     cfg.Backend.Actions.GetEngineers,
		GetPending:       cfg.Backend.Actions.GetPending,
		SubmitAttendance: cfg.Backend.Actions.SubmitAttendance,
		ConfirmRecords:   cfg.Backend.Actions.ConfirmRecords,
	})

	store := history.NewStore(db.DB, cfg.History.Limit, log.Logger)
	svc := service.NewAttendanceService(apiClient, validation.NewValidator(nil), store, log.Logger)

	return &app{
		cfg:       cfg,
		log:       log,
		db:        db,
		apiClient: apiClient,
		history:   store,
		service:   svc,
	}, nil
}

// newWorkflow creates a confirmation workflow bound to the configured window
func (a *app) newWorkflow() *workflow.Workflow {
	window := workflow.Window{StartDay: a.cfg.Approval.StartDay, EndDay: a.cfg.Approval.EndDay}
	return workflow.New(a.apiClient, window, nil, a.log.Logger)
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		a.log.Error("Failed to close database", zap.Error(err))
	}
	a.log.Sync()
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
