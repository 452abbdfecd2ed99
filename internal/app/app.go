package app

import (
	"surveys/config"
	"surveys/internal/database"
	"surveys/internal/events"
	"surveys/internal/handlers/middleware"
	"surveys/internal/logger"
	"surveys/internal/repositories"
	"surveys/internal/services"
	"surveys/internal/websockets"

	surveyController "surveys/internal/controllers/survey"
	surveyTemplateController "surveys/internal/controllers/surveyTemplate"
)

type App struct {
	Database   database.DB
	Middleware middleware.Middleware
	Websocket  *websockets.Manager
	EventBus   *events.EventBus
	Config     config.Config

	// Services
	TransactionService *services.TransactionService
	CacheInvalidation  *services.CacheInvalidationService

	// Repositories
	SurveyTemplateRepo repositories.SurveyTemplateRepository
	SurveyRepo         repositories.SurveyRepository

	// Controllers
	SurveyTemplateController *surveyTemplateController.SurveyTemplateController
	SurveyController         *surveyController.SurveyController
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.InitConfig()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	return NewWithConfig(config)
}

func NewWithConfig(config config.Config) (*App, error) {
	log := logger.New("app").Function("NewWithConfig")

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	eventBus := events.New(db.Cache.Events)

	// Initialize services
	transactionService := services.NewTransactionService(db)
	cacheInvalidation := services.NewCacheInvalidationService(db, eventBus)

	// Initialize repositories
	surveyTemplateRepo := repositories.NewSurveyTemplateRepository(db, config.TemplateCacheTTL)
	surveyRepo := repositories.NewSurveyRepository(db)

	// Initialize controllers with repositories and services
	templateController := surveyTemplateController.New(
		surveyTemplateRepo,
		transactionService,
		cacheInvalidation,
		config.TempDir(),
	)
	surveyController := surveyController.New(surveyRepo, surveyTemplateRepo, transactionService)

	app := &App{
		Database:                 db,
		Config:                   config,
		Middleware:               middleware.New(config),
		Websocket:                websockets.New(eventBus),
		EventBus:                 eventBus,
		TransactionService:       transactionService,
		CacheInvalidation:        cacheInvalidation,
		SurveyTemplateRepo:       surveyTemplateRepo,
		SurveyRepo:               surveyRepo,
		SurveyTemplateController: templateController,
		SurveyController:         surveyController,
	}

	if err := app.validate(); err != nil {
		_ = app.Close()
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := []struct {
		name  string
		isNil bool
	}{
		{"websocket", a.Websocket == nil},
		{"eventBus", a.EventBus == nil},
		{"transactionService", a.TransactionService == nil},
		{"cacheInvalidation", a.CacheInvalidation == nil},
		{"surveyTemplateRepo", a.SurveyTemplateRepo == nil},
		{"surveyRepo", a.SurveyRepo == nil},
		{"surveyTemplateController", a.SurveyTemplateController == nil},
		{"surveyController", a.SurveyController == nil},
	}

	for _, check := range nilChecks {
		if check.isNil {
			return log.Error("nil check failed", "component", check.name)
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
