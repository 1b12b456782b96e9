package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harbordocs/harbor/internal/api"
	"github.com/harbordocs/harbor/internal/auth"
	"github.com/harbordocs/harbor/internal/config"
	"github.com/harbordocs/harbor/internal/logger"
	"github.com/harbordocs/harbor/internal/repository"
	"github.com/harbordocs/harbor/internal/service"
	"github.com/harbordocs/harbor/internal/storage"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "harbor-api",
		LogFile:     cfg.Log.File,
		MaxSize:     cfg.Log.MaxSize,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAge:      cfg.Log.MaxAge,
		Compress:    cfg.Log.Compress,
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.Fatalf("Failed to initialize database: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	searchQueryRepo := repository.NewSearchQueryRepository(db)
	syncJobRepo := repository.NewSyncJobRepository(db)

	qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
		Host:            cfg.Qdrant.Host,
		Port:            cfg.Qdrant.Port,
		Collection:      cfg.Qdrant.Collection,
		APIKey:          cfg.Qdrant.APIKey,
		UseTLS:          cfg.Qdrant.UseTLS,
		VectorDimension: cfg.OpenAI.Dimensions,
	})
	if err != nil {
		appLogger.Fatalf("Failed to initialize Qdrant repository: %v", err)
	}
	defer qdrantRepo.Close()

	ctx := context.Background()
	if err := qdrantRepo.EnsureCollection(ctx); err != nil {
		appLogger.Fatalf("Failed to ensure Qdrant collection: %v", err)
	}

	objectStorage, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		appLogger.Fatalf("Failed to initialize storage: %v", err)
	}

	jwtManager, err := auth.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.JWTRefreshSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)
	if err != nil {
		appLogger.Fatalf("Failed to initialize JWT manager: %v", err)
	}
	googleClient := auth.NewGoogleClient(
		cfg.Google.ClientID,
		cfg.Google.ClientSecret,
		cfg.Google.RedirectURL,
	)

	embeddingService := service.NewEmbeddingService(&service.EmbeddingConfig{
		APIKey: cfg.OpenAI.APIKey,
		Model:  cfg.OpenAI.EmbeddingModel,
		Policy: service.BatchPolicy{
			BatchSize: cfg.Processing.EmbedBatchSize,
			Delay:     cfg.Processing.EmbedBatchDelay,
		},
	})
	llmService := service.NewLLMService(cfg.OpenAI.APIKey, cfg.OpenAI.CompletionModel, appLogger)

	processorService, err := service.NewProcessorService(
		documentRepo,
		qdrantRepo,
		embeddingService,
		objectStorage,
		appLogger,
		&service.ProcessorConfig{
			ChunkSize:       cfg.Processing.ChunkSize,
			ChunkOverlap:    cfg.Processing.ChunkOverlap,
			UpsertBatchSize: cfg.Processing.UpsertBatchSize,
		},
	)
	if err != nil {
		appLogger.Fatalf("Failed to initialize processor: %v", err)
	}

	accountService := service.NewAccountService(userRepo, googleClient, jwtManager, appLogger)
	searchService := service.NewSearchService(
		qdrantRepo,
		embeddingService,
		searchQueryRepo,
		appLogger,
		&service.SearchConfig{
			DefaultTopK:    cfg.Search.DefaultTopK,
			ScoreThreshold: cfg.Search.ScoreThreshold,
		},
	)
	templateService := service.NewTemplateService(
		templateRepo,
		objectStorage,
		llmService,
		searchService,
		appLogger,
		&service.TemplateConfig{
			TemplatePrefix:  cfg.Storage.TemplatePrefix,
			GeneratedPrefix: cfg.Storage.GeneratedPrefix,
		},
	)
	activityService := service.NewActivityService(
		searchQueryRepo,
		templateRepo,
		documentRepo,
		syncJobRepo,
		appLogger,
	)
	driveService := service.NewDriveService(
		userRepo,
		documentRepo,
		syncJobRepo,
		objectStorage,
		processorService,
		service.NewDriveClientFactory(googleClient),
		appLogger,
		&service.DriveConfig{
			DocumentPrefix: cfg.Storage.DocumentPrefix,
		},
	)

	router := api.SetupRouter(&api.Deps{
		DB:              db,
		DocumentRepo:    documentRepo,
		Accounts:        accountService,
		Search:          searchService,
		Templates:       templateService,
		Activity:        activityService,
		Drive:           driveService,
		Processor:       processorService,
		JWT:             jwtManager,
		Logger:          appLogger,
		Mode:            cfg.Server.Mode,
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting API server on port %d (mode=%s)", cfg.Server.Port, cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatalf("Server forced to shutdown: %v", err)
	}

	appLogger.Info("Server exited")
}
