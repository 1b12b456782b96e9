package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/harbordocs/harbor/internal/config"
	"github.com/harbordocs/harbor/internal/domain"
	"github.com/harbordocs/harbor/internal/logger"
	"github.com/harbordocs/harbor/internal/repository"
	"github.com/harbordocs/harbor/internal/service"
	"github.com/harbordocs/harbor/internal/storage"
)

// Reprocesses documents outside the API server: either one document by ID or
// every PENDING document for a user.
func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "harbor-process",
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	documentID := flag.String("document", "", "Process a single document by ID")
	userID := flag.String("user", "", "Process all pending documents for a user")
	retryFailed := flag.Bool("retry-failed", false, "Also retry FAILED documents (with -user)")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *documentID == "" && *userID == "" {
		appLogger.Fatal("either -document or -user is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	documentRepo := repository.NewDocumentRepository(db)
	qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
		Host:            cfg.Qdrant.Host,
		Port:            cfg.Qdrant.Port,
		Collection:      cfg.Qdrant.Collection,
		APIKey:          cfg.Qdrant.APIKey,
		UseTLS:          cfg.Qdrant.UseTLS,
		VectorDimension: cfg.OpenAI.Dimensions,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize Qdrant repository")
	}
	defer qdrantRepo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel in-flight work on Ctrl-C; already-completed documents stay done.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		appLogger.Warn("Interrupted, stopping after current document")
		cancel()
	}()

	if err := qdrantRepo.EnsureCollection(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure Qdrant collection")
	}

	objectStorage, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	embeddingService := service.NewEmbeddingService(&service.EmbeddingConfig{
		APIKey: cfg.OpenAI.APIKey,
		Model:  cfg.OpenAI.EmbeddingModel,
		Policy: service.BatchPolicy{
			BatchSize: cfg.Processing.EmbedBatchSize,
			Delay:     cfg.Processing.EmbedBatchDelay,
		},
	})

	processor, err := service.NewProcessorService(
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
		appLogger.WithError(err).Fatal("Failed to initialize processor")
	}

	if *documentID != "" {
		if err := processor.ProcessDocument(ctx, *documentID); err != nil {
			appLogger.WithError(err).Fatal("Processing failed")
		}
		appLogger.WithField("document_id", *documentID).Info("Document processed")
		return
	}

	docs, err := documentRepo.ListPendingByUser(ctx, *userID)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to list pending documents")
	}
	if *retryFailed {
		failed, _, err := documentRepo.List(ctx, *userID, repository.ListOptions{
			Status: string(domain.DocumentStatusFailed),
			Limit:  1000,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to list failed documents")
		}
		docs = append(docs, failed...)
	}

	appLogger.WithField("count", len(docs)).Info("Processing documents")

	processed, failed := 0, 0
	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		if err := processor.ProcessDocument(ctx, doc.ID); err != nil {
			failed++
			continue
		}
		processed++
	}

	appLogger.WithFields(logger.Fields{
		"count":  processed,
		"failed": failed,
	}).Info("Processing run finished")
}
