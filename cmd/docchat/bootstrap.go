package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/docchat/internal/adapters/driven/ai"
	"github.com/custodia-labs/docchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docchat/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docchat/internal/adapters/driving/cli"
	"github.com/custodia-labs/docchat/internal/core/services"
	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/normalisers"
	"github.com/custodia-labs/docchat/internal/postprocessors"
)

// bootstrap wires adapters into services. Everything lives under home:
// config.toml, prompts/ and data/documents.db.
func bootstrap(ctx context.Context, home string, level cli.Level) (*cli.Services, error) {
	if home == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		home = dir
	}

	store, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(store, ai.NewConfigValidator())
	if level == cli.LevelSettings {
		return &cli.Services{Settings: settingsService}, nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	prompts, err := file.NewPromptStore(filepath.Join(home, "prompts"))
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}

	aiResult, err := ai.Initialise(ctx, settings, prompts)
	if err != nil {
		return nil, fmt.Errorf("initialise AI services: %w", err)
	}

	db, err := sqlite.NewStore(filepath.Join(home, "data"))
	if err != nil {
		aiResult.Close()
		return nil, fmt.Errorf("open document store: %w", err)
	}

	closeAll := func() error {
		aiResult.Close()
		return db.Close()
	}

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)
	pipeline, err := postprocessors.BuildPipeline(registry, settings.RAG.PipelineConfig())
	if err != nil {
		return nil, errors.Join(fmt.Errorf("build pipeline: %w", err), closeAll())
	}

	rag := services.NewRAGService(aiResult.VectorIndex, pipeline, aiResult.LLMService, prompts, settings.RAG)
	docs := services.NewDocumentService(normalisers.NewDefaultRegistry(), db.DocumentStore(), rag, aiResult.LLMService)

	restored, err := docs.Restore(ctx)
	if err != nil {
		logger.Warn("Some documents could not be restored: %v", err)
	}
	logger.Debug("Restored %d documents from %s", restored, db.Path())

	return &cli.Services{
		RAG:      rag,
		Document: docs,
		Ingest:   services.NewIngestService(docs, services.DefaultIngestWorkers),
		Settings: settingsService,
		Close:    closeAll,
	}, nil
}
