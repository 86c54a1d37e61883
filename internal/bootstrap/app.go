// Package bootstrap wires configuration, stores and services into a runnable
// application shared by the HTTP server and the CLI.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"yescity/internal/config"
	"yescity/internal/metrics"
	"yescity/internal/prompts"
	"yescity/internal/repository"
	"yescity/internal/service"
)

// App holds the wired services and the resources they own
type App struct {
	Config         *config.Config
	Logger         *zap.Logger
	Catalog        *service.CatalogService
	Recommendation *service.RecommendationService

	mongo    *repository.MongoRepository
	postgres *repository.PostgresRepository
}

// New connects to the catalog, the optional query log and the LLM endpoint
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	metrics.RegisterPipelineMetrics()

	mongo, err := repository.NewMongoRepository(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.MaxPool, cfg.Mongo.Timeout)
	if err != nil {
		return nil, fmt.Errorf("connect catalog: %w", err)
	}
	log.Info("connected to catalog",
		zap.String("database", cfg.Mongo.Database),
		zap.Uint64("max_pool", cfg.Mongo.MaxPool),
	)

	app := &App{Config: cfg, Logger: log, mongo: mongo}

	// Pass a nil interface, not a typed nil pointer, when the log is disabled
	var queryLog service.QueryLogger
	if cfg.QueryLog.Enabled {
		pg, err := repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.QueryLog.MaxConnections,
			cfg.QueryLog.MaxIdleConnections,
		)
		if err != nil {
			app.Close(ctx)
			return nil, fmt.Errorf("connect query log: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			app.Close(ctx)
			return nil, err
		}
		app.postgres = pg
		queryLog = pg
		log.Info("query log enabled")
	} else {
		log.Info("query log disabled")
	}

	promptSet, err := prompts.Load(cfg.LLM.PromptsFile)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}

	var llm service.TextGenerator
	if cfg.LLM.Enabled {
		llm = service.NewOpenAIClient(&cfg.LLM, log)
		log.Info("LLM client initialized",
			zap.String("api_base", cfg.LLM.APIBase),
			zap.String("model", cfg.LLM.Model),
			zap.Float64("temperature", cfg.LLM.RecommendTemperature),
			zap.Int("max_tokens", cfg.LLM.MaxTokens),
		)
	} else {
		log.Warn("LLM is disabled, classification falls back to keyword rules and recommendations will fail")
	}

	classifier := service.NewClassifier(llm, promptSet, cfg.LLM.ClassifyTemperature, cfg.LLM.MaxTokens, log)
	app.Catalog = service.NewCatalogService(mongo, &cfg.Search, log)
	hydrator := service.NewHydrator(mongo, log)
	app.Recommendation = service.NewRecommendationService(
		classifier,
		app.Catalog,
		hydrator,
		llm,
		promptSet,
		queryLog,
		service.RecommendationOptions{
			Temperature:      cfg.LLM.RecommendTemperature,
			MaxTokens:        cfg.LLM.MaxTokens,
			MaxCandidates:    cfg.Search.MaxCandidates,
			PromptCandidates: cfg.Search.PromptCandidates,
		},
		log,
	)

	return app, nil
}

// Close waits for pending query log writes and releases the stores
func (a *App) Close(ctx context.Context) {
	if a.Recommendation != nil {
		a.Recommendation.Wait()
	}
	if a.postgres != nil {
		if err := a.postgres.Close(); err != nil {
			a.Logger.Error("failed to close query log", zap.Error(err))
		}
	}
	if a.mongo != nil {
		if err := a.mongo.Close(ctx); err != nil {
			a.Logger.Error("failed to close catalog", zap.Error(err))
		}
	}
}
