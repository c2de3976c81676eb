package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/risulab/cardsearch/internal/config"
	"github.com/risulab/cardsearch/internal/db"
	dbRedis "github.com/risulab/cardsearch/internal/db/redis"
	"github.com/risulab/cardsearch/internal/domain"
	logpkg "github.com/risulab/cardsearch/internal/logger"
	"github.com/risulab/cardsearch/internal/metrics"
	"github.com/risulab/cardsearch/internal/repository/embcache"
	openaiEmb "github.com/risulab/cardsearch/internal/transport/openai"
)

// app is the shared bootstrap state every subcommand starts from.
type app struct {
	cfg    config.Config
	logger *zap.Logger
}

// newApp loads configuration and the logger for the current environment.
func newApp() (*app, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// openStore connects to the database and waits for readiness.
func (a *app) openStore(ctx context.Context) (db.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    a.cfg.Database.Addrs,
		Password: a.cfg.Database.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create database store: %w", err)
	}

	timeout := time.Duration(a.cfg.Database.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	a.logger.Info("Connected to database", zap.Strings("addrs", a.cfg.Database.Addrs))
	return store, nil
}

// vectorizer resolves the default vectorizer and its provider.
func (a *app) vectorizer() (config.VectorizerConfig, config.ProviderConfig, string) {
	name := a.cfg.Embedding.Default
	vecCfg := a.cfg.Embedding.Vectorizers[name]
	return vecCfg, a.cfg.Embedding.Providers[vecCfg.Provider], vecCfg.Provider
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instruction.
// The instruction prefix sits outermost so the cache key includes it and
// query-mode and document-mode vectors never collide.
func (a *app) buildEmbedder(store db.Store, instruction string) domain.Embedder {
	vecCfg, provCfg, provName := a.vectorizer()

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   provName,
		Logger:     a.logger,
	})

	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, a.logger)
	}

	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}

// asBatchEmbedder upgrades an embedder to batch mode, falling back to
// per-text calls when the chain has no native batch support.
func asBatchEmbedder(e domain.Embedder) domain.BatchEmbedder {
	if be, ok := e.(domain.BatchEmbedder); ok {
		return be
	}
	return batchFallbackEmbedder{inner: e}
}

type batchFallbackEmbedder struct {
	inner domain.Embedder
}

func (b batchFallbackEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchFallback(ctx, b.inner, texts)
}

// embeddingHealthChecker adapts domain.Embedder to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
