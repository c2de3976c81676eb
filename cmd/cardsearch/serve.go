package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/risulab/cardsearch/internal/domain"
	"github.com/risulab/cardsearch/internal/metrics"
	characterrepo "github.com/risulab/cardsearch/internal/repository/character"
	sparserepo "github.com/risulab/cardsearch/internal/repository/sparse"
	chiTransport "github.com/risulab/cardsearch/internal/transport/chi"
	healthuc "github.com/risulab/cardsearch/internal/usecase/health"
	searchuc "github.com/risulab/cardsearch/internal/usecase/search"
	"github.com/risulab/cardsearch/internal/version"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the search API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	a.logger.Info("Starting cardsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.Int("http_port", a.cfg.HTTP.Port),
		zap.Strings("db_addrs", a.cfg.Database.Addrs),
	)

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	vecCfg, _, provName := a.vectorizer()
	queryEmbedder := a.buildEmbedder(store, vecCfg.QueryInstruction)
	a.logger.Info("Query embedder created",
		zap.String("provider", provName),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)

	charRepo := characterrepo.New(store, vecCfg.Dimensions).WithHNSW(characterrepo.HNSWConfig{
		M:           a.cfg.Index.HNSWM,
		EFConstruct: a.cfg.Index.HNSWEFConstruct,
	})

	// A missing sparse artifact degrades search to dense-only; it is not a
	// startup failure, the index command publishes it later.
	var (
		sparseSearcher searchuc.SparseSearcher
		sparseChecker  healthuc.SparseChecker
	)
	sparseIdx, err := sparserepo.New(store).Load(ctx)
	switch {
	case err == nil:
		sparseSearcher = sparseIdx
		sparseChecker = sparseIdx
		a.logger.Info("Sparse index loaded", zap.Int("documents", sparseIdx.Len()))
	case errors.Is(err, domain.ErrSparseIndexMissing):
		a.logger.Warn("Sparse index missing, serving dense-only until indexed")
	default:
		return fmt.Errorf("load sparse index: %w", err)
	}

	searchSvc := searchuc.New(charRepo, queryEmbedder, sparseSearcher, a.logger).
		WithWeights(searchuc.Weights{
			RRF:        a.cfg.Search.RRFWeight,
			Keyword:    a.cfg.Search.KeywordWeight,
			Popularity: a.cfg.Search.PopularityWeight,
		})
	healthSvc := healthuc.New(store, &embeddingHealthChecker{embedder: queryEmbedder}, sparseChecker)

	server := chiTransport.NewServer(searchSvc, charRepo, healthSvc, a.logger).
		WithAPIKeys(a.cfg.Auth.APIKeys)

	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
		a.logger.Info("Received shutdown signal")
	case <-ctx.Done():
		a.logger.Info("Context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}

	a.logger.Info("Server stopped gracefully")
	return nil
}
