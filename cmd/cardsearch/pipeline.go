package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/risulab/cardsearch/internal/metrics"
	characterrepo "github.com/risulab/cardsearch/internal/repository/character"
	sparserepo "github.com/risulab/cardsearch/internal/repository/sparse"
	"github.com/risulab/cardsearch/internal/transport/llm"
	"github.com/risulab/cardsearch/internal/transport/realm"
	indexuc "github.com/risulab/cardsearch/internal/usecase/index"
	scrapeuc "github.com/risulab/cardsearch/internal/usecase/scrape"
	taguc "github.com/risulab/cardsearch/internal/usecase/tag"
)

func newScrapeCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape card listings and details into the scraped corpus",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			metrics.RegisterSearchMetrics()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if out == "" {
				out = a.cfg.Storage.ScrapedPath
			}
			client := realm.New(realm.Config{
				RequestsPerSecond: a.cfg.Scraper.RequestsPerSecond,
				Timeout:           time.Duration(a.cfg.Scraper.TimeoutSec) * time.Second,
				Logger:            a.logger,
			})
			return scrapeuc.New(client, a.cfg.Scraper.Workers, a.logger).Run(ctx, out)
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output corpus path (default from config)")
	return cmd
}

func newTagCmd() *cobra.Command {
	var scraped, tagged string
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Tag scraped cards with LLM-extracted metadata",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if scraped == "" {
				scraped = a.cfg.Storage.ScrapedPath
			}
			if tagged == "" {
				tagged = a.cfg.Storage.TaggedPath
			}
			client := llm.New(llm.Config{
				APIKey:  a.cfg.Tagging.APIKey,
				BaseURL: a.cfg.Tagging.BaseURL,
				Models:  a.cfg.Tagging.Models,
				Logger:  a.logger,
			})
			return taguc.New(client, a.cfg.Tagging.Workers, a.logger).Run(ctx, scraped, tagged)
		},
	}
	cmd.Flags().StringVar(&scraped, "in", "", "scraped corpus path (default from config)")
	cmd.Flags().StringVar(&tagged, "out", "", "tagged corpus path (default from config)")
	return cmd
}

func newIndexCmd() *cobra.Command {
	var tagged string
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the dense and sparse search indexes from the tagged corpus",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			metrics.RegisterEmbeddingMetrics()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			if tagged == "" {
				tagged = a.cfg.Storage.TaggedPath
			}

			vecCfg, _, _ := a.vectorizer()
			docEmbedder := asBatchEmbedder(a.buildEmbedder(store, vecCfg.DocumentInstruction))

			charRepo := characterrepo.New(store, vecCfg.Dimensions).WithHNSW(characterrepo.HNSWConfig{
				M:           a.cfg.Index.HNSWM,
				EFConstruct: a.cfg.Index.HNSWEFConstruct,
			})

			svc := indexuc.New(charRepo, sparserepo.New(store), docEmbedder, a.logger).
				WithBatchSize(a.cfg.Index.EmbedBatchSize)

			idx, err := svc.Rebuild(ctx, tagged)
			if err != nil {
				return err
			}
			a.logger.Info("Indexes published", zap.Int("documents", idx.Len()))
			return nil
		},
	}
	cmd.Flags().StringVar(&tagged, "in", "", "tagged corpus path (default from config)")
	return cmd
}
