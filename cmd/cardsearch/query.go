package main

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/risulab/cardsearch/internal/domain"
	"github.com/risulab/cardsearch/internal/metrics"
	characterrepo "github.com/risulab/cardsearch/internal/repository/character"
	sparserepo "github.com/risulab/cardsearch/internal/repository/sparse"
	searchuc "github.com/risulab/cardsearch/internal/usecase/search"
)

func newSearchCmd() *cobra.Command {
	var (
		rating string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run one search query against the built indexes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			metrics.RegisterEmbeddingMetrics()
			metrics.RegisterSearchMetrics()

			ctx := cmd.Context()
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			vecCfg, _, _ := a.vectorizer()
			queryEmbedder := a.buildEmbedder(store, vecCfg.QueryInstruction)
			charRepo := characterrepo.New(store, vecCfg.Dimensions)

			var sparseSearcher searchuc.SparseSearcher
			if idx, err := sparserepo.New(store).Load(ctx); err == nil {
				sparseSearcher = idx
			} else if !errors.Is(err, domain.ErrSparseIndexMissing) {
				return err
			}

			svc := searchuc.New(charRepo, queryEmbedder, sparseSearcher, a.logger).
				WithWeights(searchuc.Weights{
					RRF:        a.cfg.Search.RRFWeight,
					Keyword:    a.cfg.Search.KeywordWeight,
					Popularity: a.cfg.Search.PopularityWeight,
				})

			q := ""
			if len(args) > 0 {
				q = args[0]
			}
			resp, err := svc.SearchSimple(ctx, q, rating, limit)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		},
	}
	cmd.Flags().StringVar(&rating, "rating", "", "content rating filter (sfw, nsfw, unknown)")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	return cmd
}
