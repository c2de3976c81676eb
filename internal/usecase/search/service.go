// Package search orchestrates hybrid retrieval: dense KNN and sparse BM25
// candidates fused by RRF, hydrated, filtered, and re-scored with keyword
// and popularity boosts.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/risulab/cardsearch/internal/domain"
	domsearch "github.com/risulab/cardsearch/internal/domain/search"
	"github.com/risulab/cardsearch/internal/domain/search/filter"
	"github.com/risulab/cardsearch/internal/metrics"
	"github.com/risulab/cardsearch/internal/repository/character"
	"github.com/risulab/cardsearch/internal/token"
)

// Candidate pool over-provisioning. Post-filtering eats candidates, so the
// pool is sized well past limit+offset; genre filtering is not pushed to the
// store and loses more, hence the larger multiplier.
const (
	fetchMultiplier      = 3
	fetchMultiplierGenre = 5
	fetchFloor           = 100
)

// Service runs search queries end to end.
type Service struct {
	store   CharacterStore
	embed   Embedder
	sparse  SparseSearcher
	weights Weights
	logger  *zap.Logger
}

// New creates a search service. sparse may be nil: retrieval degrades to
// dense-only ranking with a warning per query.
func New(store CharacterStore, embed Embedder, sparse SparseSearcher, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		embed:   embed,
		sparse:  sparse,
		weights: DefaultWeights,
		logger:  logger,
	}
}

// WithWeights overrides the score composition weights.
func (s *Service) WithWeights(w Weights) *Service {
	s.weights = w
	return s
}

// Search executes one query: empty q browses the store with the native
// filter; non-empty q runs hybrid retrieval. Total counts candidates that
// survived filtering before truncation to limit.
func (s *Service) Search(ctx context.Context, q *domsearch.Query) (*domsearch.Response, error) {
	q.Normalize()
	start := time.Now()

	expr := filter.FromQuery(q)

	var (
		resp *domsearch.Response
		mode string
		err  error
	)
	if strings.TrimSpace(q.Q) == "" {
		mode = "browse"
		resp, err = s.browse(ctx, q, expr)
	} else {
		mode, resp, err = s.hybrid(ctx, q, expr)
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(mode, status).Inc()
	if err == nil {
		metrics.SearchRequestDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}
	return resp, err
}

// SearchSimple is the convenience wrapper: free text, one rating, a limit.
func (s *Service) SearchSimple(ctx context.Context, q, rating string, limit int) (*domsearch.Response, error) {
	query := domsearch.Query{Q: q, Limit: limit}
	if rating != "" {
		query.Ratings = []string{rating}
	}
	return s.Search(ctx, &query)
}

// browse serves the empty-query path: native store filter, store order,
// every score zero.
func (s *Service) browse(ctx context.Context, q *domsearch.Query, expr filter.Expression) (*domsearch.Response, error) {
	hydrated, err := s.store.List(ctx, expr.Redis(), fetchLimit(q))
	if err != nil {
		return nil, fmt.Errorf("browse characters: %w", err)
	}

	results := make([]domsearch.Result, 0, len(hydrated))
	for i := range hydrated {
		h := &hydrated[i]
		if !matchesGenres(&h.Character, q.Genres) {
			continue
		}
		results = append(results, domsearch.ResultFrom(&h.Character, h.Document, 0))
	}

	return paginate(q, results), nil
}

// hybrid runs dense and sparse retrieval, fuses, hydrates, re-filters,
// scores and sorts. Returns the effective mode for instrumentation.
func (s *Service) hybrid(ctx context.Context, q *domsearch.Query, expr filter.Expression) (string, *domsearch.Response, error) {
	limit := fetchLimit(q)

	emb, err := s.embed.Embed(ctx, q.Q)
	if err != nil {
		return "hybrid", nil, fmt.Errorf("embed query: %w", err)
	}

	dense, err := s.store.QueryKNN(ctx, emb.Embedding, expr.Redis(), limit)
	if err != nil {
		return "hybrid", nil, fmt.Errorf("dense retrieval: %w", err)
	}
	metrics.SearchCandidatesFetched.WithLabelValues("dense").Observe(float64(len(dense)))

	mode := "hybrid"
	rankings := [][]string{rankedIDs(dense)}
	if s.sparse == nil || s.sparse.Len() == 0 {
		mode = "dense_only"
		s.logger.Warn("Sparse index unavailable, degrading to dense-only ranking",
			zap.String("query", q.Q))
	} else {
		hits := s.sparse.Search(q.Q, limit)
		metrics.SearchCandidatesFetched.WithLabelValues("sparse").Observe(float64(len(hits)))
		ids := make([]string, len(hits))
		for i, h := range hits {
			ids[i] = h.ID
		}
		rankings = append(rankings, ids)
	}

	// Fusion always runs, even over a single ranking, so score scale does
	// not depend on how many retrieval paths produced candidates.
	fused := fuseRRF(rankings...)
	if len(fused) == 0 {
		return mode, paginate(q, nil), nil
	}

	uuids := make([]string, len(fused))
	for i, f := range fused {
		uuids[i] = f.UUID
	}
	hydrated, err := s.store.GetMulti(ctx, uuids)
	if err != nil {
		return mode, nil, fmt.Errorf("hydrate candidates: %w", err)
	}

	tokens := token.Tokenize(q.Q, token.MinQueryLen)

	results := make([]domsearch.Result, 0, len(fused))
	for _, f := range fused {
		h, ok := hydrated[f.UUID]
		if !ok {
			continue
		}
		// Sparse retrieval bypasses the store filter; re-check keeps the
		// two paths equivalent.
		if !expr.Matches(&h.Character) {
			continue
		}
		if !matchesGenres(&h.Character, q.Genres) {
			continue
		}

		zones := domain.ParseZones(h.Character.Name, h.Document)
		score := s.weights.finalScore(
			f.Score,
			keywordBoost(tokens, zones),
			popularityBoost(h.Character.Download),
		)
		results = append(results, domsearch.ResultFrom(&h.Character, h.Document, score))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return mode, paginate(q, results), nil
}

// fetchLimit over-provisions the candidate pool to absorb post-filter loss.
func fetchLimit(q *domsearch.Query) int {
	mult := fetchMultiplier
	if len(q.Genres) > 0 {
		mult = fetchMultiplierGenre
	}
	n := (q.Limit + q.Offset) * mult
	if n < fetchFloor {
		n = fetchFloor
	}
	return n
}

// paginate applies offset then limit, counting survivors first.
func paginate(q *domsearch.Query, results []domsearch.Result) *domsearch.Response {
	if q.Offset >= len(results) {
		results = nil
	} else {
		results = results[q.Offset:]
	}
	total := len(results)
	if len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return &domsearch.Response{Total: total, Results: results, Query: *q}
}

// matchesGenres applies the post-hoc genre intersection: no selection
// matches everything, otherwise at least one selected genre must appear in
// the card's genre list (case-insensitive).
func matchesGenres(c *domain.Character, selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, want := range selected {
		want = strings.ToLower(strings.TrimSpace(want))
		if want == "" {
			continue
		}
		for _, g := range c.Genres {
			if strings.ToLower(g) == want {
				return true
			}
		}
	}
	return false
}

func rankedIDs(ranked []character.RankedID) []string {
	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.UUID
	}
	return ids
}
