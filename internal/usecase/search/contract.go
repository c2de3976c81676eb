package search

import (
	"context"

	"github.com/risulab/cardsearch/internal/bm25"
	"github.com/risulab/cardsearch/internal/domain"
	"github.com/risulab/cardsearch/internal/repository/character"
)

// CharacterStore defines the dense-store contract for search operations.
type CharacterStore interface {
	QueryKNN(ctx context.Context, vector []float32, filter string, topK int) ([]character.RankedID, error)
	GetMulti(ctx context.Context, uuids []string) (map[string]character.Hydrated, error)
	List(ctx context.Context, filter string, limit int) ([]character.Hydrated, error)
}

// SparseSearcher is the in-process keyword retrieval contract. The index is
// immutable while serving queries; a rebuild swaps the whole value.
type SparseSearcher interface {
	Search(query string, topK int) []bm25.Hit
	Len() int
}

// Embedder vectorizes query text (query-mode embedding).
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
