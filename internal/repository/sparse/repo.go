// Package sparse persists the BM25 index artifact in the key-value store so
// the keyword side of retrieval survives process restarts.
package sparse

import (
	"context"
	"errors"
	"fmt"

	"github.com/risulab/cardsearch/internal/bm25"
	"github.com/risulab/cardsearch/internal/db"
	"github.com/risulab/cardsearch/internal/domain"
)

const indexKey = "cardsearch:bm25:index"

// Repo loads and saves the sparse index artifact.
type Repo struct {
	kv db.KVStore
}

// New creates a sparse index repository.
func New(kv db.KVStore) *Repo {
	return &Repo{kv: kv}
}

// Save serializes and stores the index.
func (r *Repo) Save(ctx context.Context, idx *bm25.Index) error {
	data, err := idx.Encode()
	if err != nil {
		return err
	}
	if err := r.kv.Set(ctx, indexKey, data); err != nil {
		return fmt.Errorf("save bm25 index: %w", err)
	}
	return nil
}

// Load fetches and decodes the stored index. A missing artifact maps to
// ErrSparseIndexMissing so callers can degrade to dense-only retrieval.
func (r *Repo) Load(ctx context.Context) (*bm25.Index, error) {
	data, err := r.kv.Get(ctx, indexKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, domain.ErrSparseIndexMissing
		}
		return nil, fmt.Errorf("load bm25 index: %w", err)
	}
	idx, err := bm25.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSparseIndexMissing, err)
	}
	return idx, nil
}
