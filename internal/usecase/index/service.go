// Package index builds the dense and sparse search indexes from a tagged
// corpus file.
package index

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/risulab/cardsearch/internal/bm25"
	"github.com/risulab/cardsearch/internal/corpus"
	"github.com/risulab/cardsearch/internal/domain"
	"github.com/risulab/cardsearch/internal/repository/character"
)

// Default number of documents embedded per provider call.
const defaultBatchSize = 64

// CharacterStore is the dense index contract the indexer needs.
type CharacterStore interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, cards []character.IndexedCharacter) error
}

// SparseStore persists the built BM25 artifact.
type SparseStore interface {
	Save(ctx context.Context, idx *bm25.Index) error
}

// Service rebuilds both indexes from a corpus file. Dense documents are
// upserted in place under stable keys, so a rebuild converges without a
// visible gap; the sparse artifact is replaced wholesale.
type Service struct {
	store     CharacterStore
	sparse    SparseStore
	embed     domain.BatchEmbedder
	batchSize int
	logger    *zap.Logger
}

// New creates an index service. The embedder must be the document-mode one.
func New(store CharacterStore, sparse SparseStore, embed domain.BatchEmbedder, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		sparse:    sparse,
		embed:     embed,
		batchSize: defaultBatchSize,
		logger:    logger,
	}
}

// WithBatchSize overrides the embedding batch size.
func (s *Service) WithBatchSize(n int) *Service {
	if n > 0 {
		s.batchSize = n
	}
	return s
}

// Rebuild reads the tagged corpus, embeds every card, upserts the dense
// index, and rebuilds and persists the sparse index. Returns the built
// sparse index so a serving process can swap it in without a reload.
func (s *Service) Rebuild(ctx context.Context, corpusPath string) (*bm25.Index, error) {
	records, err := corpus.Read(corpusPath)
	if err != nil {
		return nil, fmt.Errorf("read tagged corpus: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("tagged corpus %s is empty", corpusPath)
	}
	s.logger.Info("Index rebuild starting",
		zap.String("corpus", corpusPath), zap.Int("records", len(records)))

	if err := s.store.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("ensure dense index: %w", err)
	}

	sparseDocs := make([]bm25.Document, 0, len(records))
	var totalTokens int

	for start := 0; start < len(records); start += s.batchSize {
		end := start + s.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		docs := make([]string, len(batch))
		for i := range batch {
			docs[i] = domain.FormatDocument(&batch[i])
		}

		res, err := s.embed.BatchEmbed(ctx, docs)
		if err != nil {
			return nil, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if len(res.Embeddings) != len(batch) {
			return nil, fmt.Errorf("embed batch at %d: got %d vectors for %d documents",
				start, len(res.Embeddings), len(batch))
		}
		totalTokens += res.TotalTokens

		cards := make([]character.IndexedCharacter, len(batch))
		for i := range batch {
			cards[i] = character.IndexedCharacter{
				Character: batch[i].Metadata(),
				Document:  docs[i],
				Vector:    res.Embeddings[i],
			}
			sparseDocs = append(sparseDocs, bm25.Document{
				ID:   batch[i].UUID,
				Text: domain.FormatSparseText(&batch[i]),
			})
		}
		if err := s.store.Upsert(ctx, cards); err != nil {
			return nil, fmt.Errorf("upsert batch at %d: %w", start, err)
		}

		s.logger.Debug("Batch indexed",
			zap.Int("done", end), zap.Int("total", len(records)))
	}

	sparseIdx := bm25.Build(sparseDocs)
	if err := s.sparse.Save(ctx, sparseIdx); err != nil {
		return nil, fmt.Errorf("save sparse index: %w", err)
	}

	s.logger.Info("Index rebuild finished",
		zap.Int("records", len(records)),
		zap.Int("embedding_tokens", totalTokens))
	return sparseIdx, nil
}
