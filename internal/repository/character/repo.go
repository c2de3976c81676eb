// Package character persists indexed cards in Redis hashes behind one FT
// index, and adapts FT.SEARCH KNN results into ranked id lists.
package character

import (
	"context"
	"fmt"
	"strings"

	"github.com/risulab/cardsearch/internal/db"
	"github.com/risulab/cardsearch/internal/domain"
)

// KeyPrefix namespaces every key this service writes.
const KeyPrefix = "cardsearch:"

const (
	charPrefix = KeyPrefix + "char:"
	indexName  = KeyPrefix + "char:idx"
)

// filterable tag fields of the FT index.
var indexTags = []string{"content_rating", "character_gender", "language", "nsfw"}

// store is the consumer interface for character persistence (ISP).
type store interface {
	db.HashStore
	db.IndexManager
	db.Searcher
}

// IndexedCharacter is one card ready for upsert: metadata, formatted search
// document and its document-mode embedding.
type IndexedCharacter struct {
	Character domain.Character
	Document  string
	Vector    []float32
}

// Hydrated is a card fetched back from the store.
type Hydrated struct {
	Character domain.Character
	Document  string
}

// RankedID is a (uuid, score) pair in retrieval order.
type RankedID struct {
	UUID  string
	Score float64
}

// HNSWConfig tunes the vector index construction.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo implements dense-store access for the search and index services.
type Repo struct {
	store store
	dim   int
	hnsw  HNSWConfig
}

// New creates a character repository for vectors of the given dimension.
func New(s store, dim int) *Repo {
	return &Repo{store: s, dim: dim}
}

// WithHNSW overrides HNSW construction parameters.
func (r *Repo) WithHNSW(cfg HNSWConfig) *Repo {
	r.hnsw = cfg
	return r
}

// EnsureIndex creates the FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return fmt.Errorf("probe index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     indexName,
		Prefixes: []string{charPrefix},
		Tags:     indexTags,
		Vector: db.VectorField{
			Name:        "vector",
			Dim:         r.dim,
			M:           r.hnsw.M,
			EFConstruct: r.hnsw.EFConstruct,
		},
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	return nil
}

// DropIndex removes the FT index (full rebuild path). Missing index is fine.
func (r *Repo) DropIndex(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, indexName); err != nil && err != db.ErrIndexNotFound {
		return fmt.Errorf("drop index: %w", err)
	}
	return nil
}

// Upsert writes a batch of indexed cards in one pipelined round-trip.
func (r *Repo) Upsert(ctx context.Context, cards []IndexedCharacter) error {
	if len(cards) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(cards))
	for i, c := range cards {
		items[i] = db.HashSetItem{
			Key:    charPrefix + c.Character.UUID,
			Fields: buildHashFields(&c.Character, c.Document, c.Vector),
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert characters: %w", err)
	}
	return nil
}

// Get fetches one card by uuid.
func (r *Repo) Get(ctx context.Context, uuid string) (Hydrated, error) {
	m, err := r.store.HGetAll(ctx, charPrefix+uuid)
	if err != nil {
		return Hydrated{}, fmt.Errorf("get character %s: %w", uuid, err)
	}
	if len(m) == 0 {
		return Hydrated{}, domain.ErrCharacterNotFound
	}
	c, doc := parseHashFields(uuid, m)
	return Hydrated{Character: c, Document: doc}, nil
}

// GetMulti fetches a batch of cards in one pipelined round-trip, re-keyed
// by uuid. Ids absent from the store are simply missing from the map.
func (r *Repo) GetMulti(ctx context.Context, uuids []string) (map[string]Hydrated, error) {
	if len(uuids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(uuids))
	for i, id := range uuids {
		keys[i] = charPrefix + id
	}

	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get characters: %w", err)
	}

	out := make(map[string]Hydrated, len(uuids))
	for i, m := range maps {
		if len(m) == 0 {
			continue
		}
		c, doc := parseHashFields(uuids[i], m)
		out[uuids[i]] = Hydrated{Character: c, Document: doc}
	}
	return out, nil
}

// QueryKNN runs a similarity search with an optional pre-rendered filter
// and returns (uuid, similarity) pairs in store order, descending.
func (r *Repo) QueryKNN(ctx context.Context, vector []float32, filter string, topK int) ([]RankedID, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName,
		Filter:       filter,
		Vector:       vector,
		K:            topK,
		ReturnFields: []string{"__vector_score"},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: knn query: %w", domain.ErrVectorStoreError, err)
	}

	ranked := make([]RankedID, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		ranked = append(ranked, RankedID{
			UUID:  strings.TrimPrefix(e.Key, charPrefix),
			Score: e.Score,
		})
	}
	return ranked, nil
}

// List fetches cards matching the filter in store-native order (the empty
// query browsing path).
func (r *Repo) List(ctx context.Context, filter string, limit int) ([]Hydrated, error) {
	sr, err := r.store.SearchList(ctx, indexName, filter, 0, limit, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: list query: %w", domain.ErrVectorStoreError, err)
	}

	out := make([]Hydrated, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		uuid := strings.TrimPrefix(e.Key, charPrefix)
		c, doc := parseHashFields(uuid, e.Fields)
		out = append(out, Hydrated{Character: c, Document: doc})
	}
	return out, nil
}

// Count returns the number of cards matching the filter.
func (r *Repo) Count(ctx context.Context, filter string) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName, filter)
	if err != nil {
		return 0, fmt.Errorf("%w: count query: %w", domain.ErrVectorStoreError, err)
	}
	return n, nil
}
