package index

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/risulab/cardsearch/internal/bm25"
	"github.com/risulab/cardsearch/internal/corpus"
	"github.com/risulab/cardsearch/internal/domain"
	"github.com/risulab/cardsearch/internal/repository/character"
)

type mockStore struct {
	ensured   bool
	batches   [][]character.IndexedCharacter
	upsertErr error
}

func (m *mockStore) EnsureIndex(context.Context) error {
	m.ensured = true
	return nil
}

func (m *mockStore) Upsert(_ context.Context, cards []character.IndexedCharacter) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.batches = append(m.batches, cards)
	return nil
}

type mockBatchEmbedder struct {
	calls   int
	short   bool
	err     error
	gotDocs [][]string
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	m.gotDocs = append(m.gotDocs, texts)
	n := len(texts)
	if m.short {
		n--
	}
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = []float32{0.1, 0.2}
	}
	return domain.BatchEmbeddingResult{Embeddings: vecs, TotalTokens: 7 * len(texts)}, nil
}

type mockSparseSaver struct {
	saved int
	err   error
}

func (m *mockSparseSaver) Save(context.Context, *bm25.Index) error {
	if m.err != nil {
		return m.err
	}
	m.saved++
	return nil
}

func writeCorpus(t *testing.T, records []domain.TaggedCharacter) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tagged.jsonl")
	if err := corpus.Write(path, records); err != nil {
		t.Fatal(err)
	}
	return path
}

func testRecords(n int) []domain.TaggedCharacter {
	records := make([]domain.TaggedCharacter, n)
	for i := range records {
		records[i] = domain.TaggedCharacter{
			UUID:     string(rune('a' + i)),
			Name:     "Card " + string(rune('A'+i)),
			Desc:     "a vampire who waits",
			Download: "100",
			LLMTags: &domain.CharacterTags{
				Rating:  domain.RatingSFW,
				Summary: "vampire noble",
			},
		}
	}
	return records
}

func TestRebuild_IndexesEveryRecord(t *testing.T) {
	store := &mockStore{}
	sparse := &mockSparseSaver{}
	embed := &mockBatchEmbedder{}
	path := writeCorpus(t, testRecords(3))

	svc := New(store, sparse, embed, zap.NewNop()).WithBatchSize(2)
	idx, err := svc.Rebuild(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	if !store.ensured {
		t.Error("EnsureIndex not called")
	}
	if embed.calls != 2 {
		t.Errorf("embed calls = %d, want 2 (batch size 2 over 3 records)", embed.calls)
	}
	var upserted int
	for _, b := range store.batches {
		upserted += len(b)
	}
	if upserted != 3 {
		t.Errorf("upserted = %d, want 3", upserted)
	}
	if sparse.saved != 1 {
		t.Errorf("sparse saves = %d, want 1", sparse.saved)
	}
	if idx == nil || idx.Len() != 3 {
		t.Fatalf("returned sparse index len = %v, want 3", idx)
	}

	// Dense documents carry the zoned text, not the raw description.
	if !strings.Contains(store.batches[0][0].Document, "요약: vampire noble") {
		t.Errorf("document missing summary zone: %q", store.batches[0][0].Document)
	}
	if len(store.batches[0][0].Vector) != 2 {
		t.Errorf("vector not propagated: %v", store.batches[0][0].Vector)
	}
}

func TestRebuild_EmptyCorpusFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagged.jsonl")
	svc := New(&mockStore{}, &mockSparseSaver{}, &mockBatchEmbedder{}, zap.NewNop())

	if _, err := svc.Rebuild(context.Background(), path); err == nil {
		t.Fatal("expected error for empty corpus")
	}
}

func TestRebuild_VectorCountMismatch(t *testing.T) {
	path := writeCorpus(t, testRecords(2))
	svc := New(&mockStore{}, &mockSparseSaver{}, &mockBatchEmbedder{short: true}, zap.NewNop())

	_, err := svc.Rebuild(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "vectors") {
		t.Fatalf("err = %v, want vector count mismatch", err)
	}
}

func TestRebuild_EmbedErrorIsLoud(t *testing.T) {
	path := writeCorpus(t, testRecords(1))
	boom := errors.New("provider down")
	svc := New(&mockStore{}, &mockSparseSaver{}, &mockBatchEmbedder{err: boom}, zap.NewNop())

	_, err := svc.Rebuild(context.Background(), path)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped provider error", err)
	}
}

func TestRebuild_UpsertErrorIsLoud(t *testing.T) {
	path := writeCorpus(t, testRecords(1))
	boom := errors.New("store down")
	svc := New(&mockStore{upsertErr: boom}, &mockSparseSaver{}, &mockBatchEmbedder{}, zap.NewNop())

	_, err := svc.Rebuild(context.Background(), path)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped store error", err)
	}
}
