package bm25

import (
	"testing"
)

func testDocs() []Document {
	return []Document{
		{ID: "a", Text: "얀데레 vampire girl 얀데레"},
		{ID: "b", Text: "gentle elf healer of the forest"},
		{ID: "c", Text: "vampire hunter in the modern city"},
	}
}

func TestSearch_RanksMatchingDocs(t *testing.T) {
	idx := Build(testDocs())

	hits := idx.Search("vampire", 10)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d: %v", len(hits), hits)
	}
	for _, h := range hits {
		if h.ID != "a" && h.ID != "c" {
			t.Errorf("unexpected hit %q", h.ID)
		}
		if h.Score <= 0 {
			t.Errorf("hit %q has non-positive score %f", h.ID, h.Score)
		}
	}
}

func TestSearch_ExcludesZeroScoreDocs(t *testing.T) {
	idx := Build(testDocs())

	hits := idx.Search("elf", 10)
	if len(hits) != 1 || hits[0].ID != "b" {
		t.Fatalf("expected only doc b, got %v", hits)
	}
}

func TestSearch_DescendingOrder(t *testing.T) {
	idx := Build(testDocs())

	// Doc a repeats the term, so it should outrank the single mention.
	hits := idx.Search("얀데레 vampire", 10)
	if len(hits) < 2 {
		t.Fatalf("expected at least 2 hits, got %v", hits)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("hits not in descending order: %v", hits)
		}
	}
	if hits[0].ID != "a" {
		t.Errorf("expected doc a first, got %q", hits[0].ID)
	}
}

func TestSearch_SynonymExpansion(t *testing.T) {
	idx := Build(testDocs())

	// Korean query matches the English corpus through synonym expansion.
	hits := idx.Search("뱀파이어", 10)
	if len(hits) == 0 {
		t.Fatal("expected synonym-expanded query to match")
	}
}

func TestSearch_TopK(t *testing.T) {
	idx := Build(testDocs())

	hits := idx.Search("vampire", 1)
	if len(hits) != 1 {
		t.Fatalf("expected topK to truncate to 1, got %d", len(hits))
	}
}

func TestSearch_NoTokens(t *testing.T) {
	idx := Build(testDocs())

	if hits := idx.Search("", 10); hits != nil {
		t.Errorf("expected nil hits for empty query, got %v", hits)
	}
	if hits := idx.Search("!!!", 10); hits != nil {
		t.Errorf("expected nil hits for punctuation-only query, got %v", hits)
	}
}

func TestEncodeDecode_Roundtrip(t *testing.T) {
	idx := Build(testDocs())

	data, err := idx.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if decoded.Len() != idx.Len() {
		t.Fatalf("decoded Len = %d, want %d", decoded.Len(), idx.Len())
	}

	orig := idx.Search("vampire", 10)
	back := decoded.Search("vampire", 10)
	if len(orig) != len(back) {
		t.Fatalf("decoded index returns %d hits, original %d", len(back), len(orig))
	}
	for i := range orig {
		if orig[i].ID != back[i].ID || orig[i].Score != back[i].Score {
			t.Errorf("hit %d differs: %v vs %v", i, orig[i], back[i])
		}
	}
}

func TestDecode_Corrupt(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("expected error for invalid JSON")
	}
	if _, err := Decode([]byte(`{"doc_ids":["a"],"corpus":[]}`)); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestOkapi_IDFNonNegative(t *testing.T) {
	// A term in every document must keep a positive weight under the
	// non-negative IDF variant.
	corpus := [][]string{
		{"vampire", "girl"},
		{"vampire", "city"},
	}
	o := NewOkapi(corpus)

	scores := o.Scores([]string{"vampire"})
	for i, s := range scores {
		if s <= 0 {
			t.Errorf("doc %d score = %f, want positive", i, s)
		}
	}
}

func TestOkapi_EmptyCorpus(t *testing.T) {
	o := NewOkapi(nil)
	if scores := o.Scores([]string{"vampire"}); len(scores) != 0 {
		t.Errorf("expected no scores for empty corpus, got %v", scores)
	}
}
