package bm25

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/risulab/cardsearch/internal/token"
)

// Document is one input record for index construction.
type Document struct {
	ID   string
	Text string
}

// Hit is a ranked retrieval result.
type Hit struct {
	ID    string
	Score float64
}

// Index is the immutable sparse retrieval structure: parallel document ids
// and tokenized documents plus a scorer reconstructed from them. An Index
// is never mutated after Build; a rebuild replaces it wholesale.
type Index struct {
	docIDs []string
	corpus [][]string
	okapi  *Okapi
}

// Build tokenizes every document at indexing length and constructs the
// scorer.
func Build(docs []Document) *Index {
	idx := &Index{
		docIDs: make([]string, 0, len(docs)),
		corpus: make([][]string, 0, len(docs)),
	}
	for _, d := range docs {
		idx.docIDs = append(idx.docIDs, d.ID)
		idx.corpus = append(idx.corpus, token.Tokenize(d.Text, token.MinIndexLen))
	}
	idx.okapi = NewOkapi(idx.corpus)
	return idx
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int { return len(idx.docIDs) }

// Search tokenizes the query at query-time length, expands synonyms, and
// returns hits in strictly descending score order. Zero-score documents are
// excluded entirely: no match means absent, not present-with-zero.
func (idx *Index) Search(query string, topK int) []Hit {
	tokens := token.ExpandSynonyms(token.Tokenize(query, token.MinQueryLen))
	if len(tokens) == 0 {
		return nil
	}

	scores := idx.okapi.Scores(tokens)
	hits := make([]Hit, 0, len(scores))
	for i, s := range scores {
		if s > 0 {
			hits = append(hits, Hit{ID: idx.docIDs[i], Score: s})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// artifact is the serialized form. The scorer is reconstructed on decode.
type artifact struct {
	DocIDs []string   `json:"doc_ids"`
	Corpus [][]string `json:"corpus"`
}

// Encode serializes the index artifact.
func (idx *Index) Encode() ([]byte, error) {
	data, err := json.Marshal(artifact{DocIDs: idx.docIDs, Corpus: idx.corpus})
	if err != nil {
		return nil, fmt.Errorf("encode bm25 index: %w", err)
	}
	return data, nil
}

// Decode deserializes an index artifact and deterministically rebuilds the
// scorer from the stored corpus.
func Decode(data []byte) (*Index, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode bm25 index: %w", err)
	}
	if len(a.DocIDs) != len(a.Corpus) {
		return nil, fmt.Errorf("corrupt bm25 index: %d ids, %d documents", len(a.DocIDs), len(a.Corpus))
	}
	return &Index{
		docIDs: a.DocIDs,
		corpus: a.Corpus,
		okapi:  NewOkapi(a.Corpus),
	}, nil
}
