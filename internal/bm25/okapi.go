// Package bm25 implements Okapi BM25 keyword retrieval over a tokenized
// in-memory corpus, with JSON persistence of the corpus artifact. The
// scorer itself is cheap to rebuild and is never serialized.
package bm25

import "math"

// Reference Okapi parameters; no per-corpus tuning.
const (
	K1 = 1.5
	B  = 0.75
)

// Okapi scores token queries against a fixed tokenized corpus.
type Okapi struct {
	termFreqs []map[string]int // per-document term frequency
	docLens   []int
	avgdl     float64
	idf       map[string]float64
}

// NewOkapi builds a scorer from a tokenized corpus.
func NewOkapi(corpus [][]string) *Okapi {
	n := len(corpus)
	o := &Okapi{
		termFreqs: make([]map[string]int, n),
		docLens:   make([]int, n),
		idf:       make(map[string]float64),
	}

	df := make(map[string]int)
	totalLen := 0
	for i, doc := range corpus {
		tf := make(map[string]int, len(doc))
		for _, t := range doc {
			tf[t]++
		}
		o.termFreqs[i] = tf
		o.docLens[i] = len(doc)
		totalLen += len(doc)
		for t := range tf {
			df[t]++
		}
	}

	if n > 0 {
		o.avgdl = float64(totalLen) / float64(n)
	}
	for t, f := range df {
		// Non-negative IDF variant: rare terms weigh more, ubiquitous
		// terms approach zero instead of going negative.
		o.idf[t] = math.Log(1 + (float64(n)-float64(f)+0.5)/(float64(f)+0.5))
	}
	return o
}

// Scores computes the BM25 score of the query tokens against every
// document, in corpus order.
func (o *Okapi) Scores(query []string) []float64 {
	scores := make([]float64, len(o.termFreqs))
	for _, t := range query {
		idf, ok := o.idf[t]
		if !ok {
			continue
		}
		for i, tf := range o.termFreqs {
			f := float64(tf[t])
			if f == 0 {
				continue
			}
			norm := 1 - B + B*float64(o.docLens[i])/o.avgdl
			scores[i] += idf * f * (K1 + 1) / (f + K1*norm)
		}
	}
	return scores
}
