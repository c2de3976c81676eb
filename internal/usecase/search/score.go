package search

import (
	"math"
	"strconv"
	"strings"

	"github.com/risulab/cardsearch/internal/domain"
	"github.com/risulab/cardsearch/internal/token"
)

// Weights compose the final score. Tuned constants, not derived; the shape
// (RRF dominant, keyword secondary, popularity tertiary) is the contract.
type Weights struct {
	RRF        float64
	Keyword    float64
	Popularity float64
}

// DefaultWeights are the calibrated production values.
var DefaultWeights = Weights{RRF: 10, Keyword: 0.3, Popularity: 0.2}

// Per-zone keyword boost weights. The LLM summary is the highest-signal
// zone; a match found only outside every labeled zone still counts a little.
const (
	zoneName      = 0.4
	zoneSummary   = 0.8
	zoneDesc      = 0.3
	zoneTags      = 0.5
	zoneElsewhere = 0.2
)

// ParseDownloadCount parses the raw platform download string: suffix
// notation ("12.3k", "1.5m"), comma-separated thousands ("1,234"), or a
// plain integer. Unparsable input is zero, never an error.
func ParseDownloadCount(s string) float64 {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")

	mult := 1.0
	switch {
	case strings.HasSuffix(s, "k"):
		mult = 1e3
		s = strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "m"):
		mult = 1e6
		s = strings.TrimSuffix(s, "m")
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n * mult
}

// popularityBoost compresses the huge download range into a small additive
// term: log10(downloads+10)/10.
func popularityBoost(download string) float64 {
	return math.Log10(ParseDownloadCount(download)+10) / 10
}

// keywordBoost scores query tokens against the zones of the formatted
// document with synonym-aware substring matching. Per-token zone weights are
// summed, normalized by token count, then scaled by the fraction of tokens
// that matched anywhere: full-coverage queries beat partial ones even at
// equal average weight.
func keywordBoost(tokens []string, z domain.Zones) float64 {
	if len(tokens) == 0 {
		return 0
	}

	var sum float64
	matched := 0
	for _, tok := range tokens {
		var w float64
		if token.MatchesWithSynonyms(z.Name, tok) {
			w += zoneName
		}
		if token.MatchesWithSynonyms(z.Summary, tok) {
			w += zoneSummary
		}
		if token.MatchesWithSynonyms(z.Description, tok) {
			w += zoneDesc
		}
		if token.MatchesWithSynonyms(z.Tags, tok) {
			w += zoneTags
		}
		if w == 0 && token.MatchesWithSynonyms(z.Full, tok) {
			w = zoneElsewhere
		}
		if w > 0 {
			matched++
		}
		sum += w
	}

	n := float64(len(tokens))
	return sum / n * (float64(matched) / n)
}

// finalScore combines the fused rank score with the two boosts.
func (w Weights) finalScore(rrf, kw, pop float64) float64 {
	return rrf*w.RRF + kw*w.Keyword + pop*w.Popularity
}
