// Package search holds the query and result types of the search API.
package search

import "github.com/risulab/cardsearch/internal/domain"

// Default pagination bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Query is one search request. Q may be empty, which means filter-only
// browsing: no ranking, store-native order, all scores zero.
type Query struct {
	Q         string   `json:"q"`
	Ratings   []string `json:"ratings,omitempty"`
	Genders   []string `json:"genders,omitempty"`
	Languages []string `json:"languages,omitempty"`
	// Genres is applied as a post-hoc intersection test, not a store
	// pre-filter: genre lists are not indexed metadata in every schema
	// generation.
	Genres []string `json:"genres,omitempty"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

// Normalize clamps pagination to sane bounds.
func (q *Query) Normalize() {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// Result is a single search hit exposed to presentation layers.
type Result struct {
	UUID       string   `json:"uuid"`
	Name       string   `json:"name"`
	AuthorName string   `json:"authorname"`
	Desc       string   `json:"desc"`
	Download   string   `json:"download"`
	URL        string   `json:"url"`
	Img        string   `json:"img,omitempty"`
	Rating     string   `json:"content_rating"`
	Gender     string   `json:"character_gender"`
	Language   string   `json:"language"`
	Genres     []string `json:"genres,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Sources    []string `json:"source,omitempty"`
	Score      float64  `json:"score"`
}

// ResultFrom builds a Result from stored metadata, the hydrated document
// text and a relevance score.
func ResultFrom(c *domain.Character, document string, score float64) Result {
	desc := document
	if desc == "" {
		desc = c.Desc
	}
	return Result{
		UUID:       c.UUID,
		Name:       c.Name,
		AuthorName: c.AuthorName,
		Desc:       desc,
		Download:   c.Download,
		URL:        c.PageURL(),
		Img:        c.ImgURL(),
		Rating:     string(c.Rating),
		Gender:     string(c.Gender),
		Language:   string(c.Language),
		Genres:     c.Genres,
		Tags:       c.Tags,
		Sources:    c.Sources,
		Score:      score,
	}
}

// Response is the search output. Total counts the candidates that survived
// filtering before truncation to Limit; it is capped by the fetch pool and
// may under-report corpus-wide matches.
type Response struct {
	Total   int      `json:"total"`
	Results []Result `json:"results"`
	Query   Query    `json:"query"`
}
