package sdk

// Character is one card as returned by the API.
type Character struct {
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

// SearchResponse is the body of a /search answer. Total counts the
// candidates that survived filtering before pagination.
type SearchResponse struct {
	Total   int         `json:"total"`
	Results []Character `json:"results"`
}

// HealthReport is the body of a /health answer. Status is "ok",
// "degraded" or "error"; Checks holds the per-component verdicts.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Healthy reports whether every component passed.
func (r *HealthReport) Healthy() bool {
	return r.Status == "ok"
}
