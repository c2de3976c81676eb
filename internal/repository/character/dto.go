package character

import (
	"strings"

	"github.com/risulab/cardsearch/internal/db/redis"
	"github.com/risulab/cardsearch/internal/domain"
)

// Reserved hash field names. Everything else is metadata.
const (
	fieldDocument = "__document"
	fieldVector   = "vector"
)

// buildHashFields flattens a character, its search document and its
// embedding into the stored hash. List fields are comma-joined here and
// nowhere else: this is the single encode side of the store boundary.
func buildHashFields(c *domain.Character, document string, vector []float32) map[string]string {
	m := map[string]string{
		fieldDocument:      document,
		fieldVector:        redis.VectorToBytes(vector),
		"uuid":             c.UUID,
		"name":             c.Name,
		"authorname":       c.AuthorName,
		"download":         c.Download,
		"img":              c.Img,
		"nsfw":             boolField(c.NSFW),
		"content_rating":   string(c.Rating),
		"character_gender": string(c.Gender),
		"language":         string(c.Language),
		"source":           strings.Join(c.Sources, ","),
		"genres":           strings.Join(c.Genres, ","),
		"tags":             strings.Join(c.Tags, ","),
		"haslore":          boolField(c.HasLore),
		"hasasset":         boolField(c.HasAsset),
	}
	return m
}

// parseHashFields is the decode side. Metadata originates from a
// best-effort tagging pipeline, so missing or malformed fields degrade to
// defaults instead of failing.
func parseHashFields(uuid string, m map[string]string) (domain.Character, string) {
	c := domain.Character{
		UUID:       uuid,
		Name:       m["name"],
		AuthorName: m["authorname"],
		Download:   m["download"],
		Img:        m["img"],
		NSFW:       m["nsfw"] == "1",
		Rating:     domain.NormalizeRating(m["content_rating"]),
		Gender:     domain.NormalizeGender(m["character_gender"]),
		Language:   domain.NormalizeLanguage(m["language"]),
		Sources:    splitList(m["source"]),
		Genres:     splitList(m["genres"]),
		Tags:       splitList(m["tags"]),
		HasLore:    m["haslore"] == "1",
		HasAsset:   m["hasasset"] == "1",
	}
	if c.Download == "" {
		c.Download = "0"
	}
	return c, m[fieldDocument]
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
