// Package filter builds categorical metadata filters and re-evaluates them
// against candidates. The Redis rendering and the Go re-check must keep the
// same equality/membership/AND semantics: the sparse retrieval path bypasses
// the store's native filtering and relies on the re-check.
package filter

import (
	"strings"

	"github.com/risulab/cardsearch/internal/domain"
	domsearch "github.com/risulab/cardsearch/internal/domain/search"
)

// Filterable metadata field names as stored in the index.
const (
	FieldRating   = "content_rating"
	FieldGender   = "character_gender"
	FieldLanguage = "language"
)

// Condition is a membership test on one categorical field. A single value
// degenerates to an equality test.
type Condition struct {
	Field  string
	Values []string
}

// Expression is a conjunction of conditions. The zero value matches everything.
type Expression struct {
	conditions []Condition
}

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.conditions) == 0 }

// Conditions returns the conjunctive condition list.
func (e Expression) Conditions() []Condition { return e.conditions }

// allValues enumerates the full value set per field. Selecting every value
// of a field is normalized to "no condition" for that field.
var allValues = map[string][]string{
	FieldRating:   {string(domain.RatingSFW), string(domain.RatingNSFW), string(domain.RatingUnknown)},
	FieldGender:   {string(domain.GenderFemale), string(domain.GenderMale), string(domain.GenderMultiple), string(domain.GenderOther), string(domain.GenderUnknown)},
	FieldLanguage: {string(domain.LangKorean), string(domain.LangEnglish), string(domain.LangJapanese), string(domain.LangMultilingual), string(domain.LangOther)},
}

// FromQuery builds the conjunctive filter from whichever categorical fields
// have selections. Genre is deliberately absent: it is applied post-hoc by
// the orchestrator.
func FromQuery(q *domsearch.Query) Expression {
	var e Expression
	e.add(FieldRating, q.Ratings)
	e.add(FieldGender, q.Genders)
	e.add(FieldLanguage, q.Languages)
	return e
}

func (e *Expression) add(field string, values []string) {
	if len(values) == 0 {
		return
	}
	lowered := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			lowered = append(lowered, v)
		}
	}
	if len(lowered) == 0 || coversAll(field, lowered) {
		return
	}
	e.conditions = append(e.conditions, Condition{Field: field, Values: lowered})
}

func coversAll(field string, selected []string) bool {
	all := allValues[field]
	if len(all) == 0 {
		return false
	}
	set := make(map[string]bool, len(selected))
	for _, v := range selected {
		set[v] = true
	}
	for _, v := range all {
		if !set[v] {
			return false
		}
	}
	return true
}

// Redis renders the expression as an FT.SEARCH pre-filter: one tag clause
// per condition, values alternated with |, clauses joined by space (AND).
func (e Expression) Redis() string {
	if e.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, len(e.conditions))
	for _, c := range e.conditions {
		escaped := make([]string, len(c.Values))
		for i, v := range c.Values {
			escaped[i] = tagEscaper.Replace(v)
		}
		parts = append(parts, "@"+c.Field+":{"+strings.Join(escaped, "|")+"}")
	}
	return strings.Join(parts, " ")
}

// Matches re-evaluates the expression against stored metadata. Must stay
// logically equivalent to the Redis rendering.
func (e Expression) Matches(c *domain.Character) bool {
	for _, cond := range e.conditions {
		if !contains(cond.Values, fieldValue(c, cond.Field)) {
			return false
		}
	}
	return true
}

func fieldValue(c *domain.Character, field string) string {
	switch field {
	case FieldRating:
		return string(c.Rating)
	case FieldGender:
		return string(c.Gender)
	case FieldLanguage:
		return string(c.Language)
	}
	return ""
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)
