package domain

import "strings"

// maxDescChars bounds how much of the free-form card description enters the
// search document, so verbose cards do not dominate either index.
const maxDescChars = 500

// FormatDocument renders a tagged record into the labeled search document
// stored in the dense index. The labels double as zone markers for the
// keyword-position boost (see ParseZones).
func FormatDocument(t *TaggedCharacter) string {
	parts := []string{
		"이름: " + t.Name,
		"제작자: " + t.AuthorName,
	}

	if lt := t.LLMTags; lt != nil {
		if lt.Summary != "" {
			parts = append(parts, "요약: "+lt.Summary)
		}
		if lt.Description != "" {
			parts = append(parts, "설명: "+lt.Description)
		}
		if len(lt.Genres) > 0 {
			parts = append(parts, "장르: "+strings.Join(lt.Genres, ", "))
		}
		if len(lt.Traits) > 0 {
			parts = append(parts, "성격: "+strings.Join(lt.Traits, ", "))
		}
		if len(lt.Sources) > 0 {
			parts = append(parts, "원작: "+strings.Join(lt.Sources, ", "))
		}
	}

	if len(t.Tags) > 0 {
		parts = append(parts, "태그: "+strings.Join(t.Tags, ", "))
	}
	if t.Desc != "" {
		parts = append(parts, "소개: "+truncateRunes(t.Desc, maxDescChars))
	}

	return strings.Join(parts, "\n")
}

// FormatSparseText renders a tagged record into the BM25 document text.
// Field repetition is a deliberate term-frequency weighting hack: the LLM
// summary carries the highest signal and appears 3x, the original tags 2x.
func FormatSparseText(t *TaggedCharacter) string {
	parts := []string{t.Name, t.AuthorName}

	if lt := t.LLMTags; lt != nil {
		if lt.Summary != "" {
			parts = append(parts, lt.Summary, lt.Summary, lt.Summary)
		}
		if lt.Description != "" {
			parts = append(parts, lt.Description)
		}
		parts = append(parts, lt.Sources...)
	}

	for i := 0; i < 2; i++ {
		parts = append(parts, t.Tags...)
	}

	if t.Desc != "" {
		parts = append(parts, truncateRunes(t.Desc, maxDescChars))
	}

	return strings.Join(parts, " ")
}

// Zones are the distinguishable regions of a formatted document used by the
// keyword-position boost. All fields are lowercased.
type Zones struct {
	Name        string
	Summary     string
	Description string
	Tags        string
	Full        string
}

// ParseZones splits a formatted document back into scoring zones.
// Unlabeled or missing zones come back empty.
func ParseZones(name, document string) Zones {
	z := Zones{
		Name: strings.ToLower(name),
		Full: strings.ToLower(document),
	}
	for _, line := range strings.Split(document, "\n") {
		switch {
		case strings.HasPrefix(line, "요약:"):
			z.Summary = strings.ToLower(strings.TrimPrefix(line, "요약:"))
		case strings.HasPrefix(line, "설명:"):
			z.Description = strings.ToLower(strings.TrimPrefix(line, "설명:"))
		case strings.HasPrefix(line, "태그:"):
			z.Tags = strings.ToLower(strings.TrimPrefix(line, "태그:"))
		}
	}
	return z
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
