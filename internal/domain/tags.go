package domain

// CharacterTags is the fixed tag schema the LLM tagging pipeline extracts
// from a card's free text.
type CharacterTags struct {
	Rating      ContentRating `json:"content_rating"`
	Gender      Gender        `json:"character_gender"`
	Language    Language      `json:"language"`
	Genres      []string      `json:"genres,omitempty"`
	Traits      []string      `json:"character_traits,omitempty"`
	Sources     []string      `json:"source,omitempty"` // empty for original characters
	Summary     string        `json:"summary"`
	Description string        `json:"description"`
}

// CardDetail is the downloaded card payload kept for the tagging prompt.
// Lorebook and asset contents are never stored, only the text fields.
type CardDetail struct {
	Description  string `json:"description,omitempty"`
	Personality  string `json:"personality,omitempty"`
	Scenario     string `json:"scenario,omitempty"`
	FirstMessage string `json:"first_mes,omitempty"`
}

// TaggedCharacter is one record of the scraped and tagged corpus files.
// Both the dense store and the sparse index are built from these records.
type TaggedCharacter struct {
	UUID       string `json:"uuid"`
	NSFW       bool   `json:"nsfw"`
	Name       string `json:"name"`
	Desc       string `json:"desc"`
	Download   string `json:"download"`
	Img        string `json:"img"`
	AuthorName string `json:"authorname"`
	Tags       []string `json:"tags"`
	HasLore    bool   `json:"haslore"`
	HasAsset   bool   `json:"hasAsset"`

	Detail       *CardDetail `json:"detail,omitempty"`
	DetailSource string      `json:"detail_source,omitempty"`

	LLMTags      *CharacterTags `json:"llm_tags,omitempty"`
	TaggingModel string         `json:"tagging_model,omitempty"`
	TaggingError string         `json:"tagging_error,omitempty"`

	ScrapedAt int64 `json:"scraped_at"`
	TaggedAt  int64 `json:"tagged_at"`
}

// Metadata flattens a tagged record into the filter/display metadata stored
// alongside the embedding. Missing LLM tags degrade to defaults rather than
// failing: the tagging pipeline is best-effort.
func (t *TaggedCharacter) Metadata() Character {
	c := Character{
		UUID:       t.UUID,
		Name:       t.Name,
		AuthorName: t.AuthorName,
		Desc:       t.Desc,
		Download:   t.Download,
		Img:        t.Img,
		NSFW:       t.NSFW,
		Rating:     RatingUnknown,
		Gender:     GenderOther,
		Language:   LangEnglish,
		Tags:       t.Tags,
		HasLore:    t.HasLore,
		HasAsset:   t.HasAsset,
	}
	if lt := t.LLMTags; lt != nil {
		c.Rating = NormalizeRating(string(lt.Rating))
		c.Gender = NormalizeGender(string(lt.Gender))
		c.Language = NormalizeLanguage(string(lt.Language))
		c.Sources = lt.Sources
		c.Genres = lt.Genres
	}
	return c
}
