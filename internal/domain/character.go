package domain

// RealmURL is the canonical character page base URL.
const RealmURL = "https://realm.risuai.net/character"

// ImageURL is the base URL for character card images.
const ImageURL = "https://realm.risuai.net/api/v1/image"

// ContentRating classifies a character card's content.
type ContentRating string

// Content rating values assigned by the tagging pipeline.
const (
	RatingSFW     ContentRating = "sfw"
	RatingNSFW    ContentRating = "nsfw"
	RatingUnknown ContentRating = "unknown"
)

// NormalizeRating maps arbitrary input to a known rating, defaulting to unknown.
func NormalizeRating(s string) ContentRating {
	switch ContentRating(s) {
	case RatingSFW, RatingNSFW:
		return ContentRating(s)
	default:
		return RatingUnknown
	}
}

// Gender classifies the character(s) a card portrays.
type Gender string

// Gender values assigned by the tagging pipeline.
const (
	GenderFemale   Gender = "female"
	GenderMale     Gender = "male"
	GenderMultiple Gender = "multiple"
	GenderOther    Gender = "other"
	GenderUnknown  Gender = "unknown"
)

// NormalizeGender maps arbitrary input to a known gender, defaulting to other.
func NormalizeGender(s string) Gender {
	switch Gender(s) {
	case GenderFemale, GenderMale, GenderMultiple, GenderUnknown:
		return Gender(s)
	default:
		return GenderOther
	}
}

// Language classifies the language a card roleplays in.
type Language string

// Language values assigned by the tagging pipeline. The set is extensible:
// unrecognized single languages normalize to other.
const (
	LangKorean       Language = "korean"
	LangEnglish      Language = "english"
	LangJapanese     Language = "japanese"
	LangMultilingual Language = "multilingual"
	LangOther        Language = "other"
)

// NormalizeLanguage maps arbitrary input to a known language, defaulting to other.
func NormalizeLanguage(s string) Language {
	switch Language(s) {
	case LangKorean, LangEnglish, LangJapanese, LangMultilingual:
		return Language(s)
	default:
		return LangOther
	}
}

// Character is the typed metadata record for one indexed card.
// UUID is the sole join key between the dense store, the sparse index,
// and the tagged corpus.
type Character struct {
	UUID       string        `json:"uuid"`
	Name       string        `json:"name"`
	AuthorName string        `json:"authorname"`
	Desc       string        `json:"desc"`
	Download   string        `json:"download"` // raw, e.g. "12.3k"
	Img        string        `json:"img"`      // image hash
	NSFW       bool          `json:"nsfw"`
	Rating     ContentRating `json:"content_rating"`
	Gender     Gender        `json:"character_gender"`
	Language   Language      `json:"language"`
	Sources    []string      `json:"source,omitempty"`
	Genres     []string      `json:"genres,omitempty"`
	Tags       []string      `json:"tags,omitempty"` // original platform tags
	HasLore    bool          `json:"haslore"`
	HasAsset   bool          `json:"hasAsset"`
}

// PageURL returns the canonical character page URL.
func (c *Character) PageURL() string {
	return RealmURL + "/" + c.UUID
}

// ImgURL returns the derived card image URL, empty when no image hash exists.
func (c *Character) ImgURL() string {
	if c.Img == "" {
		return ""
	}
	return ImageURL + "/" + c.Img
}
