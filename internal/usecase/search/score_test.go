package search

import (
	"math"
	"testing"

	"github.com/risulab/cardsearch/internal/domain"
)

func TestParseDownloadCount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"1234", 1234},
		{"1,234", 1234},
		{"12.3k", 12300},
		{"12.3K", 12300},
		{"1.5m", 1.5e6},
		{"2M", 2e6},
		{" 500 ", 500},
		{"", 0},
		{"abc", 0},
		{"-5", 0},
		{"1.2.3k", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseDownloadCount(tt.in); got != tt.want {
				t.Errorf("ParseDownloadCount(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestPopularityBoost(t *testing.T) {
	// Zero downloads still yields log10(10)/10 = 0.1, not zero.
	if got := popularityBoost(""); !almostEqual(got, 0.1) {
		t.Errorf("popularityBoost(empty) = %v, want 0.1", got)
	}
	if got := popularityBoost("990"); !almostEqual(got, 0.3) {
		t.Errorf("popularityBoost(990) = %v, want 0.3", got)
	}
	// Monotonic in downloads.
	if popularityBoost("1k") <= popularityBoost("100") {
		t.Error("popularity boost must grow with downloads")
	}
}

func TestKeywordBoost_Zones(t *testing.T) {
	z := domain.Zones{
		Name:    "vampire queen",
		Summary: "a lonely vampire",
		Tags:    "romance, fantasy",
		Full:    "이름: vampire queen\n요약: a lonely vampire\n태그: romance, fantasy\nsomething hidden",
	}

	// Single token in name and summary: (0.4+0.8)/1 * 1/1.
	if got := keywordBoost([]string{"vampire"}, z); !almostEqual(got, 1.2) {
		t.Errorf("keywordBoost(vampire) = %v, want 1.2", got)
	}

	// Token present only outside labeled zones gets the elsewhere weight.
	if got := keywordBoost([]string{"hidden"}, z); !almostEqual(got, zoneElsewhere) {
		t.Errorf("keywordBoost(hidden) = %v, want %v", got, zoneElsewhere)
	}

	// Unmatched token contributes nothing.
	if got := keywordBoost([]string{"pirate"}, z); got != 0 {
		t.Errorf("keywordBoost(pirate) = %v, want 0", got)
	}
}

func TestKeywordBoost_CoverageScaling(t *testing.T) {
	z := domain.Zones{
		Summary: "a lonely vampire",
		Full:    "요약: a lonely vampire",
	}

	full := keywordBoost([]string{"vampire"}, z)
	// Two tokens, one matched: sum/2 * 1/2 = quarter of the single-token value.
	half := keywordBoost([]string{"vampire", "pirate"}, z)
	if !almostEqual(half, full/4) {
		t.Errorf("partial coverage = %v, want %v", half, full/4)
	}
}

func TestKeywordBoost_Synonyms(t *testing.T) {
	z := domain.Zones{
		Summary: "얀데레 여자친구",
		Full:    "요약: 얀데레 여자친구",
	}
	// English token matches the Korean zone through the synonym table.
	if got := keywordBoost([]string{"yandere"}, z); got == 0 {
		t.Error("expected synonym match in summary zone")
	}
}

func TestKeywordBoost_NoTokens(t *testing.T) {
	if got := keywordBoost(nil, domain.Zones{Full: "anything"}); got != 0 {
		t.Errorf("keywordBoost(nil) = %v, want 0", got)
	}
}

func TestFinalScore(t *testing.T) {
	w := DefaultWeights
	got := w.finalScore(1.0/61, 1.2, 0.3)
	want := (1.0/61)*10 + 1.2*0.3 + 0.3*0.2
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("finalScore = %v, want %v", got, want)
	}
}
