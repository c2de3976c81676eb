package tag

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/risulab/cardsearch/internal/corpus"
	"github.com/risulab/cardsearch/internal/domain"
)

func TestBuildPrompt_ListFields(t *testing.T) {
	rec := &domain.TaggedCharacter{
		UUID:       "a",
		Name:       "Mira",
		AuthorName: "author1",
		Tags:       []string{"vampire", "yandere"},
		Download:   "12.3k",
		HasLore:    true,
		Desc:       "a lonely vampire",
	}

	p := BuildPrompt(rec)
	for _, want := range []string{
		"제목: Mira",
		"제작자: author1",
		"태그: vampire, yandere",
		"다운로드: 12.3k",
		"로어북: 있음",
		"에셋: 없음",
		"설명: a lonely vampire",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
	if strings.Contains(p, "상세 설명") {
		t.Error("prompt should not contain detail section without detail data")
	}
}

func TestBuildPrompt_DetailSections(t *testing.T) {
	rec := &domain.TaggedCharacter{
		UUID: "a",
		Name: "Mira",
		Detail: &domain.CardDetail{
			Description:  "detailed backstory",
			Personality:  "cold but caring",
			Scenario:     "a castle at night",
			FirstMessage: "...who goes there?",
		},
	}

	p := BuildPrompt(rec)
	for _, want := range []string{
		"상세 설명: detailed backstory",
		"성격: cold but caring",
		"시나리오: a castle at night",
		"첫 메시지: ...who goes there?",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestBuildPrompt_TruncatesLongFields(t *testing.T) {
	long := strings.Repeat("가", 3000)
	rec := &domain.TaggedCharacter{
		UUID:   "a",
		Desc:   long,
		Detail: &domain.CardDetail{Description: long},
	}

	p := BuildPrompt(rec)
	if strings.Contains(p, strings.Repeat("가", promptDetailLimit+1)) {
		t.Error("detail description not truncated")
	}
	// Rune-based truncation must not split a Hangul syllable.
	if !strings.Contains(p, strings.Repeat("가", promptDescLimit)) {
		t.Error("desc truncated below its limit")
	}
}

type mockTagger struct {
	err   error
	calls int
}

func (m *mockTagger) Tag(context.Context, string) (*domain.CharacterTags, string, error) {
	m.calls++
	if m.err != nil {
		return nil, "", m.err
	}
	return &domain.CharacterTags{
		Rating:  domain.RatingSFW,
		Summary: "요약",
	}, "test-model", nil
}

func TestRun_TagsAllPending(t *testing.T) {
	dir := t.TempDir()
	scraped := filepath.Join(dir, "scraped.jsonl")
	tagged := filepath.Join(dir, "tagged.jsonl")

	err := corpus.Write(scraped, []domain.TaggedCharacter{
		{UUID: "a", Name: "Mira"},
		{UUID: "b", Name: "Dana"},
	})
	if err != nil {
		t.Fatal(err)
	}

	tagger := &mockTagger{}
	svc := New(tagger, 2, zap.NewNop())
	if err := svc.Run(context.Background(), scraped, tagged); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if tagger.calls != 2 {
		t.Errorf("expected 2 tagging calls, got %d", tagger.calls)
	}

	out, err := corpus.Read(tagged)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 tagged records, got %d", len(out))
	}
	for _, rec := range out {
		if rec.LLMTags == nil || rec.TaggingModel != "test-model" {
			t.Errorf("record %s not tagged: %+v", rec.UUID, rec)
		}
		if rec.TaggedAt == 0 {
			t.Errorf("record %s missing tagged timestamp", rec.UUID)
		}
	}
}

func TestRun_ResumesSkippingTagged(t *testing.T) {
	dir := t.TempDir()
	scraped := filepath.Join(dir, "scraped.jsonl")
	tagged := filepath.Join(dir, "tagged.jsonl")

	err := corpus.Write(scraped, []domain.TaggedCharacter{
		{UUID: "a"}, {UUID: "b"},
	})
	if err != nil {
		t.Fatal(err)
	}
	err = corpus.Write(tagged, []domain.TaggedCharacter{
		{UUID: "a", LLMTags: &domain.CharacterTags{Summary: "done"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	tagger := &mockTagger{}
	svc := New(tagger, 1, zap.NewNop())
	if err := svc.Run(context.Background(), scraped, tagged); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if tagger.calls != 1 {
		t.Errorf("expected 1 call for the untagged record, got %d", tagger.calls)
	}
}

func TestRun_RetriesFailedRecords(t *testing.T) {
	dir := t.TempDir()
	scraped := filepath.Join(dir, "scraped.jsonl")
	tagged := filepath.Join(dir, "tagged.jsonl")

	err := corpus.Write(scraped, []domain.TaggedCharacter{{UUID: "a"}})
	if err != nil {
		t.Fatal(err)
	}
	// A previous run recorded a failure: no LLM tags, only the error.
	err = corpus.Write(tagged, []domain.TaggedCharacter{
		{UUID: "a", TaggingError: "all models failed"},
	})
	if err != nil {
		t.Fatal(err)
	}

	tagger := &mockTagger{}
	svc := New(tagger, 1, zap.NewNop())
	if err := svc.Run(context.Background(), scraped, tagged); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if tagger.calls != 1 {
		t.Errorf("failed record should be retried, got %d calls", tagger.calls)
	}

	out, err := corpus.Read(tagged)
	if err != nil {
		t.Fatal(err)
	}
	// Dedupe keeps the retried record.
	if len(out) != 1 || out[0].LLMTags == nil || out[0].TaggingError != "" {
		t.Errorf("retried record not updated: %+v", out)
	}
}

func TestRun_RecordsFailure(t *testing.T) {
	dir := t.TempDir()
	scraped := filepath.Join(dir, "scraped.jsonl")
	tagged := filepath.Join(dir, "tagged.jsonl")

	err := corpus.Write(scraped, []domain.TaggedCharacter{{UUID: "a"}})
	if err != nil {
		t.Fatal(err)
	}

	tagger := &mockTagger{err: errors.New("all models failed")}
	svc := New(tagger, 1, zap.NewNop())
	if err := svc.Run(context.Background(), scraped, tagged); err != nil {
		t.Fatalf("Run should not fail on per-record errors: %v", err)
	}

	out, err := corpus.Read(tagged)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].TaggingError == "" || out[0].LLMTags != nil {
		t.Errorf("failure not recorded: %+v", out)
	}
}
