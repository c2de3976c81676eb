// Package tag runs the LLM tagging pipeline over a scraped corpus,
// producing the tagged corpus the indexer consumes.
package tag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/risulab/cardsearch/internal/corpus"
	"github.com/risulab/cardsearch/internal/domain"
)

// Prompt and output truncation limits, in runes.
const (
	promptDescLimit     = 1000
	promptDetailLimit   = 2000
	promptPersonaLimit  = 500
	promptScenarioLimit = 500
	promptFirstMsgLimit = 1500
	outputDescLimit     = 500
)

// Tagger is the LLM client contract.
type Tagger interface {
	Tag(ctx context.Context, prompt string) (*domain.CharacterTags, string, error)
}

// Service tags scraped records concurrently with append-based resume:
// records already present in the output file are skipped.
type Service struct {
	client  Tagger
	workers int
	logger  *zap.Logger
}

// New creates a tagging service.
func New(client Tagger, workers int, logger *zap.Logger) *Service {
	if workers <= 0 {
		workers = 4
	}
	return &Service{client: client, workers: workers, logger: logger}
}

// Run tags every record of scrapedPath not yet present in taggedPath and
// appends the results. Per-record failures are recorded on the record
// itself, so a rerun retries only what failed.
func (s *Service) Run(ctx context.Context, scrapedPath, taggedPath string) error {
	scraped, err := corpus.Read(scrapedPath)
	if err != nil {
		return fmt.Errorf("read scraped corpus: %w", err)
	}
	tagged, err := corpus.Read(taggedPath)
	if err != nil {
		return fmt.Errorf("read tagged corpus: %w", err)
	}

	done := make(map[string]bool, len(tagged))
	for i := range tagged {
		if tagged[i].LLMTags != nil {
			done[tagged[i].UUID] = true
		}
	}

	pending := make([]domain.TaggedCharacter, 0, len(scraped))
	for i := range scraped {
		if !done[scraped[i].UUID] {
			pending = append(pending, scraped[i])
		}
	}
	s.logger.Info("Tagging run starting",
		zap.Int("total", len(scraped)),
		zap.Int("already_tagged", len(done)),
		zap.Int("pending", len(pending)))
	if len(pending) == 0 {
		return nil
	}

	out, err := corpus.OpenAppend(taggedPath)
	if err != nil {
		return fmt.Errorf("open tagged corpus: %w", err)
	}
	defer out.Close()

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		tagCount int
		errCount int
	)
	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		rec := pending[i]
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			s.tagOne(ctx, &rec)

			mu.Lock()
			defer mu.Unlock()
			if rec.LLMTags != nil {
				tagCount++
			} else {
				errCount++
			}
			if err := out.Append(&rec); err != nil {
				s.logger.Error("Failed to append tagged record",
					zap.String("uuid", rec.UUID), zap.Error(err))
			}
		})
		if err != nil {
			wg.Done()
			s.logger.Warn("Submit failed", zap.String("uuid", rec.UUID), zap.Error(err))
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("tagging canceled: %w", err)
	}
	s.logger.Info("Tagging run finished",
		zap.Int("tagged", tagCount), zap.Int("failed", errCount))
	return nil
}

func (s *Service) tagOne(ctx context.Context, rec *domain.TaggedCharacter) {
	tags, model, err := s.client.Tag(ctx, BuildPrompt(rec))
	rec.TaggedAt = time.Now().Unix()
	if err != nil {
		rec.TaggingError = err.Error()
		s.logger.Warn("Tagging failed", zap.String("uuid", rec.UUID), zap.Error(err))
		return
	}
	tags.Description = truncateRunes(tags.Description, outputDescLimit)
	rec.LLMTags = tags
	rec.TaggingModel = model
	rec.TaggingError = ""
}

// BuildPrompt renders one card as the user message for the tagging model.
// Long fields are truncated so the prompt stays within the model context window.
func BuildPrompt(rec *domain.TaggedCharacter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "제목: %s\n", rec.Name)
	fmt.Fprintf(&b, "제작자: %s\n", rec.AuthorName)
	fmt.Fprintf(&b, "태그: %s\n", strings.Join(rec.Tags, ", "))
	fmt.Fprintf(&b, "다운로드: %s\n", rec.Download)
	fmt.Fprintf(&b, "로어북: %s\n", yesNo(rec.HasLore))
	fmt.Fprintf(&b, "에셋: %s\n", yesNo(rec.HasAsset))
	fmt.Fprintf(&b, "설명: %s\n", truncateRunes(rec.Desc, promptDescLimit))

	if d := rec.Detail; d != nil {
		if d.Description != "" {
			fmt.Fprintf(&b, "\n상세 설명: %s\n", truncateRunes(d.Description, promptDetailLimit))
		}
		if d.Personality != "" {
			fmt.Fprintf(&b, "성격: %s\n", truncateRunes(d.Personality, promptPersonaLimit))
		}
		if d.Scenario != "" {
			fmt.Fprintf(&b, "시나리오: %s\n", truncateRunes(d.Scenario, promptScenarioLimit))
		}
		if d.FirstMessage != "" {
			fmt.Fprintf(&b, "첫 메시지: %s\n", truncateRunes(d.FirstMessage, promptFirstMsgLimit))
		}
	}
	return b.String()
}

func yesNo(b bool) string {
	if b {
		return "있음"
	}
	return "없음"
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
