// Package llm tags cards through OpenAI-compatible chat completion APIs,
// with a model fallback chain and per-model rate-limit tracking.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/risulab/cardsearch/internal/domain"
	"github.com/risulab/cardsearch/internal/metrics"
)

// FallbackModels is the default model chain, best-evaluated first.
var FallbackModels = []string{
	"openai/gpt-oss-120b",
	"meta-llama/llama-4-maverick-17b-128e-instruct",
	"llama-3.3-70b-versatile",
	"moonshotai/kimi-k2-instruct",
	"moonshotai/kimi-k2-instruct-0905",
}

// systemPrompt instructs the model to emit the tag schema as bare JSON.
// Korean, matching the corpus language.
const systemPrompt = `다음 AI 캐릭터 정보를 분석하여 메타데이터를 JSON으로 추출하세요.

추출할 항목:
- content_rating: "sfw" | "nsfw" | "unknown" (성적 콘텐츠 포함 여부)
- genres: 해당하는 장르 목록 (자유롭게 작성, 예: fantasy, romance, school, scifi, modern, historical, horror, comedy, dark_fantasy, isekai, simulator, action, mystery, slice_of_life 등)
- character_gender: 봇의 주요 캐릭터 성별 (female, male, multiple, other, unknown 중 선택)
  - 중요: 유저가 맡는 역할이 아닌, 봇이 연기하는 NPC/AI 캐릭터의 성별을 기준으로 판단
  - 여러 캐릭터가 등장하면 "multiple", 주로 여캐면 "female", 주로 남캐면 "male"
- character_traits: 성격 특성 목록 (yandere, tsundere, kuudere, dandere 등)
- source: 원작이 있다면 원작명 목록 (genshin_impact, arknights 등), OC면 빈 목록
- language: 봇이 롤플레이 시 사용하는 주 언어 (korean, english, japanese, multilingual, other 중 선택)
  - 설명(description)이 아닌 실제 대화/시나리오/first_message 언어 기준
- summary: 캐릭터에 대한 한 줄 요약 (한국어)
- description: 캐릭터에 대한 상세 설명 (한국어, 100-500자)

JSON만 출력하세요. 다른 설명은 필요 없습니다.`

const (
	maxRetries      = 3
	completionLimit = 2048
	temperature     = 0.3
)

var thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Client calls chat models with fallback. Safe for concurrent use.
type Client struct {
	client *openai.Client
	models []string
	logger *zap.Logger

	mu           sync.Mutex
	limitedUntil map[string]time.Time
}

// Config holds the tagging provider settings.
type Config struct {
	APIKey  string
	BaseURL string
	Models  []string
	Logger  *zap.Logger
}

// New creates a tagging client.
func New(cfg Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	models := cfg.Models
	if len(models) == 0 {
		models = FallbackModels
	}
	return &Client{
		client:       openai.NewClientWithConfig(clientCfg),
		models:       models,
		logger:       cfg.Logger,
		limitedUntil: make(map[string]time.Time),
	}
}

// Tag extracts tags for one card, walking the fallback chain. Returns the
// parsed tags and the model that produced them. All models failing wraps
// domain.ErrTaggingFailed.
func (c *Client) Tag(ctx context.Context, prompt string) (*domain.CharacterTags, string, error) {
	var lastErr error

	for _, model := range c.models {
		if c.isRateLimited(model) {
			continue
		}

		tags, err := c.callModel(ctx, model, prompt)
		if err == nil {
			metrics.TaggingRequestsTotal.WithLabelValues(model, "success").Inc()
			return tags, model, nil
		}
		metrics.TaggingRequestsTotal.WithLabelValues(model, "error").Inc()
		lastErr = err

		if ctx.Err() != nil {
			return nil, "", fmt.Errorf("tagging canceled: %w", ctx.Err())
		}
		c.logger.Debug("Tagging model failed, trying next",
			zap.String("model", model), zap.Error(err))
	}

	if lastErr == nil {
		lastErr = domain.ErrRateLimited
	}
	return nil, "", fmt.Errorf("%w: %w", domain.ErrTaggingFailed, lastErr)
}

// callModel runs one model with retries on transient failures.
func (c *Client) callModel(ctx context.Context, model, prompt string) (*domain.CharacterTags, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: temperature,
			MaxTokens:   completionLimit,
		})
		if err != nil {
			var apiErr *openai.APIError
			if errors.As(err, &apiErr) {
				switch {
				case apiErr.HTTPStatusCode == 429:
					c.markRateLimited(model, retryAfterFromError(apiErr))
					return nil, fmt.Errorf("%w: %s", domain.ErrRateLimited, model)
				case apiErr.HTTPStatusCode >= 500:
					lastErr = err
					if serr := sleepCtx(ctx, time.Duration(1<<attempt)*time.Second); serr != nil {
						return nil, serr
					}
					continue
				default:
					return nil, fmt.Errorf("chat completion: %w", err)
				}
			}
			lastErr = err
			if serr := sleepCtx(ctx, time.Duration(1<<attempt)*time.Second); serr != nil {
				return nil, serr
			}
			continue
		}

		if len(resp.Choices) == 0 {
			return nil, errors.New("empty completion response")
		}

		tags, err := parseTagResponse(resp.Choices[0].Message.Content)
		if err != nil {
			// Malformed JSON is a model problem, not transient; let the
			// caller fall back to the next model.
			return nil, err
		}
		return tags, nil
	}
	return nil, fmt.Errorf("model %s failed after %d attempts: %w", model, maxRetries, lastErr)
}

// parseTagResponse extracts the tag JSON from a completion, tolerating
// reasoning blocks and markdown code fences around it.
func parseTagResponse(text string) (*domain.CharacterTags, error) {
	clean := strings.TrimSpace(thinkBlockRe.ReplaceAllString(text, ""))

	if strings.HasPrefix(clean, "```") {
		lines := strings.Split(clean, "\n")
		if len(lines) > 1 {
			if strings.TrimSpace(lines[len(lines)-1]) == "```" {
				lines = lines[1 : len(lines)-1]
			} else {
				lines = lines[1:]
			}
			clean = strings.Join(lines, "\n")
		}
	}

	var tags domain.CharacterTags
	if err := json.Unmarshal([]byte(clean), &tags); err != nil {
		return nil, fmt.Errorf("parse tag response: %w", err)
	}

	tags.Rating = domain.NormalizeRating(string(tags.Rating))
	tags.Gender = domain.NormalizeGender(string(tags.Gender))
	tags.Language = domain.NormalizeLanguage(string(tags.Language))
	return &tags, nil
}

func (c *Client) isRateLimited(model string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Before(c.limitedUntil[model])
}

func (c *Client) markRateLimited(model string, d time.Duration) {
	c.mu.Lock()
	c.limitedUntil[model] = time.Now().Add(d)
	c.mu.Unlock()
	c.logger.Warn("Tagging model rate limited",
		zap.String("model", model), zap.Duration("retry_after", d))
}

var retryAfterRe = regexp.MustCompile(`retry after (\d+)`)

// retryAfterFromError digs a "retry after N" hint out of the provider error
// message; defaults to a minute.
func retryAfterFromError(apiErr *openai.APIError) time.Duration {
	m := retryAfterRe.FindStringSubmatch(strings.ToLower(apiErr.Message))
	if len(m) == 2 {
		if secs, err := strconv.Atoi(m[1]); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Minute
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
