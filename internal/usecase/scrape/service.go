// Package scrape walks the realm listings and builds the scraped corpus
// file the tagging pipeline consumes.
package scrape

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/risulab/cardsearch/internal/corpus"
	"github.com/risulab/cardsearch/internal/domain"
	"github.com/risulab/cardsearch/internal/transport/realm"
)

// Listing pagination stops after this many consecutive empty pages.
const emptyPageStreak = 3

// Fetcher is the realm client contract the scraper needs.
type Fetcher interface {
	FetchListPage(ctx context.Context, page int, nsfw bool, sort string) ([]realm.ListItem, error)
	FetchCharacterType(ctx context.Context, uuid string) string
	FetchDetail(ctx context.Context, uuid, charType string) (*realm.Detail, string, error)
}

// Service scrapes listings and card details into a corpus file.
type Service struct {
	client  Fetcher
	workers int
	logger  *zap.Logger
}

// New creates a scrape service.
func New(client Fetcher, workers int, logger *zap.Logger) *Service {
	if workers <= 0 {
		workers = 8
	}
	return &Service{client: client, workers: workers, logger: logger}
}

// listed pairs a list entry with the feed it came from.
type listed struct {
	item realm.ListItem
	nsfw bool
}

// Run scrapes both feeds, fetches details concurrently, and writes the
// corpus to outPath. Cards appearing in both feeds count as SFW.
func (s *Service) Run(ctx context.Context, outPath string) error {
	merged := make(map[string]listed)

	// NSFW first so the SFW pass overwrites shared cards.
	for _, nsfw := range []bool{true, false} {
		items, err := s.collectList(ctx, nsfw)
		if err != nil {
			return fmt.Errorf("collect list (nsfw=%t): %w", nsfw, err)
		}
		for _, item := range items {
			if item.ID == "" {
				continue
			}
			merged[item.ID] = listed{item: item, nsfw: nsfw}
		}
	}
	s.logger.Info("Listings collected", zap.Int("unique_cards", len(merged)))

	records := s.fetchDetails(ctx, merged)
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("scrape canceled: %w", err)
	}

	if err := corpus.Write(outPath, records); err != nil {
		return fmt.Errorf("write scraped corpus: %w", err)
	}
	s.logger.Info("Scraped corpus written",
		zap.String("path", outPath), zap.Int("records", len(records)))
	return nil
}

// collectList pages through one feed until the empty streak trips.
func (s *Service) collectList(ctx context.Context, nsfw bool) ([]realm.ListItem, error) {
	var all []realm.ListItem
	empty := 0
	for page := 0; empty < emptyPageStreak; page++ {
		items, err := s.client.FetchListPage(ctx, page, nsfw, "downloads")
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			empty++
			continue
		}
		empty = 0
		all = append(all, items...)

		if page%50 == 0 {
			s.logger.Debug("List progress",
				zap.Bool("nsfw", nsfw), zap.Int("page", page), zap.Int("collected", len(all)))
		}
	}
	return all, nil
}

// fetchDetails resolves card types and downloads details over a worker
// pool. Detail failures degrade to list-only records, never abort the run.
func (s *Service) fetchDetails(ctx context.Context, merged map[string]listed) []domain.TaggedCharacter {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		records = make([]domain.TaggedCharacter, 0, len(merged))
	)

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		s.logger.Error("Failed to create worker pool, falling back to serial", zap.Error(err))
		pool = nil
	} else {
		defer pool.Release()
	}

	for uuid, l := range merged {
		if ctx.Err() != nil {
			break
		}
		uuid, l := uuid, l
		task := func() {
			defer wg.Done()
			rec := s.scrapeOne(ctx, uuid, l)
			mu.Lock()
			records = append(records, rec)
			mu.Unlock()
		}

		wg.Add(1)
		if pool != nil {
			if err := pool.Submit(task); err != nil {
				wg.Done()
				s.logger.Warn("Submit failed", zap.String("uuid", uuid), zap.Error(err))
			}
		} else {
			task()
		}
	}
	wg.Wait()
	return records
}

func (s *Service) scrapeOne(ctx context.Context, uuid string, l listed) domain.TaggedCharacter {
	rec := domain.TaggedCharacter{
		UUID:       uuid,
		NSFW:       l.nsfw,
		Name:       l.item.Name,
		Desc:       l.item.Desc,
		Download:   l.item.Download,
		Img:        l.item.Img,
		AuthorName: l.item.AuthorName,
		Tags:       l.item.Tags,
		HasLore:    l.item.HasLore,
		HasAsset:   l.item.HasAsset,
		ScrapedAt:  time.Now().Unix(),
	}

	charType := l.item.Type
	if charType == "" {
		charType = s.client.FetchCharacterType(ctx, uuid)
	}

	detail, source, err := s.client.FetchDetail(ctx, uuid, charType)
	if err != nil {
		s.logger.Warn("Detail fetch failed, keeping list data",
			zap.String("uuid", uuid), zap.Error(err))
		rec.DetailSource = realm.SourceListOnly
		return rec
	}

	rec.DetailSource = source
	if detail != nil {
		rec.Detail = &domain.CardDetail{
			Description:  detail.Description,
			Personality:  detail.Personality,
			Scenario:     detail.Scenario,
			FirstMessage: detail.FirstMessage,
		}
		if len(detail.Tags) > 0 && len(rec.Tags) == 0 {
			rec.Tags = detail.Tags
		}
	}
	return rec
}
