package story

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/behindy-dev/storyserver/internal/services"
	"github.com/behindy-dev/storyserver/pkg/prompts"
	"github.com/behindy-dev/storyserver/pkg/story"
)

// Page count bounds for a complete story. Provider estimates outside
// this range are clamped.
const (
	minBatchPages = 3
	maxBatchPages = 8
)

// previousTailRunes is how much of the previous page feeds the next
// page prompt for continuity.
const previousTailRunes = 100

// BatchService generates complete multi-page stories, with caching.
type BatchService struct {
	provider services.Provider
	prompts  *prompts.Manager
	gen      *story.TemplateGenerator
	cache    services.Cache
	cacheTTL time.Duration
	stats    *Stats
	logger   *slog.Logger
}

// NewBatchService wires the batch generator. A nil cache disables
// caching.
func NewBatchService(provider services.Provider, pm *prompts.Manager, gen *story.TemplateGenerator, cache services.Cache, cacheTTL time.Duration, stats *Stats, logger *slog.Logger) *BatchService {
	return &BatchService{
		provider: provider,
		prompts:  pm,
		gen:      gen,
		cache:    cache,
		cacheTTL: cacheTTL,
		stats:    stats,
		logger:   logger,
	}
}

func cacheKey(req story.BatchStoryRequest) string {
	return fmt.Sprintf("story:%s:%d", req.StationName, req.LineNumber)
}

// GenerateCompleteStory produces a full story for a station. Metadata
// comes first and pins the theme; pages are generated sequentially,
// each fed the tail of the previous one. Failed pages are replaced
// individually, and credential rejection swaps in a whole template
// story. Privileged callers pass useCache=false to force a fresh
// story.
func (b *BatchService) GenerateCompleteStory(ctx context.Context, req story.BatchStoryRequest, useCache bool) (*story.BatchStoryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	b.stats.RecordRequest(req.StationName)

	if useCache {
		if cached := b.lookupCache(ctx, req); cached != nil {
			return cached, nil
		}
	}

	pctx := services.PromptContext{
		StationName:     req.StationName,
		LineNumber:      req.LineNumber,
		CharacterHealth: req.CharacterHealth,
		CharacterSanity: req.CharacterSanity,
	}

	meta, err := b.generateMetadata(ctx, req, pctx)
	if err != nil {
		if errors.Is(err, services.ErrAuth) {
			b.logger.Error("provider credentials rejected, serving template story",
				"provider", b.provider.Name())
			resp := b.templateStory(req)
			b.stats.RecordFallback(0, time.Since(start))
			return resp, nil
		}
		b.logger.Warn("metadata generation failed, using templates", "error", err)
		m := b.gen.Metadata(req.StationName, req.LineNumber)
		meta = &m
	}

	totalPages := meta.EstimatedLength
	if totalPages < minBatchPages {
		totalPages = minBatchPages
	}
	if totalPages > maxBatchPages {
		totalPages = maxBatchPages
	}

	pages := make([]story.Page, 0, totalPages)
	previousTail := ""
	fallbackPages := 0
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page, err := b.generatePage(ctx, req, *meta, pageNum, totalPages, previousTail, pctx)
		if err != nil {
			if errors.Is(err, services.ErrAuth) {
				b.logger.Error("provider credentials rejected mid-story, serving template story")
				resp := b.templateStory(req)
				b.stats.RecordFallback(0, time.Since(start))
				return resp, nil
			}
			b.logger.Warn("page generation failed, using template page",
				"page", pageNum, "error", err)
			page = b.gen.FallbackPage(pageNum, totalPages, meta.Theme)
			fallbackPages++
		}
		pages = append(pages, page)
		previousTail = tail(page.Content, previousTailRunes)
	}

	resp := &story.BatchStoryResponse{
		StoryTitle:      meta.StoryTitle,
		Description:     meta.Description,
		Theme:           meta.Theme,
		Keywords:        meta.Keywords,
		Pages:           pages,
		EstimatedLength: len(pages),
		Difficulty:      meta.Difficulty,
		StationName:     req.StationName,
		LineNumber:      req.LineNumber,
	}

	if fallbackPages == 0 {
		b.stats.RecordSuccess(0, 0, time.Since(start))
	} else {
		b.stats.RecordFallback(fallbackPages, time.Since(start))
	}

	if useCache {
		b.storeCache(ctx, req, resp)
	}
	return resp, nil
}

func (b *BatchService) generateMetadata(ctx context.Context, req story.BatchStoryRequest, pctx services.PromptContext) (*story.Metadata, error) {
	result, err := b.provider.Generate(ctx, services.GenerateRequest{
		SystemPrompt: b.prompts.StoryPrompt(b.provider.Name()),
		UserPrompt:   prompts.MetadataPrompt(req),
		Context:      pctx,
	})
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("re-marshaling metadata: %w", err)
	}
	var meta story.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding metadata: %w", err)
	}
	if meta.StoryTitle == "" {
		return nil, fmt.Errorf("metadata has no story title")
	}

	if !meta.Theme.IsAllowed() {
		replacement := b.gen.FallbackTheme(req.StationName)
		b.logger.Warn("provider proposed disallowed theme, replacing",
			"proposed", meta.Theme, "replacement", replacement)
		meta.Theme = replacement
	}
	return &meta, nil
}

func (b *BatchService) generatePage(ctx context.Context, req story.BatchStoryRequest, meta story.Metadata, pageNum, totalPages int, previousTail string, pctx services.PromptContext) (story.Page, error) {
	result, err := b.provider.Generate(ctx, services.GenerateRequest{
		SystemPrompt: b.prompts.StoryPrompt(b.provider.Name()),
		UserPrompt:   prompts.PagePrompt(req, meta, pageNum, totalPages, previousTail),
		Context:      pctx,
	})
	if err != nil {
		return story.Page{}, err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return story.Page{}, fmt.Errorf("re-marshaling page: %w", err)
	}
	var page story.Page
	if err := json.Unmarshal(data, &page); err != nil {
		b.stats.RecordJSONFailure()
		return story.Page{}, fmt.Errorf("decoding page: %w", err)
	}
	if page.Content == "" {
		b.stats.RecordJSONFailure()
		return story.Page{}, fmt.Errorf("page %d has no content", pageNum)
	}
	if len(page.Options) < story.MinOptions || len(page.Options) > story.MaxOptions {
		b.stats.RecordJSONFailure()
		return story.Page{}, fmt.Errorf("page %d has %d options", pageNum, len(page.Options))
	}
	for i, opt := range page.Options {
		if opt.Amount < story.MinEffectAmount || opt.Amount > story.MaxEffectAmount {
			b.stats.RecordJSONFailure()
			return story.Page{}, fmt.Errorf("page %d option %d amount %d out of range", pageNum, i, opt.Amount)
		}
	}
	return page, nil
}

// templateStory is the whole-call fallback when the provider cannot be
// used at all.
func (b *BatchService) templateStory(req story.BatchStoryRequest) *story.BatchStoryResponse {
	meta := b.gen.Metadata(req.StationName, req.LineNumber)

	total := minBatchPages
	pages := make([]story.Page, 0, total)
	for pageNum := 1; pageNum <= total; pageNum++ {
		pages = append(pages, b.gen.ThemedPage(req.StationName, meta.Theme, pageNum, total))
	}

	return &story.BatchStoryResponse{
		StoryTitle:      meta.StoryTitle,
		Description:     meta.Description,
		Theme:           meta.Theme,
		Keywords:        meta.Keywords,
		Pages:           pages,
		EstimatedLength: len(pages),
		Difficulty:      meta.Difficulty,
		StationName:     req.StationName,
		LineNumber:      req.LineNumber,
	}
}

func (b *BatchService) lookupCache(ctx context.Context, req story.BatchStoryRequest) *story.BatchStoryResponse {
	if b.cache == nil {
		return nil
	}
	raw, err := b.cache.Get(ctx, cacheKey(req))
	if err != nil || raw == "" {
		return nil
	}

	var resp story.BatchStoryResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		b.logger.Warn("cached story is corrupt, regenerating", "key", cacheKey(req))
		_ = b.cache.Del(ctx, cacheKey(req))
		return nil
	}
	b.logger.Debug("story served from cache", "key", cacheKey(req))
	return &resp
}

func (b *BatchService) storeCache(ctx context.Context, req story.BatchStoryRequest, resp *story.BatchStoryResponse) {
	if b.cache == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := b.cache.Set(ctx, cacheKey(req), string(data), b.cacheTTL); err != nil {
		b.logger.Warn("failed to cache story", "key", cacheKey(req), "error", err)
	}
}

// tail returns the last n runes of s.
func tail(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
