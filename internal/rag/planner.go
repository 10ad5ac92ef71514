package rag

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"

	"lumina-rag/internal/models"
)

// imageSearchTimeout bounds one image lookup within the fan-out.
const imageSearchTimeout = 10 * time.Second

// planImageQueries asks the generation capability for targeted image search
// queries derived from the user query and the retrieved context. A planning
// failure yields an empty plan, never an error.
func (s *Service) planImageQueries(ctx context.Context, query, contextStr string) []models.ImageQuery {
	snippet := contextStr
	if runes := []rune(snippet); len(runes) > models.PlannerContextLimit {
		snippet = string(runes[:models.PlannerContextLimit])
	}

	prompt := fmt.Sprintf(models.PlannerPromptTemplate, query, snippet)
	raw, err := s.generator.Generate(ctx, "", prompt, llms.WithTemperature(0.3))
	if err != nil {
		s.logger.Warn().Err(err).Msg("visual query planning failed")
		return nil
	}
	return ParseImagePlan(raw)
}

// ParseImagePlan extracts up to MaxImageQueries "search text | relevance
// label" entries from the planner output. Only the first MaxImageQueries
// lines are considered and malformed lines are silently dropped, so the
// plan may be shorter than the maximum.
func ParseImagePlan(raw string) []models.ImageQuery {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	if len(lines) > models.MaxImageQueries {
		lines = lines[:models.MaxImageQueries]
	}

	var plan []models.ImageQuery
	for _, line := range lines {
		parts := strings.SplitN(line, "|", 2)
		if len(parts) != 2 {
			continue
		}
		searchText := strings.TrimSpace(parts[0])
		label := strings.TrimSpace(parts[1])
		if searchText == "" {
			continue
		}
		plan = append(plan, models.ImageQuery{SearchText: searchText, RelevanceLabel: label})
	}
	return plan
}

// findImages runs the visual pipeline: plan queries, then resolve each plan
// entry to one image through the bounded worker pool. Failures are isolated
// per entry; the result order follows the plan order. This stage never
// propagates an error, the worst case is an empty list.
func (s *Service) findImages(ctx context.Context, query, contextStr string) []models.ImageResult {
	plan := s.planImageQueries(ctx, query, contextStr)
	if len(plan) == 0 {
		return nil
	}

	resolved := make([]*models.ImageResult, len(plan))
	var wg sync.WaitGroup
	for i, entry := range plan {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			searchCtx, cancel := context.WithTimeout(ctx, imageSearchTimeout)
			defer cancel()

			candidates, err := s.searcher.Search(searchCtx, entry.SearchText, 1)
			if err != nil {
				s.logger.Warn().Err(err).Str("search", entry.SearchText).Msg("image search failed, dropping entry")
				return
			}
			if len(candidates) == 0 {
				return
			}
			resolved[i] = &models.ImageResult{
				URL:          candidates[0].URL,
				Thumbnail:    candidates[0].Thumbnail,
				Title:        candidates[0].Title,
				ContextLabel: entry.RelevanceLabel,
			}
		}
		if err := s.searchPool.Submit(task); err != nil {
			wg.Done()
			s.logger.Warn().Err(err).Msg("image search pool rejected task")
		}
	}
	wg.Wait()

	var images []models.ImageResult
	for _, r := range resolved {
		if r != nil {
			images = append(images, *r)
		}
	}
	return images
}
