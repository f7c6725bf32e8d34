package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github/mosaic/backend/models"
)

const (
	// The archive serves 10 records per page; we walk at most 5 pages and
	// stop early once 20 matches are in hand.
	archivePerPage  = 10
	archiveMaxPages = 5
	maxMatches      = 20
)

// StoryService finds archive records matching a user's intent.
type StoryService interface {
	// FetchMatching walks the paginated archive listing and returns the
	// records (0..20) matching the intent's search terms. Partial results
	// are fine: individual page failures are logged and skipped.
	FetchMatching(ctx context.Context, intent models.Intent) []models.StoryRecord
	// SearchCached looks up previously fetched stories in the local cache.
	SearchCached(term, location string) ([]models.StoryRecord, error)
}

// storyServiceImpl holds the dependencies needed to talk to the archive.
type storyServiceImpl struct {
	httpClient *http.Client
	baseURL    string
	limiter    *AdaptiveRateLimiter
	cache      *StoryCache
}

// NewStoryService creates a story service for the given archive listing URL.
// The cache may be nil (caching is skipped entirely then, e.g. in tests).
func NewStoryService(client *http.Client, baseURL string, limiter *AdaptiveRateLimiter, cache *StoryCache) StoryService {
	return &storyServiceImpl{
		httpClient: client,
		baseURL:    baseURL,
		limiter:    limiter,
		cache:      cache,
	}
}

// FetchMatching implements StoryService.
func (s *storyServiceImpl) FetchMatching(ctx context.Context, intent models.Intent) []models.StoryRecord {
	log.Printf("FETCHER: Searching archive with terms %v (theme: %s)", intent.SearchTerms, intent.Theme)

	var matched []models.StoryRecord
	seen := make(map[int]bool)

	for page := 1; page <= archiveMaxPages && len(matched) < maxMatches; page++ {
		records, err := s.fetchPage(ctx, page)
		if err != nil {
			// Partial results are acceptable; keep walking the remaining pages.
			log.Printf("FETCHER WARN: page %d failed, skipping: %v", page, err)
			continue
		}

		for _, rec := range records {
			if len(matched) >= maxMatches {
				break
			}
			if seen[rec.ID] {
				continue
			}
			if recordMatches(rec, intent.SearchTerms) {
				seen[rec.ID] = true
				matched = append(matched, rec)
			}
		}
	}

	log.Printf("FETCHER: Collected %d matching stories", len(matched))

	if s.cache != nil {
		if err := s.cache.SaveStories(matched); err != nil {
			// Caching is best-effort; the user's request still succeeds.
			log.Printf("FETCHER WARN: failed to cache stories: %v", err)
		}
	}
	return matched
}

// SearchCached implements StoryService.
func (s *storyServiceImpl) SearchCached(term, location string) ([]models.StoryRecord, error) {
	if s.cache == nil {
		return []models.StoryRecord{}, nil
	}
	return s.cache.SearchStories(term, location, maxMatches)
}

// fetchPage requests one page of the archive listing through the rate
// limiter. HTTP 429 surfaces as ErrRateLimited so the limiter backs off and
// retries; every other failure is returned to the caller once.
func (s *storyServiceImpl) fetchPage(ctx context.Context, page int) ([]models.StoryRecord, error) {
	var records []models.StoryRecord

	err := s.limiter.Do(ctx, func() error {
		url := fmt.Sprintf("%s?per_page=%d&page=%d", s.baseURL, archivePerPage, page)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("create archive request: %w", err)
		}
		req.Header.Set("User-Agent", "Mosaic/1.0 (Finding human connections)")
		req.Header.Set("Accept", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("call archive api: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return ErrRateLimited
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("archive api returned status %d: %s", resp.StatusCode, string(body))
		}

		var wire []models.ArchiveStory
		if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
			return fmt.Errorf("decode archive response: %w", err)
		}

		records = records[:0]
		for _, w := range wire {
			records = append(records, w.ToRecord())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// recordMatches reports whether any word of any search term appears as a
// case-insensitive substring of the record's keywords or description.
func recordMatches(rec models.StoryRecord, terms []string) bool {
	desc := strings.ToLower(rec.Description)
	for _, term := range terms {
		for _, word := range strings.Fields(strings.ToLower(term)) {
			if strings.Contains(desc, word) {
				return true
			}
			for _, kw := range rec.Keywords {
				if strings.Contains(strings.ToLower(kw), word) {
					return true
				}
			}
		}
	}
	return false
}
