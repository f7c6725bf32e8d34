package services

import (
	"context"
	"fmt"
	"log"

	"github/mosaic/backend/models"
)

const (
	previewLimit            = 3
	previewDescriptionLimit = 150
)

// MosaicService runs the full chat pipeline: intent extraction, story
// fetching, narrative generation, and response assembly.
type MosaicService interface {
	// Chat answers one user question. The returned envelope always carries
	// the derived intent; a generation failure is the only error path.
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, *models.Intent, error)
}

// mosaicServiceImpl holds the pipeline's two upstream-facing services.
type mosaicServiceImpl struct {
	stories   StoryService
	narrative NarrativeService
}

// NewMosaicService wires the pipeline together.
func NewMosaicService(stories StoryService, narrative NarrativeService) MosaicService {
	return &mosaicServiceImpl{stories: stories, narrative: narrative}
}

// Chat implements MosaicService.
func (m *mosaicServiceImpl) Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, *models.Intent, error) {
	log.Printf("SERVICE: Processing question: %q", req.Message)

	intent := ExtractIntent(req.Message, req.Context)
	matched := m.stories.FetchMatching(ctx, intent)

	if len(matched) == 0 {
		log.Printf("SERVICE: No stories matched; returning canned response without calling the generator")
		return noStoriesResponse(intent), &intent, nil
	}

	rawText, err := m.narrative.GenerateNarrative(ctx, matched, intent)
	if err != nil {
		return nil, &intent, err
	}

	analysis := ParseAnalysis(rawText)
	response := &models.ChatResponse{
		Message: fmt.Sprintf("I found %d stories that connect to %s. Here's what unites them:",
			len(matched), intent.Theme),
		UnityScore:  analysis.UnityScore,
		StoryCount:  len(matched),
		Locations:   distinctLocations(matched),
		Analysis:    analysis,
		Stories:     buildPreviews(matched),
		FollowUp:    fmt.Sprintf("Would you like to hear more stories about %s, or explore a different theme?", intent.Theme),
		RawAnalysis: rawText,
	}
	return response, &intent, nil
}

// noStoriesResponse is the fully populated fallback when the archive walk
// found nothing. The generation endpoint is never called on this path.
func noStoriesResponse(intent models.Intent) *models.ChatResponse {
	return &models.ChatResponse{
		Message: fmt.Sprintf("I couldn't find stories matching %q yet. The archive is vast - try asking about family, love, work, or belonging.",
			intent.Theme),
		UnityScore: 0,
		StoryCount: 0,
		Locations:  []string{},
		Analysis: models.Analysis{
			SurfaceDifferences: []string{},
			DeepConnections:    []string{},
			ConcreteExamples:   []string{},
			SurprisingUnity:    "",
			HumanTruth:         "",
		},
		Stories:  []models.StoryPreview{},
		FollowUp: "Try rephrasing your question, or ask about a universal theme like hope or loss.",
	}
}

// buildPreviews trims the matched stories down to at most 3 previews with
// truncated descriptions.
func buildPreviews(stories []models.StoryRecord) []models.StoryPreview {
	count := len(stories)
	if count > previewLimit {
		count = previewLimit
	}
	previews := make([]models.StoryPreview, 0, count)
	for _, story := range stories[:count] {
		previews = append(previews, models.StoryPreview{
			ID:          story.ID,
			Title:       story.Title,
			Description: truncate(story.Description, previewDescriptionLimit),
			Location:    story.DisplayLocation(),
			URL:         story.URL,
			AudioURL:    story.AudioURL,
		})
	}
	return previews
}

// distinctLocations returns the de-duplicated display locations of the
// matched stories, in first-seen order.
func distinctLocations(stories []models.StoryRecord) []string {
	seen := make(map[string]bool)
	locations := make([]string, 0)
	for _, story := range stories {
		loc := story.DisplayLocation()
		if loc == "Unknown" || seen[loc] {
			continue
		}
		seen[loc] = true
		locations = append(locations, loc)
	}
	return locations
}
