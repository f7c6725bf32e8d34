package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github/mosaic/backend/models"
)

const (
	// At most this many stories are embedded in the prompt, with their
	// descriptions cut to promptDescriptionLimit characters.
	promptStoryLimit       = 5
	promptDescriptionLimit = 200
	narrativeMaxTokens     = 1500
)

// NarrativeService asks the generation endpoint for a narrative connecting
// the matched stories.
type NarrativeService interface {
	// GenerateNarrative builds the analysis prompt from up to 5 stories and
	// returns the raw generated text. A failed or malformed generation call
	// propagates as an error; it is never retried.
	GenerateNarrative(ctx context.Context, stories []models.StoryRecord, intent models.Intent) (string, error)
}

type narrativeServiceImpl struct {
	generator TextGenerator
}

// NewNarrativeService creates a narrative service backed by the given
// generator.
func NewNarrativeService(generator TextGenerator) NarrativeService {
	return &narrativeServiceImpl{generator: generator}
}

// GenerateNarrative implements NarrativeService.
func (n *narrativeServiceImpl) GenerateNarrative(ctx context.Context, stories []models.StoryRecord, intent models.Intent) (string, error) {
	prompt := buildAnalysisPrompt(stories, intent)
	log.Printf("SERVICE: Sending analysis prompt for %d stories (%d bytes)", len(stories), len(prompt))

	text, err := n.generator.Complete(ctx, prompt, narrativeMaxTokens)
	if err != nil {
		return "", fmt.Errorf("could not generate narrative: %w", err)
	}
	return text, nil
}

// buildAnalysisPrompt renders the fixed analysis template. The section
// markers here are the contract with ParseAnalysis: the model is told to
// label its output with exactly the strings the parser looks for.
func buildAnalysisPrompt(stories []models.StoryRecord, intent models.Intent) string {
	var sb strings.Builder

	sb.WriteString("Analyze these oral history interviews about \"")
	sb.WriteString(intent.Theme)
	sb.WriteString("\" to find deep human connections despite surface differences.\n\n")

	count := len(stories)
	if count > promptStoryLimit {
		count = promptStoryLimit
	}
	for i := 0; i < count; i++ {
		story := stories[i]
		sb.WriteString(fmt.Sprintf("STORY %d:\n", i+1))
		sb.WriteString("Title: " + story.Title + "\n")
		sb.WriteString("Location: " + story.DisplayLocation() + "\n")
		sb.WriteString("Keywords: " + strings.Join(story.Keywords, ", ") + "\n")
		sb.WriteString("Description: " + truncate(story.Description, promptDescriptionLimit) + "\n")
		sb.WriteString(strings.Repeat("-", 40) + "\n")
	}

	sb.WriteString(`
Please analyze:
SURFACE_DIFFERENCES: List 3-5 obvious differences (location, age, background, etc.)
DEEP_CONNECTIONS: List 3 profound similarities in their human experience
SURPRISING_UNITY: Name the single most surprising thing these stories share
CONCRETE_EXAMPLES: Quote literal moments or details from the stories that show the connection
UNITY_SCORE: Rate 0.0-1.0 how powerfully these stories connect across difference
THE_HUMAN_TRUTH: One sentence capturing the universal truth these stories reveal

Focus on emotional resonance, shared struggles, common hopes, and universal human experiences.
`)
	return sb.String()
}

// truncate cuts s to at most limit characters, appending an ellipsis when
// anything was dropped.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
