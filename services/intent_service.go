package services

import (
	"strings"

	"github/mosaic/backend/models"
)

// stopWords are filler words that carry no search value in a question like
// "tell me about family struggles".
var stopWords = map[string]bool{
	"the": true, "about": true, "tell": true, "me": true, "show": true,
	"find": true, "with": true, "and": true, "or": true, "for": true,
	"how": true, "what": true, "when": true, "where": true, "who": true,
}

// themeVocabulary is scanned in order; the first entry found as a substring
// of the query becomes the theme.
var themeVocabulary = []string{"family", "work", "love", "loss", "hope", "struggle", "identity"}

// emotionVocabulary works the same way for the coarse emotion label.
var emotionVocabulary = []string{"joy", "grief", "hope", "fear", "pride", "longing"}

// fallbackTerms keeps the fetcher usable when the query had no content words
// at all. The extractor never returns an empty term list.
var fallbackTerms = []string{"family", "life", "story"}

// ExtractIntent derives search terms and coarse theme/emotion labels from a
// raw user question. It is total: every input, including the empty string,
// yields a usable Intent.
func ExtractIntent(query, context string) models.Intent {
	lowered := strings.ToLower(query)

	var terms []string
	for _, token := range strings.Fields(lowered) {
		token = strings.Trim(token, ".,!?;:\"'()")
		if len(token) <= 2 || stopWords[token] {
			continue
		}
		terms = append(terms, token)
	}
	if len(terms) == 0 {
		terms = append(terms, fallbackTerms...)
	}

	return models.Intent{
		Theme:       scanVocabulary(lowered, themeVocabulary, "connection"),
		Emotion:     scanVocabulary(lowered, emotionVocabulary, "reflective"),
		Context:     context,
		SearchTerms: terms,
	}
}

// scanVocabulary returns the first vocabulary entry appearing as a substring
// of the lower-cased query, or the fallback when none do.
func scanVocabulary(lowered string, vocabulary []string, fallback string) string {
	for _, word := range vocabulary {
		if strings.Contains(lowered, word) {
			return word
		}
	}
	return fallback
}
