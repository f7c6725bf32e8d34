package models

// Intent is the set of search parameters derived from a user's free-text
// question. SearchTerms is guaranteed non-empty by the extractor (it falls
// back to a fixed list when everything gets filtered out).
type Intent struct {
	Theme       string   `json:"theme"`
	Emotion     string   `json:"emotion"`
	Context     string   `json:"context,omitempty"`
	SearchTerms []string `json:"search_terms"`
}
