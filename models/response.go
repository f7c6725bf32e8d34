package models

// Analysis is the structured decomposition of the generated narrative.
// Every field is always populated: the parser backfills canned filler for any
// section the model failed to emit. UnityScore is clamped to [0,1].
type Analysis struct {
	UnityScore         float64  `json:"unityScore"`
	SurfaceDifferences []string `json:"surfaceDifferences"`
	DeepConnections    []string `json:"deepConnections"`
	SurprisingUnity    string   `json:"surprisingUnity"`
	ConcreteExamples   []string `json:"concreteExamples"`
	HumanTruth         string   `json:"humanTruth"`
}

// StoryPreview is the trimmed-down story shown to the user. At most 3 are
// attached to a response; descriptions are truncated to 150 characters.
type StoryPreview struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	URL         string `json:"url,omitempty"`
	AudioURL    string `json:"audio_url,omitempty"`
}

// ChatResponse is the structured answer built from the matched stories and
// the parsed narrative. RawAnalysis carries the untouched generated text for
// diagnostics.
type ChatResponse struct {
	Message     string         `json:"message"`
	UnityScore  float64        `json:"unityScore"`
	StoryCount  int            `json:"storyCount"`
	Locations   []string       `json:"locations"`
	Analysis    Analysis       `json:"analysis"`
	Stories     []StoryPreview `json:"stories"`
	FollowUp    string         `json:"followUp"`
	RawAnalysis string         `json:"rawAnalysis,omitempty"`
}

// ChatEnvelope is the success payload of POST /api/v1/chat.
type ChatEnvelope struct {
	Response   *ChatResponse `json:"response"`
	Intent     *Intent       `json:"intent"`
	StoryCount int           `json:"storyCount"`
	Timestamp  string        `json:"timestamp"`
}

// Collection is a named, user-saved list of story ids.
type Collection struct {
	Name      string `json:"name"`
	StoryIDs  []int  `json:"story_ids"`
	CreatedAt string `json:"created_at"`
}

// SearchStoriesResponse is the payload of GET /api/v1/stories/search.
type SearchStoriesResponse struct {
	Stories []StoryRecord `json:"stories"`
	Count   int           `json:"count"`
	Source  string        `json:"source"`
}

// ListCollectionsResponse is the payload of GET /api/v1/collections.
type ListCollectionsResponse struct {
	Count       int          `json:"count"`
	Collections []Collection `json:"collections"`
}
