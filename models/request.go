package models

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

// SaveCollectionRequest is the body of POST /api/v1/collections.
type SaveCollectionRequest struct {
	Name     string `json:"name"`
	StoryIDs []int  `json:"story_ids"`
}
