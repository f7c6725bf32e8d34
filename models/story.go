package models

import (
	"strings"
)

// Location holds the geographic information attached to an interview.
// The archive returns region and country as single-element arrays, so the
// wire shape below flattens them to plain strings on conversion.
type Location struct {
	Region   string   `json:"region,omitempty"`
	Country  string   `json:"country,omitempty"`
	Locality []string `json:"locality,omitempty"`
}

// StoryRecord is one oral-history interview's metadata as returned by the
// remote archive. Records are externally owned: the pipeline filters and
// samples them but never mutates them.
type StoryRecord struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Keywords     []string `json:"keywords"`
	Location     Location `json:"location"`
	URL          string   `json:"url,omitempty"`
	AudioURL     string   `json:"audio_url,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

// ArchiveStory mirrors the raw JSON shape of the archive's listing endpoint.
type ArchiveStory struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
	Location    struct {
		Region   []string `json:"region"`
		Country  []string `json:"country"`
		Locality []string `json:"locality"`
	} `json:"location"`
	URL   string `json:"url"`
	Audio *struct {
		URL    string `json:"url"`
		Length int    `json:"length"`
	} `json:"audio"`
	AdditionalParticipants []struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"additional_participants"`
}

// ToRecord converts the archive wire shape into the domain StoryRecord.
// Missing titles and absent location elements get safe defaults so the rest
// of the pipeline never has to nil-check.
func (a ArchiveStory) ToRecord() StoryRecord {
	rec := StoryRecord{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Keywords:    a.Keywords,
		URL:         a.URL,
	}
	if rec.Title == "" {
		rec.Title = "Untitled"
	}
	if rec.Keywords == nil {
		rec.Keywords = []string{}
	}
	if len(a.Location.Region) > 0 {
		rec.Location.Region = a.Location.Region[0]
	}
	if len(a.Location.Country) > 0 {
		rec.Location.Country = a.Location.Country[0]
	}
	rec.Location.Locality = a.Location.Locality
	if a.Audio != nil {
		rec.AudioURL = a.Audio.URL
	}
	for _, p := range a.AdditionalParticipants {
		name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
		if name == "" {
			name = "Anonymous"
		}
		rec.Participants = append(rec.Participants, name)
	}
	return rec
}

// DisplayLocation returns a human-readable location for previews, defaulting
// to "Unknown" when the archive gave us nothing.
func (s StoryRecord) DisplayLocation() string {
	if s.Location.Region != "" {
		return s.Location.Region
	}
	if s.Location.Country != "" {
		return s.Location.Country
	}
	return "Unknown"
}
