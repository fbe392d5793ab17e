package models

import "fmt"

// Status is the lifecycle state of an analysis session
type Status string

const (
	StatusIdle      Status = "idle"
	StatusStaging   Status = "staging"
	StatusAnalyzing Status = "analyzing"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// SongSuggestion is a song proposed by the AI provider for a set of images
type SongSuggestion struct {
	Artist string `json:"artist" yaml:"artist" validate:"required"`
	Title  string `json:"title" yaml:"title" validate:"required"`
	Album  string `json:"album,omitempty" yaml:"album,omitempty"`
	Reason string `json:"reason" yaml:"reason" validate:"required"`
	Mood   string `json:"mood" yaml:"mood" validate:"required"`
	Genre  string `json:"genre" yaml:"genre" validate:"required"`
}

// ExclusionKey is the "<title> by <artist>" form sent to the provider
// when asking for songs it has not suggested yet.
func (s SongSuggestion) ExclusionKey() string {
	return fmt.Sprintf("%s by %s", s.Title, s.Artist)
}

// EnrichedSong is a suggestion merged with catalog metadata.
// The catalog fields are empty when no match was found.
type EnrichedSong struct {
	SongSuggestion `yaml:",inline"`

	PreviewURL  string `json:"preview_url,omitempty" yaml:"preview_url,omitempty"`
	CoverArtURL string `json:"cover_art_url,omitempty" yaml:"cover_art_url,omitempty"`
	ExternalURL string `json:"external_url,omitempty" yaml:"external_url,omitempty"`
}

// Enriched reports whether any catalog metadata was attached
func (e EnrichedSong) Enriched() bool {
	return e.PreviewURL != "" || e.CoverArtURL != "" || e.ExternalURL != ""
}

// ImageView is the public view of a staged image
type ImageView struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Size     int    `json:"size"`
	Preview  string `json:"preview"`
}

// Session is a point-in-time copy of the coordinator state
type Session struct {
	Status    Status         `json:"status"`
	Images    []ImageView    `json:"images"`
	Results   []EnrichedSong `json:"results"`
	Error     string         `json:"error,omitempty"`
	Appending bool           `json:"appending"`
	Token     uint64         `json:"token"`
}

// Notice is a one-shot message for failures that do not change the session status
type Notice struct {
	Token   uint64 `json:"token"`
	Message string `json:"message"`
}
