package providers

import (
	"context"
	"errors"

	"github.com/lehigh-university-libraries/vibetrack/internal/models"
)

var (
	// ErrMissingCredentials is returned when the provider has no API key configured
	ErrMissingCredentials = errors.New("API key is missing")
	// ErrEmptyResponse is returned when the provider answered with no content
	ErrEmptyResponse = errors.New("no response from AI")
	// ErrMalformedResponse is returned when the answer is not a list of songs
	ErrMalformedResponse = errors.New("failed to parse AI response")
)

// Image is one image sent to the provider
type Image struct {
	Data     []byte
	MIMEType string
}

// Request is the input of a suggestion call
type Request struct {
	Images []Image
	// Exclude holds "<title> by <artist>" strings the provider must not repeat
	Exclude []string
}

// Config represents the configuration for an LLM provider
type Config struct {
	Model       string
	Temperature float64
	// Count is the number of songs asked for per request
	Count int
}

// Suggester defines the interface for an AI song suggestion provider
type Suggester interface {
	Suggest(ctx context.Context, req Request) ([]models.SongSuggestion, error)
}

// SuggesterFunc adapts a function to the Suggester interface
type SuggesterFunc func(ctx context.Context, req Request) ([]models.SongSuggestion, error)

// Suggest calls f
func (f SuggesterFunc) Suggest(ctx context.Context, req Request) ([]models.SongSuggestion, error) {
	return f(ctx, req)
}
