package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lehigh-university-libraries/vibetrack/internal/models"
	"github.com/lehigh-university-libraries/vibetrack/internal/providers"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.0-flash"

// Gemini is a provider for Google Gemini
type Gemini struct {
	apiKey string
	config providers.Config
}

// New returns a new Gemini provider
func New(apiKey string, config providers.Config) *Gemini {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	return &Gemini{apiKey: apiKey, config: config}
}

// songSchema mirrors models.SongSuggestion so Gemini returns structured JSON
var songSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"artist": {Type: genai.TypeString},
			"title":  {Type: genai.TypeString},
			"album":  {Type: genai.TypeString},
			"reason": {Type: genai.TypeString},
			"mood":   {Type: genai.TypeString},
			"genre":  {Type: genai.TypeString},
		},
		Required: []string{"artist", "title", "reason", "mood", "genre"},
	},
}

// Suggest asks Gemini for songs matching the images
func (g *Gemini) Suggest(ctx context.Context, req providers.Request) ([]models.SongSuggestion, error) {
	if g.apiKey == "" {
		return nil, providers.ErrMissingCredentials
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.config.Model)
	if g.config.Temperature > 0 {
		model.SetTemperature(float32(g.config.Temperature))
	}
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = songSchema

	parts := make([]genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, genai.Blob{MIMEType: img.MIMEType, Data: img.Data})
	}
	parts = append(parts, genai.Text(providers.BuildPrompt(len(req.Images), g.config.Count, req.Exclude)))

	slog.Debug("Requesting song suggestions from Gemini", "model", g.config.Model, "images", len(req.Images), "exclude", len(req.Exclude))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	return providers.ParseSuggestions(responseText(resp))
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
