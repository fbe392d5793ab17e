package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/lehigh-university-libraries/vibetrack/internal/models"
	"github.com/lehigh-university-libraries/vibetrack/internal/providers"
)

const (
	// DefaultURL is the chat completions endpoint
	DefaultURL = "https://api.openai.com/v1/chat/completions"
	// DefaultModel is used when no model is configured
	DefaultModel = "gpt-4o"
)

// OpenAI is a provider for OpenAI
type OpenAI struct {
	apiKey     string
	url        string
	config     providers.Config
	httpClient *http.Client
}

// New returns a new OpenAI provider
func New(apiKey, url string, config providers.Config) *OpenAI {
	if url == "" {
		url = DefaultURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	return &OpenAI{
		apiKey:     apiKey,
		url:        url,
		config:     config,
		httpClient: &http.Client{},
	}
}

// Suggest asks OpenAI for songs matching the images
func (o *OpenAI) Suggest(ctx context.Context, req providers.Request) ([]models.SongSuggestion, error) {
	if o.apiKey == "" {
		return nil, providers.ErrMissingCredentials
	}

	content := []map[string]interface{}{
		{
			"type": "text",
			"text": providers.BuildJSONPrompt(len(req.Images), o.config.Count, req.Exclude),
		},
	}
	for _, img := range req.Images {
		content = append(content, map[string]interface{}{
			"type": "image_url",
			"image_url": map[string]string{
				"url": fmt.Sprintf("data:%s;base64,%s", img.MIMEType, base64.StdEncoding.EncodeToString(img.Data)),
			},
		})
	}

	body := map[string]interface{}{
		"model": o.config.Model,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": content,
			},
		},
	}
	if o.config.Temperature > 0 {
		body["temperature"] = o.config.Temperature
	}

	requestBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response body: %v", providers.ErrMalformedResponse, err)
	}

	if len(response.Choices) == 0 {
		return nil, providers.ErrEmptyResponse
	}

	return providers.ParseSuggestions(response.Choices[0].Message.Content)
}
