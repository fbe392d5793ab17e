package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/lehigh-university-libraries/vibetrack/internal/models"
	"github.com/lehigh-university-libraries/vibetrack/internal/providers"
)

const (
	// DefaultURL is the local Ollama server
	DefaultURL = "http://localhost:11434"
	// DefaultModel is a vision-capable model
	DefaultModel = "llava:13b"
)

// Ollama is a provider for Ollama
type Ollama struct {
	url        string
	config     providers.Config
	httpClient *http.Client
}

// New returns a new Ollama provider
func New(url string, config providers.Config) *Ollama {
	if url == "" {
		url = DefaultURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	return &Ollama{
		url:        strings.TrimSuffix(url, "/"),
		config:     config,
		httpClient: &http.Client{},
	}
}

// Suggest asks a local Ollama model for songs matching the images
func (o *Ollama) Suggest(ctx context.Context, req providers.Request) ([]models.SongSuggestion, error) {
	images := make([]string, 0, len(req.Images))
	for _, img := range req.Images {
		images = append(images, base64.StdEncoding.EncodeToString(img.Data))
	}

	options := map[string]interface{}{}
	if o.config.Temperature > 0 {
		options["temperature"] = o.config.Temperature
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"model":   o.config.Model,
		"prompt":  providers.BuildJSONPrompt(len(req.Images), o.config.Count, req.Exclude),
		"images":  images,
		"format":  "json",
		"stream":  false,
		"options": options,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", o.url+"/api/generate", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

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
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response body: %v", providers.ErrMalformedResponse, err)
	}

	return providers.ParseSuggestions(response.Response)
}
