package ollama

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/lehigh-university-libraries/vibetrack/internal/providers"
)

func TestSuggest(t *testing.T) {
	var got struct {
		Model  string   `json:"model"`
		Images []string `json:"images"`
		Format string   `json:"format"`
		Stream bool     `json:"stream"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"{\"songs\":[{\"artist\":\"Bon Iver\",\"title\":\"Holocene\",\"reason\":\"snow\",\"mood\":\"Wistful\",\"genre\":\"Indie Folk\"}]}"}`))
	}))
	defer server.Close()

	o := New(server.URL+"/", providers.Config{Model: "llava:7b"})
	songs, err := o.Suggest(context.Background(), providers.Request{
		Images: []providers.Image{{Data: []byte("abc"), MIMEType: "image/png"}, {Data: []byte("def"), MIMEType: "image/png"}},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(songs) != 1 || songs[0].Title != "Holocene" {
		t.Fatalf("Unexpected songs: %+v", songs)
	}
	if got.Model != "llava:7b" || got.Format != "json" || got.Stream {
		t.Errorf("Unexpected request: %+v", got)
	}
	if len(got.Images) != 2 || got.Images[0] != "YWJj" {
		t.Errorf("Expected base64 images, got %v", got.Images)
	}
}

func TestSuggestMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"I cannot see any images"}`))
	}))
	defer server.Close()

	_, err := New(server.URL, providers.Config{}).Suggest(context.Background(), providers.Request{})
	if !errors.Is(err, providers.ErrMalformedResponse) {
		t.Errorf("Expected ErrMalformedResponse, got %v", err)
	}
}
