package providers

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"github.com/lehigh-university-libraries/vibetrack/internal/models"
	"github.com/lehigh-university-libraries/vibetrack/internal/validation"
)

// ParseSuggestions decodes a provider answer into songs.
//
// The answer should be a JSON array. A single song object is accepted and
// wrapped, as is an object holding the array under any key (some models
// in JSON mode refuse to emit a bare array). Markdown code fences are
// stripped first.
func ParseSuggestions(text string) ([]models.SongSuggestion, error) {
	text = trimCodeFence(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	var songs []models.SongSuggestion
	switch text[0] {
	case '[':
		if err := json.Unmarshal([]byte(text), &songs); err != nil {
			slog.Warn("Failed to parse JSON array from provider", "err", err)
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	case '{':
		var err error
		songs, err = parseObject([]byte(text))
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: response is not JSON", ErrMalformedResponse)
	}

	if len(songs) == 0 {
		return nil, ErrEmptyResponse
	}

	for i := range songs {
		if err := validation.Struct(songs[i]); err != nil {
			return nil, fmt.Errorf("%w: song %d: %v", ErrMalformedResponse, i+1, err)
		}
	}

	return songs, nil
}

func parseObject(data []byte) ([]models.SongSuggestion, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if _, ok := fields["title"]; ok {
		var song models.SongSuggestion
		if err := json.Unmarshal(data, &song); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return []models.SongSuggestion{song}, nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		raw := strings.TrimSpace(string(fields[k]))
		if !strings.HasPrefix(raw, "[") {
			continue
		}
		var songs []models.SongSuggestion
		if err := json.Unmarshal([]byte(raw), &songs); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		slog.Debug("Unwrapped song list from JSON object", "key", k, "count", len(songs))
		return songs, nil
	}

	return nil, fmt.Errorf("%w: object holds no song list", ErrMalformedResponse)
}

func trimCodeFence(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}
