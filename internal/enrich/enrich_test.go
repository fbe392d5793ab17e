package enrich

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/vibetrack/internal/catalog"
	"github.com/lehigh-university-libraries/vibetrack/internal/models"
)

type mockSearcher struct {
	mu     sync.Mutex
	tracks map[string]*catalog.Track
	errs   map[string]error
	delays map[string]time.Duration
	terms  []string
}

func (m *mockSearcher) Search(ctx context.Context, term string) (*catalog.Track, error) {
	m.mu.Lock()
	m.terms = append(m.terms, term)
	delay := m.delays[term]
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err, ok := m.errs[term]; ok {
		return nil, err
	}
	if track, ok := m.tracks[term]; ok {
		return track, nil
	}
	return nil, catalog.ErrNoMatch
}

func song(artist, title, album string) models.SongSuggestion {
	return models.SongSuggestion{Artist: artist, Title: title, Album: album, Reason: "r", Mood: "m", Genre: "g"}
}

func TestEnrich(t *testing.T) {
	searcher := &mockSearcher{
		tracks: map[string]*catalog.Track{
			"Nick Drake Pink Moon": {
				CollectionName: "Pink Moon (Remastered)",
				ArtworkURL100:  "https://is1.mzstatic.com/image/thumb/a/100x100bb.jpg",
				PreviewURL:     "https://audio.example/pink.m4a",
				TrackViewURL:   "https://music.apple.com/track/1",
			},
			"Air Alone in Kyoto": {
				ArtworkURL100: "https://is1.mzstatic.com/image/thumb/b/100x100bb.jpg",
			},
		},
		errs: map[string]error{
			"Broken Song": errors.New("connection reset"),
		},
	}
	e := New(searcher, 0)

	tests := []struct {
		name     string
		input    models.SongSuggestion
		expected models.EnrichedSong
	}{
		{
			name:  "match overrides album",
			input: song("Nick Drake", "Pink Moon", "Pink Moon"),
			expected: models.EnrichedSong{
				SongSuggestion: song("Nick Drake", "Pink Moon", "Pink Moon (Remastered)"),
				PreviewURL:     "https://audio.example/pink.m4a",
				CoverArtURL:    "https://is1.mzstatic.com/image/thumb/a/600x600bb.jpg",
				ExternalURL:    "https://music.apple.com/track/1",
			},
		},
		{
			name:  "match without collection keeps album",
			input: song("Air", "Alone in Kyoto", "Lost in Translation"),
			expected: models.EnrichedSong{
				SongSuggestion: song("Air", "Alone in Kyoto", "Lost in Translation"),
				CoverArtURL:    "https://is1.mzstatic.com/image/thumb/b/600x600bb.jpg",
			},
		},
		{
			name:     "no match",
			input:    song("Unknown", "Track", ""),
			expected: models.EnrichedSong{SongSuggestion: song("Unknown", "Track", "")},
		},
		{
			name:     "lookup error",
			input:    song("Broken", "Song", "Album"),
			expected: models.EnrichedSong{SongSuggestion: song("Broken", "Song", "Album")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Enrich(context.Background(), tt.input)
			if got != tt.expected {
				t.Errorf("Expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestEnrichAllKeepsOrderAndDegradesFailures(t *testing.T) {
	searcher := &mockSearcher{
		tracks: map[string]*catalog.Track{
			"A One":   {TrackViewURL: "https://x/1"},
			"C Three": {TrackViewURL: "https://x/3"},
		},
		errs: map[string]error{
			"B Two": errors.New("timeout"),
		},
		delays: map[string]time.Duration{
			"A One": 40 * time.Millisecond,
		},
	}
	e := New(searcher, 0)

	input := []models.SongSuggestion{song("A", "One", ""), song("B", "Two", ""), song("C", "Three", "")}
	got := e.EnrichAll(context.Background(), input)

	if len(got) != 3 {
		t.Fatalf("Expected 3 songs, got %d", len(got))
	}
	for i := range input {
		if got[i].SongSuggestion != input[i] {
			t.Errorf("Position %d: expected %+v, got %+v", i, input[i], got[i].SongSuggestion)
		}
	}
	if got[0].ExternalURL != "https://x/1" || got[2].ExternalURL != "https://x/3" {
		t.Errorf("Expected enriched neighbours, got %+v", got)
	}
	if got[1].Enriched() {
		t.Errorf("Expected failed lookup to stay bare, got %+v", got[1])
	}
}

func TestEnrichLogLevels(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	searcher := &mockSearcher{
		errs: map[string]error{
			"Gone Missing": catalog.ErrNoMatch,
			"Down Broken":  errors.New("catalog unavailable"),
		},
	}
	e := New(searcher, 0)

	tests := []struct {
		song  models.SongSuggestion
		level string
		msg   string
	}{
		{song: song("Gone", "Missing", ""), level: `"level":"DEBUG"`, msg: "No catalog match"},
		{song: song("Down", "Broken", ""), level: `"level":"WARN"`, msg: "Failed to fetch metadata"},
	}
	for _, tt := range tests {
		buf.Reset()
		e.Enrich(context.Background(), tt.song)
		out := buf.String()
		if !strings.Contains(out, tt.level) || !strings.Contains(out, tt.msg) {
			t.Errorf("%s: expected %s %q, got %s", tt.song.Title, tt.level, tt.msg, out)
		}
		if tt.msg == "No catalog match" && strings.Contains(out, `"level":"WARN"`) {
			t.Errorf("%s: a missing match must not warn, got %s", tt.song.Title, out)
		}
	}
}

func TestUpgradeArtwork(t *testing.T) {
	tests := []struct {
		input    string
		size     int
		expected string
	}{
		{"https://a/100x100bb.jpg", 600, "https://a/600x600bb.jpg"},
		{"https://a/100x100bb.jpg", 1200, "https://a/1200x1200bb.jpg"},
		{"https://a/100x100bb.jpg", 0, "https://a/600x600bb.jpg"},
		{"https://a/other.jpg", 600, "https://a/other.jpg"},
		{"", 600, ""},
	}

	for _, tt := range tests {
		if got := UpgradeArtwork(tt.input, tt.size); got != tt.expected {
			t.Errorf("UpgradeArtwork(%q, %d) = %q, want %q", tt.input, tt.size, got, tt.expected)
		}
	}
}
