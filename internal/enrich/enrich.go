// Package enrich attaches catalog metadata to AI song suggestions.
//
// Enrichment is best effort: Enrich never returns an error and falls back
// to the bare suggestion whenever the catalog lookup fails.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/lehigh-university-libraries/vibetrack/internal/catalog"
	"github.com/lehigh-university-libraries/vibetrack/internal/models"
)

// DefaultArtworkSize is the edge length of the upgraded cover art
const DefaultArtworkSize = 600

// Searcher looks up a track by free-text query
type Searcher interface {
	Search(ctx context.Context, term string) (*catalog.Track, error)
}

// Enricher merges catalog metadata into suggestions
type Enricher struct {
	searcher    Searcher
	artworkSize int
}

// New returns an Enricher. artworkSize <= 0 uses DefaultArtworkSize.
func New(searcher Searcher, artworkSize int) *Enricher {
	if artworkSize <= 0 {
		artworkSize = DefaultArtworkSize
	}
	return &Enricher{searcher: searcher, artworkSize: artworkSize}
}

// Enrich looks the song up by artist and title and returns it with the
// first match's metadata. On any failure the suggestion comes back as is.
func (e *Enricher) Enrich(ctx context.Context, song models.SongSuggestion) models.EnrichedSong {
	enriched := models.EnrichedSong{SongSuggestion: song}

	track, err := e.searcher.Search(ctx, song.Artist+" "+song.Title)
	if errors.Is(err, catalog.ErrNoMatch) {
		slog.Debug("No catalog match", "title", song.Title, "artist", song.Artist)
		return enriched
	}
	if err != nil {
		slog.Warn("Failed to fetch metadata", "title", song.Title, "artist", song.Artist, "err", err)
		return enriched
	}
	if track == nil {
		return enriched
	}

	enriched.PreviewURL = track.PreviewURL
	enriched.CoverArtURL = UpgradeArtwork(track.ArtworkURL100, e.artworkSize)
	enriched.ExternalURL = track.TrackViewURL
	if track.CollectionName != "" {
		enriched.Album = track.CollectionName
	}

	return enriched
}

// EnrichAll enriches every song concurrently and returns the results in
// the order of the input.
func (e *Enricher) EnrichAll(ctx context.Context, songs []models.SongSuggestion) []models.EnrichedSong {
	results := make([]models.EnrichedSong, len(songs))

	var wg sync.WaitGroup
	for i, song := range songs {
		wg.Add(1)
		go func(idx int, song models.SongSuggestion) {
			defer wg.Done()
			results[idx] = e.Enrich(ctx, song)
		}(i, song)
	}
	wg.Wait()

	return results
}

// UpgradeArtwork rewrites an iTunes 100x100 artwork URL to the given size
func UpgradeArtwork(artworkURL string, size int) string {
	if size <= 0 {
		size = DefaultArtworkSize
	}
	return strings.Replace(artworkURL, "100x100bb", fmt.Sprintf("%dx%dbb", size, size), 1)
}
