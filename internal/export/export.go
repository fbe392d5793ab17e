// Package export writes suggestion results as YAML, JSON or Parquet
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/lehigh-university-libraries/vibetrack/internal/models"
)

type Format string

const (
	FormatYAML    Format = "yaml"
	FormatJSON    Format = "json"
	FormatParquet Format = "parquet"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Report is one exported set of results
type Report struct {
	GeneratedAt time.Time             `json:"generated_at" yaml:"generated_at"`
	Provider    string                `json:"provider" yaml:"provider"`
	Model       string                `json:"model" yaml:"model"`
	Songs       []models.EnrichedSong `json:"songs" yaml:"songs"`
}

// Row is the Parquet layout, one row per song
type Row struct {
	Rank        int32  `parquet:"rank"`
	Artist      string `parquet:"artist"`
	Title       string `parquet:"title"`
	Album       string `parquet:"album,optional"`
	Reason      string `parquet:"reason"`
	Mood        string `parquet:"mood"`
	Genre       string `parquet:"genre"`
	PreviewURL  string `parquet:"preview_url,optional"`
	CoverArtURL string `parquet:"cover_art_url,optional"`
	ExternalURL string `parquet:"external_url,optional"`
	Provider    string `parquet:"provider"`
	Model       string `parquet:"model"`
	GeneratedAt string `parquet:"generated_at"`
}

// ParseFormat accepts a format name, case-insensitively. "yml" is yaml.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	case "parquet":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// FormatFromPath picks the format from a file extension
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

// ContentType is the HTTP media type for f
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "application/yaml"
	}
}

// Write encodes report to w
func Write(w io.Writer, format Format, report Report) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return nil
	case FormatParquet:
		return writeParquet(w, report)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteFile writes report to path in the format its extension names
func WriteFile(path string, report Report) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if err := Write(f, format, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Rows flattens report for Parquet
func Rows(report Report) []Row {
	generated := report.GeneratedAt.UTC().Format(time.RFC3339)
	rows := make([]Row, len(report.Songs))
	for i, s := range report.Songs {
		rows[i] = Row{
			Rank:        int32(i + 1),
			Artist:      s.Artist,
			Title:       s.Title,
			Album:       s.Album,
			Reason:      s.Reason,
			Mood:        s.Mood,
			Genre:       s.Genre,
			PreviewURL:  s.PreviewURL,
			CoverArtURL: s.CoverArtURL,
			ExternalURL: s.ExternalURL,
			Provider:    report.Provider,
			Model:       report.Model,
			GeneratedAt: generated,
		}
	}
	return rows
}

func writeParquet(w io.Writer, report Report) error {
	pw := parquet.NewGenericWriter[Row](w)
	if _, err := pw.Write(Rows(report)); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}
