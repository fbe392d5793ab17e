package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/vibetrack/internal/app"
	"github.com/lehigh-university-libraries/vibetrack/internal/coordinator"
	"github.com/lehigh-university-libraries/vibetrack/internal/export"
	"github.com/lehigh-university-libraries/vibetrack/internal/images"
	"github.com/lehigh-university-libraries/vibetrack/internal/models"
)

var errCancelled = errors.New("analysis cancelled")

func newSuggestCmd(root *rootOptions) *cobra.Command {
	var (
		more     int
		provider string
		model    string
		output   string
	)

	cmd := &cobra.Command{
		Use:   "suggest IMAGE [IMAGE...]",
		Short: "Suggest songs for a set of images",
		Long: `Analyzes the images together and prints songs matching their collective
vibe. Images may be local files or http(s) URLs.

Press Ctrl+C while the analysis runs to cancel it.`,
		Example: `  # Suggest songs for two photos
  vibetrack suggest beach.jpg sunset.png

  # Ask for two more rounds that avoid songs already suggested, save as YAML
  vibetrack suggest --more 2 --output songs.yaml trip/*.jpg

  # Use a local Ollama model
  vibetrack suggest --provider ollama --model llava:13b photo.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if provider != "" {
				cfg.Provider = provider
			}
			if model != "" {
				switch cfg.Provider {
				case "gemini":
					cfg.Gemini.Model = model
				case "openai":
					cfg.OpenAI.Model = model
				case "ollama":
					cfg.Ollama.Model = model
				}
			}

			services, err := app.New(cfg)
			if err != nil {
				return err
			}

			uploads, err := images.NewFetcher().FetchAll(cmd.Context(), args)
			if err != nil {
				return err
			}

			coord := services.NewCoordinator()
			defer coord.Close()

			if _, err := coord.AddImages(uploads...); err != nil {
				return err
			}

			songs, err := suggest(cmd.Context(), cmd.OutOrStdout(), coord, more)
			if errors.Is(err, errCancelled) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Analysis cancelled.")
				return nil
			}
			if err != nil {
				return err
			}

			if output != "" {
				report := export.Report{
					GeneratedAt: time.Now().UTC(),
					Provider:    services.Provider,
					Model:       services.Model,
					Songs:       songs,
				}
				if err := export.WriteFile(output, report); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Results saved to: %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&more, "more", 0, "Extra rounds of suggestions that exclude songs already shown")
	cmd.Flags().StringVar(&provider, "provider", "", "AI provider: gemini, openai or ollama (overrides config)")
	cmd.Flags().StringVar(&model, "model", "", "Model name for the provider (overrides config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write results to a .yaml, .json or .parquet file")

	return cmd
}

// suggest runs a fresh analysis followed by `more` appending rounds and
// prints each batch as it lands. Cancelling ctx abandons the current run.
func suggest(ctx context.Context, out io.Writer, coord *coordinator.Coordinator, more int) ([]models.EnrichedSong, error) {
	shown := 0
	for round := 0; round <= more; round++ {
		run, err := coord.StartAnalysis(ctx, round > 0)
		if err != nil {
			return nil, err
		}

		outcome, err := run.Wait(ctx)
		if ctx.Err() != nil {
			if cancelErr := coord.Cancel(); cancelErr != nil {
				slog.Debug("Nothing to cancel", "err", cancelErr)
			}
			return nil, errCancelled
		}

		snap := coord.Snapshot()
		for _, n := range coord.DrainNotices() {
			slog.Warn(n.Message)
		}

		switch outcome {
		case coordinator.OutcomeApplied:
			printSongs(out, snap.Results[shown:], shown)
			shown = len(snap.Results)
		case coordinator.OutcomeFailed:
			if !run.Appending() {
				return nil, err
			}
			// keep what we have
			return snap.Results, nil
		default:
			return nil, errCancelled
		}
	}

	return coord.Snapshot().Results, nil
}

func printSongs(out io.Writer, songs []models.EnrichedSong, offset int) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if offset == 0 {
		fmt.Fprintln(tw, "#\tTITLE\tARTIST\tALBUM\tMOOD\tGENRE\tPREVIEW")
	}
	for i, s := range songs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", offset+i+1, s.Title, s.Artist, s.Album, s.Mood, s.Genre, s.PreviewURL)
	}
	tw.Flush()

	for i, s := range songs {
		fmt.Fprintf(out, "  %d. %s\n", offset+i+1, s.Reason)
	}
}
