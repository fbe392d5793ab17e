package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/vibetrack/internal/config"
	"github.com/lehigh-university-libraries/vibetrack/internal/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	verbose    bool

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "vibetrack",
		Short: "Song suggestions for the mood of your photos",
		Long: `Vibetrack looks at a set of images as a whole and suggests songs that
match their collective vibe, enriched with previews and cover art from the
iTunes catalog.

Use "suggest" for a one-shot run from the terminal or "serve" for the HTTP API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Log.Level = opts.logLevel
			}
			if cmd.Flags().Changed("log-format") {
				cfg.Log.Format = opts.logFormat
			}
			if opts.verbose {
				cfg.Log.Level = "debug"
			}

			logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cmd.ErrOrStderr()})
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a YAML config file (default $VIBETRACK_CONFIG or ./vibetrack.yaml)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "console", "Log format: console or json")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Shorthand for --log-level debug")

	cmd.AddCommand(newSuggestCmd(opts))
	cmd.AddCommand(newServeCmd(opts))

	return cmd
}
