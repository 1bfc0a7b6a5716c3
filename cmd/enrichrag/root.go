package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/enrichrag/config"
	"github.com/sweetpotato0/enrichrag/pkg/logging"
)

var version = "dev"

var (
	cfgPath  string
	envFiles []string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "enrichrag",
	Short: "Self-assessing question answering over your documents",
	Long: `enrichrag answers questions from an indexed document collection, judges
whether its own answer is complete and, when it is not, pulls supplementary
facts from trusted sources (Wikipedia, arXiv, PubMed, web search) before
answering again.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.LoadDotEnv(envFiles...); err != nil {
			return err
		}
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		logging.Configure(logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: os.Stderr,
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to a YAML or TOML config file")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load (default .env)")
}

// openApplication validates the loaded config and wires the components.
func openApplication(ctx context.Context) (*application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app, err := buildApplication(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("start enrichrag: %w", err)
	}
	return app, nil
}
