// Package cli implements the pointcloudviz command tree.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pointcloudviz/pkg/config"
	"pointcloudviz/pkg/dataset"
	"pointcloudviz/pkg/logging"
	"pointcloudviz/pkg/visualization"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

type cliContextKey struct{}

// RootOptions holds global CLI flags
type RootOptions struct {
	ConfigPath  string
	LogLevel    string
	DatasetPath string

	// Synthetic replaces the dataset file with the generated demo grid
	Synthetic bool
}

// CLIContext carries initialized dependencies through the command tree
type CLIContext struct {
	Config    *config.Config
	Logger    *zap.Logger
	Synthetic bool
}

// NewRootCommand creates the root command with global flags and subcommands
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pointcloudviz",
		Short: "Explore interpolated hippocampus point clouds",
		Long: "pointcloudviz serves and renders point clouds reconstructed at arbitrary\n" +
			"positions of a two-dimensional latent grid, for healthy controls and\n" +
			"Alzheimer's disease patients.",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "config.yaml", "config file path")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")
	pf.StringVar(&opts.DatasetPath, "dataset", "", "dataset CSV override")
	pf.BoolVar(&opts.Synthetic, "synthetic", false, "use a generated demo dataset instead of the dataset file")

	cmd.AddCommand(
		NewServeCmd(),
		NewRenderCmd(),
		NewInfoCmd(),
		NewInitConfigCmd(),
	)
	return cmd
}

// persistentPreRun loads the configuration, applies flag overrides and
// builds the logger.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.DatasetPath != "" {
		cfg.Dataset.Path = opts.DatasetPath
	}

	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	cliCtx := &CLIContext{Config: cfg, Logger: logger, Synthetic: opts.Synthetic}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// GetCLIContext extracts the CLIContext stored by the root command
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	if cmd.Context() == nil {
		return nil, errors.New("command context not initialized")
	}
	cliCtx, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New("command context not initialized")
	}
	return cliCtx, nil
}

// LoadStore builds the dataset store named by the configuration
func (c *CLIContext) LoadStore() (*dataset.Store, error) {
	opts := dataset.Options{
		CloudSize: c.Config.Dataset.CloudSize,
		Decimals:  c.Config.Dataset.RoundDecimals,
	}
	if c.Synthetic {
		syn := dataset.DefaultSyntheticOptions()
		syn.CloudSize = opts.CloudSize
		store, err := dataset.NewStore(dataset.Synthetic(syn), opts)
		if err != nil {
			return nil, err
		}
		c.Logger.Info("synthetic dataset generated",
			zap.Int("cells", store.Summary().Cells),
			zap.Int("points", store.Summary().Points),
		)
		return store, nil
	}
	return dataset.Load(c.Config.Dataset.Path, opts, c.Logger)
}

// PlotterOptions converts the render section of the configuration
func (c *CLIContext) PlotterOptions() visualization.Options {
	return visualization.Options{
		ColorScale:    c.Config.Render.ColorScale,
		ColorbarTitle: c.Config.Render.ColorbarTitle,
		Opacity:       c.Config.Render.Opacity,
		MarkerSizes:   c.Config.Render.MarkerSizes,
	}
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
