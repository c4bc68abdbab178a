package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pointcloudviz/pkg/config"
	"pointcloudviz/pkg/dataset"
	"pointcloudviz/pkg/reconstruction"
)

type infoReport struct {
	Dataset    string                             `json:"dataset"`
	Summary    dataset.Summary                    `json:"summary"`
	Validation []reconstruction.ValidationMetrics `json:"validation,omitempty"`
}

// NewInfoCmd creates the info command
func NewInfoCmd() *cobra.Command {
	var validate bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Describe the dataset",
		Long: "Print the dataset summary. With --validate every interior grid cell is\n" +
			"predicted from its neighbours and the interpolation error is reported per subject.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			defer cliCtx.Logger.Sync()

			store, err := cliCtx.LoadStore()
			if err != nil {
				return err
			}

			report := infoReport{Dataset: cliCtx.Config.Dataset.Path, Summary: store.Summary()}
			if cliCtx.Synthetic {
				report.Dataset = "synthetic"
			}
			if validate {
				recon := reconstruction.NewReconstructor(store, nil)
				for _, st := range report.Summary.Subjects {
					vm, err := recon.Validate(st)
					if err != nil {
						return fmt.Errorf("validation of %s failed: %w", st, err)
					}
					report.Validation = append(report.Validation, vm)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().BoolVar(&validate, "validate", false, "measure interpolation error on the grid")
	return cmd
}

// NewInitConfigCmd creates the init-config command
func NewInitConfigCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		// the file being created need not exist or be valid yet
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "config.yaml"
			if len(args) == 1 {
				path = args[0]
			} else if f := cmd.Flag("config"); f != nil && f.Changed {
				path = f.Value.String()
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.CreateDefaultConfigFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
