package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pointcloudviz/internal/models"
	"pointcloudviz/pkg/reconstruction"
	"pointcloudviz/pkg/visualization"
)

// NewRenderCmd creates the render command
func NewRenderCmd() *cobra.Command {
	var (
		subject    string
		z0, z1     float64
		grid       bool
		markerSize int
		format     string
		plane      string
		out        string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one reconstructed cloud",
		Long: "Reconstruct the cloud at the given slider position and write either its plot\n" +
			"description as JSON or an orthographic PNG snapshot. Sliders left unset\n" +
			"start at the dataset mean.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cliCtx.Config
			defer cliCtx.Logger.Sync()

			st, err := models.ParseSubjectType(subject)
			if err != nil {
				return err
			}
			if format != "json" && format != "png" {
				return fmt.Errorf("invalid format: %s (must be json or png)", format)
			}
			if !cmd.Flags().Changed("marker") {
				markerSize = cfg.Render.DefaultMarkerSize
			}

			store, err := cliCtx.LoadStore()
			if err != nil {
				return err
			}
			recon := reconstruction.NewReconstructor(store, &reconstruction.Params{
				SliderOffset: cfg.Dataset.SliderOffset,
				Logger:       cliCtx.Logger,
			})
			plotter := visualization.NewPlotterForStore(store, cliCtx.PlotterOptions())
			if !plotter.MarkerSizeAllowed(markerSize) {
				return fmt.Errorf("%w: %d (must be one of %v)", visualization.ErrInvalidMarkerSize, markerSize, plotter.MarkerSizes())
			}

			sum := store.Summary()
			if !cmd.Flags().Changed("z0") {
				z0 = visualization.SliderFor(sum.Z0, cfg.Dataset.SliderOffset).Value
				if grid {
					z0 = sum.Z0.Mean
				}
			}
			if !cmd.Flags().Changed("z1") {
				z1 = visualization.SliderFor(sum.Z1, cfg.Dataset.SliderOffset).Value
				if grid {
					z1 = sum.Z1.Mean
				}
			}

			var rc *models.ReconstructedCloud
			if grid {
				rc, err = recon.Reconstruct(z0, z1, st)
			} else {
				rc, err = recon.FromSlider(st, z0, z1)
			}
			if err != nil {
				return err
			}

			// the whole output is built before anything is created on disk
			var buf bytes.Buffer
			if format == "png" {
				lo, hi := plotter.ColorRange()
				viewer := visualization.NewViewer(cfg.Render.SnapshotSize, lo, hi)
				img, err := viewer.ExtractProjection(rc.Cloud, plane, markerSize)
				if err != nil {
					return err
				}
				if err := viewer.WritePNG(&buf, img); err != nil {
					return err
				}
			} else {
				desc, err := plotter.Render(rc, markerSize)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(&buf)
				enc.SetIndent("", "  ")
				if err := enc.Encode(desc); err != nil {
					return err
				}
			}

			return writeOutput(cmd.OutOrStdout(), out, buf.Bytes())
		},
	}

	f := cmd.Flags()
	f.StringVar(&subject, "subject", string(models.Healthy), "subject type (HC or AD)")
	f.Float64Var(&z0, "z0", 0, "z0 slider value")
	f.Float64Var(&z1, "z1", 0, "z1 slider value")
	f.BoolVar(&grid, "grid", false, "treat z0 and z1 as grid coordinates instead of slider values")
	f.IntVar(&markerSize, "marker", 15, "marker size")
	f.StringVar(&format, "format", "json", "output format (json or png)")
	f.StringVar(&plane, "plane", "xz", "projection plane for png output (xy, xz or yz)")
	f.StringVarP(&out, "out", "o", "-", "output file, - for stdout")

	return cmd
}

// writeOutput writes data to stdout for "-" and to a created file otherwise
func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
