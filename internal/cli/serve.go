package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pointcloudviz/pkg/metrics"
	"pointcloudviz/pkg/reconstruction"
	"pointcloudviz/pkg/server"
	"pointcloudviz/pkg/visualization"
)

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the explorer HTTP API",
		Long:  "Load the dataset once and answer reconstruction, plot and snapshot requests over HTTP until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cliCtx.Config
			logger := cliCtx.Logger
			defer logger.Sync()

			if addr != "" {
				cfg.Server.Addr = addr
			}

			store, err := cliCtx.LoadStore()
			if err != nil {
				logger.Fatal("failed to load dataset", zap.String("path", cfg.Dataset.Path), zap.Error(err))
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			m := metrics.New(reg)
			sum := store.Summary()
			m.SetDataset(sum.Cells, sum.Points)

			recon := reconstruction.NewReconstructor(store, &reconstruction.Params{
				SliderOffset: cfg.Dataset.SliderOffset,
				Logger:       logger,
				Metrics:      m,
			})

			opts := server.DefaultOptions()
			opts.Addr = cfg.Server.Addr
			opts.ReadTimeout = cfg.Server.ReadTimeout
			opts.WriteTimeout = cfg.Server.WriteTimeout
			opts.IdleTimeout = cfg.Server.IdleTimeout
			opts.ShutdownTimeout = cfg.Server.ShutdownTimeout
			opts.SliderOffset = cfg.Dataset.SliderOffset
			opts.DefaultMarkerSize = cfg.Render.DefaultMarkerSize
			opts.SnapshotSize = cfg.Render.SnapshotSize

			srv, err := server.NewServer(server.Deps{
				Reconstructor: recon,
				Plotter:       visualization.NewPlotterForStore(store, cliCtx.PlotterOptions()),
				Logger:        logger,
				Metrics:       m,
				Gatherer:      reg,
			}, opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errs := make(chan error, 1)
			go func() { errs <- srv.Start() }()

			select {
			case err := <-errs:
				return err
			case <-ctx.Done():
			}
			return srv.Stop(context.Background())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address override")
	return cmd
}
