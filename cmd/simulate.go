package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsatlink/termtrack/internal/engine"
	"github.com/vsatlink/termtrack/internal/geofence"
	"github.com/vsatlink/termtrack/internal/publish"
	"github.com/vsatlink/termtrack/internal/sim"
)

var (
	simDevices int
	simRate    float64
	simCSV     string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Generate synthetic terminal telemetry against a local engine",
	Long:  "Random-walks a fleet of simulated terminals inside the default boundary outline, feeding reports through the full resolve/detect/publish path. Useful for load checks and for populating a telemetry store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if simDevices > 0 {
			cfg.Sim.Devices = simDevices
		}
		if simRate > 0 {
			cfg.Sim.RatePerSec = simRate
		}
		if err := cfg.Validate("simulate"); err != nil {
			return err
		}

		ix, err := loadBoundaryIndex(cfg)
		if err != nil {
			return err
		}

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}

		var pub engine.Publisher = engine.NopPublisher{}
		if st != nil {
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			sink := publish.NewStoreSink(ctx, st, publish.SinkOptions{
				QueueDepth: cfg.Publish.SinkQueueDepth,
			})
			defer sink.Close()
			pub = sink
		}

		registry := geofence.NewRegistry()
		if cfg.Geofence.Fixtures != "" {
			if _, err := geofence.LoadFixtures(cfg.Geofence.Fixtures, registry, ix); err != nil {
				return err
			}
		}

		eng := engine.New(ix, registry, pub, engine.Options{Stripes: cfg.Engine.Stripes})
		gen := sim.New(eng, sim.Options{
			Devices:    cfg.Sim.Devices,
			RatePerSec: cfg.Sim.RatePerSec,
			StepDeg:    cfg.Sim.StepDeg,
			Seed:       cfg.Sim.Seed,
			CSVPath:    simCSV,
		})

		zap.L().Info("simulator starting",
			zap.Int("devices", cfg.Sim.Devices),
			zap.Float64("rate_per_sec", cfg.Sim.RatePerSec),
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			delivered, err := gen.Run(gctx)
			zap.L().Info("simulator stopped", zap.Int("reports", delivered))
			return err
		})
		return g.Wait()
	},
}

func init() {
	simulateCmd.Flags().IntVar(&simDevices, "devices", 0, "fleet size (default from config)")
	simulateCmd.Flags().Float64Var(&simRate, "rate", 0, "reports per second (default from config)")
	simulateCmd.Flags().StringVar(&simCSV, "csv", "", "append generated telemetry to a CSV file")
	rootCmd.AddCommand(simulateCmd)
}
