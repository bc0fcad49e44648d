package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsatlink/termtrack/internal/api"
	"github.com/vsatlink/termtrack/internal/engine"
	"github.com/vsatlink/termtrack/internal/geofence"
	"github.com/vsatlink/termtrack/internal/publish"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the tracking engine and HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ix, err := loadBoundaryIndex(cfg)
		if err != nil {
			return err
		}
		zap.L().Info("boundary dataset loaded",
			zap.String("path", cfg.Boundary.Path),
			zap.Int("districts", ix.Len()),
		)

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close()
			if err := st.Migrate(ctx); err != nil {
				return err
			}
		}

		registry := geofence.NewRegistry()
		if cfg.Geofence.Fixtures != "" {
			n, err := geofence.LoadFixtures(cfg.Geofence.Fixtures, registry, ix)
			if err != nil {
				return err
			}
			zap.L().Info("geofence fixtures loaded", zap.Int("count", n))
		}

		bus := publish.NewBus()
		publishers := publish.Fanout{bus}
		if st != nil {
			sink := publish.NewStoreSink(ctx, st, publish.SinkOptions{
				QueueDepth: cfg.Publish.SinkQueueDepth,
			})
			defer sink.Close()
			publishers = append(publishers, sink)
		}

		eng := engine.New(ix, registry, publishers, engine.Options{
			Stripes: cfg.Engine.Stripes,
		})

		dispatcher := engine.NewDispatcher(ctx, eng, engine.DispatcherOptions{
			Shards:     cfg.Dispatch.Shards,
			QueueDepth: cfg.Dispatch.QueueDepth,
		})
		defer dispatcher.Drain()

		server := api.NewServer(eng, api.Options{
			Store:      st,
			Bus:        bus,
			Dispatcher: dispatcher,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: server.Router(),
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
