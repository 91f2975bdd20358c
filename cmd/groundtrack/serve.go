package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/groundtrack/internal/config"
	"github.com/signalsfoundry/groundtrack/internal/httpapi"
	"github.com/signalsfoundry/groundtrack/internal/logging"
	"github.com/signalsfoundry/groundtrack/internal/observability"
	"github.com/signalsfoundry/groundtrack/internal/opsrv"
	"github.com/signalsfoundry/groundtrack/timectrl"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var f configFlags
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the tracking map over HTTP",
		Long: `Draws the world map once, then serves satellite selections, the loading
state and both drawing surfaces over HTTP, plus gRPC health on the ops port.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewFromEnv()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg := f.apply(cmd, config.FromEnv(ctx, log))
			return serve(ctx, cfg, log)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.httpAddr, "http-addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&f.grpcAddr, "grpc-addr", "", "ops gRPC listen address")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, log logging.Logger) error {
	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return err
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	clock := timectrl.NewTimeController(time.Now(), timectrl.RealTime)
	a, err := newApp(ctx, cfg, log, prometheus.NewRegistry(), clock)
	if err != nil {
		return err
	}
	defer a.ctrl.Close()

	ops := opsrv.New(log, a.animMetrics)
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	log.Info(ctx, "starting ops gRPC server", logging.String("addr", cfg.GRPCAddr))
	go func() {
		if err := ops.Serve(grpcLis); err != nil {
			log.Error(ctx, "gRPC server exited", logging.Err(err))
		}
	}()

	deps := httpapi.Deps{
		Controller:  a.ctrl,
		Catalog:     a.catalog,
		Base:        a.base,
		Overlay:     a.overlay,
		Ready:       a.renderer.Rendered,
		Observer:    a.animMetrics,
		CORSOrigins: cfg.CORSOrigins,
		Log:         log,
	}
	if cfg.MetricsEnabled {
		deps.Metrics = a.animMetrics.Handler()
	}
	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}
	httpErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logging.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
		close(httpErr)
	}()

	go func() {
		ops.SetServing(a.loadBaseMap(ctx))
	}()

	select {
	case <-ctx.Done():
	case err := <-httpErr:
		if err != nil {
			log.Error(ctx, "HTTP server exited", logging.Err(err))
			ops.Stop()
			return err
		}
	}

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "HTTP shutdown failed", logging.Err(err))
	}
	ops.GracefulStop()
	return nil
}
