package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/groundtrack/internal/config"
)

// configFlags override environment configuration when set on the command
// line.
type configFlags struct {
	httpAddr     string
	grpcAddr     string
	worldMap     string
	catalog      string
	source       string
	apiBaseURL   string
	apiKey       string
	tickInterval time.Duration
	frameStride  int
	speedup      float64
}

func (f *configFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.worldMap, "world-map", "", "world map TopoJSON or GeoJSON file or URL")
	fs.StringVar(&f.catalog, "catalog", "", "TLE catalogue file")
	fs.StringVarP(&f.source, "source", "s", "", "position source: remote or sgp4")
	fs.StringVar(&f.apiBaseURL, "api-base-url", "", "position service base URL")
	fs.StringVar(&f.apiKey, "api-key", "", "position service API key")
	fs.DurationVar(&f.tickInterval, "tick-interval", 0, "wall time between animation frames")
	fs.IntVar(&f.frameStride, "frame-stride", 0, "samples advanced per frame")
	fs.Float64Var(&f.speedup, "speedup", 0, "header clock speedup over wall time")
}

func (f *configFlags) apply(cmd *cobra.Command, cfg config.Config) config.Config {
	fs := cmd.Flags()
	if fs.Changed("http-addr") {
		cfg.HTTPAddr = f.httpAddr
	}
	if fs.Changed("grpc-addr") {
		cfg.GRPCAddr = f.grpcAddr
	}
	if fs.Changed("world-map") {
		cfg.WorldMapSource = f.worldMap
	}
	if fs.Changed("catalog") {
		cfg.CatalogPath = f.catalog
	}
	if fs.Changed("source") {
		cfg.PositionSource = f.source
	}
	if fs.Changed("api-base-url") {
		cfg.APIBaseURL = f.apiBaseURL
	}
	if fs.Changed("api-key") {
		cfg.APIKey = f.apiKey
	}
	if fs.Changed("tick-interval") {
		cfg.TickInterval = f.tickInterval
	}
	if fs.Changed("frame-stride") {
		cfg.FrameStride = f.frameStride
	}
	if fs.Changed("speedup") {
		cfg.Speedup = f.speedup
	}
	return cfg
}
