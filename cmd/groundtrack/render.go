package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/signalsfoundry/groundtrack/internal/config"
	"github.com/signalsfoundry/groundtrack/internal/logging"
	"github.com/signalsfoundry/groundtrack/internal/render"
	"github.com/signalsfoundry/groundtrack/internal/session"
	"github.com/signalsfoundry/groundtrack/internal/track"
	"github.com/signalsfoundry/groundtrack/model"
	"github.com/signalsfoundry/groundtrack/timectrl"
)

type renderOptions struct {
	satellites []int
	observer   model.Observer
	start      string
	out        string
	frames     bool
}

func newRenderCmd() *cobra.Command {
	var (
		f    configFlags
		opts renderOptions
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "animate one selection and write the map as PNG",
		Long: `Runs a single selection with an accelerated clock and writes base.png,
overlay.png and frame.png (base and overlay combined) into the output
directory. With --frames every drawn minute is also written as frame-NNN.png.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			lc := logging.ConfigFromEnv()
			lc.Output = cmd.ErrOrStderr()
			log := logging.New(lc)
			ctx := cmd.Context()
			cfg := f.apply(cmd, config.FromEnv(ctx, log))
			return renderSelection(ctx, cfg, log, opts)
		},
	}
	f.register(cmd)
	fs := cmd.Flags()
	fs.IntSliceVar(&opts.satellites, "satellites", nil, "NORAD ids to animate")
	fs.Float64Var(&opts.observer.Latitude, "lat", 0, "observer latitude")
	fs.Float64Var(&opts.observer.Longitude, "lon", 0, "observer longitude")
	fs.Float64Var(&opts.observer.Elevation, "elevation", 0, "observer elevation in metres")
	fs.IntVar(&opts.observer.DurationMinutes, "duration", 10, "minutes of positions to animate")
	fs.StringVar(&opts.start, "start", "", "simulated start time (RFC 3339); defaults to now")
	fs.StringVarP(&opts.out, "out", "o", ".", "output directory")
	fs.BoolVar(&opts.frames, "frames", false, "write every drawn frame")
	return cmd
}

// frameScheduler runs ticks on an accelerated TimeController and calls after
// once each tick has drawn.
type frameScheduler struct {
	*timectrl.TimeController
	after func()
}

func (s *frameScheduler) Every(period time.Duration, fn func()) timectrl.Handle {
	return s.TimeController.Every(period, func() {
		fn()
		if s.after != nil {
			s.after()
		}
	})
}

func renderSelection(ctx context.Context, cfg config.Config, log logging.Logger, opts renderOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	if opts.start != "" {
		t, err := time.Parse(time.RFC3339, opts.start)
		if err != nil {
			return fmt.Errorf("parse --start: %w", err)
		}
		start = t
	}
	if err := os.MkdirAll(opts.out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	sched := &frameScheduler{TimeController: timectrl.NewTimeController(start, timectrl.Accelerated)}
	a, err := newApp(ctx, cfg, log, prometheus.NewRegistry(), sched)
	if err != nil {
		return err
	}
	defer a.ctrl.Close()

	if !a.loadBaseMap(ctx) {
		log.Warn(ctx, "continuing with a blank base map")
	}

	var (
		mu       sync.Mutex
		frame    int
		frameErr error
	)
	if opts.frames {
		sched.after = func() {
			if !a.anim.Running() {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			frame++
			path := filepath.Join(opts.out, fmt.Sprintf("frame-%03d.png", frame))
			if err := writeImage(path, render.Compose(a.base, a.overlay)); err != nil && frameErr == nil {
				frameErr = err
			}
		}
	}

	done := make(chan track.Session, 1)
	a.anim.OnFinish(func(s track.Session) { done <- s })

	sel := session.Selection{Observer: opts.observer}
	for _, id := range opts.satellites {
		info := model.SatelliteInfo{ID: id}
		if entry, ok := a.catalog.GetSatellite(id); ok {
			info = entry.Info()
		}
		sel.Satellites = append(sel.Satellites, info)
	}
	sess, err := a.ctrl.Select(ctx, sel)
	if err != nil {
		return err
	}

	var finished track.Session
	select {
	case finished = <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	log.Info(ctx, "selection rendered",
		logging.SessionID(sess.ID.String()),
		logging.Int("ticks", finished.Ticks),
		logging.String("out", opts.out),
	)

	mu.Lock()
	defer mu.Unlock()
	return errors.Join(
		frameErr,
		writeImage(filepath.Join(opts.out, "base.png"), a.base.Snapshot()),
		writeImage(filepath.Join(opts.out, "overlay.png"), a.overlay.Snapshot()),
		writeImage(filepath.Join(opts.out, "frame.png"), render.Compose(a.base, a.overlay)),
	)
}

func writeImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.WritePNG(f, img); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
