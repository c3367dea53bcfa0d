package core

import (
	"context"
	"log/slog"
	"time"

	"georefgo/pkg/config"
	"georefgo/pkg/metrics"
	"georefgo/pkg/viewer"
)

// Scheduler manages the central heartbeat and the per-frame jobs. It is the
// only goroutine that touches the engine's mutable state.
type Scheduler struct {
	cfg     config.Provider
	viewer  viewer.Client
	engine  *Engine
	sink    TelemetrySink
	metrics *metrics.Collector
	jobs    []Job
}

// NewScheduler creates a new Scheduler. sink and m may be nil.
func NewScheduler(cfg config.Provider, v viewer.Client, e *Engine, sink TelemetrySink, m *metrics.Collector) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		viewer:  v,
		engine:  e,
		sink:    sink,
		metrics: m,
		jobs:    []Job{},
	}
}

// AddJob registers a job. Jobs run in registration order.
func (s *Scheduler) AddJob(j Job) {
	s.jobs = append(s.jobs, j)
}

// Start runs the main loop. It blocks until context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	interval := s.cfg.FrameLoop(ctx)
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("Scheduler started", "interval", interval, "jobs", len(s.jobs))

	for {
		select {
		case <-ctx.Done():
			// answer what is already queued so callers do not wait on a dead loop
			s.engine.DrainCommands(context.WithoutCancel(ctx))
			slog.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	defer func() { s.metrics.ObserveTick(time.Since(start)) }()

	// 0. Viewer state
	state := s.viewer.GetState()
	s.engine.SetViewerState(state)
	if s.sink != nil {
		s.sink.UpdateState(state)
	}

	// 1. Commands from the API
	s.engine.DrainCommands(ctx)

	if state != viewer.StateActive {
		s.engine.PublishIfDirty()
		return
	}

	// 2. Telemetry
	tel, err := s.viewer.GetTelemetry(ctx)
	if err != nil {
		slog.Debug("failed to read telemetry", "error", err)
		s.engine.PublishIfDirty()
		return
	}
	f := s.engine.Tick(ctx, &tel)

	// 3. Jobs, synchronously so each one sees the origin the previous left
	for _, job := range s.jobs {
		if job.ShouldFire(f) {
			job.Run(ctx, f)
		}
	}

	// 4. Sink and snapshot
	if s.sink != nil {
		s.sink.Update(f)
	}
	s.engine.PublishIfDirty()
}
