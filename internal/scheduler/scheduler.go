// Package scheduler drives polling cycles. It idles until the next cycle
// boundary, then starts one independent task per device and goes straight
// back to idling; it never waits for the tasks it started.
package scheduler

import (
	"context"
	"time"

	"codeberg.org/mutker/minerdriver/internal/decoder"
	"codeberg.org/mutker/minerdriver/internal/device"
	"codeberg.org/mutker/minerdriver/internal/errors"
	"codeberg.org/mutker/minerdriver/internal/forwarder"
	"codeberg.org/mutker/minerdriver/internal/logger"
	"codeberg.org/mutker/minerdriver/internal/metrics"
	"codeberg.org/mutker/minerdriver/internal/record"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultCadence      = time.Minute
	DefaultSettleOffset = 5 * time.Second
)

type Config struct {
	// Cadence is the cycle length; cycles align to multiples of it.
	Cadence time.Duration
	// SettleOffset delays each cycle past its boundary.
	SettleOffset time.Duration
}

func DefaultConfig() Config {
	return Config{
		Cadence:      DefaultCadence,
		SettleOffset: DefaultSettleOffset,
	}
}

type Scheduler struct {
	cfg     Config
	devices []device.Descriptor
	fetcher device.Fetcher
	sender  forwarder.Sender
	clock   clockwork.Clock
	log     logger.Logger
}

type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

func New(cfg Config, devices []device.Descriptor, fetcher device.Fetcher, sender forwarder.Sender, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:     cfg,
		devices: append([]device.Descriptor(nil), devices...),
		fetcher: fetcher,
		sender:  sender,
		clock:   clockwork.NewRealClock(),
		log:     logger.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NextRun returns the first cycle start strictly after now: a multiple of
// cadence plus offset.
func NextRun(now time.Time, cadence, offset time.Duration) time.Time {
	next := now.Truncate(cadence).Add(offset)
	for !next.After(now) {
		next = next.Add(cadence)
	}
	return next
}

// Run polls once per cycle until ctx is cancelled. Tasks still running when
// Run returns are left to finish on their own.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.cfg.Cadence <= 0 || s.cfg.SettleOffset < 0 || s.cfg.SettleOffset >= s.cfg.Cadence {
		return errors.New().WithData(errors.ErrInvalidInterval, s.cfg)
	}

	s.log.Info().
		Int("devices", len(s.devices)).
		Dur("cadence", s.cfg.Cadence).
		Dur("settle_offset", s.cfg.SettleOffset).
		Msg("Scheduler started")

	var last time.Time
	for {
		now := s.clock.Now()
		next := NextRun(now, s.cfg.Cadence, s.cfg.SettleOffset)
		if !next.After(last) {
			next = last.Add(s.cfg.Cadence)
		}
		s.log.Debug().Time("next_run", next).Msg("Waiting for next cycle")

		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(next.Sub(now)):
			last = next
			s.Poll(ctx)
		}
	}
}

// Poll starts one task per device and returns without waiting for them.
// Tasks do not inherit ctx's cancellation.
func (s *Scheduler) Poll(ctx context.Context) {
	metrics.CyclesTotal.Inc()
	s.log.Debug().Int("devices", len(s.devices)).Msg("Probing...")

	taskCtx := context.WithoutCancel(ctx)
	for _, d := range s.devices {
		go s.probe(taskCtx, d)
	}
}

// probe runs fetch, decode and send for one device, strictly in order.
func (s *Scheduler) probe(ctx context.Context, d device.Descriptor) {
	metrics.TasksInFlight.Inc()
	defer metrics.TasksInFlight.Dec()
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().
				Str("worker_id", d.Identity).
				Interface("panic", r).
				Msg("Device task aborted")
		}
	}()

	start := time.Now()
	raw, err := s.fetcher.Fetch(ctx, d)
	metrics.FetchDuration.Observe(time.Since(start).Seconds())

	rec := decoder.Decode(d.Identity, raw, err)
	s.report(rec)
	s.sender.Send(ctx, rec)
}

func (s *Scheduler) report(rec record.Record) {
	switch r := rec.(type) {
	case *record.StatsRecord:
		metrics.ProbesTotal.WithLabelValues(metrics.OutcomeStats).Inc()
		s.log.Info().
			Str("worker_id", r.WorkerID).
			Str("hashrate", r.TotalHashrate.String()).
			Int("gpus", len(r.GPUs)).
			Msgf("%s: %sH/s", r.WorkerID, r.TotalHashrate)
	case *record.ErrorRecord:
		metrics.ProbesTotal.WithLabelValues(metrics.OutcomeError).Inc()
		s.log.Warn().
			Str("worker_id", r.WorkerID).
			Str("error", r.Detail).
			Msgf("%s: ERROR", r.WorkerID)
	}
}
