package reaper

import (
	"context"
	"sync"
	"time"

	"github.com/campfinder-assistant/server/internal/agent/model"
	logx "github.com/campfinder-assistant/server/pkg/logger"
)

const (
	DefaultInterval = 10 * time.Minute
	DefaultWindow   = 30 * time.Minute
)

// Reaper periodically deletes sessions idle for longer than the inactivity window.
type Reaper struct {
	store    model.SessionStore
	interval time.Duration
	window   time.Duration
	now      func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func New(store model.SessionStore, cfg model.SessionConfig) *Reaper {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = DefaultInterval
	}
	window := cfg.InactivityWindow
	if window <= 0 {
		window = DefaultWindow
	}
	return &Reaper{
		store:    store,
		interval: interval,
		window:   window,
		now:      time.Now,
	}
}

// WithClock replaces the time source; used by tests.
func (r *Reaper) WithClock(now func() time.Time) *Reaper {
	r.now = now
	return r
}

// SweepOnce removes every session whose last activity is older than the window.
func (r *Reaper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := r.now().Add(-r.window)
	return r.store.Sweep(ctx, cutoff)
}

// Start runs an initial sweep and then one per interval until Stop or ctx ends.
func (r *Reaper) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.running = true

	go r.run(runCtx, r.done)
}

// Stop cancels the schedule and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel, done := r.cancel, r.done
	r.mu.Unlock()

	cancel()
	<-done
}

func (r *Reaper) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Reaper) run(ctx context.Context, done chan struct{}) {
	defer func() {
		r.mu.Lock()
		r.running = false
		close(done)
		r.mu.Unlock()
	}()

	log := logx.Component("session.reaper")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Session reaper stopping")
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	log := logx.Component("session.reaper")
	start := time.Now()

	removed, err := r.SweepOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("Session sweep failed")
		}
		return
	}
	if removed > 0 {
		log.Info().Int("removed", removed).Dur("duration", time.Since(start)).Msg("Expired sessions removed")
	}
}
