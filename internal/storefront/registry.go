package storefront

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/miniapp-storefront/internal/contact"
	"github.com/angelmondragon/miniapp-storefront/pkg/enums"
	"github.com/angelmondragon/miniapp-storefront/pkg/logger"
	"github.com/angelmondragon/miniapp-storefront/pkg/metrics"
)

const pruneJob = "session_prune"

// Builder constructs the engine for a new session.
type Builder func(mode enums.Mode, identity contact.IdentityProvider) (*Engine, error)

type entry struct {
	engine   *Engine
	lastSeen time.Time
}

// Registry keeps one engine per session and mode in memory.
type Registry struct {
	build Builder
	logg  *logger.Logger
	now   func() time.Time
	jobs  *metrics.JobMetrics

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewRegistry(build Builder, logg *logger.Logger, now func() time.Time) (*Registry, error) {
	if build == nil {
		return nil, fmt.Errorf("engine builder required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	if now == nil {
		now = time.Now
	}
	return &Registry{
		build:    build,
		logg:     logg,
		now:      now,
		sessions: map[string]*entry{},
	}, nil
}

func key(sessionID string, mode enums.Mode) string {
	return mode.String() + ":" + sessionID
}

// GetOrCreate returns the session's engine, building it on first use. The identity
// provider is only consulted when a new engine is built.
func (r *Registry) GetOrCreate(sessionID string, mode enums.Mode, identity contact.IdentityProvider) (*Engine, bool, error) {
	if sessionID == "" {
		return nil, false, fmt.Errorf("session id required")
	}
	k := key(sessionID, mode)

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[k]; ok {
		e.lastSeen = r.now()
		return e.engine, false, nil
	}
	engine, err := r.build(mode, identity)
	if err != nil {
		return nil, false, err
	}
	r.sessions[k] = &entry{engine: engine, lastSeen: r.now()}
	return engine, true, nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Prune drops sessions idle for longer than maxIdle and returns how many were removed.
func (r *Registry) Prune(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)
	pruned := 0

	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(r.sessions, k)
			pruned++
		}
	}
	return pruned
}

// ObserveJobs records prune runs on m. Call before Run.
func (r *Registry) ObserveJobs(m *metrics.JobMetrics) {
	r.jobs = m
}

// Run prunes idle sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, maxIdle time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("prune interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			start := r.now()
			n := r.Prune(maxIdle)
			r.jobs.ObserveDuration(pruneJob, r.now().Sub(start))
			r.jobs.IncSuccess(pruneJob)
			if n > 0 {
				r.logg.Info(r.logg.WithField(ctx, "pruned", n), "session.prune.complete")
			}
		}
	}
}

// Close drops every session.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = map[string]*entry{}
}
