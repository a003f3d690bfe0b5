package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	pkgerrors "github.com/angelmondragon/miniapp-storefront/pkg/errors"
	"github.com/angelmondragon/miniapp-storefront/pkg/logger"
	"github.com/angelmondragon/miniapp-storefront/pkg/metrics"
)

// Fetcher loads the raw product list from the source of truth.
type Fetcher interface {
	FetchCatalog(ctx context.Context) ([]Product, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]Product, error)

func (fn FetcherFunc) FetchCatalog(ctx context.Context) ([]Product, error) {
	return fn(ctx)
}

// StoreParams wires a Store.
type StoreParams struct {
	Fetcher Fetcher
	Logger  *logger.Logger
	Metrics *metrics.StorefrontMetrics
	Now     func() time.Time
}

const refreshKey = "catalog"

// Store holds the current catalog snapshot. A refresh replaces the whole snapshot
// atomically; readers always see either the old or the new one, never a mix.
// A fetch only installs its result if no fetch started after it has installed first.
type Store struct {
	fetcher Fetcher
	logg    *logger.Logger
	metrics *metrics.StorefrontMetrics
	now     func() time.Time

	current  atomic.Pointer[Snapshot]
	version  atomic.Uint64
	fetchSeq atomic.Uint64
	group    singleflight.Group

	mu           sync.Mutex
	lastErr      error
	installedSeq uint64
}

// NewStore builds a Store that starts with an empty snapshot.
func NewStore(params StoreParams) (*Store, error) {
	if params.Fetcher == nil {
		return nil, fmt.Errorf("catalog fetcher required")
	}
	s := &Store{
		fetcher: params.Fetcher,
		logg:    params.Logger,
		metrics: params.Metrics,
		now:     params.Now,
	}
	if s.logg == nil {
		s.logg = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.current.Store(NewSnapshot(nil))
	return s, nil
}

// Current returns the active snapshot. Never nil.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// LastError returns the failure of the most recent refresh, nil after a success.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Refresh fetches a fresh snapshot and installs it. Concurrent callers share a single
// fetch, which may have started before the call. On failure the previous snapshot stays
// active.
func (s *Store) Refresh(ctx context.Context) (*Snapshot, error) {
	v, err, _ := s.group.Do(refreshKey, func() (any, error) {
		return s.fetch(ctx)
	})
	return s.finish(ctx, v, err)
}

// Reload is Refresh for callers that just wrote to the source of truth: the result
// always comes from a fetch that started after the call. A fetch already in flight
// cannot overwrite it.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	s.group.Forget(refreshKey)
	return s.Refresh(ctx)
}

// Replace installs products directly, bypassing the fetcher.
func (s *Store) Replace(products []Product) *Snapshot {
	return s.install(products, s.fetchSeq.Add(1))
}

func (s *Store) fetch(ctx context.Context) (*Snapshot, error) {
	seq := s.fetchSeq.Add(1)
	start := s.now()
	products, err := s.fetcher.FetchCatalog(ctx)
	s.metrics.ObserveCall("fetch_catalog", s.now().Sub(start))
	if err != nil {
		typed := catalogError(err)
		s.mu.Lock()
		if seq > s.installedSeq {
			s.lastErr = typed
		}
		s.mu.Unlock()
		return nil, typed
	}
	return s.install(products, seq), nil
}

func (s *Store) finish(ctx context.Context, v any, err error) (*Snapshot, error) {
	if err != nil {
		s.metrics.IncRefresh(metrics.OutcomeTransport)
		s.logg.Error(ctx, "catalog.refresh.failed", err)
		return s.Current(), err
	}
	snap := v.(*Snapshot)
	s.metrics.IncRefresh(metrics.OutcomeSuccess)
	ctx = s.logg.WithFields(ctx, map[string]any{"products": snap.Len(), "version": snap.Version()})
	s.logg.Info(ctx, "catalog.refresh.complete")
	return snap, nil
}

// install swaps in products fetched at seq. A result older than the installed one is
// dropped and the current snapshot returned instead.
func (s *Store) install(products []Product, seq uint64) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.installedSeq {
		return s.current.Load()
	}
	snap := newSnapshot(products, s.version.Add(1), s.now())
	s.current.Store(snap)
	s.installedSeq = seq
	s.lastErr = nil
	return snap
}

func catalogError(err error) error {
	if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeCatalogUnavailable {
		return typed
	}
	return pkgerrors.Wrap(pkgerrors.CodeCatalogUnavailable, err, pkgerrors.UserMessage(err))
}
