package dashboard

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Stats is the aggregate snapshot the dashboard renders.
type Stats struct {
	StatusCounts    map[string]int `json:"statusCounts"`
	OnHandCost      int64          `json:"onHandCost"`
	LotsInUse       int            `json:"lotsInUse"`
	SoldThisFY      int            `json:"soldThisFiscalYear"`
	ActiveListings  int            `json:"activeListings"`
	ComputedAt      time.Time      `json:"computedAt"`
}

// RepositoryPort abstracts the aggregate queries.
type RepositoryPort interface {
	StatusCounts(ctx context.Context) (map[string]int, error)
	OnHandCost(ctx context.Context) (int64, error)
	LotsInUse(ctx context.Context) (int, error)
	SoldSince(ctx context.Context, since time.Time) (int, error)
	ActiveListings(ctx context.Context) (int, error)
}

// Service computes dashboard statistics through the slot cache.
type Service struct {
	repo   RepositoryPort
	cache  *SlotCache
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, cache *SlotCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Cache exposes the slot so mutating services can invalidate it.
func (s *Service) Cache() *SlotCache {
	return s.cache
}

// Stats returns the cached snapshot or recomputes it. Concurrent misses may
// both recompute; the worst case is redundant work, not corruption.
func (s *Service) Stats(ctx context.Context) (*Stats, bool, error) {
	if cached, ok := s.cache.Get(); ok {
		return cached, true, nil
	}
	stats, err := s.compute(ctx)
	if err != nil {
		return nil, false, err
	}
	s.cache.Set(stats)
	return stats, false, nil
}

// fiscalYearStart returns July 1 of the current fiscal year.
func fiscalYearStart(now time.Time) time.Time {
	year := now.Year()
	if now.Month() < time.July {
		year--
	}
	return time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC)
}

func (s *Service) compute(ctx context.Context) (*Stats, error) {
	stats := &Stats{ComputedAt: time.Now().UTC()}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.repo.StatusCounts(ctx)
		stats.StatusCounts = counts
		return err
	})
	g.Go(func() error {
		cost, err := s.repo.OnHandCost(ctx)
		stats.OnHandCost = cost
		return err
	})
	g.Go(func() error {
		lots, err := s.repo.LotsInUse(ctx)
		stats.LotsInUse = lots
		return err
	})
	g.Go(func() error {
		sold, err := s.repo.SoldSince(ctx, fiscalYearStart(time.Now().UTC()))
		stats.SoldThisFY = sold
		return err
	})
	g.Go(func() error {
		active, err := s.repo.ActiveListings(ctx)
		stats.ActiveListings = active
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
