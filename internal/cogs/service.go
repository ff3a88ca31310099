package cogs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/shelfline/shelfline/internal/shared"
)

const (
	summaryTTL = 5 * time.Minute
	monthlyTTL = 15 * time.Minute
)

// RepositoryPort abstracts persistence for the recorder.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Summary(ctx context.Context) ([]YearSummary, error)
	Monthly(ctx context.Context, financialYear int) ([]MonthBreakdown, error)
	MissingRecords(ctx context.Context, limit int) ([]int64, error)
	SoldAt(ctx context.Context, itemID int64) (Record, error)
}

// Service is the COGS recorder.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	logger *slog.Logger
}

// NewService builds Service. cache may be nil; reads then hit the store.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// RecordSale persists the cost record for a sold item exactly once.
// A pre-existing record is a logged no-op, never an error, so bulk callers
// and retries stay idempotent.
func (s *Service) RecordSale(ctx context.Context, itemID int64, soldAt time.Time) error {
	if soldAt.IsZero() {
		return fmt.Errorf("cogs: sale date required: %w", shared.ErrValidation)
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if item.Status != "SOLD" {
			return fmt.Errorf("cogs: item %d is %s, not SOLD: %w", itemID, item.Status, shared.ErrInvalidState)
		}
		if _, err := tx.GetRecord(ctx, itemID); err == nil {
			return ErrRecordExists
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		return tx.InsertRecord(ctx, NewRecord(itemID, item.CostCents, soldAt))
	})
	if errors.Is(err, ErrRecordExists) {
		s.logger.Info("cogs record already present", slog.Int64("item_id", itemID))
		return nil
	}
	if err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("cogs cache bump failed", slog.Any("error", err))
		}
	}
	return nil
}

// Summary returns per-financial-year totals, cached for five minutes.
func (s *Service) Summary(ctx context.Context) ([]YearSummary, error) {
	key, err := s.cache.BuildKey(ctx, "cogs", "summary")
	if err != nil {
		return nil, err
	}
	var out []YearSummary
	err = s.cache.FetchJSON(ctx, key, summaryTTL, &out, func(ctx context.Context) (any, error) {
		return s.repo.Summary(ctx)
	})
	return out, err
}

// Monthly returns per-fiscal-month totals, cached for fifteen minutes.
// Zero financialYear means all years.
func (s *Service) Monthly(ctx context.Context, financialYear int) ([]MonthBreakdown, error) {
	key, err := s.cache.BuildKey(ctx, "cogs", "monthly", strconv.Itoa(financialYear))
	if err != nil {
		return nil, err
	}
	var out []MonthBreakdown
	err = s.cache.FetchJSON(ctx, key, monthlyTTL, &out, func(ctx context.Context) (any, error) {
		return s.repo.Monthly(ctx, financialYear)
	})
	return out, err
}

// Backfill records COGS for SOLD items that missed it, e.g. when a bulk
// sale tolerated per-item failures. Returns how many records were written.
func (s *Service) Backfill(ctx context.Context, limit int) (int, error) {
	ids, err := s.repo.MissingRecords(ctx, limit)
	if err != nil {
		return 0, err
	}
	recorded := 0
	for _, id := range ids {
		snapshot, err := s.repo.SoldAt(ctx, id)
		if err != nil {
			s.logger.Warn("backfill skipped item", slog.Int64("item_id", id), slog.Any("error", err))
			continue
		}
		if err := s.RecordSale(ctx, id, snapshot.SoldAt); err != nil {
			s.logger.Warn("backfill record failed", slog.Int64("item_id", id), slog.Any("error", err))
			continue
		}
		recorded++
	}
	return recorded, nil
}
