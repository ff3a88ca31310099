package lots

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shelfline/shelfline/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Members(ctx context.Context, lotNumber int64) ([]Member, error)
	LotNumbers(ctx context.Context) ([]int64, error)
}

// StatsInvalidator drops cached dashboard aggregates after a mutation.
type StatsInvalidator interface {
	Invalidate()
}

// Service is the lot manager.
type Service struct {
	repo   RepositoryPort
	stats  StatsInvalidator
	logger *slog.Logger
	clock  shared.Clock
}

// NewService builds Service.
func NewService(repo RepositoryPort, stats StatsInvalidator, logger *slog.Logger, clock shared.Clock) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Service{repo: repo, stats: stats, logger: logger, clock: clock}
}

func (s *Service) invalidateStats() {
	if s.stats != nil {
		s.stats.Invalidate()
	}
}

// Create stamps lotNumber on every listed item. Fails without stamping
// anything if an item is missing, already belongs to a lot, or the target
// lot number is already in use elsewhere.
func (s *Service) Create(ctx context.Context, lotNumber int64, itemIDs []int64) ([]Member, error) {
	if lotNumber < 1 {
		return nil, fmt.Errorf("lots: lot number must be positive: %w", shared.ErrValidation)
	}
	if len(itemIDs) == 0 {
		return nil, fmt.Errorf("lots: itemIds required: %w", shared.ErrValidation)
	}
	now := s.clock()
	var members []Member
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.CountMembers(ctx, lotNumber)
		if err != nil {
			return err
		}
		if existing > 0 {
			return fmt.Errorf("lots: lot %d already exists: %w", lotNumber, shared.ErrConflict)
		}
		items, err := tx.ItemsForUpdate(ctx, itemIDs)
		if err != nil {
			return err
		}
		if len(items) != len(itemIDs) {
			return fmt.Errorf("lots: one or more items: %w", shared.ErrNotFound)
		}
		for _, item := range items {
			if item.LotNumber != 0 {
				return fmt.Errorf("lots: item %d already belongs to lot %d: %w", item.ItemID, item.LotNumber, shared.ErrConflict)
			}
		}
		for _, item := range items {
			if err := tx.SetLotNumber(ctx, item.ItemID, lotNumber); err != nil {
				return err
			}
			note := fmt.Sprintf("added to lot %d", lotNumber)
			if err := tx.InsertAnnotation(ctx, item.ItemID, item.Status, ChannelCreation, note, now); err != nil {
				return err
			}
			item.LotNumber = lotNumber
			members = append(members, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateStats()
	return members, nil
}

// Dissolve clears membership for every member and returns how many were
// released. Dissolving an unknown lot is a not-found.
func (s *Service) Dissolve(ctx context.Context, lotNumber int64) (int, error) {
	now := s.clock()
	released := 0
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		members, err := tx.MembersForUpdate(ctx, lotNumber)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return fmt.Errorf("lots: lot %d: %w", lotNumber, shared.ErrNotFound)
		}
		for _, member := range members {
			if err := tx.ClearLotNumber(ctx, member.ItemID); err != nil {
				return err
			}
			note := fmt.Sprintf("lot %d dissolved", lotNumber)
			if err := tx.InsertAnnotation(ctx, member.ItemID, member.Status, ChannelDeletion, note, now); err != nil {
				return err
			}
		}
		released = len(members)
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.invalidateStats()
	return released, nil
}

// RemoveMember clears one item's membership after checking it actually
// belongs to the lot, and reports whether the lot is now empty.
func (s *Service) RemoveMember(ctx context.Context, lotNumber, itemID int64) (RemovalResult, error) {
	now := s.clock()
	result := RemovalResult{ItemID: itemID, LotNumber: lotNumber}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		items, err := tx.ItemsForUpdate(ctx, []int64{itemID})
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return fmt.Errorf("lots: item %d: %w", itemID, shared.ErrNotFound)
		}
		item := items[0]
		if item.LotNumber != lotNumber {
			return fmt.Errorf("lots: item %d is not in lot %d: %w", itemID, lotNumber, shared.ErrConflict)
		}
		if err := tx.ClearLotNumber(ctx, itemID); err != nil {
			return err
		}
		note := fmt.Sprintf("removed from lot %d", lotNumber)
		if err := tx.InsertAnnotation(ctx, itemID, item.Status, ChannelDeletion, note, now); err != nil {
			return err
		}
		remaining, err := tx.CountMembers(ctx, lotNumber)
		if err != nil {
			return err
		}
		result.Remaining = remaining
		result.Empty = remaining == 0
		return nil
	})
	if err != nil {
		return RemovalResult{}, err
	}
	s.invalidateStats()
	return result, nil
}

// Members lists current members of a lot.
func (s *Service) Members(ctx context.Context, lotNumber int64) ([]Member, error) {
	members, err := s.repo.Members(ctx, lotNumber)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("lots: lot %d: %w", lotNumber, shared.ErrNotFound)
	}
	return members, nil
}

// LotNumbers lists every lot currently in use.
func (s *Service) LotNumbers(ctx context.Context) ([]int64, error) {
	return s.repo.LotNumbers(ctx)
}
