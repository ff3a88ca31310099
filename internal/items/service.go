package items

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shelfline/shelfline/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetItem(ctx context.Context, id int64) (Item, error)
	ListItems(ctx context.Context, filter ListFilter) ([]Item, int, error)
	History(ctx context.Context, itemID int64) ([]StatusHistory, error)
	Listings(ctx context.Context, itemID int64) ([]Listing, error)
}

// CatalogInfo carries the catalog fields captured at intake.
type CatalogInfo struct {
	Barcode   string
	Title     string
	Author    string
	Publisher string
	PubYear   int
	Binding   string
	ImageRef  string
	Tags      []string
}

// CatalogPort upserts catalog records keyed by barcode.
type CatalogPort interface {
	Upsert(ctx context.Context, info CatalogInfo) error
}

// SalesPort records cost-of-goods-sold for a sold item.
type SalesPort interface {
	RecordSale(ctx context.Context, itemID int64, soldAt time.Time) error
}

// StatsInvalidator drops cached dashboard aggregates after a mutation.
type StatsInvalidator interface {
	Invalidate()
}

// Service is the item lifecycle engine.
type Service struct {
	repo    RepositoryPort
	catalog CatalogPort
	sales   SalesPort
	stats   StatsInvalidator
	logger  *slog.Logger
	clock   shared.Clock
}

// NewService builds Service. catalog, sales and stats may be nil in tests.
func NewService(repo RepositoryPort, catalog CatalogPort, sales SalesPort, stats StatsInvalidator, logger *slog.Logger, clock shared.Clock) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = shared.SystemClock
	}
	return &Service{repo: repo, catalog: catalog, sales: sales, stats: stats, logger: logger, clock: clock}
}

func (s *Service) invalidateStats() {
	if s.stats != nil {
		s.stats.Invalidate()
	}
}

// Intake creates an item in INTAKE and upserts its catalog record.
func (s *Service) Intake(ctx context.Context, input IntakeInput) (Item, error) {
	if !ValidBarcode(input.Barcode) {
		return Item{}, fmt.Errorf("items: barcode must be 8-14 digits: %w", shared.ErrValidation)
	}
	if input.CostCents < 0 {
		return Item{}, fmt.Errorf("items: cost must be >= 0: %w", shared.ErrValidation)
	}

	if s.catalog != nil {
		info := CatalogInfo{
			Barcode:   input.Barcode,
			Title:     input.Title,
			Author:    input.Author,
			Publisher: input.Publisher,
			PubYear:   input.PubYear,
			Binding:   input.Binding,
			ImageRef:  input.ImageRef,
			Tags:      input.Tags,
		}
		if err := s.catalog.Upsert(ctx, info); err != nil {
			return Item{}, fmt.Errorf("items: catalog upsert: %w", err)
		}
	}

	now := s.clock()
	item := Item{
		Barcode:   input.Barcode,
		Grade:     input.Grade,
		Notes:     input.Notes,
		CostCents: input.CostCents,
		Status:    StatusIntake,
		IntakeAt:  now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertItem(ctx, item)
		if err != nil {
			return err
		}
		item.ID = id
		return tx.InsertHistory(ctx, StatusHistory{
			ItemID:     id,
			EventID:    uuid.New(),
			FromStatus: nil,
			ToStatus:   StatusIntake,
			Channel:    ChannelIntake,
			Note:       "intaken with barcode " + input.Barcode,
			OccurredAt: now,
		})
	})
	if err != nil {
		return Item{}, err
	}
	s.invalidateStats()
	return item, nil
}

// Putaway assigns a shelf location to an INTAKE item and moves it to STORED.
func (s *Service) Putaway(ctx context.Context, id int64, location string) (Item, error) {
	if location == "" || len(location) > MaxLocationLen {
		return Item{}, fmt.Errorf("items: location must be 1-%d chars: %w", MaxLocationLen, shared.ErrValidation)
	}
	var updated Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if item.Status != StatusIntake {
			return fmt.Errorf("items: putaway requires INTAKE, item %d is %s: %w", id, item.Status, shared.ErrPreconditionFailed)
		}
		if err := tx.SetLocationStatus(ctx, id, location, StatusStored); err != nil {
			return err
		}
		from := item.Status
		if err := tx.InsertHistory(ctx, StatusHistory{
			ItemID:     id,
			EventID:    uuid.New(),
			FromStatus: &from,
			ToStatus:   StatusStored,
			Channel:    ChannelPutaway,
			Note:       "stored at " + location,
			OccurredAt: s.clock(),
		}); err != nil {
			return err
		}
		item.Location = location
		item.Status = StatusStored
		updated = item
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	s.invalidateStats()
	return updated, nil
}

// ListItem creates an ACTIVE listing for a STORED item and moves it to LISTED.
func (s *Service) ListItem(ctx context.Context, id int64, input ListInput) (Listing, error) {
	if input.Channel == "" {
		return Listing{}, fmt.Errorf("items: listing channel required: %w", shared.ErrValidation)
	}
	if input.PriceCents < 1 {
		return Listing{}, fmt.Errorf("items: price must be >= 1: %w", shared.ErrValidation)
	}
	now := s.clock()
	var created Listing
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if item.Status != StatusStored {
			return fmt.Errorf("items: list requires STORED, item %d is %s: %w", id, item.Status, shared.ErrPreconditionFailed)
		}
		active, err := tx.CountActiveListings(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("items: item %d already has an active listing: %w", id, shared.ErrConflict)
		}
		listing := Listing{
			ItemID:     id,
			Channel:    input.Channel,
			ExternalID: input.ExternalID,
			PriceCents: input.PriceCents,
			Status:     ListingActive,
		}
		listingID, err := tx.InsertListing(ctx, listing)
		if err != nil {
			return err
		}
		listing.ID = listingID
		if err := tx.SetListedDate(ctx, id, now, StatusListed); err != nil {
			return err
		}
		from := item.Status
		if err := tx.InsertHistory(ctx, StatusHistory{
			ItemID:     id,
			EventID:    uuid.New(),
			FromStatus: &from,
			ToStatus:   StatusListed,
			Channel:    input.Channel,
			Note:       fmt.Sprintf("listed at %d cents", input.PriceCents),
			OccurredAt: now,
		}); err != nil {
			return err
		}
		created = listing
		return nil
	})
	if err != nil {
		return Listing{}, err
	}
	s.invalidateStats()
	return created, nil
}

// ChangeStatus performs the generic status change. Edges outside the
// transition table are rejected unless input.Force is set; forced changes
// default their channel to ADMIN so the audit trail names the authority.
func (s *Service) ChangeStatus(ctx context.Context, id int64, input ChangeStatusInput) (Item, error) {
	if !input.To.Valid() {
		return Item{}, fmt.Errorf("items: unknown status %q: %w", input.To, shared.ErrValidation)
	}
	channel := input.Channel
	if channel == "" {
		channel = ChannelManual
		if input.Force {
			channel = ChannelAdmin
		}
	}
	var updated Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !input.Force && !CanTransition(item.Status, input.To) {
			return fmt.Errorf("items: transition %s -> %s not allowed: %w", item.Status, input.To, shared.ErrPreconditionFailed)
		}
		if err := tx.SetStatus(ctx, id, input.To); err != nil {
			return err
		}
		from := item.Status
		if err := tx.InsertHistory(ctx, StatusHistory{
			ItemID:     id,
			EventID:    uuid.New(),
			FromStatus: &from,
			ToStatus:   input.To,
			Channel:    channel,
			Note:       input.Note,
			OccurredAt: s.clock(),
		}); err != nil {
			return err
		}
		item.Status = input.To
		updated = item
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	s.invalidateStats()
	return updated, nil
}

// Patch updates location/status/grade/notes. A location change on a lot
// member widens to every member; INTAKE members with no explicit status
// auto-promote to STORED.
func (s *Service) Patch(ctx context.Context, id int64, input PatchInput) ([]Item, error) {
	if input.Location != nil && (*input.Location == "" || len(*input.Location) > MaxLocationLen) {
		return nil, fmt.Errorf("items: location must be 1-%d chars: %w", MaxLocationLen, shared.ErrValidation)
	}
	if input.Status != nil && !input.Status.Valid() {
		return nil, fmt.Errorf("items: unknown status %q: %w", *input.Status, shared.ErrValidation)
	}
	channel := input.Channel
	if channel == "" {
		channel = ChannelAdmin
	}
	now := s.clock()
	var affected []Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, id)
		if err != nil {
			return err
		}
		targets := []Item{item}
		lotWide := false
		if input.Location != nil && item.LotNumber != 0 {
			members, err := tx.LotMembersForUpdate(ctx, item.LotNumber)
			if err != nil {
				return err
			}
			targets = members
			lotWide = true
		}
		for _, target := range targets {
			newStatus := target.Status
			switch {
			case input.Status != nil:
				newStatus = *input.Status
			case input.Location != nil && target.Status == StatusIntake:
				newStatus = StatusStored
			}
			if input.Location != nil {
				if err := tx.SetLocationStatus(ctx, target.ID, *input.Location, newStatus); err != nil {
					return err
				}
			} else if newStatus != target.Status {
				if err := tx.SetStatus(ctx, target.ID, newStatus); err != nil {
					return err
				}
			}
			if target.ID == id && (input.Grade != nil || input.Notes != nil) {
				if err := tx.SetGradeNotes(ctx, target.ID, input.Grade, input.Notes); err != nil {
					return err
				}
			}
			if input.Location != nil || newStatus != target.Status {
				note := "updated"
				if input.Location != nil {
					note = "moved to " + *input.Location
					if lotWide {
						note = fmt.Sprintf("moved to %s (lot %d wide)", *input.Location, item.LotNumber)
					}
				}
				from := target.Status
				if err := tx.InsertHistory(ctx, StatusHistory{
					ItemID:     target.ID,
					EventID:    uuid.New(),
					FromStatus: &from,
					ToStatus:   newStatus,
					Channel:    channel,
					Note:       note,
					OccurredAt: now,
				}); err != nil {
					return err
				}
			}
			target.Status = newStatus
			if input.Location != nil {
				target.Location = *input.Location
			}
			affected = append(affected, target)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateStats()
	return affected, nil
}

// BulkLocation relocates many items at once, widening to full lots and
// promoting INTAKE members to STORED.
func (s *Service) BulkLocation(ctx context.Context, ids []int64, location string) ([]Item, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("items: itemIds required: %w", shared.ErrValidation)
	}
	if location == "" || len(location) > MaxLocationLen {
		return nil, fmt.Errorf("items: location must be 1-%d chars: %w", MaxLocationLen, shared.ErrValidation)
	}
	now := s.clock()
	var affected []Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		targets, err := s.resolveTargets(ctx, tx, ids)
		if err != nil {
			return err
		}
		for _, target := range targets {
			newStatus := target.Status
			if target.Status == StatusIntake {
				newStatus = StatusStored
			}
			if err := tx.SetLocationStatus(ctx, target.ID, location, newStatus); err != nil {
				return err
			}
			note := "bulk moved to " + location
			if target.LotNumber != 0 {
				note = fmt.Sprintf("bulk moved to %s (lot %d wide)", location, target.LotNumber)
			}
			from := target.Status
			if err := tx.InsertHistory(ctx, StatusHistory{
				ItemID:     target.ID,
				EventID:    uuid.New(),
				FromStatus: &from,
				ToStatus:   newStatus,
				Channel:    ChannelBulkPutaway,
				Note:       note,
				OccurredAt: now,
			}); err != nil {
				return err
			}
			target.Status = newStatus
			target.Location = location
			affected = append(affected, target)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidateStats()
	return affected, nil
}

// BulkDates stamps listed or sold dates on many items, widening to full
// lots. For sold dates it derives the sale bucket and records COGS per item
// after commit, tolerating individual failures.
func (s *Service) BulkDates(ctx context.Context, ids []int64, dateType DateType, date time.Time) ([]Item, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("items: itemIds required: %w", shared.ErrValidation)
	}
	if !dateType.Valid() {
		return nil, fmt.Errorf("items: dateType must be listed or sold: %w", shared.ErrValidation)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("items: date required: %w", shared.ErrValidation)
	}
	var affected []Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		targets, err := s.resolveTargets(ctx, tx, ids)
		if err != nil {
			return err
		}
		for _, target := range targets {
			newStatus := StatusListed
			if dateType == DateSold {
				newStatus = StatusSold
				if err := tx.SetSoldDate(ctx, target.ID, date, date.Year(), int(date.Month())); err != nil {
					return err
				}
			} else {
				if err := tx.SetListedDate(ctx, target.ID, date, newStatus); err != nil {
					return err
				}
			}
			note := fmt.Sprintf("%s date set to %s", dateType, date.Format("2006-01-02"))
			if target.LotNumber != 0 {
				note += fmt.Sprintf(" (lot %d wide)", target.LotNumber)
			}
			from := target.Status
			if err := tx.InsertHistory(ctx, StatusHistory{
				ItemID:     target.ID,
				EventID:    uuid.New(),
				FromStatus: &from,
				ToStatus:   newStatus,
				Channel:    ChannelBulkDates,
				Note:       note,
				OccurredAt: s.clock(),
			}); err != nil {
				return err
			}
			target.Status = newStatus
			affected = append(affected, target)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if dateType == DateSold && s.sales != nil {
		// Per-item COGS failures are logged and skipped; the batch already
		// committed and RecordSale is idempotent, so a retry can catch up.
		for _, item := range affected {
			if err := s.sales.RecordSale(ctx, item.ID, date); err != nil {
				s.logger.Warn("record sale failed",
					slog.Int64("item_id", item.ID),
					slog.Any("error", err))
			}
		}
	}
	s.invalidateStats()
	return affected, nil
}

// resolveTargets loads the requested items and silently widens the set to
// every member of any lot the requested items belong to. Requested ids are
// deduplicated up front; the store returns each row once, so a repeated id
// must not trip the existence check.
func (s *Service) resolveTargets(ctx context.Context, tx TxRepository, ids []int64) ([]Item, error) {
	unique := make([]int64, 0, len(ids))
	requestedSeen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !requestedSeen[id] {
			requestedSeen[id] = true
			unique = append(unique, id)
		}
	}
	requested, err := tx.GetItemsForUpdate(ctx, unique)
	if err != nil {
		return nil, err
	}
	if len(requested) != len(unique) {
		return nil, fmt.Errorf("items: one or more items: %w", shared.ErrNotFound)
	}
	seen := make(map[int64]bool, len(requested))
	lotsSeen := make(map[int64]bool)
	targets := make([]Item, 0, len(requested))
	for _, item := range requested {
		if !seen[item.ID] {
			seen[item.ID] = true
			targets = append(targets, item)
		}
		if item.LotNumber != 0 && !lotsSeen[item.LotNumber] {
			lotsSeen[item.LotNumber] = true
			members, err := tx.LotMembersForUpdate(ctx, item.LotNumber)
			if err != nil {
				return nil, err
			}
			for _, member := range members {
				if !seen[member.ID] {
					seen[member.ID] = true
					targets = append(targets, member)
				}
			}
		}
	}
	return targets, nil
}

// Delete removes an item that was never sold and is not actively listed,
// cascading its history and listings first.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetItemForUpdate(ctx, id); err != nil {
			return err
		}
		active, err := tx.CountActiveListings(ctx, id)
		if err != nil {
			return err
		}
		if active > 0 {
			return fmt.Errorf("items: item %d has active listings: %w", id, shared.ErrDeleteBlocked)
		}
		sold, err := tx.CountOrderLines(ctx, id)
		if err != nil {
			return err
		}
		if sold > 0 {
			return fmt.Errorf("items: item %d has recorded sales: %w", id, shared.ErrDeleteBlocked)
		}
		recorded, err := tx.CountCOGSRecords(ctx, id)
		if err != nil {
			return err
		}
		if recorded > 0 {
			return fmt.Errorf("items: item %d has a cost record: %w", id, shared.ErrDeleteBlocked)
		}
		if err := tx.DeleteHistory(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteListings(ctx, id); err != nil {
			return err
		}
		return tx.DeleteItem(ctx, id)
	})
	if err != nil {
		return err
	}
	s.invalidateStats()
	return nil
}

// Get loads one item.
func (s *Service) Get(ctx context.Context, id int64) (Item, error) {
	return s.repo.GetItem(ctx, id)
}

// List returns a filtered page of items.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	return s.repo.ListItems(ctx, filter)
}

// History returns the audit trail for one item.
func (s *Service) History(ctx context.Context, id int64) ([]StatusHistory, error) {
	if _, err := s.repo.GetItem(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, id)
}

// Listings returns every listing for one item.
func (s *Service) Listings(ctx context.Context, id int64) ([]Listing, error) {
	if _, err := s.repo.GetItem(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Listings(ctx, id)
}
