package items

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfline/shelfline/internal/shared"
)

type memoryRepo struct {
	items       map[int64]*Item
	history     map[int64][]StatusHistory
	listings    map[int64][]Listing
	orders      map[int64]int
	cogsRecords map[int64]bool
	nextItem    int64
	nextList    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		items:       make(map[int64]*Item),
		history:     make(map[int64][]StatusHistory),
		listings:    make(map[int64][]Listing),
		orders:      make(map[int64]int),
		cogsRecords: make(map[int64]bool),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetItem(ctx context.Context, id int64) (Item, error) {
	if it, ok := r.items[id]; ok {
		return *it, nil
	}
	return Item{}, shared.ErrNotFound
}

func (r *memoryRepo) ListItems(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	var out []Item
	for _, it := range r.items {
		if filter.Status != "" && it.Status != filter.Status {
			continue
		}
		out = append(out, *it)
	}
	return out, len(out), nil
}

func (r *memoryRepo) History(ctx context.Context, itemID int64) ([]StatusHistory, error) {
	return r.history[itemID], nil
}

func (r *memoryRepo) Listings(ctx context.Context, itemID int64) ([]Listing, error) {
	return r.listings[itemID], nil
}

func (tx *memoryTx) GetItemForUpdate(ctx context.Context, id int64) (Item, error) {
	return tx.repo.GetItem(ctx, id)
}

// GetItemsForUpdate returns each matching row once, like WHERE id = ANY.
func (tx *memoryTx) GetItemsForUpdate(ctx context.Context, ids []int64) ([]Item, error) {
	var out []Item
	returned := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if returned[id] {
			continue
		}
		returned[id] = true
		if it, ok := tx.repo.items[id]; ok {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (tx *memoryTx) LotMembersForUpdate(ctx context.Context, lotNumber int64) ([]Item, error) {
	var out []Item
	for _, it := range tx.repo.items {
		if it.LotNumber == lotNumber {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (tx *memoryTx) InsertItem(ctx context.Context, item Item) (int64, error) {
	tx.repo.nextItem++
	item.ID = tx.repo.nextItem
	tx.repo.items[item.ID] = &item
	return item.ID, nil
}

func (tx *memoryTx) SetStatus(ctx context.Context, id int64, status Status) error {
	tx.repo.items[id].Status = status
	return nil
}

func (tx *memoryTx) SetLocationStatus(ctx context.Context, id int64, location string, status Status) error {
	it := tx.repo.items[id]
	it.Location = location
	it.Status = status
	return nil
}

func (tx *memoryTx) SetGradeNotes(ctx context.Context, id int64, grade, notes *string) error {
	it := tx.repo.items[id]
	if grade != nil {
		it.Grade = *grade
	}
	if notes != nil {
		it.Notes = *notes
	}
	return nil
}

func (tx *memoryTx) SetListedDate(ctx context.Context, id int64, listedAt time.Time, status Status) error {
	it := tx.repo.items[id]
	it.ListedAt = &listedAt
	it.Status = status
	return nil
}

func (tx *memoryTx) SetSoldDate(ctx context.Context, id int64, soldAt time.Time, soldYear, soldMonth int) error {
	it := tx.repo.items[id]
	it.SoldAt = &soldAt
	it.SoldYear = soldYear
	it.SoldMonth = soldMonth
	it.Status = StatusSold
	return nil
}

func (tx *memoryTx) InsertHistory(ctx context.Context, h StatusHistory) error {
	tx.repo.history[h.ItemID] = append(tx.repo.history[h.ItemID], h)
	return nil
}

func (tx *memoryTx) InsertListing(ctx context.Context, l Listing) (int64, error) {
	tx.repo.nextList++
	l.ID = tx.repo.nextList
	tx.repo.listings[l.ItemID] = append(tx.repo.listings[l.ItemID], l)
	return l.ID, nil
}

func (tx *memoryTx) CountActiveListings(ctx context.Context, itemID int64) (int, error) {
	count := 0
	for _, l := range tx.repo.listings[itemID] {
		if l.Status == ListingActive {
			count++
		}
	}
	return count, nil
}

func (tx *memoryTx) CountOrderLines(ctx context.Context, itemID int64) (int, error) {
	return tx.repo.orders[itemID], nil
}

func (tx *memoryTx) CountCOGSRecords(ctx context.Context, itemID int64) (int, error) {
	if tx.repo.cogsRecords[itemID] {
		return 1, nil
	}
	return 0, nil
}

func (tx *memoryTx) DeleteListings(ctx context.Context, itemID int64) error {
	delete(tx.repo.listings, itemID)
	return nil
}

func (tx *memoryTx) DeleteHistory(ctx context.Context, itemID int64) error {
	delete(tx.repo.history, itemID)
	return nil
}

func (tx *memoryTx) DeleteItem(ctx context.Context, id int64) error {
	delete(tx.repo.items, id)
	return nil
}

type recordedSale struct {
	itemID int64
	soldAt time.Time
}

type fakeSales struct {
	recorded []recordedSale
	failFor  map[int64]error
	repo     *memoryRepo
}

func (f *fakeSales) RecordSale(ctx context.Context, itemID int64, soldAt time.Time) error {
	if err, ok := f.failFor[itemID]; ok {
		return err
	}
	f.recorded = append(f.recorded, recordedSale{itemID: itemID, soldAt: soldAt})
	if f.repo != nil {
		f.repo.cogsRecords[itemID] = true
	}
	return nil
}

type countingInvalidator struct {
	calls int
}

func (c *countingInvalidator) Invalidate() { c.calls++ }

func fixedClock(t time.Time) shared.Clock {
	return func() time.Time { return t }
}

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, nil, nil, nil, nil, fixedClock(testNow))
}

func seedItem(repo *memoryRepo, status Status, lot int64) int64 {
	repo.nextItem++
	id := repo.nextItem
	repo.items[id] = &Item{ID: id, Barcode: "9780140283334", Status: status, LotNumber: lot, CostCents: 500, IntakeAt: testNow}
	return id
}

func TestIntake(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	item, err := svc.Intake(ctx, IntakeInput{Barcode: "9780140283334", CostCents: 500, Grade: "B"})
	require.NoError(t, err)
	require.Equal(t, StatusIntake, item.Status)
	require.NotZero(t, item.ID)

	history := repo.history[item.ID]
	require.Len(t, history, 1)
	require.Nil(t, history[0].FromStatus)
	require.Equal(t, StatusIntake, history[0].ToStatus)
	require.Equal(t, ChannelIntake, history[0].Channel)
	require.NotEqual(t, [16]byte{}, [16]byte(history[0].EventID))
}

func TestIntakeRejectsBadBarcode(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Intake(ctx, IntakeInput{Barcode: "123", CostCents: 100})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Intake(ctx, IntakeInput{Barcode: "978014028333X", CostCents: 100})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Intake(ctx, IntakeInput{Barcode: "9780140283334", CostCents: -1})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPutaway(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	id := seedItem(repo, StatusIntake, 0)

	item, err := svc.Putaway(ctx, id, "A-03-2")
	require.NoError(t, err)
	require.Equal(t, StatusStored, item.Status)
	require.Equal(t, "A-03-2", item.Location)

	history := repo.history[id]
	require.Len(t, history, 1)
	require.Equal(t, StatusIntake, *history[0].FromStatus)
	require.Equal(t, StatusStored, history[0].ToStatus)
	require.Equal(t, ChannelPutaway, history[0].Channel)

	_, err = svc.Putaway(ctx, id, "A-03-3")
	require.ErrorIs(t, err, shared.ErrPreconditionFailed)
}

func TestPutawayValidatesLocation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	id := seedItem(repo, StatusIntake, 0)

	_, err := svc.Putaway(ctx, id, "")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Putaway(ctx, id, "THIS-LOCATION-IS-FAR-TOO-LONG")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestListItem(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	id := seedItem(repo, StatusStored, 0)

	listing, err := svc.ListItem(ctx, id, ListInput{Channel: "ebay", PriceCents: 1999})
	require.NoError(t, err)
	require.Equal(t, ListingActive, listing.Status)
	require.Equal(t, StatusListed, repo.items[id].Status)
	require.NotNil(t, repo.items[id].ListedAt)

	// back to STORED; the old listing is still ACTIVE so a second listing
	// must be refused
	repo.items[id].Status = StatusStored
	_, err = svc.ListItem(ctx, id, ListInput{Channel: "ebay", PriceCents: 2499})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestListItemRequiresStored(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	id := seedItem(repo, StatusIntake, 0)

	_, err := svc.ListItem(ctx, id, ListInput{Channel: "ebay", PriceCents: 1999})
	require.ErrorIs(t, err, shared.ErrPreconditionFailed)
}

func TestChangeStatusFollowsTable(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	id := seedItem(repo, StatusStored, 0)

	item, err := svc.ChangeStatus(ctx, id, ChangeStatusInput{To: StatusReserved})
	require.NoError(t, err)
	require.Equal(t, StatusReserved, item.Status)

	history := repo.history[id]
	require.Len(t, history, 1)
	require.Equal(t, StatusStored, *history[0].FromStatus)
	require.Equal(t, StatusReserved, history[0].ToStatus)
	require.Equal(t, ChannelManual, history[0].Channel)

	// STORED -> SOLD is not an edge
	repo.items[id].Status = StatusStored
	_, err = svc.ChangeStatus(ctx, id, ChangeStatusInput{To: StatusSold})
	require.ErrorIs(t, err, shared.ErrPreconditionFailed)
}

func TestChangeStatusForceOverrides(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	id := seedItem(repo, StatusDiscarded, 0)

	item, err := svc.ChangeStatus(ctx, id, ChangeStatusInput{To: StatusStored, Force: true})
	require.NoError(t, err)
	require.Equal(t, StatusStored, item.Status)

	history := repo.history[id]
	require.Len(t, history, 1)
	require.Equal(t, ChannelAdmin, history[0].Channel)
}

func TestChangeStatusRejectsUnknown(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	id := seedItem(repo, StatusStored, 0)

	_, err := svc.ChangeStatus(ctx, id, ChangeStatusInput{To: Status("BROKEN")})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestPatchLocationCascadesToLot(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	a := seedItem(repo, StatusStored, 42)
	b := seedItem(repo, StatusStored, 42)
	c := seedItem(repo, StatusIntake, 42)

	loc := "B-07-1"
	affected, err := svc.Patch(ctx, a, PatchInput{Location: &loc})
	require.NoError(t, err)
	require.Len(t, affected, 3)

	for _, id := range []int64{a, b, c} {
		require.Equal(t, "B-07-1", repo.items[id].Location)
		history := repo.history[id]
		require.Len(t, history, 1)
		require.Contains(t, history[0].Note, "lot 42 wide")
	}
	// the INTAKE member was promoted along the way
	require.Equal(t, StatusStored, repo.items[c].Status)
}

func TestPatchWithoutLotTouchesOneItem(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	a := seedItem(repo, StatusStored, 0)
	b := seedItem(repo, StatusStored, 0)

	loc := "C-01-4"
	affected, err := svc.Patch(ctx, a, PatchInput{Location: &loc})
	require.NoError(t, err)
	require.Len(t, affected, 1)
	require.Equal(t, "C-01-4", repo.items[a].Location)
	require.Empty(t, repo.items[b].Location)
}

func TestPatchGradeNotesOnly(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	id := seedItem(repo, StatusStored, 0)

	grade := "A"
	notes := "spine crease"
	affected, err := svc.Patch(ctx, id, PatchInput{Grade: &grade, Notes: &notes})
	require.NoError(t, err)
	require.Len(t, affected, 1)
	require.Equal(t, "A", repo.items[id].Grade)
	require.Equal(t, "spine crease", repo.items[id].Notes)
	// no status or location change means no history entry
	require.Empty(t, repo.history[id])
}

func TestBulkLocation(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	a := seedItem(repo, StatusIntake, 0)
	b := seedItem(repo, StatusStored, 7)
	c := seedItem(repo, StatusStored, 7)

	affected, err := svc.BulkLocation(ctx, []int64{a, b}, "D-02-9")
	require.NoError(t, err)
	// lot 7 widens to include c
	require.Len(t, affected, 3)
	require.Equal(t, StatusStored, repo.items[a].Status)
	require.Equal(t, "D-02-9", repo.items[c].Location)
	require.Equal(t, ChannelBulkPutaway, repo.history[a][0].Channel)
}

func TestBulkLocationMissingItem(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	a := seedItem(repo, StatusStored, 0)

	_, err := svc.BulkLocation(ctx, []int64{a, 999}, "D-02-9")
	require.ErrorIs(t, err, shared.ErrNotFound)
	// nothing moved
	require.Empty(t, repo.items[a].Location)
}

func TestBulkLocationDuplicateIDs(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	a := seedItem(repo, StatusIntake, 0)

	affected, err := svc.BulkLocation(ctx, []int64{a, a}, "A-01-1")
	require.NoError(t, err)
	require.Len(t, affected, 1)
	require.Equal(t, "A-01-1", repo.items[a].Location)
	require.Len(t, repo.history[a], 1)
}

func TestBulkDatesSold(t *testing.T) {
	repo := newMemoryRepo()
	sales := &fakeSales{failFor: map[int64]error{}}
	svc := NewService(repo, nil, sales, nil, nil, fixedClock(testNow))
	ctx := context.Background()
	a := seedItem(repo, StatusListed, 0)
	b := seedItem(repo, StatusListed, 11)
	c := seedItem(repo, StatusListed, 11)
	sales.failFor[b] = errors.New("cogs store down")

	date := time.Date(2026, time.February, 14, 0, 0, 0, 0, time.UTC)
	affected, err := svc.BulkDates(ctx, []int64{a, b}, DateSold, date)
	require.NoError(t, err)
	require.Len(t, affected, 3)

	for _, id := range []int64{a, b, c} {
		it := repo.items[id]
		require.Equal(t, StatusSold, it.Status)
		require.NotNil(t, it.SoldAt)
		require.Equal(t, 2026, it.SoldYear)
		require.Equal(t, 2, it.SoldMonth)
	}

	// b's COGS failure is tolerated; a and c still got their records
	require.Len(t, sales.recorded, 2)
	for _, rec := range sales.recorded {
		require.NotEqual(t, b, rec.itemID)
		require.True(t, rec.soldAt.Equal(date))
	}
}

func TestBulkDatesListed(t *testing.T) {
	repo := newMemoryRepo()
	sales := &fakeSales{}
	svc := NewService(repo, nil, sales, nil, nil, fixedClock(testNow))
	ctx := context.Background()
	a := seedItem(repo, StatusStored, 0)

	date := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	affected, err := svc.BulkDates(ctx, []int64{a}, DateListed, date)
	require.NoError(t, err)
	require.Len(t, affected, 1)
	require.Equal(t, StatusListed, repo.items[a].Status)
	require.NotNil(t, repo.items[a].ListedAt)
	require.Empty(t, sales.recorded)
}

func TestDeleteBlockedByActiveListing(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	id := seedItem(repo, StatusListed, 0)
	repo.listings[id] = []Listing{{ID: 1, ItemID: id, Status: ListingActive}}

	err := svc.Delete(ctx, id)
	require.ErrorIs(t, err, shared.ErrDeleteBlocked)
	require.Contains(t, repo.items, id)
}

func TestDeleteBlockedByOrderLines(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	id := seedItem(repo, StatusSold, 0)
	repo.orders[id] = 1

	err := svc.Delete(ctx, id)
	require.ErrorIs(t, err, shared.ErrDeleteBlocked)
}

func TestDeleteBlockedByCOGSRecord(t *testing.T) {
	repo := newMemoryRepo()
	sales := &fakeSales{repo: repo}
	svc := NewService(repo, nil, sales, nil, nil, fixedClock(testNow))
	ctx := context.Background()
	id := seedItem(repo, StatusListed, 0)

	// sold through the bulk path, so no order line exists for it
	date := time.Date(2026, time.February, 14, 0, 0, 0, 0, time.UTC)
	_, err := svc.BulkDates(ctx, []int64{id}, DateSold, date)
	require.NoError(t, err)
	require.Zero(t, repo.orders[id])

	err = svc.Delete(ctx, id)
	require.ErrorIs(t, err, shared.ErrDeleteBlocked)
	require.Contains(t, repo.items, id)
}

func TestDeleteCascades(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	id := seedItem(repo, StatusStored, 0)
	repo.listings[id] = []Listing{{ID: 1, ItemID: id, Status: ListingRemoved}}
	repo.history[id] = []StatusHistory{{ItemID: id, ToStatus: StatusStored}}

	require.NoError(t, svc.Delete(ctx, id))
	require.NotContains(t, repo.items, id)
	require.Empty(t, repo.history[id])
	require.Empty(t, repo.listings[id])
}

func TestMutationsInvalidateStats(t *testing.T) {
	repo := newMemoryRepo()
	stats := &countingInvalidator{}
	svc := NewService(repo, nil, nil, stats, nil, fixedClock(testNow))
	ctx := context.Background()

	item, err := svc.Intake(ctx, IntakeInput{Barcode: "9780140283334", CostCents: 500})
	require.NoError(t, err)
	_, err = svc.Putaway(ctx, item.ID, "A-01-1")
	require.NoError(t, err)
	require.Equal(t, 2, stats.calls)
}

func TestTransitionTable(t *testing.T) {
	require.True(t, CanTransition(StatusIntake, StatusStored))
	require.True(t, CanTransition(StatusListed, StatusSold))
	require.True(t, CanTransition(StatusSold, StatusReturned))
	require.False(t, CanTransition(StatusIntake, StatusSold))
	require.False(t, CanTransition(StatusDiscarded, StatusStored))
	require.False(t, CanTransition(StatusSold, StatusListed))
}
