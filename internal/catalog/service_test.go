package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shelfline/shelfline/internal/items"
	"github.com/shelfline/shelfline/internal/shared"
)

type memoryRepo struct {
	records map[string]Record
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[string]Record)}
}

func (r *memoryRepo) Upsert(ctx context.Context, rec Record) error {
	existing, ok := r.records[rec.Barcode]
	if !ok {
		r.records[rec.Barcode] = rec
		return nil
	}
	// mirror the SQL COALESCE(NULLIF(...)) behaviour: populated incoming
	// fields win, empty ones keep what is stored
	if rec.Title != "" {
		existing.Title = rec.Title
	}
	if rec.Author != "" {
		existing.Author = rec.Author
	}
	if rec.Publisher != "" {
		existing.Publisher = rec.Publisher
	}
	if rec.PubYear != 0 {
		existing.PubYear = rec.PubYear
	}
	if len(rec.Tags) > 0 {
		existing.Tags = rec.Tags
	}
	r.records[rec.Barcode] = existing
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, barcode string) (Record, error) {
	rec, ok := r.records[barcode]
	if !ok {
		return Record{}, shared.ErrNotFound
	}
	return rec, nil
}

func TestUpsertNormalisesTitle(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	err := svc.Upsert(ctx, items.CatalogInfo{Barcode: "9780140283334", Title: "the odyssey", Author: "homer"})
	require.NoError(t, err)

	rec := repo.records["9780140283334"]
	require.Equal(t, "The Odyssey", rec.Title)
	require.Equal(t, "Homer", rec.Author)
}

func TestUpsertKeepsIntentionalCasing(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	err := svc.Upsert(ctx, items.CatalogInfo{Barcode: "9780140283334", Title: "McSweeney's Quarterly"})
	require.NoError(t, err)
	require.Equal(t, "McSweeney's Quarterly", repo.records["9780140283334"].Title)
}

func TestUpsertDeduplicatesTags(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	err := svc.Upsert(ctx, items.CatalogInfo{
		Barcode: "9780140283334",
		Tags:    []string{"Fiction", " fiction ", "CLASSICS", ""},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"fiction", "classics"}, repo.records["9780140283334"].Tags)
}

func TestUpsertPreservesPopulatedFields(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, items.CatalogInfo{Barcode: "9780140283334", Title: "The Odyssey", Author: "Homer"}))
	// a later copy of the same barcode with no author must not blank it
	require.NoError(t, svc.Upsert(ctx, items.CatalogInfo{Barcode: "9780140283334", Title: "The Odyssey"}))
	require.Equal(t, "Homer", repo.records["9780140283334"].Author)
}

func TestUpsertRequiresBarcode(t *testing.T) {
	svc := NewService(newMemoryRepo())
	err := svc.Upsert(context.Background(), items.CatalogInfo{Title: "No Barcode"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestGetValidatesBarcode(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Get(context.Background(), "not-a-barcode")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Get(context.Background(), "9780140283334")
	require.ErrorIs(t, err, shared.ErrNotFound)
}
