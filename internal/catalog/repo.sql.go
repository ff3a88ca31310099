package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfline/shelfline/internal/shared"
)

// Repository persists catalog records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert inserts or refreshes a record. Empty incoming fields never
// overwrite populated columns; intake forms are often partial.
func (r *Repository) Upsert(ctx context.Context, rec Record) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO catalog_records (barcode, title, author, publisher, pub_year, binding, image_ref, tags, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW())
ON CONFLICT (barcode) DO UPDATE SET
	title     = COALESCE(NULLIF(EXCLUDED.title, ''), catalog_records.title),
	author    = COALESCE(NULLIF(EXCLUDED.author, ''), catalog_records.author),
	publisher = COALESCE(NULLIF(EXCLUDED.publisher, ''), catalog_records.publisher),
	pub_year  = CASE WHEN EXCLUDED.pub_year > 0 THEN EXCLUDED.pub_year ELSE catalog_records.pub_year END,
	binding   = COALESCE(NULLIF(EXCLUDED.binding, ''), catalog_records.binding),
	image_ref = COALESCE(NULLIF(EXCLUDED.image_ref, ''), catalog_records.image_ref),
	tags      = CASE WHEN array_length(EXCLUDED.tags, 1) > 0 THEN EXCLUDED.tags ELSE catalog_records.tags END,
	updated_at = NOW()`,
		rec.Barcode, rec.Title, rec.Author, rec.Publisher, rec.PubYear, rec.Binding, rec.ImageRef, rec.Tags)
	return err
}

// Get loads one record by barcode.
func (r *Repository) Get(ctx context.Context, barcode string) (Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx, `SELECT barcode, COALESCE(title, ''), COALESCE(author, ''), COALESCE(publisher, ''),
COALESCE(pub_year, 0), COALESCE(binding, ''), COALESCE(image_ref, ''), COALESCE(tags, '{}'), created_at, updated_at
FROM catalog_records WHERE barcode=$1`, barcode).
		Scan(&rec.Barcode, &rec.Title, &rec.Author, &rec.Publisher, &rec.PubYear, &rec.Binding, &rec.ImageRef, &rec.Tags, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("catalog: barcode %s: %w", barcode, shared.ErrNotFound)
	}
	return rec, err
}
