package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the aggregate queries against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StatusCounts counts items per status.
func (r *Repository) StatusCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM items GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// OnHandCost sums the cost of items still in the warehouse.
func (r *Repository) OnHandCost(ctx context.Context) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(cost_cents), 0) FROM items
WHERE status IN ('INTAKE','STORED','LISTED','RESERVED')`).Scan(&total)
	return total, err
}

// LotsInUse counts distinct lot numbers.
func (r *Repository) LotsInUse(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(DISTINCT lot_number) FROM items WHERE lot_number IS NOT NULL`).Scan(&n)
	return n, err
}

// SoldSince counts items sold on or after since.
func (r *Repository) SoldSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items WHERE status='SOLD' AND sold_at >= $1`, since).Scan(&n)
	return n, err
}

// ActiveListings counts listings currently ACTIVE.
func (r *Repository) ActiveListings(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM listings WHERE status='ACTIVE'`).Scan(&n)
	return n, err
}
