package cogs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfline/shelfline/internal/platform/db"
	"github.com/shelfline/shelfline/internal/shared"
)

// ItemSnapshot is the slice of an item the recorder needs.
type ItemSnapshot struct {
	ID        int64
	Status    string
	CostCents int64
}

// Repository persists cogs_records in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional recorder operations.
type TxRepository interface {
	GetItemForUpdate(ctx context.Context, id int64) (ItemSnapshot, error)
	GetRecord(ctx context.Context, itemID int64) (Record, error)
	InsertRecord(ctx context.Context, rec Record) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("cogs: repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Summary aggregates records per financial year, newest first.
func (r *Repository) Summary(ctx context.Context) ([]YearSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT financial_year, COUNT(*), COALESCE(SUM(cost_cents), 0)
FROM cogs_records GROUP BY financial_year ORDER BY financial_year DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []YearSummary{}
	for rows.Next() {
		var s YearSummary
		if err := rows.Scan(&s.FinancialYear, &s.Items, &s.TotalCost); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Monthly aggregates records per fiscal month, optionally narrowed to one
// financial year.
func (r *Repository) Monthly(ctx context.Context, financialYear int) ([]MonthBreakdown, error) {
	query := `SELECT financial_year, fiscal_month, COUNT(*), COALESCE(SUM(cost_cents), 0)
FROM cogs_records`
	args := []any{}
	if financialYear != 0 {
		query += ` WHERE financial_year=$1`
		args = append(args, financialYear)
	}
	query += ` GROUP BY financial_year, fiscal_month ORDER BY financial_year DESC, fiscal_month ASC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []MonthBreakdown{}
	for rows.Next() {
		var m MonthBreakdown
		if err := rows.Scan(&m.FinancialYear, &m.FiscalMonth, &m.Items, &m.TotalCost); err != nil {
			return nil, err
		}
		m.MonthName = MonthName(m.FiscalMonth)
		out = append(out, m)
	}
	return out, rows.Err()
}

// MissingRecords lists SOLD items that have no cogs record yet.
func (r *Repository) MissingRecords(ctx context.Context, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `SELECT i.id FROM items i
LEFT JOIN cogs_records c ON c.item_id = i.id
WHERE i.status='SOLD' AND i.sold_at IS NOT NULL AND c.item_id IS NULL
ORDER BY i.id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SoldAt fetches the recorded sale timestamp of an item.
func (r *Repository) SoldAt(ctx context.Context, itemID int64) (Record, error) {
	var rec Record
	err := r.pool.QueryRow(ctx, `SELECT id, COALESCE(cost_cents, 0), sold_at FROM items WHERE id=$1 AND sold_at IS NOT NULL`, itemID).
		Scan(&rec.ItemID, &rec.CostCents, &rec.SoldAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, fmt.Errorf("cogs: item %d has no sale date: %w", itemID, shared.ErrNotFound)
	}
	return rec, err
}

func (r *txRepository) GetItemForUpdate(ctx context.Context, id int64) (ItemSnapshot, error) {
	var snap ItemSnapshot
	err := r.tx.QueryRow(ctx, `SELECT id, status, cost_cents FROM items WHERE id=$1 FOR UPDATE`, id).
		Scan(&snap.ID, &snap.Status, &snap.CostCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return ItemSnapshot{}, fmt.Errorf("cogs: item %d: %w", id, shared.ErrNotFound)
	}
	return snap, err
}

func (r *txRepository) GetRecord(ctx context.Context, itemID int64) (Record, error) {
	var rec Record
	err := r.tx.QueryRow(ctx, `SELECT item_id, cost_cents, sold_at, sold_year, sold_month, fiscal_month, financial_year, created_at
FROM cogs_records WHERE item_id=$1`, itemID).
		Scan(&rec.ItemID, &rec.CostCents, &rec.SoldAt, &rec.SoldYear, &rec.SoldMonth, &rec.FiscalMonth, &rec.FinancialYear, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, shared.ErrNotFound
	}
	return rec, err
}

func (r *txRepository) InsertRecord(ctx context.Context, rec Record) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO cogs_records (item_id, cost_cents, sold_at, sold_year, sold_month, fiscal_month, financial_year, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())`,
		rec.ItemID, rec.CostCents, rec.SoldAt, rec.SoldYear, rec.SoldMonth, rec.FiscalMonth, rec.FinancialYear)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrRecordExists
		}
		return err
	}
	return nil
}
