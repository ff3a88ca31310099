package lots

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfline/shelfline/internal/platform/db"
)

// Repository persists lot membership on item rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional lot operations.
type TxRepository interface {
	MembersForUpdate(ctx context.Context, lotNumber int64) ([]Member, error)
	ItemsForUpdate(ctx context.Context, ids []int64) ([]Member, error)
	SetLotNumber(ctx context.Context, itemID, lotNumber int64) error
	ClearLotNumber(ctx context.Context, itemID int64) error
	InsertAnnotation(ctx context.Context, itemID int64, status, channel, note string, at time.Time) error
	CountMembers(ctx context.Context, lotNumber int64) (int, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction so a
// lot mutation stamps all members or none.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("lots: repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// Members lists the items in a lot outside a transaction.
func (r *Repository) Members(ctx context.Context, lotNumber int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, status, COALESCE(location, ''), COALESCE(lot_number, 0)
FROM items WHERE lot_number=$1 ORDER BY id`, lotNumber)
	if err != nil {
		return nil, err
	}
	return collectMembers(rows)
}

// LotNumbers lists every lot number currently in use.
func (r *Repository) LotNumbers(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT lot_number FROM items WHERE lot_number IS NOT NULL ORDER BY lot_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func collectMembers(rows pgx.Rows) ([]Member, error) {
	defer rows.Close()
	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ItemID, &m.Status, &m.Location, &m.LotNumber); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *txRepository) MembersForUpdate(ctx context.Context, lotNumber int64) ([]Member, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, status, COALESCE(location, ''), COALESCE(lot_number, 0)
FROM items WHERE lot_number=$1 ORDER BY id FOR UPDATE`, lotNumber)
	if err != nil {
		return nil, err
	}
	return collectMembers(rows)
}

func (r *txRepository) ItemsForUpdate(ctx context.Context, ids []int64) ([]Member, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, status, COALESCE(location, ''), COALESCE(lot_number, 0)
FROM items WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	return collectMembers(rows)
}

func (r *txRepository) SetLotNumber(ctx context.Context, itemID, lotNumber int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE items SET lot_number=$2, updated_at=NOW() WHERE id=$1`, itemID, lotNumber)
	return err
}

func (r *txRepository) ClearLotNumber(ctx context.Context, itemID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE items SET lot_number=NULL, updated_at=NOW() WHERE id=$1`, itemID)
	return err
}

// InsertAnnotation writes a non-transition history row: from_status is null
// and to_status repeats the current status.
func (r *txRepository) InsertAnnotation(ctx context.Context, itemID int64, status, channel, note string, at time.Time) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO status_history (item_id, event_id, from_status, to_status, channel, note, occurred_at)
VALUES ($1,$2,NULL,$3,$4,$5,$6)`, itemID, uuid.New(), status, channel, note, at)
	return err
}

func (r *txRepository) CountMembers(ctx context.Context, lotNumber int64) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM items WHERE lot_number=$1`, lotNumber).Scan(&n)
	return n, err
}
