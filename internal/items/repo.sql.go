package items

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfline/shelfline/internal/platform/db"
	"github.com/shelfline/shelfline/internal/shared"
)

// Repository persists items, history and listings in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used by the service.
// Guard checks, field updates and history appends share one transaction so
// concurrent transitions cannot interleave between check and write.
type TxRepository interface {
	GetItemForUpdate(ctx context.Context, id int64) (Item, error)
	GetItemsForUpdate(ctx context.Context, ids []int64) ([]Item, error)
	LotMembersForUpdate(ctx context.Context, lotNumber int64) ([]Item, error)
	InsertItem(ctx context.Context, item Item) (int64, error)
	SetStatus(ctx context.Context, id int64, status Status) error
	SetLocationStatus(ctx context.Context, id int64, location string, status Status) error
	SetGradeNotes(ctx context.Context, id int64, grade, notes *string) error
	SetListedDate(ctx context.Context, id int64, listedAt time.Time, status Status) error
	SetSoldDate(ctx context.Context, id int64, soldAt time.Time, soldYear, soldMonth int) error
	InsertHistory(ctx context.Context, h StatusHistory) error
	InsertListing(ctx context.Context, l Listing) (int64, error)
	CountActiveListings(ctx context.Context, itemID int64) (int, error)
	CountOrderLines(ctx context.Context, itemID int64) (int, error)
	CountCOGSRecords(ctx context.Context, itemID int64) (int, error)
	DeleteListings(ctx context.Context, itemID int64) error
	DeleteHistory(ctx context.Context, itemID int64) error
	DeleteItem(ctx context.Context, id int64) error
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("items: repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const itemColumns = `id, COALESCE(barcode, ''), grade, notes, cost_cents, status, COALESCE(location, ''), COALESCE(lot_number, 0),
intake_at, listed_at, sold_at, COALESCE(sold_year, 0), COALESCE(sold_month, 0), created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.Barcode, &it.Grade, &it.Notes, &it.CostCents, &it.Status, &it.Location, &it.LotNumber,
		&it.IntakeAt, &it.ListedAt, &it.SoldAt, &it.SoldYear, &it.SoldMonth, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

func collectItems(rows pgx.Rows) ([]Item, error) {
	defer rows.Close()
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// GetItem loads one item outside a transaction.
func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id=$1`, id)
	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fmt.Errorf("items: item %d: %w", id, shared.ErrNotFound)
	}
	return it, err
}

// ListItems returns a filtered page of items plus the total match count.
func (r *Repository) ListItems(ctx context.Context, filter ListFilter) ([]Item, int, error) {
	where := `WHERE 1=1`
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Status != "" {
		where += ` AND status=` + arg(string(filter.Status))
	}
	if filter.LotNumber != 0 {
		where += ` AND lot_number=` + arg(filter.LotNumber)
	}
	if filter.Barcode != "" {
		where += ` AND barcode=` + arg(filter.Barcode)
	}
	if filter.LocationPrefix != "" {
		where += ` AND location LIKE ` + arg(escapeLike(filter.LocationPrefix)+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM items `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := shared.NewPagination(filter.Page, filter.PerPage, total)
	offset := (page.Page - 1) * page.PerPage
	query := `SELECT ` + itemColumns + ` FROM items ` + where +
		` ORDER BY id ASC LIMIT ` + arg(page.PerPage) + ` OFFSET ` + arg(offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	out, err := collectItems(rows)
	return out, total, err
}

// History returns the audit trail for one item, oldest first.
func (r *Repository) History(ctx context.Context, itemID int64) ([]StatusHistory, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, item_id, event_id, from_status, to_status, channel, note, occurred_at
FROM status_history WHERE item_id=$1 ORDER BY occurred_at ASC, id ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []StatusHistory
	for rows.Next() {
		var h StatusHistory
		var from *string
		if err := rows.Scan(&h.ID, &h.ItemID, &h.EventID, &from, &h.ToStatus, &h.Channel, &h.Note, &h.OccurredAt); err != nil {
			return nil, err
		}
		if from != nil {
			s := Status(*from)
			h.FromStatus = &s
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Listings returns every listing ever created for the item, newest first.
func (r *Repository) Listings(ctx context.Context, itemID int64) ([]Listing, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, item_id, channel, COALESCE(external_id, ''), price_cents, status, created_at, updated_at
FROM listings WHERE item_id=$1 ORDER BY created_at DESC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Listing
	for rows.Next() {
		var l Listing
		if err := rows.Scan(&l.ID, &l.ItemID, &l.Channel, &l.ExternalID, &l.PriceCents, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *txRepository) GetItemForUpdate(ctx context.Context, id int64) (Item, error) {
	row := r.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id=$1 FOR UPDATE`, id)
	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fmt.Errorf("items: item %d: %w", id, shared.ErrNotFound)
	}
	return it, err
}

func (r *txRepository) GetItemsForUpdate(ctx context.Context, ids []int64) ([]Item, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

func (r *txRepository) LotMembersForUpdate(ctx context.Context, lotNumber int64) ([]Item, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+itemColumns+` FROM items WHERE lot_number=$1 ORDER BY id FOR UPDATE`, lotNumber)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

func (r *txRepository) InsertItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO items (barcode, grade, notes, cost_cents, status, location, lot_number, intake_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW()) RETURNING id`,
		nullStr(item.Barcode), item.Grade, item.Notes, item.CostCents, string(item.Status), nullStr(item.Location), nullInt(item.LotNumber), item.IntakeAt).Scan(&id)
	return id, err
}

func (r *txRepository) SetStatus(ctx context.Context, id int64, status Status) error {
	_, err := r.tx.Exec(ctx, `UPDATE items SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(status))
	return err
}

func (r *txRepository) SetLocationStatus(ctx context.Context, id int64, location string, status Status) error {
	_, err := r.tx.Exec(ctx, `UPDATE items SET location=$2, status=$3, updated_at=NOW() WHERE id=$1`, id, location, string(status))
	return err
}

func (r *txRepository) SetGradeNotes(ctx context.Context, id int64, grade, notes *string) error {
	_, err := r.tx.Exec(ctx, `UPDATE items SET grade=COALESCE($2, grade), notes=COALESCE($3, notes), updated_at=NOW() WHERE id=$1`, id, grade, notes)
	return err
}

func (r *txRepository) SetListedDate(ctx context.Context, id int64, listedAt time.Time, status Status) error {
	_, err := r.tx.Exec(ctx, `UPDATE items SET listed_at=$2, status=$3, updated_at=NOW() WHERE id=$1`, id, listedAt, string(status))
	return err
}

func (r *txRepository) SetSoldDate(ctx context.Context, id int64, soldAt time.Time, soldYear, soldMonth int) error {
	_, err := r.tx.Exec(ctx, `UPDATE items SET sold_at=$2, sold_year=$3, sold_month=$4, status=$5, updated_at=NOW() WHERE id=$1`,
		id, soldAt, soldYear, soldMonth, string(StatusSold))
	return err
}

func (r *txRepository) InsertHistory(ctx context.Context, h StatusHistory) error {
	var from *string
	if h.FromStatus != nil {
		s := string(*h.FromStatus)
		from = &s
	}
	_, err := r.tx.Exec(ctx, `INSERT INTO status_history (item_id, event_id, from_status, to_status, channel, note, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`, h.ItemID, h.EventID, from, string(h.ToStatus), h.Channel, h.Note, h.OccurredAt)
	return err
}

func (r *txRepository) InsertListing(ctx context.Context, l Listing) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO listings (item_id, channel, external_id, price_cents, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW(),NOW()) RETURNING id`,
		l.ItemID, l.Channel, nullStr(l.ExternalID), l.PriceCents, string(l.Status)).Scan(&id)
	return id, err
}

func (r *txRepository) CountActiveListings(ctx context.Context, itemID int64) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM listings WHERE item_id=$1 AND status='ACTIVE'`, itemID).Scan(&n)
	return n, err
}

func (r *txRepository) CountOrderLines(ctx context.Context, itemID int64) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM order_lines WHERE item_id=$1`, itemID).Scan(&n)
	return n, err
}

func (r *txRepository) CountCOGSRecords(ctx context.Context, itemID int64) (int, error) {
	var n int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM cogs_records WHERE item_id=$1`, itemID).Scan(&n)
	return n, err
}

func (r *txRepository) DeleteListings(ctx context.Context, itemID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM listings WHERE item_id=$1`, itemID)
	return err
}

func (r *txRepository) DeleteHistory(ctx context.Context, itemID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM status_history WHERE item_id=$1`, itemID)
	return err
}

func (r *txRepository) DeleteItem(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM items WHERE id=$1`, id)
	return err
}

// escapeLike neutralises LIKE metacharacters so a location prefix is
// matched literally.
func escapeLike(value string) string {
	return likeEscaper.Replace(value)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func nullStr(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
