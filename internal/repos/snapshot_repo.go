package repos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"litledger/internal/domain"
)

type SnapshotRepo struct{ db *sqlx.DB }

func NewSnapshotRepo(db *sqlx.DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

// Archive snapshots every item with sales into period p and takes the archived
// quantity off the live counter. Each item is its own transaction, so a failure
// part way leaves earlier items archived; running it again is safe.
func (r *SnapshotRepo) Archive(ctx context.Context, p domain.Period) (int, error) {
	if !p.Valid() {
		return 0, errors.Wrapf(domain.ErrValidation, "period %s", p)
	}
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM items WHERE sold > 0 ORDER BY id`); err != nil {
		return 0, storeErr(err, "list items to archive")
	}

	n := 0
	for _, id := range ids {
		ok, err := r.archiveItem(ctx, p, id)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (r *SnapshotRepo) archiveItem(ctx context.Context, p domain.Period, id int64) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, storeErr(err, "begin archive")
	}
	defer func() { _ = tx.Rollback() }()

	q := `SELECT ` + itemCols + ` FROM items WHERE id = ?`
	if isPostgres(r.db) {
		q += ` FOR UPDATE`
	}
	var it domain.Item
	err = tx.GetContext(ctx, &it, tx.Rebind(q), id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil // deleted meanwhile
	}
	if err != nil {
		return false, storeErr(err, "load item #%d", id)
	}
	if it.Sold == 0 {
		return false, nil
	}

	qty := decimal.NewFromInt(int64(it.Sold))
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO period_snapshots(item_id, year, month, sold_quantity, total_revenue, total_cost, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(item_id, year, month) DO UPDATE SET
		  sold_quantity = excluded.sold_quantity,
		  total_revenue = excluded.total_revenue,
		  total_cost = excluded.total_cost,
		  archived_at = excluded.archived_at
	`), it.ID, p.Year, p.Month, it.Sold, it.Price.Mul(qty), it.Cost.Mul(qty)); err != nil {
		return false, storeErr(err, "upsert snapshot for #%d", id)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE items SET sold = sold - ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`), it.Sold, it.ID); err != nil {
		return false, storeErr(err, "reset counter for #%d", id)
	}
	if err := tx.Commit(); err != nil {
		return false, storeErr(err, "commit archive")
	}
	return true, nil
}

// ForPeriod lists the snapshots of p with item names, ordered by name.
func (r *SnapshotRepo) ForPeriod(ctx context.Context, p domain.Period) ([]domain.PeriodSnapshot, error) {
	rows := []domain.PeriodSnapshot{}
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT s.item_id, i.name, s.year, s.month, s.sold_quantity, s.total_revenue, s.total_cost, s.archived_at
		FROM period_snapshots s
		JOIN items i ON i.id = s.item_id
		WHERE s.year = ? AND s.month = ?
		ORDER BY i.name
	`), p.Year, p.Month)
	return rows, storeErr(err, "snapshots for %s", p)
}

// Periods lists archived periods, newest first.
func (r *SnapshotRepo) Periods(ctx context.Context) ([]domain.Period, error) {
	rows := []domain.Period{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT year, month FROM period_snapshots ORDER BY year DESC, month DESC
	`)
	return rows, storeErr(err, "list periods")
}
