package repos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"litledger/internal/domain"
)

const itemCols = `id, name, category, stock, min_stock, price, cost, sold, created_at, updated_at`

type ItemRepo struct{ db *sqlx.DB }

func NewItemRepo(db *sqlx.DB) *ItemRepo { return &ItemRepo{db: db} }

func (r *ItemRepo) Get(ctx context.Context, name string) (domain.Item, error) {
	var it domain.Item
	err := r.db.GetContext(ctx, &it, r.db.Rebind(`SELECT `+itemCols+` FROM items WHERE name = ?`), name)
	return it, storeErr(err, "item %q", name)
}

func (r *ItemRepo) GetByID(ctx context.Context, id int64) (domain.Item, error) {
	var it domain.Item
	err := r.db.GetContext(ctx, &it, r.db.Rebind(`SELECT `+itemCols+` FROM items WHERE id = ?`), id)
	return it, storeErr(err, "item #%d", id)
}

// List returns items ordered by name.
func (r *ItemRepo) List(ctx context.Context, f domain.Filter) ([]domain.Item, error) {
	q := `SELECT ` + itemCols + ` FROM items`
	switch f {
	case domain.FilterInStock:
		q += ` WHERE stock > 0`
	case domain.FilterLowStock:
		q += ` WHERE stock <= min_stock`
	}
	q += ` ORDER BY name`

	rows := []domain.Item{}
	err := r.db.SelectContext(ctx, &rows, q)
	return rows, storeErr(err, "list items")
}

// Create inserts a new item. An existing name is rejected with ErrDuplicateName;
// renames go through UpdateFields.
func (r *ItemRepo) Create(ctx context.Context, in domain.NewItem) (domain.Item, error) {
	if in.Stock < 0 || in.MinStock < 0 || in.Price.IsNegative() || in.Cost.IsNegative() {
		return domain.Item{}, errors.Wrapf(domain.ErrValidation, "item %q has negative fields", in.Name)
	}
	var it domain.Item
	err := r.db.GetContext(ctx, &it, r.db.Rebind(`
		INSERT INTO items(name, category, stock, min_stock, price, cost)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING
		RETURNING `+itemCols),
		in.Name, in.Category, in.Stock, in.MinStock, in.Price, in.Cost)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Item{}, errors.Wrapf(domain.ErrDuplicateName, "item %q", in.Name)
	}
	return it, storeErr(err, "create item %q", in.Name)
}

// SetStock overwrites the stock level.
func (r *ItemRepo) SetStock(ctx context.Context, name string, stock int) (domain.Item, error) {
	if stock < 0 {
		return domain.Item{}, errors.Wrapf(domain.ErrValidation, "stock %d", stock)
	}
	var it domain.Item
	err := r.db.GetContext(ctx, &it, r.db.Rebind(`
		UPDATE items SET stock = ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ?
		RETURNING `+itemCols), stock, name)
	return it, storeErr(err, "set stock of %q", name)
}

// AdjustStock adds delta to the stock level; the result never goes below zero.
func (r *ItemRepo) AdjustStock(ctx context.Context, name string, delta int) (domain.Item, error) {
	var it domain.Item
	err := r.db.GetContext(ctx, &it, r.db.Rebind(`
		UPDATE items SET stock = stock + ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ? AND stock + ? >= 0
		RETURNING `+itemCols), delta, name, delta)
	if errors.Is(err, sql.ErrNoRows) {
		cur, gerr := r.Get(ctx, name)
		if gerr != nil {
			return domain.Item{}, gerr
		}
		return domain.Item{}, &domain.InsufficientStockError{Item: name, Requested: -delta, Available: cur.Stock}
	}
	return it, storeErr(err, "adjust stock of %q", name)
}

// RecordSale decrements stock and increments sold in one conditional update.
// Whole sales only: when qty exceeds stock nothing changes.
func (r *ItemRepo) RecordSale(ctx context.Context, name string, qty int) (domain.Sale, error) {
	if qty <= 0 {
		return domain.Sale{}, errors.Wrapf(domain.ErrValidation, "sale quantity %d", qty)
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Sale{}, storeErr(err, "begin sale")
	}
	defer func() { _ = tx.Rollback() }()

	var it domain.Item
	err = tx.GetContext(ctx, &it, tx.Rebind(`
		UPDATE items
		SET stock = stock - ?, sold = sold + ?, updated_at = CURRENT_TIMESTAMP
		WHERE name = ? AND stock >= ?
		RETURNING `+itemCols), qty, qty, name, qty)
	if errors.Is(err, sql.ErrNoRows) {
		var stock int
		if err := tx.GetContext(ctx, &stock, tx.Rebind(`SELECT stock FROM items WHERE name = ?`), name); err != nil {
			return domain.Sale{}, storeErr(err, "item %q", name)
		}
		return domain.Sale{}, &domain.InsufficientStockError{Item: name, Requested: qty, Available: stock}
	}
	if err != nil {
		return domain.Sale{}, storeErr(err, "sell %q", name)
	}
	if err := tx.Commit(); err != nil {
		return domain.Sale{}, storeErr(err, "commit sale")
	}
	return domain.Sale{
		Item:     it,
		Quantity: qty,
		NewStock: it.Stock,
		Amount:   it.Price.Mul(decimal.NewFromInt(int64(qty))),
	}, nil
}

// UpdateFields applies the non-nil fields of p to item id.
func (r *ItemRepo) UpdateFields(ctx context.Context, id int64, p domain.ItemPatch) (domain.Item, error) {
	if p.Empty() {
		return domain.Item{}, errors.Wrap(domain.ErrValidation, "empty patch")
	}
	var sets []string
	var args []any
	if p.Name != nil {
		sets, args = append(sets, "name = ?"), append(args, *p.Name)
	}
	if p.Category != nil {
		sets, args = append(sets, "category = ?"), append(args, *p.Category)
	}
	if p.Price != nil {
		if p.Price.IsNegative() {
			return domain.Item{}, errors.Wrap(domain.ErrValidation, "negative price")
		}
		sets, args = append(sets, "price = ?"), append(args, *p.Price)
	}
	if p.Cost != nil {
		if p.Cost.IsNegative() {
			return domain.Item{}, errors.Wrap(domain.ErrValidation, "negative cost")
		}
		sets, args = append(sets, "cost = ?"), append(args, *p.Cost)
	}
	if p.MinStock != nil {
		if *p.MinStock < 0 {
			return domain.Item{}, errors.Wrap(domain.ErrValidation, "negative min stock")
		}
		sets, args = append(sets, "min_stock = ?"), append(args, *p.MinStock)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Item{}, storeErr(err, "begin update")
	}
	defer func() { _ = tx.Rollback() }()

	if p.Name != nil {
		var n int
		if err := tx.GetContext(ctx, &n, tx.Rebind(`SELECT COUNT(*) FROM items WHERE name = ? AND id <> ?`), *p.Name, id); err != nil {
			return domain.Item{}, storeErr(err, "check name %q", *p.Name)
		}
		if n > 0 {
			return domain.Item{}, errors.Wrapf(domain.ErrDuplicateName, "item %q", *p.Name)
		}
	}

	var it domain.Item
	err = tx.GetContext(ctx, &it, tx.Rebind(`UPDATE items SET `+strings.Join(sets, ", ")+` WHERE id = ? RETURNING `+itemCols), args...)
	if err != nil {
		return domain.Item{}, storeErr(err, "update item #%d", id)
	}
	if err := tx.Commit(); err != nil {
		return domain.Item{}, storeErr(err, "commit update")
	}
	return it, nil
}

// Delete removes the item together with its archived snapshots.
func (r *ItemRepo) Delete(ctx context.Context, id int64) (domain.Item, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Item{}, storeErr(err, "begin delete")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM period_snapshots WHERE item_id = ?`), id); err != nil {
		return domain.Item{}, storeErr(err, "delete snapshots of #%d", id)
	}
	var it domain.Item
	if err := tx.GetContext(ctx, &it, tx.Rebind(`DELETE FROM items WHERE id = ? RETURNING `+itemCols), id); err != nil {
		return domain.Item{}, storeErr(err, "delete item #%d", id)
	}
	if err := tx.Commit(); err != nil {
		return domain.Item{}, storeErr(err, "commit delete")
	}
	return it, nil
}
