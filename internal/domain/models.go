package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ID        int64           `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Category  string          `db:"category" json:"category"`
	Stock     int             `db:"stock" json:"stock"`
	MinStock  int             `db:"min_stock" json:"min_stock"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Cost      decimal.Decimal `db:"cost" json:"cost"`
	Sold      int             `db:"sold" json:"sold"`
	CreatedAt string          `db:"created_at" json:"-"`
	UpdatedAt *string         `db:"updated_at" json:"-"`
}

// Low reports whether the item is at or below its alert threshold.
func (i Item) Low() bool { return i.Stock <= i.MinStock }

// Status buckets stock for availability displays.
func (i Item) Status() string {
	switch {
	case i.Stock == 0:
		return "OUT_OF_STOCK"
	case i.Low():
		return "LOW_STOCK"
	default:
		return "IN_STOCK"
	}
}

// Margin is the unit margin as a ratio of price (0 when price is 0).
func (i Item) Margin() decimal.Decimal {
	return Ratio(i.Price.Sub(i.Cost), i.Price)
}

// NewItem carries the fields collected for item creation.
type NewItem struct {
	Name     string
	Category string
	Price    decimal.Decimal
	Cost     decimal.Decimal
	MinStock int
	Stock    int
}

// ItemPatch updates only the non-nil fields.
type ItemPatch struct {
	Name     *string
	Category *string
	Price    *decimal.Decimal
	Cost     *decimal.Decimal
	MinStock *int
}

func (p ItemPatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Price == nil && p.Cost == nil && p.MinStock == nil
}

type Filter int

const (
	FilterAll Filter = iota
	FilterInStock
	FilterLowStock
)

// Sale is the outcome of a recorded sale.
type Sale struct {
	Item     Item            `json:"item"`
	Quantity int             `json:"quantity"`
	NewStock int             `json:"new_stock"`
	Amount   decimal.Decimal `json:"amount"`
}

// Period is a calendar month bucket.
type Period struct {
	Year  int `db:"year" json:"year"`
	Month int `db:"month" json:"month"`
}

func PeriodOf(t time.Time) Period { return Period{Year: t.Year(), Month: int(t.Month())} }

func (p Period) Prev() Period {
	if p.Month == 1 {
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

func (p Period) Valid() bool {
	return p.Year >= 2000 && p.Year <= 9999 && p.Month >= 1 && p.Month <= 12
}

func (p Period) String() string { return fmt.Sprintf("%04d-%02d", p.Year, p.Month) }

// ParsePeriod accepts YYYY-MM.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: period %q, want YYYY-MM", ErrValidation, s)
	}
	p := PeriodOf(t)
	if !p.Valid() {
		return Period{}, fmt.Errorf("%w: period %q out of range", ErrValidation, s)
	}
	return p, nil
}

// PeriodRef names one side of a demand comparison: either the live
// counters or an archived month.
type PeriodRef struct {
	Live   bool
	Period Period
}

func Live(p Period) PeriodRef      { return PeriodRef{Live: true, Period: p} }
func Archived(p Period) PeriodRef  { return PeriodRef{Period: p} }
func (r PeriodRef) String() string { return r.Period.String() }

type PeriodSnapshot struct {
	ItemID       int64           `db:"item_id" json:"item_id"`
	ItemName     string          `db:"name" json:"name"`
	Year         int             `db:"year" json:"year"`
	Month        int             `db:"month" json:"month"`
	SoldQuantity int             `db:"sold_quantity" json:"sold_quantity"`
	TotalRevenue decimal.Decimal `db:"total_revenue" json:"total_revenue"`
	TotalCost    decimal.Decimal `db:"total_cost" json:"total_cost"`
	ArchivedAt   string          `db:"archived_at" json:"archived_at"`
}

func (s PeriodSnapshot) Profit() decimal.Decimal { return s.TotalRevenue.Sub(s.TotalCost) }
