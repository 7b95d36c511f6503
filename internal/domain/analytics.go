package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Ratio returns num/den, or 0 when den is 0.
func Ratio(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.DivRound(den, 6)
}

// PercentChange returns the change from base to cur in percent, or 0 when
// the base is 0.
func PercentChange(base, cur decimal.Decimal) decimal.Decimal {
	if base.IsZero() {
		return decimal.Zero
	}
	return cur.Sub(base).Mul(hundred).DivRound(base, 2)
}

// Percent renders a ratio as a percentage rounded to one decimal place.
func Percent(ratio decimal.Decimal) decimal.Decimal { return ratio.Mul(hundred).Round(1) }

type ProfitReport struct {
	Revenue decimal.Decimal `json:"revenue"`
	Cost    decimal.Decimal `json:"cost"`
	Profit  decimal.Decimal `json:"profit"`
	Margin  decimal.Decimal `json:"margin"`
	Units   int             `json:"units"`
}

// Figures are the sales of one item within one period.
type Figures struct {
	Sold    int             `json:"sold"`
	Revenue decimal.Decimal `json:"revenue"`
	Cost    decimal.Decimal `json:"cost"`
}

func (f Figures) Profit() decimal.Decimal { return f.Revenue.Sub(f.Cost) }

func (f Figures) Active() bool { return f.Sold != 0 }

func (f Figures) Plus(o Figures) Figures {
	return Figures{Sold: f.Sold + o.Sold, Revenue: f.Revenue.Add(o.Revenue), Cost: f.Cost.Add(o.Cost)}
}

type DemandRow struct {
	ItemID       int64           `json:"item_id"`
	Name         string          `json:"name"`
	Current      Figures         `json:"current"`
	Previous     Figures         `json:"previous"`
	DeltaSold    int             `json:"delta_sold"`
	DeltaRevenue decimal.Decimal `json:"delta_revenue"`
	DeltaProfit  decimal.Decimal `json:"delta_profit"`
}

func NewDemandRow(id int64, name string, cur, prev Figures) DemandRow {
	return DemandRow{
		ItemID:       id,
		Name:         name,
		Current:      cur,
		Previous:     prev,
		DeltaSold:    cur.Sold - prev.Sold,
		DeltaRevenue: cur.Revenue.Sub(prev.Revenue),
		DeltaProfit:  cur.Profit().Sub(prev.Profit()),
	}
}

func (r DemandRow) SoldChange() decimal.Decimal {
	return PercentChange(decimal.NewFromInt(int64(r.Previous.Sold)), decimal.NewFromInt(int64(r.Current.Sold)))
}

func (r DemandRow) RevenueChange() decimal.Decimal {
	return PercentChange(r.Previous.Revenue, r.Current.Revenue)
}

func (r DemandRow) ProfitChange() decimal.Decimal {
	return PercentChange(r.Previous.Profit(), r.Current.Profit())
}

type DemandReport struct {
	Current  PeriodRef   `json:"-"`
	Previous PeriodRef   `json:"-"`
	Rows     []DemandRow `json:"rows"`
}

type StockReport struct {
	Items     []Item `json:"items"`
	LowCount  int    `json:"low_count"`
	TotalSold int    `json:"total_sold"`
}

type InventoryLine struct {
	Item    Item            `json:"item"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

type InventoryReport struct {
	Lines      []InventoryLine `json:"lines"`
	ItemCount  int             `json:"item_count"`
	TotalStock int             `json:"total_stock"`
	LowCount   int             `json:"low_count"`
	Profit     ProfitReport    `json:"totals"`
}

type PriceList struct {
	Items   []Item `json:"items"`
	Page    int    `json:"page"`
	Pages   int    `json:"pages"`
	PerPage int    `json:"per_page"`
}
