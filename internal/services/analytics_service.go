package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"litledger/internal/domain"
)

// AnalyticsService derives reports from the ledger; it never writes.
type AnalyticsService struct {
	Items     ItemStore
	Snapshots SnapshotStore
	Now       func() time.Time
}

func NewAnalyticsService(items ItemStore, snaps SnapshotStore) *AnalyticsService {
	return &AnalyticsService{Items: items, Snapshots: snaps, Now: time.Now}
}

// CurrentPeriod is the month the live counters belong to.
func (s *AnalyticsService) CurrentPeriod() domain.Period { return domain.PeriodOf(s.Now()) }

func (s *AnalyticsService) LowStock(ctx context.Context) ([]domain.Item, error) {
	return s.Items.List(ctx, domain.FilterLowStock)
}

func (s *AnalyticsService) Profit(ctx context.Context) (domain.ProfitReport, error) {
	items, err := s.Items.List(ctx, domain.FilterAll)
	if err != nil {
		return domain.ProfitReport{}, err
	}
	return profitOf(items), nil
}

func liveFigures(it domain.Item) domain.Figures {
	n := decimal.NewFromInt(int64(it.Sold))
	return domain.Figures{Sold: it.Sold, Revenue: it.Price.Mul(n), Cost: it.Cost.Mul(n)}
}

func profitOf(items []domain.Item) domain.ProfitReport {
	r := domain.ProfitReport{Revenue: decimal.Zero, Cost: decimal.Zero}
	for _, it := range items {
		f := liveFigures(it)
		r.Revenue = r.Revenue.Add(f.Revenue)
		r.Cost = r.Cost.Add(f.Cost)
		r.Units += f.Sold
	}
	r.Profit = r.Revenue.Sub(r.Cost)
	r.Margin = domain.Ratio(r.Profit, r.Revenue)
	return r
}

func (s *AnalyticsService) StockReport(ctx context.Context) (domain.StockReport, error) {
	items, err := s.Items.List(ctx, domain.FilterAll)
	if err != nil {
		return domain.StockReport{}, err
	}
	rep := domain.StockReport{Items: items}
	for _, it := range items {
		if it.Low() {
			rep.LowCount++
		}
		rep.TotalSold += it.Sold
	}
	return rep, nil
}

func (s *AnalyticsService) InventoryReport(ctx context.Context) (domain.InventoryReport, error) {
	items, err := s.Items.List(ctx, domain.FilterAll)
	if err != nil {
		return domain.InventoryReport{}, err
	}
	rep := domain.InventoryReport{ItemCount: len(items), Lines: make([]domain.InventoryLine, 0, len(items))}
	for _, it := range items {
		f := liveFigures(it)
		rep.Lines = append(rep.Lines, domain.InventoryLine{Item: it, Revenue: f.Revenue, Profit: f.Profit()})
		rep.TotalStock += it.Stock
		if it.Low() {
			rep.LowCount++
		}
	}
	rep.Profit = profitOf(items)
	return rep, nil
}

// PriceList pages through items that are in stock. page is 1-based and
// clamped to the available range.
func (s *AnalyticsService) PriceList(ctx context.Context, page, perPage int) (domain.PriceList, error) {
	items, err := s.Items.List(ctx, domain.FilterInStock)
	if err != nil {
		return domain.PriceList{}, err
	}
	if perPage <= 0 {
		perPage = 20
	}
	pages := (len(items) + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	from := (page - 1) * perPage
	to := min(from+perPage, len(items))
	return domain.PriceList{Items: items[from:to], Page: page, Pages: pages, PerPage: perPage}, nil
}

type periodFigures struct {
	figs  map[int64]domain.Figures
	names map[int64]string
}

// figures loads one side of a comparison. A live side adds the current
// counters to whatever was already archived for the same month, so a
// mid-month reset_sales does not drop the archived part.
func (s *AnalyticsService) figures(ctx context.Context, ref domain.PeriodRef) (periodFigures, error) {
	pf := periodFigures{figs: map[int64]domain.Figures{}, names: map[int64]string{}}
	snaps, err := s.Snapshots.ForPeriod(ctx, ref.Period)
	if err != nil {
		return pf, err
	}
	for _, sn := range snaps {
		pf.figs[sn.ItemID] = domain.Figures{Sold: sn.SoldQuantity, Revenue: sn.TotalRevenue, Cost: sn.TotalCost}
		pf.names[sn.ItemID] = sn.ItemName
	}
	if !ref.Live {
		return pf, nil
	}

	items, err := s.Items.List(ctx, domain.FilterAll)
	if err != nil {
		return pf, err
	}
	for _, it := range items {
		pf.figs[it.ID] = pf.figs[it.ID].Plus(liveFigures(it))
		pf.names[it.ID] = it.Name
	}
	return pf, nil
}

// DemandComparison joins two periods on item identity. A side without data
// counts as zero and items idle in both periods are left out.
func (s *AnalyticsService) DemandComparison(ctx context.Context, cur, prev domain.PeriodRef) (domain.DemandReport, error) {
	a, err := s.figures(ctx, cur)
	if err != nil {
		return domain.DemandReport{}, err
	}
	b, err := s.figures(ctx, prev)
	if err != nil {
		return domain.DemandReport{}, err
	}

	zero := domain.Figures{Revenue: decimal.Zero, Cost: decimal.Zero}
	seen := map[int64]bool{}
	rows := []domain.DemandRow{}
	add := func(id int64, name string) {
		if seen[id] {
			return
		}
		seen[id] = true
		fa, ok := a.figs[id]
		if !ok {
			fa = zero
		}
		fb, ok := b.figs[id]
		if !ok {
			fb = zero
		}
		if !fa.Active() && !fb.Active() {
			return
		}
		rows = append(rows, domain.NewDemandRow(id, name, fa, fb))
	}
	for id, name := range a.names {
		add(id, name)
	}
	for id, name := range b.names {
		add(id, name)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Name != rows[j].Name {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].ItemID < rows[j].ItemID
	})
	return domain.DemandReport{Current: cur, Previous: prev, Rows: rows}, nil
}

// MonthOverMonth compares the current month (archived plus live counters)
// with the previous month's archive.
func (s *AnalyticsService) MonthOverMonth(ctx context.Context) (domain.DemandReport, error) {
	p := s.CurrentPeriod()
	return s.DemandComparison(ctx, domain.Live(p), domain.Archived(p.Prev()))
}
