package report_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litledger/internal/domain"
	"litledger/internal/report"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newRenderer(t *testing.T) *report.Renderer {
	t.Helper()
	r, err := report.New("zł")
	require.NoError(t, err)
	return r
}

func TestProfitReport(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Profit(domain.ProfitReport{
		Revenue: dec("480"), Cost: dec("160"), Profit: dec("320"),
		Margin: domain.Ratio(dec("320"), dec("480")), Units: 16,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Revenue: 480.00 zł")
	assert.Contains(t, out, "Cost: 160.00 zł")
	assert.Contains(t, out, "Profit: 320.00 zł")
	assert.Contains(t, out, "Margin: 66.7%")
}

func TestStockReportFlagsLowAndEscapesNames(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Stock(domain.StockReport{
		Items: []domain.Item{
			{Name: "Guide", Stock: 4, MinStock: 5},
			{Name: "<Atlas>", Stock: 9, MinStock: 1},
		},
		LowCount: 1, TotalSold: 16,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "⚠️ <b>Guide</b>: 4 pcs (min 5)")
	assert.Contains(t, out, "&lt;Atlas&gt;")
	assert.NotContains(t, out, "<Atlas>")
	assert.Contains(t, out, "Sold this period: 16 pcs")
	lines := strings.Split(out, "\n")
	assert.Equal(t, "<b>📊 Stock</b>", lines[0])
}

func TestPriceListAndEmptyStates(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Prices(domain.PriceList{Items: []domain.Item{{Name: "Guide", Price: dec("30"), Stock: 4}}, Page: 1, Pages: 2})
	require.NoError(t, err)
	assert.Contains(t, out, "(1/2)")
	assert.Contains(t, out, "Guide · 30.00 zł · 4 pcs")

	out, err = r.Prices(domain.PriceList{Page: 1, Pages: 1})
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing in stock.")

	out, err = r.Low(nil)
	require.NoError(t, err)
	assert.Contains(t, out, "All items are above their minimum.")
}

func TestDemandReport(t *testing.T) {
	r := newRenderer(t)
	row := domain.NewDemandRow(1, "Guide",
		domain.Figures{Sold: 3, Revenue: dec("90"), Cost: dec("30")},
		domain.Figures{Revenue: decimal.Zero, Cost: decimal.Zero})
	out, err := r.Demand(domain.DemandReport{
		Current:  domain.Live(domain.Period{Year: 2024, Month: 1}),
		Previous: domain.Archived(domain.Period{Year: 2023, Month: 12}),
		Rows:     []domain.DemandRow{row},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "2024-01 (live) vs 2023-12")
	assert.Contains(t, out, "<b>Guide</b>: 3 vs 0 pcs (+3, 0.0%)")
	assert.Contains(t, out, "revenue 90.00 zł (+90.00 zł)")
}

func TestDemandSignsAreNotEscaped(t *testing.T) {
	r := newRenderer(t)
	row := domain.NewDemandRow(1, "Guide",
		domain.Figures{Sold: 3, Revenue: dec("90"), Cost: dec("30")},
		domain.Figures{Sold: 1, Revenue: dec("30"), Cost: dec("10")})
	out, err := r.Demand(domain.DemandReport{
		Current:  domain.Archived(domain.Period{Year: 2024, Month: 2}),
		Previous: domain.Archived(domain.Period{Year: 2024, Month: 1}),
		Rows:     []domain.DemandRow{row},
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "&#43;")
	assert.Contains(t, out, "3 vs 1 pcs (+2, +200.0%)")
	assert.Contains(t, out, "revenue 90.00 zł (+60.00 zł), profit 60.00 zł (+40.00 zł)")

	odd, err := report.New("<x>")
	require.NoError(t, err)
	out, err = odd.Demand(domain.DemandReport{Rows: []domain.DemandRow{row}})
	require.NoError(t, err)
	assert.Contains(t, out, "(+60.00 &lt;x&gt;)")
}

func TestInventoryReportTotals(t *testing.T) {
	r := newRenderer(t)
	out, err := r.Inventory(domain.InventoryReport{
		Lines:     []domain.InventoryLine{{Item: domain.Item{Name: "Guide", Category: "books", Stock: 4, MinStock: 5, Sold: 16}, Revenue: dec("480"), Profit: dec("320")}},
		ItemCount: 1, TotalStock: 4, LowCount: 1,
		Profit: domain.ProfitReport{Revenue: dec("480"), Cost: dec("160"), Profit: dec("320"), Margin: domain.Ratio(dec("320"), dec("480"))},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "<b>Guide</b> [books]: 4 pcs, sold 16")
	assert.Contains(t, out, "Margin: 66.7%")
}

func TestMoneyWithoutCurrency(t *testing.T) {
	r, err := report.New("")
	require.NoError(t, err)
	assert.Equal(t, "12.50", r.Money(dec("12.5")))
}
