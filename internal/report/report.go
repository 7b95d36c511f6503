// Package report renders ledger reports as chat messages in HTML parse mode.
package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"unicode/utf8"

	html "github.com/gofiber/template/html/v2"
	"github.com/shopspring/decimal"

	"litledger/internal/domain"
)

//go:embed templates/*.html
var templates embed.FS

// MaxMessage is the longest text a chat message may carry.
const MaxMessage = 4000

type Renderer struct {
	engine   *html.Engine
	currency string
}

// New loads the embedded templates; currency is appended to every amount.
func New(currency string) (*Renderer, error) {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		return nil, err
	}
	r := &Renderer{currency: currency}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("money", r.Money)
	engine.AddFunc("pct", func(ratio decimal.Decimal) string { return domain.Percent(ratio).StringFixed(1) + "%" })
	// signed values are marked safe so the leading "+" is not escaped
	engine.AddFunc("change", func(p decimal.Decimal) template.HTML {
		return template.HTML(sign(p) + p.StringFixed(1) + "%")
	})
	engine.AddFunc("signed", func(n int) template.HTML { return template.HTML(fmt.Sprintf("%+d", n)) })
	engine.AddFunc("signedMoney", func(d decimal.Decimal) template.HTML {
		return template.HTML(sign(d) + template.HTMLEscapeString(r.Money(d)))
	})
	if err := engine.Load(); err != nil {
		return nil, err
	}
	r.engine = engine
	return r, nil
}

func sign(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+"
	}
	return ""
}

// Money formats an amount with two decimals and the currency label.
func (r *Renderer) Money(d decimal.Decimal) string {
	if r.currency == "" {
		return d.StringFixed(2)
	}
	return d.StringFixed(2) + " " + r.currency
}

func (r *Renderer) Currency() string { return r.currency }

func (r *Renderer) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.engine.Render(&buf, name, data); err != nil {
		return "", err
	}
	return truncate(strings.TrimSpace(buf.String())), nil
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= MaxMessage {
		return s
	}
	cut := string([]rune(s)[:MaxMessage])
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i]
	}
	return cut + "\n…"
}

func (r *Renderer) Stock(rep domain.StockReport) (string, error) { return r.render("stock", rep) }

func (r *Renderer) Low(items []domain.Item) (string, error) { return r.render("low", items) }

func (r *Renderer) Prices(pl domain.PriceList) (string, error) { return r.render("prices", pl) }

func (r *Renderer) Inventory(rep domain.InventoryReport) (string, error) {
	return r.render("inventory", rep)
}

func (r *Renderer) Profit(rep domain.ProfitReport) (string, error) { return r.render("profit", rep) }

func label(ref domain.PeriodRef) string {
	if ref.Live {
		return ref.Period.String() + " (live)"
	}
	return ref.Period.String()
}

func (r *Renderer) Demand(rep domain.DemandReport) (string, error) {
	return r.render("demand", struct {
		Current, Previous string
		Rows              []domain.DemandRow
	}{label(rep.Current), label(rep.Previous), rep.Rows})
}
