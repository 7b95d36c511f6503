package chat

import (
	"fmt"

	"litledger/internal/domain"
)

const (
	PayloadCancel    = "cancel"
	PayloadQty       = "qty"
	PayloadField     = "field"
	PayloadConfirm   = "confirm_delete"
	PayloadPricePage = "price_page"
	QtyCustom        = "custom"
)

// Items lays out one button per item, tagged with its id.
func Items(prefix string, items []domain.Item, label func(domain.Item) string) [][]Button {
	rows := make([][]Button, 0, len(items)+1)
	for _, it := range items {
		rows = append(rows, []Button{{Text: label(it), Payload: Payload(prefix, it.ID)}})
	}
	return append(rows, CancelRow())
}

func CancelRow() []Button { return []Button{{Text: "❌ Cancel", Payload: PayloadCancel}} }

var presetQuantities = [][]int{{1, 2, 3}, {5, 10}}

func Quantities() [][]Button {
	var rows [][]Button
	for _, r := range presetQuantities {
		row := make([]Button, 0, len(r))
		for _, q := range r {
			row = append(row, Button{Text: fmt.Sprint(q), Payload: Payload(PayloadQty, q)})
		}
		rows = append(rows, row)
	}
	rows = append(rows, []Button{{Text: "✏️ Other amount", Payload: Payload(PayloadQty, QtyCustom)}})
	return append(rows, CancelRow())
}

// EditableFields are the item fields the edit flow offers, in display order.
var EditableFields = []struct{ Key, Label string }{
	{"name", "Name"},
	{"category", "Category"},
	{"price", "Price"},
	{"cost", "Cost"},
	{"min_stock", "Min stock"},
}

func Fields() [][]Button {
	rows := make([][]Button, 0, len(EditableFields)+1)
	for _, f := range EditableFields {
		rows = append(rows, []Button{{Text: f.Label, Payload: Payload(PayloadField, f.Key)}})
	}
	return append(rows, CancelRow())
}

func ConfirmDelete(id int64) [][]Button {
	return [][]Button{{
		{Text: "🗑 Delete", Payload: Payload(PayloadConfirm, id)},
		{Text: "❌ Cancel", Payload: PayloadCancel},
	}}
}

func Pager(page, pages int) [][]Button {
	if pages <= 1 {
		return nil
	}
	var row []Button
	if page > 1 {
		row = append(row, Button{Text: "⬅️", Payload: Payload(PayloadPricePage, page-1)})
	}
	row = append(row, Button{Text: fmt.Sprintf("%d/%d", page, pages), Payload: Payload(PayloadPricePage, page)})
	if page < pages {
		row = append(row, Button{Text: "➡️", Payload: Payload(PayloadPricePage, page+1)})
	}
	return [][]Button{row}
}

// Menu labels map to commands so reply-keyboard taps act like commands.
var Menu = map[string]string{
	"📚 Price list":   "price",
	"📊 Stock":        "stock",
	"💰 Sell":         "sell",
	"⚠️ Low stock":   "low",
	"📦 Arrival":      "arrival",
	"➕ Add item":     "add_item",
	"✏️ Edit item":   "edit_item",
	"🧾 Inventory":    "inventory",
	"📈 Profit":       "profit",
	"📉 Analytics":    "analytics",
	"❓ Help":         "help",
	"👑 Become admin": "set_admin",
}

func MainMenu(role domain.Role) [][]string {
	switch role {
	case domain.RoleAdmin:
		return [][]string{
			{"💰 Sell", "📦 Arrival", "➕ Add item"},
			{"📊 Stock", "⚠️ Low stock", "📚 Price list"},
			{"🧾 Inventory", "📈 Profit", "📉 Analytics"},
			{"✏️ Edit item", "❓ Help"},
		}
	case domain.RoleLeader:
		return [][]string{
			{"💰 Sell", "📚 Price list"},
			{"📊 Stock", "⚠️ Low stock"},
			{"❓ Help"},
		}
	}
	return [][]string{{"❓ Help", "👑 Become admin"}}
}
