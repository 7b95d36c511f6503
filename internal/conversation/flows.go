package conversation

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"litledger/internal/chat"
	"litledger/internal/domain"
	applog "litledger/internal/log"
	"litledger/internal/validate"
)

// flowDef describes flows that open with an item picker.
type flowDef struct {
	prefix     string
	role       domain.Role
	selectStep Step
	next       Step
	filter     domain.Filter
	prompt     string
}

var flows = map[Flow]flowDef{
	FlowSell:        {"sell", domain.RoleLeader, StepSellSelect, StepSellQty, domain.FilterInStock, "💰 What are you selling?"},
	FlowArrival:     {"arrival", domain.RoleAdmin, StepArrivalSelect, StepArrivalQty, domain.FilterAll, "📦 Which item arrived?"},
	FlowUpdateStock: {"stock", domain.RoleAdmin, StepStockSelect, StepStockCount, domain.FilterAll, "📊 Which item do you want to recount?"},
	FlowEditItem:    {"edit", domain.RoleAdmin, StepEditSelect, StepEditField, domain.FilterAll, "✏️ Which item do you want to edit?"},
	FlowDeleteItem:  {"delete", domain.RoleAdmin, StepDeleteSelect, StepDeleteConfirm, domain.FilterAll, "🗑 Which item do you want to delete?"},
	FlowChangePrice: {"price", domain.RoleAdmin, StepPriceSelect, StepPriceValue, domain.FilterAll, "💲 Which item gets a new price?"},
	FlowChangeName:  {"rename", domain.RoleAdmin, StepNameSelect, StepNameValue, domain.FilterAll, "🔤 Which item do you want to rename?"},
}

// prefixFlows maps item-button prefixes back to their flow.
var prefixFlows = func() map[string]Flow {
	m := make(map[string]Flow, len(flows))
	for f, def := range flows {
		m[def.prefix] = f
	}
	return m
}()

func flowStarter(flow Flow) func(*turn) chat.Response {
	return func(t *turn) chat.Response { return t.startFlow(flow) }
}

func itemLabel(it domain.Item) string { return fmt.Sprintf("%s (%d)", it.Name, it.Stock) }

func (t *turn) startFlow(flow Flow) chat.Response {
	def := flows[flow]
	items, err := t.Ledger.List(t.ctx, def.filter)
	if err != nil {
		return t.fail(err)
	}
	if len(items) == 0 {
		if def.filter == domain.FilterInStock {
			return t.reply("Nothing is in stock right now.")
		}
		return t.reply("No items yet. Add one with /add_item.")
	}
	t.begin(flow, def.selectStep)
	return t.reply(def.prompt + "\nPick an item or type its exact name.").WithButtons(chat.Items(def.prefix, items, itemLabel))
}

// pick handles an item button. Without a matching session waiting for it the
// button starts its flow afresh.
func (t *turn) pick(flow Flow, arg string) chat.Response {
	def := flows[flow]
	id, ok := validate.ID(arg)
	if !ok {
		return t.respond("This button is no longer active.", nil)
	}
	s := t.slot.Current()
	if s == nil || s.Flow != flow || s.Step != def.selectStep {
		if err := t.require(def.role); err != nil {
			return t.fail(err)
		}
		if s != nil {
			applog.Info(nil, "conversation.aborted", t.fields(s, "by", t.a.Payload))
		}
		s = t.begin(flow, def.selectStep)
	}
	it, err := t.Ledger.ItemByID(t.ctx, id)
	if err != nil {
		t.slot.Clear()
		return t.fail(err)
	}
	return t.selected(s, def, it)
}

func (t *turn) pickByName(s *Session, in string) chat.Response {
	def := flows[s.Flow]
	name, ok := validate.Name(in)
	if !ok {
		return cancelable("❌ Type the exact item name or pick one from the list.")
	}
	it, err := t.Ledger.Item(t.ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return cancelable(fmt.Sprintf("❌ There is no item called <b>%s</b>. Type the exact name or pick one from the list.", esc(name)))
	}
	if err != nil {
		t.slot.Clear()
		return t.fail(err)
	}
	return t.selected(s, def, it)
}

func (t *turn) selected(s *Session, def flowDef, it domain.Item) chat.Response {
	if s.Flow == FlowSell && it.Stock == 0 {
		return t.respond(fmt.Sprintf("❌ <b>%s</b> is out of stock. Choose another item.", esc(it.Name)), [][]chat.Button{chat.CancelRow()})
	}
	if err := s.Bag.Set(KeyItem, it); err != nil {
		return t.broken(s, err)
	}
	t.advance(s, def.next)

	name := esc(it.Name)
	cancel := [][]chat.Button{chat.CancelRow()}
	switch s.Flow {
	case FlowSell:
		return t.respond(fmt.Sprintf("💰 How many <b>%s</b>? In stock: %d pcs at %s.", name, it.Stock, t.Render.Money(it.Price)), chat.Quantities())
	case FlowArrival:
		return t.respond(fmt.Sprintf("📦 How many <b>%s</b> arrived? In stock now: %d pcs.", name, it.Stock), cancel)
	case FlowUpdateStock:
		return t.respond(fmt.Sprintf("📊 <b>%s</b> has %d pcs. Enter the counted stock:", name, it.Stock), cancel)
	case FlowEditItem:
		return t.respond(fmt.Sprintf("✏️ What do you want to change in <b>%s</b>?", name), chat.Fields())
	case FlowDeleteItem:
		return t.respond(fmt.Sprintf("🗑 Delete <b>%s</b> together with its sales history? This cannot be undone.", name), chat.ConfirmDelete(it.ID))
	case FlowChangePrice:
		return t.respond(fmt.Sprintf("💲 <b>%s</b> sells at %s. Enter the new price:", name, t.Render.Money(it.Price)), cancel)
	case FlowChangeName:
		return t.respond(fmt.Sprintf("🔤 Enter the new name for <b>%s</b>:", name), cancel)
	}
	return t.broken(s, errors.Errorf("flow %s has no item step", s.Flow))
}

// broken ends a session that reached an impossible state.
func (t *turn) broken(s *Session, err error) chat.Response {
	t.slot.Clear()
	return t.fail(fmt.Errorf("%w: conversation %s: %w", domain.ErrStoreUnavailable, s.ID, err))
}

func item(s *Session) domain.Item {
	it, _ := Get[domain.Item](s.Bag, KeyItem)
	return it
}

// Add item.

func (t *turn) addName(s *Session, in string) chat.Response {
	name, ok := validate.Name(in)
	if !ok {
		return cancelable("❌ The name must be 1 to 100 characters. Enter the name:")
	}
	_, err := t.Ledger.Item(t.ctx, name)
	switch {
	case err == nil:
		return cancelable(fmt.Sprintf("❌ <b>%s</b> already exists. Enter another name:", esc(name)))
	case !errors.Is(err, domain.ErrNotFound):
		t.slot.Clear()
		return t.fail(err)
	}
	if err := s.Bag.Set(KeyName, name); err != nil {
		return t.broken(s, err)
	}
	t.advance(s, StepAddCategory)
	return cancelable(fmt.Sprintf("Category of <b>%s</b> (for example: book, booklet):", esc(name)))
}

func (t *turn) addCategory(s *Session, in string) chat.Response {
	cat, ok := validate.Category(in)
	if !ok {
		return cancelable("❌ The category must be 1 to 50 characters. Enter the category:")
	}
	if err := s.Bag.Set(KeyCategory, cat); err != nil {
		return t.broken(s, err)
	}
	t.advance(s, StepAddPrice)
	return cancelable(fmt.Sprintf("Selling price in %s (for example 30 or 12.50):", esc(t.Render.Currency())))
}

const moneyHint = "❌ Enter a non-negative amount with at most two decimals, for example 12.50:"

func (t *turn) addPrice(s *Session, in string) chat.Response {
	price, ok := validate.Money(in)
	if !ok {
		return cancelable(moneyHint)
	}
	if err := s.Bag.Set(KeyPrice, price); err != nil {
		return t.broken(s, err)
	}
	t.advance(s, StepAddCost)
	return cancelable("Purchase cost per piece:")
}

func (t *turn) addCost(s *Session, in string) chat.Response {
	cost, ok := validate.Money(in)
	if !ok {
		return cancelable(moneyHint)
	}
	if err := s.Bag.Set(KeyCost, cost); err != nil {
		return t.broken(s, err)
	}
	t.advance(s, StepAddMinStock)
	return cancelable("Minimum stock before a low-stock warning:")
}

const countHint = "❌ Enter a whole number from 0 to 100000:"

func (t *turn) addMinStock(s *Session, in string) chat.Response {
	minStock, ok := validate.Count(in)
	if !ok {
		return cancelable(countHint)
	}
	if err := s.Bag.Set(KeyMinStock, minStock); err != nil {
		return t.broken(s, err)
	}
	n := domain.NewItem{MinStock: minStock}
	n.Name, _ = Get[string](s.Bag, KeyName)
	n.Category, _ = Get[string](s.Bag, KeyCategory)
	n.Price, _ = Get[decimal.Decimal](s.Bag, KeyPrice)
	n.Cost, _ = Get[decimal.Decimal](s.Bag, KeyCost)

	return t.commit(s, func() (chat.Response, error) {
		it, err := t.Ledger.CreateItem(t.ctx, n)
		if err != nil {
			return chat.Response{}, err
		}
		return t.reply(fmt.Sprintf("✅ Added <b>%s</b> (%s)\nPrice %s, cost %s, margin %s%%\nMinimum stock %d. Record a delivery with /arrival.",
			esc(it.Name), esc(it.Category), t.Render.Money(it.Price), t.Render.Money(it.Cost),
			domain.Percent(it.Margin()).StringFixed(1), it.MinStock)), nil
	})
}

// Edit item.

func (t *turn) editField(s *Session, in string) chat.Response {
	key := ""
	for _, f := range chat.EditableFields {
		if strings.EqualFold(in, f.Key) || strings.EqualFold(in, f.Label) {
			key = f.Key
		}
	}
	if key == "" {
		return t.respond("❌ Choose one of the fields below.", chat.Fields())
	}
	if err := s.Bag.Set(KeyField, key); err != nil {
		return t.broken(s, err)
	}
	t.advance(s, StepEditValue)

	it := item(s)
	cancel := [][]chat.Button{chat.CancelRow()}
	var current string
	switch key {
	case "name":
		current = it.Name
	case "category":
		current = it.Category
	case "price":
		current = t.Render.Money(it.Price)
	case "cost":
		current = t.Render.Money(it.Cost)
	case "min_stock":
		current = fmt.Sprint(it.MinStock)
	}
	return t.respond(fmt.Sprintf("Current %s of <b>%s</b>: %s\nEnter the new value:", strings.ReplaceAll(key, "_", " "), esc(it.Name), esc(current)), cancel)
}

// patchFor parses in as the new value of field.
func (t *turn) patchFor(field, in string) (domain.ItemPatch, string, bool) {
	var p domain.ItemPatch
	switch field {
	case "name":
		v, ok := validate.Name(in)
		p.Name = &v
		return p, esc(v), ok
	case "category":
		v, ok := validate.Category(in)
		p.Category = &v
		return p, esc(v), ok
	case "price":
		v, ok := validate.Money(in)
		p.Price = &v
		return p, t.Render.Money(v), ok
	case "cost":
		v, ok := validate.Money(in)
		p.Cost = &v
		return p, t.Render.Money(v), ok
	case "min_stock":
		v, ok := validate.Count(in)
		p.MinStock = &v
		return p, fmt.Sprint(v), ok
	}
	return p, "", false
}

func (t *turn) editValue(s *Session, in string) chat.Response {
	field, _ := Get[string](s.Bag, KeyField)
	patch, shown, ok := t.patchFor(field, in)
	if !ok {
		return cancelable("❌ That value is not valid for " + strings.ReplaceAll(field, "_", " ") + ". Enter it again:")
	}
	return t.update(s, patch, field, shown)
}

func (t *turn) update(s *Session, patch domain.ItemPatch, field, shown string) chat.Response {
	if err := s.Bag.Set(KeyValue, shown); err != nil {
		return t.broken(s, err)
	}
	before := item(s)
	return t.commit(s, func() (chat.Response, error) {
		it, err := t.Ledger.UpdateItem(t.ctx, before.ID, patch)
		if err != nil {
			return chat.Response{}, err
		}
		return t.reply(fmt.Sprintf("✅ <b>%s</b>: %s is now %s.", esc(it.Name), strings.ReplaceAll(field, "_", " "), shown)), nil
	})
}

func (t *turn) priceValue(s *Session, in string) chat.Response {
	patch, shown, ok := t.patchFor("price", in)
	if !ok {
		return cancelable(moneyHint)
	}
	return t.update(s, patch, "price", shown)
}

func (t *turn) nameValue(s *Session, in string) chat.Response {
	patch, shown, ok := t.patchFor("name", in)
	if !ok {
		return cancelable("❌ The name must be 1 to 100 characters. Enter the new name:")
	}
	return t.update(s, patch, "name", shown)
}

// Stock movements.

func (t *turn) stockCount(s *Session, in string) chat.Response {
	n, ok := validate.Count(in)
	if !ok {
		return cancelable(countHint)
	}
	if err := s.Bag.Set(KeyCount, n); err != nil {
		return t.broken(s, err)
	}
	target := item(s)
	return t.commit(s, func() (chat.Response, error) {
		it, err := t.Ledger.SetStock(t.ctx, target.Name, n)
		if err != nil {
			return chat.Response{}, err
		}
		return t.reply(fmt.Sprintf("✅ Stock of <b>%s</b> set to %d pcs.", esc(it.Name), it.Stock)), nil
	})
}

const quantityHint = "❌ Enter a whole number from 1 to 100000:"

func (t *turn) arrivalQuantity(s *Session, in string) chat.Response {
	q, ok := validate.Quantity(in)
	if !ok {
		return cancelable(quantityHint)
	}
	if err := s.Bag.Set(KeyQuantity, q); err != nil {
		return t.broken(s, err)
	}
	target := item(s)
	return t.commit(s, func() (chat.Response, error) {
		it, err := t.Ledger.RecordArrival(t.ctx, target.Name, q)
		if err != nil {
			return chat.Response{}, err
		}
		return t.reply(fmt.Sprintf("✅ Arrival of <b>%s</b>: +%d, now %d pcs.", esc(it.Name), q, it.Stock)), nil
	})
}

// sellQuantity takes the amount from a preset button or from typed text; the
// confirmation replaces the prompt only in the button case.
func (t *turn) sellQuantity(s *Session, in string, pressed bool) chat.Response {
	it := item(s)
	if pressed && in == chat.QtyCustom {
		return t.respond(fmt.Sprintf("Enter how many <b>%s</b> you sold:", esc(it.Name)), [][]chat.Button{chat.CancelRow()})
	}
	q, ok := validate.Quantity(in)
	if !ok {
		return t.respond(quantityHint, chat.Quantities())
	}
	if err := s.Bag.Set(KeyQuantity, q); err != nil {
		return t.broken(s, err)
	}
	out := chat.ResponderFor(t.a)
	return t.commit(s, func() (chat.Response, error) {
		sale, err := t.Ledger.Sell(t.ctx, it.Name, q)
		if err != nil {
			return chat.Response{}, err
		}
		text := fmt.Sprintf("✅ Sold <b>%s</b> × %d for %s\nLeft in stock: %d pcs.",
			esc(sale.Item.Name), sale.Quantity, t.Render.Money(sale.Amount), sale.NewStock)
		if sale.Item.Low() {
			text += fmt.Sprintf("\n⚠️ Low stock: %d left, minimum is %d.", sale.NewStock, sale.Item.MinStock)
		}
		return out.Respond(text, nil), nil
	})
}

// Leaders and deletion.

func (t *turn) leaderTarget(s *Session, in string) chat.Response {
	var (
		id   int64
		name string
		ok   bool
	)
	if f := t.a.ForwardFrom; f != nil && f.ID > 0 {
		id, name, ok = f.ID, f.Name, true
	} else {
		id, ok = validate.ID(in)
	}
	if !ok {
		return cancelable("❌ Send a numeric id or forward a message from the user.")
	}
	if err := s.Bag.Set(KeyActor, id); err != nil {
		return t.broken(s, err)
	}
	return t.commit(s, func() (chat.Response, error) { return t.promote(id, name) })
}

func (t *turn) deleteConfirm(s *Session, arg string) chat.Response {
	it := item(s)
	id, ok := validate.ID(arg)
	if !ok || id != it.ID {
		return t.respond("This button is no longer active.", nil)
	}
	if err := s.Bag.Set(KeyConfirm, true); err != nil {
		return t.broken(s, err)
	}
	return t.commit(s, func() (chat.Response, error) {
		gone, err := t.Ledger.DeleteItem(t.ctx, id)
		if err != nil {
			return chat.Response{}, err
		}
		return t.respond(fmt.Sprintf("🗑 Deleted <b>%s</b>.", esc(gone.Name)), nil), nil
	})
}
