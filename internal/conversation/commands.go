package conversation

import (
	"fmt"
	"strconv"
	"strings"

	"litledger/internal/chat"
	"litledger/internal/domain"
	"litledger/internal/services"
	"litledger/internal/validate"
)

type command struct {
	role domain.Role
	help string
	run  func(*turn) chat.Response
}

var commands map[string]command

// set in init; help reads it
func init() {
	commands = map[string]command{
		"start":        {domain.RoleNone, "greeting and main menu", (*turn).start},
		"help":         {domain.RoleNone, "this list", (*turn).help},
		"cancel":       {domain.RoleNone, "abandon the current dialogue", (*turn).cancel},
		"set_admin":    {domain.RoleNone, "become the administrator if there is none", (*turn).setAdmin},
		"sell":         {domain.RoleLeader, "record a sale", flowStarter(FlowSell)},
		"stock":        {domain.RoleLeader, "stock report", (*turn).stock},
		"low":          {domain.RoleLeader, "items at or below their minimum", (*turn).low},
		"price":        {domain.RoleLeader, "price list [page]", (*turn).price},
		"add_item":     {domain.RoleAdmin, "add a new item", (*turn).addItem},
		"edit_item":    {domain.RoleAdmin, "edit an item's fields", flowStarter(FlowEditItem)},
		"update_stock": {domain.RoleAdmin, "set an item's stock count", flowStarter(FlowUpdateStock)},
		"arrival":      {domain.RoleAdmin, "record a delivery", flowStarter(FlowArrival)},
		"delete_item":  {domain.RoleAdmin, "delete an item", flowStarter(FlowDeleteItem)},
		"change_price": {domain.RoleAdmin, "change an item's price", flowStarter(FlowChangePrice)},
		"change_name":  {domain.RoleAdmin, "rename an item", flowStarter(FlowChangeName)},
		"add_leader":   {domain.RoleAdmin, "grant the leader role [id]", (*turn).addLeader},
		"inventory":    {domain.RoleAdmin, "full inventory", (*turn).inventory},
		"profit":       {domain.RoleAdmin, "profit report", (*turn).profit},
		"analytics":    {domain.RoleAdmin, "demand comparison [YYYY-MM [YYYY-MM]]", (*turn).analytics},
		"reset_sales":  {domain.RoleAdmin, "archive a month's sales [YYYY-MM]", (*turn).resetSales},
	}
}

// helpOrder is the order commands are listed in.
var helpOrder = []string{
	"start", "help", "cancel", "set_admin",
	"sell", "stock", "low", "price",
	"add_item", "edit_item", "update_stock", "arrival", "delete_item", "change_price", "change_name",
	"add_leader", "inventory", "profit", "analytics", "reset_sales",
}

func (t *turn) command() chat.Response {
	cmd, ok := commands[t.a.Command]
	if !ok {
		return t.reply("Unknown command. Send /help to see what I can do.")
	}
	if cmd.role != domain.RoleNone {
		if err := t.require(cmd.role); err != nil {
			return t.fail(err)
		}
	}
	return cmd.run(t)
}

func (t *turn) arg(i int) string {
	if i < len(t.a.Args) {
		return t.a.Args[i]
	}
	return ""
}

func (t *turn) role() domain.Role {
	role, err := t.Access.RoleOf(t.ctx, t.a.ActorID)
	if err != nil {
		return domain.RoleNone
	}
	return role
}

func (t *turn) start() chat.Response {
	name := validate.DisplayName(t.a.DisplayName)
	if t.a.Chat.Group() && t.a.Chat.SenderIsAdmin {
		if _, err := t.Access.EnrollChatAdmin(t.ctx, t.a.ActorID, name); err != nil {
			return t.fail(err)
		}
	}
	role := t.role()
	greeting := "👋 Hello"
	if name != "" {
		greeting += ", " + esc(name)
	}
	var b strings.Builder
	b.WriteString(greeting + "!\n")
	switch role {
	case domain.RoleAdmin:
		b.WriteString("You are the administrator: manage the catalogue, stock and reports.")
	case domain.RoleLeader:
		b.WriteString("You are a leader: record sales and check stock.")
	default:
		b.WriteString("You have no role yet. Ask the administrator to add you, or use /set_admin if nobody runs this ledger yet.")
	}
	return t.reply(b.String()).WithMenu(chat.MainMenu(role))
}

func (t *turn) help() chat.Response {
	role := t.role()
	var b strings.Builder
	b.WriteString("<b>Commands</b>")
	for _, name := range helpOrder {
		cmd := commands[name]
		if !role.Satisfies(cmd.role) {
			continue
		}
		fmt.Fprintf(&b, "\n/%s · %s", name, esc(cmd.help))
	}
	return t.reply(b.String()).WithMenu(chat.MainMenu(role))
}

func (t *turn) cancel() chat.Response {
	if !t.aborted {
		return t.reply("Nothing to cancel.")
	}
	return t.reply("❌ Cancelled.").WithMenu(chat.MainMenu(t.role()))
}

func (t *turn) setAdmin() chat.Response {
	out, err := t.Access.SelfPromote(t.ctx, t.a.ActorID, validate.DisplayName(t.a.DisplayName))
	if err != nil {
		return t.fail(err)
	}
	switch out {
	case services.AlreadyAdmin:
		return t.reply("You are already the administrator.")
	case services.HasRole:
		return t.reply("You already have a role.")
	}
	return t.reply("👑 You are now the administrator.").WithMenu(chat.MainMenu(domain.RoleAdmin))
}

func (t *turn) addItem() chat.Response {
	t.begin(FlowAddItem, StepAddName)
	return cancelable("➕ Enter the name of the new item:")
}

func (t *turn) addLeader() chat.Response {
	if raw := t.arg(0); raw != "" {
		id, ok := validate.ID(raw)
		if !ok {
			return t.reply("❌ The id must be a positive number.")
		}
		resp, err := t.promote(id, "")
		if err != nil {
			return t.fail(err)
		}
		return resp
	}
	t.begin(FlowAddLeader, StepLeaderID)
	return cancelable("👤 Send the user's numeric id or forward any of their messages.")
}

func (t *turn) promote(target int64, name string) (chat.Response, error) {
	out, err := t.Access.PromoteLeader(t.ctx, t.a.ActorID, target, validate.DisplayName(name))
	if err != nil {
		return chat.Response{}, err
	}
	who := strconv.FormatInt(target, 10)
	if name != "" {
		who = esc(name) + " (" + who + ")"
	}
	switch out {
	case services.AlreadyAdmin:
		return t.reply(who + " is the administrator."), nil
	case services.AlreadyLeader:
		return t.reply(who + " is already a leader."), nil
	}
	return t.reply("✅ " + who + " is now a leader."), nil
}

func (t *turn) stock() chat.Response {
	rep, err := t.Analytics.StockReport(t.ctx)
	if err != nil {
		return t.fail(err)
	}
	return t.rendered(t.Render.Stock(rep))
}

func (t *turn) low() chat.Response {
	items, err := t.Analytics.LowStock(t.ctx)
	if err != nil {
		return t.fail(err)
	}
	return t.rendered(t.Render.Low(items))
}

func (t *turn) price() chat.Response { return t.priceList(t.arg(0)) }

// priceList serves both /price and the pager buttons.
func (t *turn) priceList(page string) chat.Response {
	if err := t.require(domain.RoleLeader); err != nil {
		return t.fail(err)
	}
	pl, err := t.Analytics.PriceList(t.ctx, validate.Page(page), t.PageSize)
	if err != nil {
		return t.fail(err)
	}
	text, err := t.Render.Prices(pl)
	if err != nil {
		return t.fail(err)
	}
	return t.respond(text, chat.Pager(pl.Page, pl.Pages))
}

func (t *turn) inventory() chat.Response {
	rep, err := t.Analytics.InventoryReport(t.ctx)
	if err != nil {
		return t.fail(err)
	}
	return t.rendered(t.Render.Inventory(rep))
}

func (t *turn) profit() chat.Response {
	rep, err := t.Analytics.Profit(t.ctx)
	if err != nil {
		return t.fail(err)
	}
	return t.rendered(t.Render.Profit(rep))
}

func (t *turn) analytics() chat.Response {
	var (
		rep domain.DemandReport
		err error
	)
	switch len(t.a.Args) {
	case 0:
		rep, err = t.Analytics.MonthOverMonth(t.ctx)
	case 1:
		var p domain.Period
		if p, err = domain.ParsePeriod(t.arg(0)); err != nil {
			return t.reply("❌ Use /analytics [YYYY-MM [YYYY-MM]].")
		}
		rep, err = t.Analytics.DemandComparison(t.ctx, domain.Live(t.Analytics.CurrentPeriod()), domain.Archived(p))
	default:
		cur, err1 := domain.ParsePeriod(t.arg(0))
		prev, err2 := domain.ParsePeriod(t.arg(1))
		if err1 != nil || err2 != nil {
			return t.reply("❌ Use /analytics [YYYY-MM [YYYY-MM]].")
		}
		rep, err = t.Analytics.DemandComparison(t.ctx, domain.Archived(cur), domain.Archived(prev))
	}
	if err != nil {
		return t.fail(err)
	}
	return t.rendered(t.Render.Demand(rep))
}

func (t *turn) resetSales() chat.Response {
	p := t.Analytics.CurrentPeriod()
	if raw := t.arg(0); raw != "" {
		var err error
		if p, err = domain.ParsePeriod(raw); err != nil {
			return t.reply("❌ Use /reset_sales [YYYY-MM].")
		}
	}
	n, err := t.Ledger.ArchivePeriod(t.ctx, p)
	if err != nil {
		return t.fail(err)
	}
	if n == 0 {
		return t.reply(fmt.Sprintf("Nothing sold to archive for %s.", p))
	}
	return t.reply(fmt.Sprintf("✅ Archived sales of %d items into %s. Sales counters are reset.", n, p))
}

func (t *turn) rendered(text string, err error) chat.Response {
	if err != nil {
		return t.fail(err)
	}
	return t.reply(text)
}
