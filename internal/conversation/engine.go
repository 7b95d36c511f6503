// Package conversation drives the per-actor dialogues that collect input for
// ledger operations. One Engine serves every actor; sessions are isolated per
// actor and each actor's actions are handled one at a time.
package conversation

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/pkg/errors"

	"litledger/internal/chat"
	"litledger/internal/domain"
	applog "litledger/internal/log"
	"litledger/internal/report"
	"litledger/internal/services"
)

type Engine struct {
	Access    *services.AccessService
	Ledger    *services.LedgerService
	Analytics *services.AnalyticsService
	Render    *report.Renderer
	Sessions  *Sessions
	PageSize  int
}

func New(access *services.AccessService, ledger *services.LedgerService, analytics *services.AnalyticsService,
	render *report.Renderer, sessions *Sessions, pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Engine{Access: access, Ledger: ledger, Analytics: analytics, Render: render, Sessions: sessions, PageSize: pageSize}
}

// turn is one action being handled while the actor's slot is held.
type turn struct {
	*Engine
	ctx     context.Context
	a       chat.Action
	slot    *Slot
	aborted bool
}

// Handle consumes one user action and returns what to show the user.
func (e *Engine) Handle(ctx context.Context, a chat.Action) chat.Response {
	a = a.Normalize()
	if a.Kind == chat.KindText {
		if cmd, ok := chat.Menu[strings.TrimSpace(a.Text)]; ok {
			a.Kind, a.Command, a.Args = chat.KindCommand, cmd, nil
		}
	}

	slot := e.Sessions.Lock(a.ActorID)
	defer slot.Unlock()
	t := &turn{Engine: e, ctx: ctx, a: a, slot: slot}

	switch a.Kind {
	case chat.KindCommand:
		// any command abandons the running dialogue first
		if s := slot.Current(); s != nil {
			t.aborted = true
			applog.Info(nil, "conversation.aborted", t.fields(s, "by", a.Command))
			slot.Clear()
		}
		return t.command()
	case chat.KindButton:
		return t.button()
	default:
		return t.text()
	}
}

func (t *turn) fields(s *Session, kv ...any) map[string]any {
	f := map[string]any{"actor_id": t.a.ActorID}
	if s != nil {
		f["conversation"] = s.ID.String()
		f["flow"] = string(s.Flow)
		f["step"] = string(s.Step)
	}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}

func (t *turn) require(min domain.Role) error {
	_, err := t.Access.Require(t.ctx, t.a.ActorID, min)
	return err
}

func (t *turn) reply(text string) chat.Response { return chat.Reply(text) }

// respond answers through the originating message when a button was pressed.
func (t *turn) respond(text string, buttons [][]chat.Button) chat.Response {
	return chat.ResponderFor(t.a).Respond(text, buttons)
}

// failure turns an error into a user message.
func failure(err error) string {
	var short *domain.InsufficientStockError
	switch {
	case errors.As(err, &short):
		return fmt.Sprintf("❌ Not enough stock of <b>%s</b>. Available: %d pcs.", html.EscapeString(short.Item), short.Available)
	case errors.Is(err, domain.ErrForbidden):
		return "⛔ You don't have permission for this."
	case errors.Is(err, domain.ErrNotFound):
		return "❌ Not found. It may have been deleted."
	case errors.Is(err, domain.ErrDuplicateName):
		return "❌ An item with this name already exists."
	case errors.Is(err, domain.ErrValidation):
		return "❌ Invalid input."
	}
	return "⚠️ Something went wrong, please try again later."
}

func (t *turn) fail(err error) chat.Response {
	if !errors.Is(err, domain.ErrForbidden) && !errors.Is(err, domain.ErrNotFound) &&
		!errors.Is(err, domain.ErrInsufficientStock) && !errors.Is(err, domain.ErrDuplicateName) &&
		!errors.Is(err, domain.ErrValidation) {
		applog.Error(nil, "conversation.failed", err, t.fields(t.slot.Current()))
	}
	return t.respond(failure(err), nil)
}

// commit ends the session and performs its single store operation. The
// session is gone whether or not the operation succeeds.
func (t *turn) commit(s *Session, op func() (chat.Response, error)) chat.Response {
	t.slot.Clear()
	resp, err := op()
	if err != nil {
		applog.Info(nil, "conversation.rejected", t.fields(s, "err", err.Error()))
		return t.fail(err)
	}
	applog.Info(nil, "conversation.committed", t.fields(s))
	return resp
}

func (t *turn) begin(flow Flow, step Step) *Session {
	s := t.slot.Begin(flow, step)
	applog.Debug(nil, "conversation.started", t.fields(s))
	return s
}

func (t *turn) advance(s *Session, step Step) {
	t.slot.Advance(step)
	applog.Debug(nil, "conversation.step", t.fields(s))
}

func esc(s string) string { return html.EscapeString(s) }

func cancelable(text string) chat.Response {
	return chat.Reply(text).WithButtons([][]chat.Button{chat.CancelRow()})
}

func (t *turn) button() chat.Response {
	prefix, arg := chat.SplitPayload(t.a.Payload)
	switch prefix {
	case chat.PayloadCancel:
		if t.slot.Current() == nil {
			return t.respond("Nothing to cancel.", nil)
		}
		applog.Info(nil, "conversation.cancelled", t.fields(t.slot.Current()))
		t.slot.Clear()
		return t.respond("❌ Cancelled.", nil)
	case chat.PayloadPricePage:
		return t.priceList(arg)
	}
	if flow, ok := prefixFlows[prefix]; ok {
		return t.pick(flow, arg)
	}

	s := t.slot.Current()
	if s == nil {
		return t.respond("⌛ This dialogue has expired. Start again from the menu.", nil)
	}
	t.slot.Touch()
	switch {
	case prefix == chat.PayloadQty && s.Step == StepSellQty:
		return t.sellQuantity(s, arg, true)
	case prefix == chat.PayloadField && s.Step == StepEditField:
		return t.editField(s, arg)
	case prefix == chat.PayloadConfirm && s.Step == StepDeleteConfirm:
		return t.deleteConfirm(s, arg)
	}
	return t.respond("This button is no longer active.", nil)
}

func (t *turn) text() chat.Response {
	s := t.slot.Current()
	if s == nil {
		return t.reply("Send /help to see what I can do.")
	}
	t.slot.Touch()
	in := strings.TrimSpace(t.a.Text)

	if def, ok := flows[s.Flow]; ok && s.Step == def.selectStep {
		return t.pickByName(s, in)
	}
	switch s.Step {
	case StepAddName:
		return t.addName(s, in)
	case StepAddCategory:
		return t.addCategory(s, in)
	case StepAddPrice:
		return t.addPrice(s, in)
	case StepAddCost:
		return t.addCost(s, in)
	case StepAddMinStock:
		return t.addMinStock(s, in)
	case StepEditField:
		return t.editField(s, in)
	case StepEditValue:
		return t.editValue(s, in)
	case StepStockCount:
		return t.stockCount(s, in)
	case StepArrivalQty:
		return t.arrivalQuantity(s, in)
	case StepSellQty:
		return t.sellQuantity(s, in, false)
	case StepLeaderID:
		return t.leaderTarget(s, in)
	case StepDeleteConfirm:
		return t.reply("Use the buttons above to confirm or cancel.")
	case StepPriceValue:
		return t.priceValue(s, in)
	case StepNameValue:
		return t.nameValue(s, in)
	}
	t.slot.Clear()
	return t.reply("Send /help to see what I can do.")
}
