package conversation_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"litledger/internal/chat"
	"litledger/internal/conversation"
	"litledger/internal/domain"
	"litledger/internal/report"
	"litledger/internal/repos"
	"litledger/internal/services"
)

const (
	admin    int64 = 1
	leader   int64 = 2
	stranger int64 = 3
)

type harness struct {
	t      *testing.T
	engine *conversation.Engine
	ledger *services.LedgerService
	access *services.AccessService
}

func newHarness(t *testing.T, pageSize int) *harness {
	t.Helper()
	db, err := repos.OpenDB(repos.DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	items, snaps, actors := repos.NewItemRepo(db), repos.NewSnapshotRepo(db), repos.NewActorRepo(db)
	ledger := services.NewLedgerService(items, snaps, nil)
	access := services.NewAccessService(actors)
	r, err := report.New("zł")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, access.AssignRole(ctx, admin, domain.RoleAdmin, "Anna"))
	require.NoError(t, access.AssignRole(ctx, leader, domain.RoleLeader, "Leon"))

	e := conversation.New(access, ledger, services.NewAnalyticsService(items, snaps), r,
		conversation.NewSessions(time.Hour), pageSize)
	return &harness{t: t, engine: e, ledger: ledger, access: access}
}

func (h *harness) send(a chat.Action) chat.Response {
	return h.engine.Handle(context.Background(), a)
}

func (h *harness) cmd(actor int64, name string, args ...string) chat.Response {
	return h.send(chat.Command(actor, name, args...))
}

func (h *harness) say(actor int64, text string) chat.Response {
	return h.send(chat.Text(actor, text))
}

func (h *harness) press(actor int64, payload string) chat.Response {
	return h.send(chat.Press(actor, payload, 77))
}

func (h *harness) item(name string) domain.Item {
	h.t.Helper()
	it, err := h.ledger.Item(context.Background(), name)
	require.NoError(h.t, err)
	return it
}

// guide creates "Guide" (price 30, cost 10, min 5) with 20 in stock.
func (h *harness) guide() domain.Item {
	h.t.Helper()
	ctx := context.Background()
	_, err := h.ledger.CreateItem(ctx, domain.NewItem{
		Name: "Guide", Category: "books",
		Price: decimal.NewFromInt(30), Cost: decimal.NewFromInt(10), MinStock: 5,
	})
	require.NoError(h.t, err)
	it, err := h.ledger.RecordArrival(ctx, "Guide", 20)
	require.NoError(h.t, err)
	return it
}
