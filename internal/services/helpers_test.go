package services_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"litledger/internal/domain"
	"litledger/internal/repos"
	"litledger/internal/services"
)

type env struct {
	items   *repos.ItemRepo
	snaps   *repos.SnapshotRepo
	actors  *repos.ActorRepo
	ledger  *services.LedgerService
	access  *services.AccessService
	reports *services.AnalyticsService
}

func newEnv(t *testing.T, alerts services.Alerter) env {
	t.Helper()
	db, err := repos.OpenDB(repos.DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := env{items: repos.NewItemRepo(db), snaps: repos.NewSnapshotRepo(db), actors: repos.NewActorRepo(db)}
	e.ledger = services.NewLedgerService(e.items, e.snaps, alerts)
	e.access = services.NewAccessService(e.actors)
	e.reports = services.NewAnalyticsService(e.items, e.snaps)
	return e
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seedGuide creates "Guide" (price 30, cost 10, min 5) and brings in 20 units.
func seedGuide(t *testing.T, e env) {
	t.Helper()
	ctx := context.Background()
	_, err := e.ledger.CreateItem(ctx, domain.NewItem{Name: "Guide", Category: "books", Price: dec("30"), Cost: dec("10"), MinStock: 5})
	require.NoError(t, err)
	_, err = e.ledger.RecordArrival(ctx, "Guide", 20)
	require.NoError(t, err)
}

type alerterMock struct{ mock.Mock }

func (m *alerterMock) LowStock(ctx context.Context, it domain.Item) error {
	return m.Called(ctx, it.Name).Error(0)
}
