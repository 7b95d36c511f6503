package repos_test

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"litledger/internal/domain"
	"litledger/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(repos.DialectSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func guide(stock int) domain.NewItem {
	return domain.NewItem{Name: "Guide", Category: "books", Price: dec("30"), Cost: dec("10"), MinStock: 5, Stock: stock}
}
