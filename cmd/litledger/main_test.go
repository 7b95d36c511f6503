package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"litledger/internal/config"
)

func TestReadCatalog(t *testing.T) {
	in := `[
		{"name": "Guide", "category": "books", "price": "30", "cost": 10, "min_stock": 5, "stock": 20},
		{"name": "Atlas", "price": "12.50", "cost": "4"}
	]`
	items, err := readCatalog(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Guide", items[0].Name)
	assert.Equal(t, "books", items[0].Category)
	assert.Equal(t, "30", items[0].Price.String())
	assert.Equal(t, "10", items[0].Cost.String())
	assert.Equal(t, 5, items[0].MinStock)
	assert.Equal(t, 20, items[0].Stock)
	assert.Equal(t, "12.5", items[1].Price.String())
}

func TestReadCatalogRejectsBadInput(t *testing.T) {
	_, err := readCatalog(strings.NewReader(`[{"name": ""}]`))
	assert.Error(t, err)

	_, err = readCatalog(strings.NewReader(`[{"name": "Guide", "colour": "red"}]`))
	assert.Error(t, err)

	_, err = readCatalog(strings.NewReader(`{`))
	assert.Error(t, err)
}

func TestCheckToken(t *testing.T) {
	err := checkToken(config.Config{})
	require.Error(t, err, "no hash and no opt-out must refuse to serve")
	assert.Contains(t, err.Error(), "--insecure-no-token")

	assert.NoError(t, checkToken(config.Config{InsecureNoToken: true}))

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, checkToken(config.Config{WebhookTokenHash: string(hash)}))
	assert.Error(t, checkToken(config.Config{WebhookTokenHash: "s3cret"}), "plain token instead of a hash")
}
