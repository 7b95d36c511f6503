package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litledger/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "DB_DSN", "CURRENCY", "CONVERSATION_TTL", "PRICE_PAGE_SIZE"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "zł", cfg.Currency)
	assert.Equal(t, time.Hour, cfg.ConversationTTL)
	assert.Equal(t, 20, cfg.PricePageSize)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CURRENCY", "EUR")
	t.Setenv("CONVERSATION_TTL", "15m")
	t.Setenv("DB_DRIVER", "postgres")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, 15*time.Minute, cfg.ConversationTTL)
	assert.Equal(t, "postgres", cfg.DBDriver)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("CONVERSATION_TTL", "soon")

	_, err := config.Load()
	assert.Error(t, err)
}
