package log_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "litledger/internal/log"
)

type entry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Audit  bool           `json:"audit"`
	Err    string         `json:"err"`
	Fields map[string]any `json:"fields"`
}

func capture(t *testing.T, fn func()) []entry {
	t.Helper()
	var buf bytes.Buffer
	applog.SetOutput(&buf)
	defer applog.SetOutput(os.Stdout)

	fn()

	var out []entry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e entry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		out = append(out, e)
	}
	return out
}

func TestHelpersWriteOneJSONLineEach(t *testing.T) {
	entries := capture(t, func() {
		applog.Info(nil, "ledger.item.created", map[string]any{"name": "Guide"})
		applog.Audit(nil, "access.role.assigned", map[string]any{"actor_id": 7})
		applog.Security(nil, "access.denied", nil)
		applog.Error(nil, "store.failure", errors.New("disk full"), nil)
	})

	require.Len(t, entries, 4)
	assert.Equal(t, "info", entries[0].Level)
	assert.Equal(t, "ledger.item.created", entries[0].Action)
	assert.Equal(t, "Guide", entries[0].Fields["name"])
	assert.True(t, entries[1].Audit)
	assert.Equal(t, "warning", entries[2].Level)
	assert.Equal(t, "error", entries[3].Level)
	assert.Equal(t, "disk full", entries[3].Err)
}

func TestSetLevelFiltersDebug(t *testing.T) {
	require.NoError(t, applog.SetLevel("info"))
	entries := capture(t, func() {
		applog.Debug(nil, "conversation.step", nil)
		applog.Info(nil, "conversation.done", nil)
	})
	require.Len(t, entries, 1)
	assert.Equal(t, "conversation.done", entries[0].Action)

	assert.Error(t, applog.SetLevel("loud"))
}
