package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"litledger/internal/chat"
	"litledger/internal/config"
	"litledger/internal/domain"
	"litledger/internal/http/handlers"
	applog "litledger/internal/log"
	"litledger/internal/repos"
)

const (
	adminID    = 1
	leaderID   = 2
	strangerID = 3
)

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Err    string         `json:"err"`
	Status int            `json:"status"`
	Fields map[string]any `json:"fields"`
}

type lockedBuf struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (l *lockedBuf) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	buf := &lockedBuf{}
	applog.SetOutput(buf)
	defer applog.SetOutput(os.Stdout)

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.b.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func hasAction(entries []logEntry, action string) bool {
	for _, e := range entries {
		if e.Action == action {
			return true
		}
	}
	return false
}

type testApp struct {
	app  *fiber.App
	deps *handlers.Deps
	db   *sqlx.DB
}

// newTestApp builds the app; an empty tokenHash runs it with the token
// check explicitly switched off.
func newTestApp(t *testing.T, tokenHash string) *testApp {
	t.Helper()
	return newTestAppWith(t, func(cfg *config.Config) {
		cfg.WebhookTokenHash = tokenHash
		cfg.InsecureNoToken = tokenHash == ""
	})
}

func newTestAppWith(t *testing.T, configure func(*config.Config)) *testApp {
	t.Helper()
	cfg := config.Config{
		DBDriver:        repos.DialectSQLite,
		DBDSN:           ":memory:",
		Currency:        "zł",
		ConversationTTL: time.Hour,
		PricePageSize:   20,
	}
	configure(&cfg)
	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	deps, err := handlers.NewDeps(db, cfg, nil)
	if err != nil {
		t.Fatalf("deps: %v", err)
	}
	ctx := context.Background()
	if err := deps.Access.AssignRole(ctx, adminID, domain.RoleAdmin, "Anna"); err != nil {
		t.Fatal(err)
	}
	if err := deps.Access.AssignRole(ctx, leaderID, domain.RoleLeader, "Leon"); err != nil {
		t.Fatal(err)
	}
	return &testApp{app: handlers.NewApp(deps), deps: deps, db: db}
}

// seedGuide creates "Guide" (price 30, cost 10, min 5) with 20 in stock.
func (a *testApp) seedGuide(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	guide := domain.NewItem{Name: "Guide", Category: "books", Price: decimal.NewFromInt(30), Cost: decimal.NewFromInt(10), MinStock: 5}
	if _, err := a.deps.Ledger.CreateItem(ctx, guide); err != nil {
		t.Fatal(err)
	}
	if _, err := a.deps.Ledger.RecordArrival(ctx, "Guide", 20); err != nil {
		t.Fatal(err)
	}
}

func (a *testApp) do(t *testing.T, method, path string, body io.Reader, headers map[string]string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := a.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func (a *testApp) update(t *testing.T, act chat.Action, headers map[string]string) (int, chat.Response) {
	t.Helper()
	raw, _ := json.Marshal(act)
	code, body := a.do(t, "POST", "/api/v1/updates", bytes.NewReader(raw), headers)
	var out chat.Response
	if code == fiber.StatusOK {
		if err := json.Unmarshal([]byte(body), &out); err != nil {
			t.Fatalf("decode response: %v body=%s", err, body)
		}
	}
	return code, out
}

func actor(id int64) map[string]string {
	return map[string]string{handlers.HeaderActor: strconv.FormatInt(id, 10)}
}
