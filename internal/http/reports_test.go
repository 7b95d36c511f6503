package handlers_test

import (
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestReportsRoleGate(t *testing.T) {
	a := newTestApp(t, "")
	a.seedGuide(t)

	cases := []struct {
		path  string
		actor int64
		want  int
	}{
		{"/api/v1/reports/stock", 0, fiber.StatusUnauthorized},
		{"/api/v1/reports/stock", strangerID, fiber.StatusForbidden},
		{"/api/v1/reports/stock", leaderID, fiber.StatusOK},
		{"/api/v1/reports/low", leaderID, fiber.StatusOK},
		{"/api/v1/reports/prices", leaderID, fiber.StatusOK},
		{"/api/v1/reports/profit", leaderID, fiber.StatusForbidden},
		{"/api/v1/reports/inventory", leaderID, fiber.StatusForbidden},
		{"/api/v1/reports/inventory", adminID, fiber.StatusOK},
		{"/api/v1/reports/profit", adminID, fiber.StatusOK},
		{"/api/v1/reports/demand", adminID, fiber.StatusOK},
	}
	for _, c := range cases {
		var headers map[string]string
		if c.actor != 0 {
			headers = actor(c.actor)
		}
		code, body := a.do(t, "GET", c.path, nil, headers)
		if code != c.want {
			t.Fatalf("%s as %d: expected %d, got %d body=%s", c.path, c.actor, c.want, code, body)
		}
	}
}

func TestDeniedReportIsLogged(t *testing.T) {
	a := newTestApp(t, "")
	entries := captureLogs(t, func() {
		a.do(t, "GET", "/api/v1/reports/profit", nil, actor(leaderID))
	})
	if !hasAction(entries, "access.denied") {
		t.Fatalf("expected access.denied log, got %+v", entries)
	}
}

func TestStockReportFormats(t *testing.T) {
	a := newTestApp(t, "")
	a.seedGuide(t)

	code, body := a.do(t, "GET", "/api/v1/reports/stock", nil, actor(leaderID))
	if code != fiber.StatusOK || !strings.Contains(body, `"name":"Guide"`) || !strings.Contains(body, `"stock":20`) {
		t.Fatalf("json stock: %d %s", code, body)
	}

	code, body = a.do(t, "GET", "/api/v1/reports/stock?format=text", nil, actor(leaderID))
	if code != fiber.StatusOK || !strings.Contains(body, "<b>Guide</b>: 20 pcs (min 5)") {
		t.Fatalf("text stock: %d %s", code, body)
	}
}

func TestPricesPaging(t *testing.T) {
	a := newTestApp(t, "")
	a.seedGuide(t)

	code, body := a.do(t, "GET", "/api/v1/reports/prices?page=9&per_page=1", nil, actor(leaderID))
	if code != fiber.StatusOK || !strings.Contains(body, `"page":1`) || !strings.Contains(body, `"pages":1`) {
		t.Fatalf("prices: %d %s", code, body)
	}
	code, _ = a.do(t, "GET", "/api/v1/reports/prices?per_page=0", nil, actor(leaderID))
	if code != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for per_page=0, got %d", code)
	}
}

func TestDemandReport(t *testing.T) {
	a := newTestApp(t, "")
	a.seedGuide(t)
	if _, err := a.deps.Ledger.Sell(t.Context(), "Guide", 3); err != nil {
		t.Fatal(err)
	}

	code, body := a.do(t, "GET", "/api/v1/reports/demand", nil, actor(adminID))
	if code != fiber.StatusOK || !strings.Contains(body, `"live":true`) || !strings.Contains(body, `"delta_sold":3`) {
		t.Fatalf("demand: %d %s", code, body)
	}

	code, _ = a.do(t, "GET", "/api/v1/reports/demand?current=2024-13", nil, actor(adminID))
	if code != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for bad period, got %d", code)
	}

	code, body = a.do(t, "GET", "/api/v1/reports/demand?current=2024-02&previous=2024-01", nil, actor(adminID))
	if code != fiber.StatusOK || !strings.Contains(body, `"rows":[]`) {
		t.Fatalf("empty archived demand: %d %s", code, body)
	}
}

func TestActorsListAdminOnly(t *testing.T) {
	a := newTestApp(t, "")

	code, _ := a.do(t, "GET", "/api/v1/actors", nil, actor(leaderID))
	if code != fiber.StatusForbidden {
		t.Fatalf("leader: expected 403, got %d", code)
	}
	code, body := a.do(t, "GET", "/api/v1/actors", nil, actor(adminID))
	if code != fiber.StatusOK || !strings.Contains(body, `"display_name":"Leon"`) || !strings.Contains(body, `"role":"admin"`) {
		t.Fatalf("actors: %d %s", code, body)
	}
}
