package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"litledger/internal/domain"
	"litledger/internal/report"
	"litledger/internal/services"
	"litledger/internal/validate"
)

type ReportHandler struct {
	Access    *services.AccessService
	Analytics *services.AnalyticsService
	Render    *report.Renderer
	PageSize  int
}

func (h *ReportHandler) Stock(c *fiber.Ctx) error {
	rep, err := h.Analytics.StockReport(c.UserContext())
	if err != nil {
		return apiError(c, err)
	}
	return respond(c, rep, func() (string, error) { return h.Render.Stock(rep) })
}

func (h *ReportHandler) Low(c *fiber.Ctx) error {
	items, err := h.Analytics.LowStock(c.UserContext())
	if err != nil {
		return apiError(c, err)
	}
	if items == nil {
		items = []domain.Item{}
	}
	return respond(c, fiber.Map{"items": items}, func() (string, error) { return h.Render.Low(items) })
}

func (h *ReportHandler) Prices(c *fiber.Ctx) error {
	per := h.PageSize
	if raw := c.Query("per_page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "per_page must be 1-100"})
		}
		per = n
	}
	pl, err := h.Analytics.PriceList(c.UserContext(), validate.Page(c.Query("page")), per)
	if err != nil {
		return apiError(c, err)
	}
	return respond(c, pl, func() (string, error) { return h.Render.Prices(pl) })
}

func (h *ReportHandler) Inventory(c *fiber.Ctx) error {
	rep, err := h.Analytics.InventoryReport(c.UserContext())
	if err != nil {
		return apiError(c, err)
	}
	return respond(c, rep, func() (string, error) { return h.Render.Inventory(rep) })
}

func (h *ReportHandler) Profit(c *fiber.Ctx) error {
	rep, err := h.Analytics.Profit(c.UserContext())
	if err != nil {
		return apiError(c, err)
	}
	return respond(c, rep, func() (string, error) { return h.Render.Profit(rep) })
}

// Demand compares ?current= (live when absent) with ?previous= (the month
// before current when absent).
func (h *ReportHandler) Demand(c *fiber.Ctx) error {
	cur := domain.Live(h.Analytics.CurrentPeriod())
	if raw := c.Query("current"); raw != "" {
		p, err := domain.ParsePeriod(raw)
		if err != nil {
			return apiError(c, err)
		}
		cur = domain.Archived(p)
	}
	prev := domain.Archived(cur.Period.Prev())
	if raw := c.Query("previous"); raw != "" {
		p, err := domain.ParsePeriod(raw)
		if err != nil {
			return apiError(c, err)
		}
		prev = domain.Archived(p)
	}

	rep, err := h.Analytics.DemandComparison(c.UserContext(), cur, prev)
	if err != nil {
		return apiError(c, err)
	}
	rows := rep.Rows
	if rows == nil {
		rows = []domain.DemandRow{}
	}
	data := fiber.Map{
		"current":  cur.String(),
		"live":     cur.Live,
		"previous": prev.String(),
		"rows":     rows,
	}
	return respond(c, data, func() (string, error) { return h.Render.Demand(rep) })
}

// Actors lists everyone holding a role.
func (h *ReportHandler) Actors(c *fiber.Ctx) error {
	actors, err := h.Access.ListActors(c.UserContext())
	if err != nil {
		return apiError(c, err)
	}
	if actors == nil {
		actors = []domain.Actor{}
	}
	return c.JSON(fiber.Map{"actors": actors})
}
