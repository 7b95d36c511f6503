package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"

	"litledger/internal/domain"
	applog "litledger/internal/log"
)

const updatesPath = "/api/v1/updates"

func rateLimited(c *fiber.Ctx) error {
	applog.Security(c, "rate.limit.hit", nil)
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
}

// updateActorKey buckets chat updates by the acting user, falling back to
// the client IP when the body carries no actor.
func updateActorKey(c *fiber.Ctx) string {
	var a struct {
		ActorID int64 `json:"actor_id"`
	}
	if err := c.App().Config().JSONDecoder(c.Body(), &a); err != nil || a.ActorID <= 0 {
		return "ip:" + c.IP()
	}
	return "actor:" + strconv.FormatInt(a.ActorID, 10)
}

// NewApp builds the HTTP surface: the chat update endpoint, read-only
// reports, and a health check.
func NewApp(d *Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "litledger",
		BodyLimit:    1 << 20,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			}
			if code >= fiber.StatusInternalServerError {
				applog.Error(c, "server.error", err, nil)
				return c.Status(code).JSON(fiber.Map{"error": "Something went wrong. Please try again."})
			}
			return c.Status(code).JSON(fiber.Map{"error": utils.StatusMessage(code)})
		},
	})

	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{Output: applog.Writer()}))
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			// updates arrive through one relay; they are limited per actor below
			return c.Path() == "/healthz" || c.Path() == updatesPath
		},
		LimitReached: rateLimited,
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true, "sessions": d.Sessions.Active()})
	})

	api := app.Group("/api/v1", RequireToken(d.TokenHash, d.NoToken))
	api.Post("/updates", limiter.New(limiter.Config{
		Max:          60,
		Expiration:   time.Minute,
		KeyGenerator: updateActorKey,
		LimitReached: rateLimited,
	}), d.UpdateHandler.Handle)

	reports := api.Group("/reports")
	leader := RequireRole(d.Access, domain.RoleLeader)
	admin := RequireRole(d.Access, domain.RoleAdmin)
	reports.Get("/stock", leader, d.ReportHandler.Stock)
	reports.Get("/low", leader, d.ReportHandler.Low)
	reports.Get("/prices", leader, d.ReportHandler.Prices)
	reports.Get("/inventory", admin, d.ReportHandler.Inventory)
	reports.Get("/profit", admin, d.ReportHandler.Profit)
	reports.Get("/demand", admin, d.ReportHandler.Demand)
	api.Get("/actors", admin, d.ReportHandler.Actors)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})
	return app
}
