// handlers/replay_routes.go
package handlers

import (
	"encoding/json"

	"habit-league-system/middleware"
	"habit-league-system/models"
	"habit-league-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupReplayRoutes(app *fiber.App,
	replay *services.ReplayService,
	entitlements *services.EntitlementService,
) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	// Enqueue an action recorded while the client was offline. The payload
	// is kind-specific and stored verbatim until replay.
	secured.Post("/queue/enqueue", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Kind     string          `json:"kind"`
			ActionID string          `json:"action_id"`
			Payload  json.RawMessage `json:"payload"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}

		queued, err := replay.EnqueueAction(userID, models.ActionKind(req.Kind), req.ActionID, req.Payload)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(fiber.Map{"queued": queued})
	})

	secured.Post("/queue/replay", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		report, err := replay.ProcessQueuedActions(userID)
		if err != nil {
			// Partial progress is still reported alongside the error.
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":  err.Error(),
				"report": report,
			})
		}
		return c.JSON(report)
	})

	// Purchase webhook called by the store gateway after payment settles.
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	admin.Post("/entitlements/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID        string `json:"user_id"`
			ProductID     string `json:"product_id"`
			TransactionID string `json:"transaction_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}

		result, err := entitlements.GrantEntitlements(req.UserID, req.ProductID, req.TransactionID)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(result)
	})
}
