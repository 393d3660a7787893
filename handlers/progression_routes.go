// handlers/progression_routes.go
package handlers

import (
	"errors"

	"habit-league-system/middleware"
	"habit-league-system/models"
	"habit-league-system/services"

	"github.com/gofiber/fiber/v2"
)

// svcStatus maps service taxonomy errors onto HTTP statuses.
func svcStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidArgument):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrInsufficientResource):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func svcError(c *fiber.Ctx, err error) error {
	return c.Status(svcStatus(err)).JSON(fiber.Map{"error": err.Error()})
}

func SetupProgressionRoutes(app *fiber.App,
	progression *services.ProgressionService,
	streak *services.StreakService,
	booster *services.BoosterService,
) {
	// Secured routes require user context forwarded by the gateway.
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Post("/xp/award", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Amount   int64  `json:"amount"`
			Source   string `json:"source"`
			ActionID string `json:"action_id"`
			Metadata string `json:"metadata"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}

		result, err := progression.AwardXP(userID, req.Amount, req.Source, req.ActionID, req.Metadata)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(result)
	})

	secured.Post("/activity/daily", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		result, err := streak.RecordDailyActivity(userID)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(result)
	})

	secured.Post("/grace-pass/redeem", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			ActionID string `json:"action_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}

		result, err := streak.RedeemGracePass(userID, req.ActionID)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(result)
	})

	secured.Post("/boosters", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			TargetUserID string `json:"target_user_id"` // empty = self purchase
			Type         string `json:"type"`
			ActionID     string `json:"action_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}
		target := req.TargetUserID
		if target == "" {
			target = userID
		}

		result, err := booster.PurchaseOrGiftBooster(userID, target, models.BoosterType(req.Type), req.ActionID)
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(result)
	})

	secured.Get("/user/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		user, err := progression.GetProgression(userID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				created, createErr := progression.EnsureProgressionRecord(userID, c.Get("X-User-Name"))
				if createErr != nil {
					return svcError(c, createErr)
				}
				user = created
			} else {
				return svcError(c, err)
			}
		}

		return c.JSON(fiber.Map{
			"id":                     user.ID,
			"xp":                     user.XP,
			"weekly_xp":              user.WeeklyXP,
			"lifetime_xp":            user.LifetimeXP,
			"level":                  user.Level,
			"gems":                   user.Gems,
			"streak":                 user.Streak,
			"best_streak":            user.BestStreak,
			"total_days_studied":     user.TotalDaysStudied,
			"grace_passes_available": user.GracePassesAvailable,
			"grace_passes_used":      user.GracePassesUsed,
			"league":                 user.League,
			"league_name":            models.LeagueName(user.League),
			"league_position":        user.LeaguePosition,
			"global_rank":            user.GlobalRank,
		})
	})

	// Admin endpoints
	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	admin.Post("/xp/grant", func(c *fiber.Ctx) error {
		var req struct {
			UserID   string `json:"user_id"`
			Amount   int64  `json:"amount"`
			Reason   string `json:"reason"`
			ActionID string `json:"action_id"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON", "cause": err.Error(),
			})
		}

		result, err := progression.AwardXP(req.UserID, req.Amount, req.Reason, req.ActionID, "")
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(result)
	})
}
