// handlers/league_routes.go
package handlers

import (
	"fmt"
	"time"

	"habit-league-system/middleware"
	"habit-league-system/services"
	"habit-league-system/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupLeagueRoutes(app *fiber.App, league *services.LeagueService) {
	secured := app.Group("/s", middleware.UserContextMiddleware())

	secured.Get("/leaderboard", func(c *fiber.Ctx) error {
		tier := c.QueryInt("league", 0)
		timeframe := c.Query("timeframe", "weekly")
		limit := c.QueryInt("limit", 50)
		offset := c.QueryInt("offset", 0)

		cacheKey := fmt.Sprintf("%s%d:%s:%d:%d", utils.LeaderboardCachePrefix, tier, timeframe, limit, offset)
		if body, ok := utils.CacheGetBytes(cacheKey); ok {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(body)
		}

		entries, err := league.GetLeaderboard(tier, timeframe, limit, offset)
		if err != nil {
			return svcError(c, err)
		}

		payload := fiber.Map{
			"league":    tier,
			"timeframe": timeframe,
			"entries":   entries,
		}
		utils.CacheSetJSON(cacheKey, payload, 30*time.Second)
		return c.JSON(payload)
	})

	admin := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	admin.Post("/league/run", func(c *fiber.Ctx) error {
		// Cache invalidation rides on the service's CacheReset hook.
		summary, err := league.RunWeeklyLeagueUpdate()
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(summary)
	})

	admin.Get("/league/snapshot/:period", func(c *fiber.Ctx) error {
		snap, err := league.GetSnapshot(c.Params("period"))
		if err != nil {
			return svcError(c, err)
		}
		return c.JSON(snap)
	})
}
