package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"habit-league-system/config"
	"habit-league-system/handlers"
	"habit-league-system/middleware"
	"habit-league-system/models"
	"habit-league-system/services"
	"habit-league-system/store"
	"habit-league-system/utils"
	"habit-league-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment variables directly")
	}

	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer utils.Logger.Sync()

	if cfg.DatabaseURL == "" {
		utils.Logger.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		utils.Logger.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&models.UserProgression{},
		&models.LedgerEntry{},
		&models.Booster{},
		&models.LeagueSnapshot{},
		&models.QueuedAction{},
		&models.SocialActivity{},
	); err != nil {
		utils.Logger.Fatal("failed to migrate database", zap.Error(err))
	}

	st := store.NewGormStore(db)

	progressionService := services.NewProgressionService(st, utils.Logger)
	streakService := services.NewStreakService(st, utils.Logger)
	boosterService := services.NewBoosterService(st, utils.Logger)
	entitlementService := services.NewEntitlementService(st, utils.Logger)
	replayService := services.NewReplayService(st, utils.Logger, progressionService, streakService, boosterService)
	leagueService := services.NewLeagueService(st, utils.Logger)
	leagueService.CacheReset = func() {
		utils.InvalidateByPrefix(utils.LeaderboardCachePrefix)
	}

	archive, err := utils.NewSnapshotArchive(cfg)
	if err != nil {
		utils.Logger.Fatal("failed to initialize snapshot archive", zap.Error(err))
	}
	if archive != nil {
		leagueService.Archiver = archive
	}

	scheduler, err := leagueService.StartWeeklyScheduler(cfg.LeagueCron)
	if err != nil {
		utils.Logger.Fatal("failed to start league scheduler", zap.Error(err))
	}
	defer func() { _ = scheduler.Shutdown() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	replayWorker := workers.NewReplayWorker(st, replayService, utils.Logger, cfg.ReplayInterval, cfg.ReplayMinAge)
	go replayWorker.Run(ctx)

	if cfg.ProfileServiceURL != "" {
		profileWorker := workers.NewProfileSyncWorker(st, progressionService, utils.Logger,
			cfg.ProfileServiceURL, cfg.ServiceToken, cfg.ProfileSyncInterval)
		go profileWorker.Run(ctx)
	}

	app := fiber.New(fiber.Config{
		AppName: "habit-league-system",
	})

	app.Use(middleware.GatewayAuthMiddleware(cfg.ServiceToken))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Name, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupProgressionRoutes(app, progressionService, streakService, boosterService)
	handlers.SetupLeagueRoutes(app, leagueService)
	handlers.SetupReplayRoutes(app, replayService, entitlementService)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	go func() {
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			utils.Logger.Error("server error", zap.Error(err))
		}
	}()

	utils.Logger.Info("server running",
		zap.String("port", cfg.AppPort),
		zap.String("league_cron", cfg.LeagueCron))

	<-ctx.Done()
	utils.Logger.Info("shutting down server")
	if err := app.Shutdown(); err != nil {
		utils.Logger.Error("shutdown error", zap.Error(err))
	}
}
