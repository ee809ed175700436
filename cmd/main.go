package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/momentumhq/momentum-backend/internal/bandit"
	"github.com/momentumhq/momentum-backend/internal/clients/openai"
	redisclient "github.com/momentumhq/momentum-backend/internal/clients/redis"
	"github.com/momentumhq/momentum-backend/internal/db"
	"github.com/momentumhq/momentum-backend/internal/handlers"
	"github.com/momentumhq/momentum-backend/internal/logger"
	"github.com/momentumhq/momentum-backend/internal/middleware"
	"github.com/momentumhq/momentum-backend/internal/repos"
	"github.com/momentumhq/momentum-backend/internal/server"
	"github.com/momentumhq/momentum-backend/internal/services"
	"github.com/momentumhq/momentum-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	armCatalogPath := utils.GetEnv("ARM_CATALOG_PATH", "", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	seasonRepo := repos.NewSeasonRepo(thePG, log)
	seasonLockRepo := repos.NewSeasonLockRepo(thePG, log)
	missionRepo := repos.NewMissionRepo(thePG, log)
	banditStateRepo := repos.NewBanditStateRepo(thePG, log)
	userScoreRepo := repos.NewUserScoreRepo(thePG, log)
	userEventRepo := repos.NewUserEventRepo(thePG, log)

	// Arm catalog
	catalog := bandit.DefaultCatalog()
	if armCatalogPath != "" {
		catalog, err = bandit.LoadCatalog(armCatalogPath)
		if err != nil {
			log.Error("Could not load arm catalog", "path", armCatalogPath, "error", err)
			os.Exit(1)
		}
	}
	sampler := bandit.NewSampler(rand.NewSource(time.Now().UnixNano()))
	brain := bandit.NewBrain(catalog, sampler, log)

	// Clients
	log.Info("Setting up clients from main...")
	var seasonCache redisclient.SeasonCache
	if cache, cerr := redisclient.NewSeasonCache(log); cerr != nil {
		log.Warn("Season cache unavailable, continuing without it", "error", cerr)
	} else {
		seasonCache = cache
	}
	openaiClient, cerr := openai.NewClient(log)
	if cerr != nil {
		log.Warn("OpenAI client unavailable, season and mission text will use defaults", "error", cerr)
	}

	// Services
	log.Info("Setting up Services from main...")
	textGenService := services.NewTextGenService(openaiClient, log)
	scoringService := services.NewScoringService(thePG, log, userScoreRepo)
	seasonService := services.NewSeasonService(thePG, log, seasonRepo, seasonLockRepo, userEventRepo, scoringService, textGenService, seasonCache)
	missionService := services.NewMissionService(thePG, log, seasonService, textGenService, brain, catalog, banditStateRepo, missionRepo)
	scoreEvalService := services.NewScoreEvalService(thePG, log, userScoreRepo, missionService)
	scoreEvalService.StartWorker(context.Background())

	// Handlers
	log.Info("Setting up handlers from main...")
	missionHandler := handlers.NewMissionHandler(log, missionService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, jwtSecretKey)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware: authMiddleware,
		MissionHandler: missionHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	log.Info("Server listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
}
