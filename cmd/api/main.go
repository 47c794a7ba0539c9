package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/flagforge/play-api/internal/buffer"
	"github.com/flagforge/play-api/internal/cache"
	"github.com/flagforge/play-api/internal/config"
	"github.com/flagforge/play-api/internal/database"
	"github.com/flagforge/play-api/internal/events"
	"github.com/flagforge/play-api/internal/guard"
	"github.com/flagforge/play-api/internal/handler"
	"github.com/flagforge/play-api/internal/middleware"
	"github.com/flagforge/play-api/internal/models"
	"github.com/flagforge/play-api/internal/repository"
	"github.com/flagforge/play-api/internal/router"
	"github.com/flagforge/play-api/internal/service"
	"github.com/flagforge/play-api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Challenge{},
		&models.Hint{},
		&models.Participant{},
		&models.Submission{},
		&models.Solve{},
		&models.HintUsage{},
		&models.PointsActivity{},
		&models.Configuration{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, js, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	defer natsConn.Close()

	if err := events.EnsureStream(js); err != nil {
		log.Fatalf("failed to provision event stream: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	cacheLayer := cache.New(redisClient, logger)
	pairState := cache.NewPairStateStore(redisClient, cfg.PairStateTTL, cfg.RecentWindow, logger)
	guards := guard.NewRegistry()
	buffers := buffer.NewStore()
	publisher := events.NewNATSPublisher(js, logger)
	stream := events.NewNATSStream(js)

	challengeRepo := repository.NewChallengeRepository(db)
	participantRepo := repository.NewParticipantRepository(db)
	solveRepo := repository.NewSolveRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	hintRepo := repository.NewHintRepository(db)
	activityRepo := repository.NewPointsActivityRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	configurationRepo := repository.NewConfigurationRepository(db)
	playDataRepo := repository.NewPlayDataRepository(db)

	playConfigService := service.NewPlayConfigService(configurationRepo, cacheLayer, cfg.ConfigurationCacheTTL, logger)
	submissionService := service.NewSubmissionService(service.SubmissionServiceDeps{
		Challenges:   challengeRepo,
		Participants: participantRepo,
		Solves:       solveRepo,
		Submissions:  submissionRepo,
		Config:       playConfigService,
		PairState:    pairState,
		Guards:       guards,
		Publisher:    publisher,
		Cache:        cacheLayer,
		Logger:       logger,
		GuardWait:    cfg.GuardWait,
		RecentLimit:  cfg.RecentLimit,
		ChallengeTTL: cfg.ChallengeCacheTTL,
	})
	hintService := service.NewHintService(hintRepo, solveRepo, playConfigService, buffers, guards, cacheLayer, pairState, cfg.GuardWait, logger)
	leaderboardService := service.NewLeaderboardService(participantRepo, playDataRepo, playConfigService, cacheLayer, cfg.LeaderboardCacheTTL, logger)

	leaderboardWorker := worker.NewLeaderboardWorker(leaderboardService, cfg.LeaderboardFloor, logger)
	ingestWorker := worker.NewIngestWorker(stream, buffers, solveRepo, scoreRepo, leaderboardWorker, cfg.BatchMaxSize, cfg.BatchMaxWait, logger)
	flushWorker := worker.NewFlushWorker(buffers, submissionRepo, solveRepo, hintRepo, activityRepo, cacheLayer, leaderboardWorker, cfg.FlushInterval, logger)

	playDataService := service.NewPlayDataService(participantRepo, playDataRepo, cacheLayer, leaderboardWorker, logger)

	submissionHandler := handler.NewSubmissionHandler(submissionService, validate, logger)
	hintHandler := handler.NewHintHandler(hintService, logger)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboardService, logger)
	playConfigHandler := handler.NewPlayConfigHandler(playConfigService, leaderboardService, playDataService, validate, logger)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	go leaderboardWorker.Run(workerCtx)
	go flushWorker.Run(workerCtx)
	go func() {
		if err := ingestWorker.Run(workerCtx); err != nil {
			logger.Error().Err(err).Msg("ingest worker exited")
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler:  submissionHandler,
		HintHandler:        hintHandler,
		LeaderboardHandler: leaderboardHandler,
		PlayConfigHandler:  playConfigHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, stopWorkers, flushWorker)
}

// waitForShutdown stops the HTTP server first, then the workers, so the final
// flush can drain whatever the last requests buffered.
func waitForShutdown(app *fiber.App, stopWorkers context.CancelFunc, flush *worker.FlushWorker) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	stopWorkers()
	flush.Flush(context.Background())

	log.Println("server stopped")
}
