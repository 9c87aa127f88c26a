package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"typingclash/internal/clock"
	"typingclash/internal/config"
	"typingclash/internal/database"
	"typingclash/internal/handlers"
	"typingclash/internal/leaderboard"
	"typingclash/internal/logger"
	"typingclash/internal/offline"
	"typingclash/internal/repository"
	"typingclash/internal/security"
	"typingclash/internal/service"
	"typingclash/internal/session"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()
	log.Info("database connection established", "type", cfg.DatabaseType)

	applied, err := db.RunMigrations(cfg.MigrationsPath)
	if err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}
	log.Info("migrations completed", "applied", len(applied))

	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 15*time.Second)
	if n, err := db.SeedBadWords(seedCtx, &http.Client{Timeout: 10 * time.Second}, database.BadWordsURL); err != nil {
		log.Warn("failed to seed bad words filter", "error", err)
	} else if n > 0 {
		log.Info("bad words filter seeded", "words", n)
	}
	cancelSeed()

	clk := clock.System{}
	queue := offline.NewQueue()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	exerciseRepo := repository.NewExerciseRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	pointsRepo := repository.NewPointsRepository(db)
	giftRepo := repository.NewGiftRepository(db)
	relationRepo := repository.NewRelationRepository(db)
	gameRepo := repository.NewGameRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	// Weekly leaderboard: Redis when configured, the ledger otherwise
	dbBoard := leaderboard.NewDBBoard(pointsRepo)
	var board leaderboard.Board = dbBoard
	if cfg.RedisAddr != "" {
		redisCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		redisBoard, err := leaderboard.NewRedisBoard(redisCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cancel()
		if err != nil {
			log.Warn("redis unavailable, ranking from the database", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer redisBoard.Close()
			board = redisBoard
			log.Info("redis leaderboard enabled", "addr", cfg.RedisAddr)
		}
	}

	emailService, err := service.NewEmailService(context.Background(), log, cfg.AWSRegion, cfg.EmailFrom,
		cfg.EmailFromName, cfg.AppBaseURL, cfg.EmailDebug)
	if err != nil {
		log.Warn("email disabled", "error", err)
		emailService = nil
	}

	jwtSecret, csrfSecret := cfg.JWTSecret, cfg.CSRFSecret
	if jwtSecret == "" {
		jwtSecret = security.GenerateSessionID()
		log.Warn("JWT_SECRET not set, using a random secret; tokens will not survive restarts")
	}
	if csrfSecret == "" {
		csrfSecret = security.GenerateSessionID()
		log.Warn("CSRF_SECRET not set, using a random secret")
	}
	tokens := security.NewTokenIssuer(jwtSecret, cfg.JWTTTL)
	csrf := security.NewCSRFGenerator(csrfSecret, cfg.CSRFPreviousSecret)
	limiter := security.NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	defer limiter.Stop()

	// Services
	authService := service.NewAuthService(userRepo, settingsRepo, tokens, db, emailService, clk,
		service.AuthConfig{SessionDuration: cfg.SessionDuration, SignupClosed: cfg.SignupClosed}, log)
	practiceService := service.NewPracticeService(progressRepo, exerciseRepo, achievementRepo, pointsRepo, board, queue, clk,
		service.PracticeConfig{Session: session.Config{DailyDuration: cfg.DailyPractice, RestInterval: cfg.RestInterval}}, log)
	gameService := service.NewGameService(gameRepo, relationRepo, practiceService, queue, clk, cfg.DailyGameLimit, log)
	parentService := service.NewParentService(userRepo, relationRepo, progressRepo, exerciseRepo, gameRepo, log)
	giftService := service.NewGiftService(giftRepo, relationRepo, progressRepo, emailService, clk, log)
	pointsService := service.NewPointsService(pointsRepo, progressRepo, relationRepo, clk, log)
	profileService := service.NewProfileService(userRepo, db, log)
	syncService := service.NewSyncService(practiceService, progressRepo, queue, log)
	legacyService := service.NewLegacyImportService(userRepo, progressRepo, exerciseRepo, achievementRepo, pointsRepo,
		settingsRepo, practiceService, clk, log)
	leaderboardService := service.NewLeaderboardService(board, dbBoard, clk, log)

	oauthProviders := map[string]handlers.OAuthProvider{
		"google": {
			Name:  "google",
			Label: "Google",
			Config: &oauth2.Config{
				ClientID:     cfg.GoogleClientID,
				ClientSecret: cfg.GoogleClientSecret,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		},
	}

	// Handlers
	middleware := handlers.NewMiddleware(authService, csrf, limiter, log)
	router := handlers.NewRouter(middleware, handlers.Handlers{
		Auth: handlers.NewAuthHandler(authService, profileService, practiceService, csrf, oauthProviders,
			cfg.OAuthRedirectBaseURL, cfg.AppBaseURL, log),
		Practice: handlers.NewPracticeHandler(practiceService, log),
		Game:     handlers.NewGameHandler(gameService, log),
		Parent:   handlers.NewParentHandler(parentService, pointsService, log),
		Gift:     handlers.NewGiftHandler(giftService, log),
		Points:   handlers.NewPointsHandler(pointsService, leaderboardService, log),
		Sync:     handlers.NewSyncHandler(syncService, legacyService, log),
	})

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go cleanupExpiredSessions(ctx, authService, log)
	go flushOfflineQueue(ctx, syncService, cfg.FlushInterval, log)

	go func() {
		log.Info("server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	games := gameService.StopAll(shutdownCtx)
	released := practiceService.ReleaseAll(shutdownCtx)
	report := syncService.Flush(shutdownCtx)
	if report.Pending > 0 {
		log.Error("writes lost at shutdown", "pending", report.Pending, "errors", report.Errors)
	}
	log.Info("server stopped", "trackers_saved", released, "games_stopped", games)
}

// cleanupExpiredSessions periodically removes expired sessions
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService, log *logger.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := authService.CleanupExpiredSessions()
			if err != nil {
				log.Error("failed to clean up expired sessions", "error", err)
				continue
			}
			log.Debug("expired sessions cleaned up", "removed", n)
		}
	}
}

// flushOfflineQueue replays writes that failed while the store was down
func flushOfflineQueue(ctx context.Context, syncService *service.SyncService, interval time.Duration, log *logger.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := syncService.Flush(ctx)
			if !report.Success {
				log.Warn("offline queue replay incomplete", "pending", report.Pending, "errors", report.Errors)
			}
		}
	}
}
