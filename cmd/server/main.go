package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusmarket/campus-market-backend/internal/ai"
	"github.com/campusmarket/campus-market-backend/internal/config"
	"github.com/campusmarket/campus-market-backend/internal/db"
	"github.com/campusmarket/campus-market-backend/internal/http/handlers"
	"github.com/campusmarket/campus-market-backend/internal/http/router"
	"github.com/campusmarket/campus-market-backend/internal/logger"
	"github.com/campusmarket/campus-market-backend/internal/repository"
	"github.com/campusmarket/campus-market-backend/internal/service"
	"github.com/campusmarket/campus-market-backend/internal/storage"
	"github.com/campusmarket/campus-market-backend/internal/ws"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("info")
		logger.Log.Fatalf("конфигурация: %v", err)
	}

	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("подключение к postgres: %v", err)
	}
	defer safeClose(dbConn.Close)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		logger.Log.Fatalf("миграции: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	photoStorage, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		logger.Log.Fatalf("хранилище фотографий: %v", err)
	}

	// Репозитории
	userRepo := repository.NewUserRepository(dbConn)
	listingRepo := repository.NewListingRepository(dbConn)
	bidRepo := repository.NewBidRepository(dbConn)
	conversationRepo := repository.NewConversationRepository(dbConn)
	reviewRepo := repository.NewReviewRepository(dbConn)
	mediaRepo := repository.NewMediaRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	favoriteRepo := repository.NewFavoriteRepository(dbConn)
	reportRepo := repository.NewReportRepository(dbConn)
	servicePostRepo := repository.NewServicePostRepository(dbConn)

	cache := service.NewCacheService(cfg.CacheMaxEntries, cfg.CacheDefaultTTL)

	hub := ws.NewHub()
	go hub.Run(ctx)

	// Сервисы
	authService := service.NewAuthService(userRepo, tokenManager, cfg.UniversityDomain)
	notificationService := service.NewNotificationService(notificationRepo, conversationRepo, hub)
	bidService := service.NewBidService(bidRepo, listingRepo, notificationService, cache)
	listingService := service.NewListingService(listingRepo, bidRepo, userRepo, notificationService, cache, cfg.CacheDetailTTL)
	conversationService := service.NewConversationService(conversationRepo, listingRepo, servicePostRepo, hub)
	reviewService := service.NewReviewService(reviewRepo, listingRepo, bidRepo, cache)
	userService := service.NewUserService(userRepo, cache)
	favoriteService := service.NewFavoriteService(favoriteRepo, listingRepo, cache)
	reportService := service.NewReportService(reportRepo, listingRepo, userRepo)
	servicePostService := service.NewServicePostService(servicePostRepo, cache, cfg.CacheDetailTTL)

	// Два AI клиента: оценка стоимости и чат-помощник могут ходить
	// к разным провайдерам.
	priceEstimator := ai.NewClient(cfg.AIBaseURL, cfg.AIModel)
	assistant := ai.NewClient(cfg.AIAssistantBaseURL, cfg.AIAssistantModel)

	// Хэндлеры
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	listingHandler := handlers.NewListingHandler(listingService, authService)
	bidHandler := handlers.NewBidHandler(bidService, listingService)
	servicePostHandler := handlers.NewServicePostHandler(servicePostService)
	conversationHandler := handlers.NewConversationHandler(conversationService, userService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	favoriteHandler := handlers.NewFavoriteHandler(favoriteService)
	reportHandler := handlers.NewReportHandler(reportService)
	moderationHandler := handlers.NewModerationHandler(listingService, reportService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	mediaHandler := handlers.NewMediaHandler(mediaRepo, photoStorage)
	aiHandler := handlers.NewAIHandler(priceEstimator, assistant)
	wsHandler := handlers.NewWSHandler(hub, tokenManager)
	healthHandler := handlers.NewHealthHandler(dbConn, cache)

	var seedHandler *handlers.SeedHandler
	if cfg.Env == "development" {
		seedService := service.NewSeedService(userRepo, listingRepo, bidRepo, cfg.UniversityDomain)
		seedHandler = handlers.NewSeedHandler(seedService)
	}

	engine := router.SetupRouter(
		cfg,
		authHandler,
		userHandler,
		listingHandler,
		bidHandler,
		servicePostHandler,
		conversationHandler,
		reviewHandler,
		favoriteHandler,
		reportHandler,
		moderationHandler,
		notificationHandler,
		mediaHandler,
		aiHandler,
		wsHandler,
		healthHandler,
		seedHandler,
		tokenManager,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Log.Info("Получен сигнал завершения, останавливаем сервер...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorf("Ошибка при остановке сервера: %v", err)
		}
	}()

	logger.Log.Infof("Сервер запущен на порту %s (env=%s)", cfg.HTTPPort, cfg.Env)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Errorf("Сервер завершился с ошибкой: %v", err)
		os.Exit(1)
	}

	logger.Log.Info("Сервер остановлен")
}

// safeClose закрывает ресурс и логирует ошибку вместо паники.
func safeClose(closeFn func() error) {
	if err := closeFn(); err != nil {
		logger.Log.Errorf("Ошибка при закрытии ресурса: %v", err)
	}
}
