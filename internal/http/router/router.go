package router

import (
	"github.com/gin-gonic/gin"

	"github.com/campusmarket/campus-market-backend/internal/config"
	"github.com/campusmarket/campus-market-backend/internal/http/handlers"
	"github.com/campusmarket/campus-market-backend/internal/http/middleware"
	"github.com/campusmarket/campus-market-backend/internal/service"
)

// SetupRouter собирает все маршруты приложения.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	listingHandler *handlers.ListingHandler,
	bidHandler *handlers.BidHandler,
	servicePostHandler *handlers.ServicePostHandler,
	conversationHandler *handlers.ConversationHandler,
	reviewHandler *handlers.ReviewHandler,
	favoriteHandler *handlers.FavoriteHandler,
	reportHandler *handlers.ReportHandler,
	moderationHandler *handlers.ModerationHandler,
	notificationHandler *handlers.NotificationHandler,
	mediaHandler *handlers.MediaHandler,
	aiHandler *handlers.AIHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	seedHandler *handlers.SeedHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.GET("/health/cache", healthHandler.CacheStats)

	api := r.Group("/api")

	if seedHandler != nil && cfg.Env == "development" {
		api.POST("/seed", seedHandler.Seed)
	}

	// Регистрация и вход под отдельным rate limit.
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.GET("/me", authHandler.Me)
		protectedAuth.POST("/verify-email", authHandler.VerifyEmail)
		protectedAuth.POST("/verify-email/resend", authHandler.ResendVerificationCode)
		protectedAuth.GET("/sessions", authHandler.ListSessions)
		protectedAuth.DELETE("/sessions/:id", authHandler.DeleteSession)
		protectedAuth.DELETE("/sessions", authHandler.DeleteAllSessionsExcept)
	}

	// Публичные маршруты
	api.GET("/ws", wsHandler.Handle)
	api.GET("/media/:id", middleware.UUIDValidator("id"), mediaHandler.Serve)
	api.GET("/users/:id", middleware.UUIDValidator("id"), userHandler.PublicProfile)
	api.GET("/users/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.ListForUser)
	api.GET("/users/:id/rating", middleware.UUIDValidator("id"), reviewHandler.UserRating)
	api.GET("/listings/:id/reviews", middleware.UUIDValidator("id"), reviewHandler.ListForListing)
	api.GET("/services", servicePostHandler.Browse)
	api.GET("/services/:id", middleware.UUIDValidator("id"), servicePostHandler.Get)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		// Объявления. Выдача закрыта авторизацией: видимость зависит
		// от университета зрителя.
		protected.GET("/listings", listingHandler.Browse)
		protected.POST("/listings", listingHandler.Create)
		protected.GET("/listings/my", listingHandler.My)
		protected.GET("/listings/:id", middleware.UUIDValidator("id"), listingHandler.Get)
		protected.PUT("/listings/:id", middleware.UUIDValidator("id"), listingHandler.Update)
		protected.DELETE("/listings/:id", middleware.UUIDValidator("id"), listingHandler.Delete)
		protected.POST("/listings/:id/sold", middleware.UUIDValidator("id"), listingHandler.MarkSold)
		protected.POST("/listings/:id/photos", middleware.UUIDValidator("id"), listingHandler.AttachPhotos)
		protected.DELETE("/listings/:id/photos/:photoID", middleware.UUIDValidator("id"), middleware.UUIDValidator("photoID"), listingHandler.DetachPhoto)

		// Торги
		protected.POST("/listings/:id/bids", middleware.UUIDValidator("id"), bidHandler.Place)
		protected.GET("/listings/:id/bids", middleware.UUIDValidator("id"), bidHandler.ListForListing)
		protected.GET("/listings/:id/bids/highest", middleware.UUIDValidator("id"), bidHandler.Highest)
		protected.POST("/listings/:id/bids/:bidID/accept", middleware.UUIDValidator("id"), middleware.UUIDValidator("bidID"), bidHandler.Accept)
		protected.POST("/bids/:id/reject", middleware.UUIDValidator("id"), bidHandler.Reject)
		protected.GET("/bids/incoming", bidHandler.SellerBids)
		protected.GET("/bids/my", bidHandler.MyBids)

		// Услуги
		protected.POST("/services", servicePostHandler.Create)
		protected.GET("/services/my", servicePostHandler.My)
		protected.PUT("/services/:id", middleware.UUIDValidator("id"), servicePostHandler.Update)
		protected.DELETE("/services/:id", middleware.UUIDValidator("id"), servicePostHandler.Delete)

		// Диалоги
		protected.POST("/conversations", conversationHandler.Start)
		protected.GET("/conversations", conversationHandler.List)
		protected.GET("/conversations/:id/messages", middleware.UUIDValidator("id"), conversationHandler.ListMessages)
		protected.POST("/conversations/:id/messages", middleware.UUIDValidator("id"), conversationHandler.SendMessage)

		// Отзывы
		protected.POST("/reviews", reviewHandler.Create)
		protected.GET("/listings/:id/reviews/can", middleware.UUIDValidator("id"), reviewHandler.CanReview)

		// Избранное
		protected.GET("/favorites", favoriteHandler.List)
		protected.POST("/listings/:id/favorite", middleware.UUIDValidator("id"), favoriteHandler.Save)
		protected.GET("/listings/:id/favorite", middleware.UUIDValidator("id"), favoriteHandler.IsSaved)
		protected.DELETE("/listings/:id/favorite", middleware.UUIDValidator("id"), favoriteHandler.Unsave)

		// Жалобы
		protected.POST("/reports", reportHandler.Submit)

		// Уведомления
		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread", notificationHandler.UnreadCount)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkRead)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllRead)

		// Загрузка фотографий
		protected.POST("/media/photos", mediaHandler.Upload)
		protected.DELETE("/media/:id", middleware.UUIDValidator("id"), mediaHandler.Delete)
	}

	// AI endpoints под отдельным rate limit: внешний провайдер платный.
	aiGroup := api.Group("/ai")
	aiGroup.Use(middleware.AuthMiddleware(tokenManager))
	aiGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		aiGroup.POST("/estimate-price", aiHandler.EstimatePrice)
		aiGroup.POST("/assistant", aiHandler.Ask)
	}

	// Модерация
	moderation := api.Group("/moderation")
	moderation.Use(middleware.AuthMiddleware(tokenManager))
	moderation.Use(middleware.ModeratorOnly())
	{
		moderation.GET("/listings", moderationHandler.Queue)
		moderation.POST("/listings/:id/approve", middleware.UUIDValidator("id"), moderationHandler.Approve)
		moderation.POST("/listings/:id/reject", middleware.UUIDValidator("id"), moderationHandler.Reject)
		moderation.GET("/reports", moderationHandler.OpenReports)
		moderation.POST("/reports/:id/resolve", middleware.UUIDValidator("id"), moderationHandler.ResolveReport)
		moderation.POST("/reports/:id/dismiss", middleware.UUIDValidator("id"), moderationHandler.DismissReport)
	}

	return r
}
