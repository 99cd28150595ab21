package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"shifted/config"
	"shifted/handlers"
	"shifted/middleware"
)

func SetupRouter(cfg *config.Config, h *handlers.Handler) *gin.Engine {
	router := gin.Default()

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Public routes. Auth endpoints are rate limited per IP since
	// there is no user identity to key on yet.
	authLimit := middleware.NewRateLimiter(30, time.Minute).Middleware()
	router.POST("/api/signup", authLimit, h.Signup)
	router.POST("/api/login", authLimit, h.Login)
	router.GET("/api/vapid-public-key", h.GetVapidPublicKey)

	protected := router.Group("/api")
	protected.Use(middleware.JWTAuth(cfg.JWTSecret))

	// Profile
	protected.GET("/me", h.GetMyProfile)
	protected.PUT("/me", h.UpdateMyProfile)
	protected.GET("/user/:id", h.GetUser)

	// Chats
	protected.GET("/chats", h.GetChatList)
	protected.POST("/chats", h.CreateChat)
	protected.GET("/messages/:chatId", h.GetMessages)
	protected.POST("/message", h.SendMessage)

	// Marketplace listings
	protected.POST("/listings", h.CreateListing)
	protected.GET("/listings", h.GetListings)
	protected.PUT("/listings/:id", h.UpdateListing)
	protected.DELETE("/listings/:id", h.DeleteListing)

	// Forum
	protected.POST("/questions", h.CreateQuestion)
	protected.GET("/questions", h.GetQuestions)
	protected.POST("/questions/:id/answers", h.CreateAnswer)
	protected.GET("/questions/:id/answers", h.GetAnswers)
	protected.POST("/questions/:id/answers/:answerId/upvote", h.UpvoteAnswer)

	// Photo upload
	protected.POST("/upload-photo", h.UploadPhoto)

	// Push subscriptions
	protected.POST("/subscribe", h.SubscribePush)

	router.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/api" {
			c.JSON(404, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.Next()
	})

	return router
}
