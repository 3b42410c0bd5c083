package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"vetcare-server/internal/analytics"
	"vetcare-server/internal/booking"
	"vetcare-server/internal/config"
	"vetcare-server/internal/handlers"
	"vetcare-server/internal/identity"
	"vetcare-server/internal/middleware"
	"vetcare-server/internal/models"
	"vetcare-server/internal/notify"
	"vetcare-server/internal/reviews"
	"vetcare-server/internal/stories"
	"vetcare-server/internal/utils"
	"vetcare-server/internal/verification"
)

// NewRouter builds the engine with CORS, request logging and every route.
// rdb may be nil.
func NewRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *gin.Engine {
	utils.UseJSONFieldNames()

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Retry-After"}
	router.Use(cors.New(corsConfig))

	SetupRoutes(router, db, rdb, cfg)
	return router
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, rdb *redis.Client, cfg *config.Config) {
	sessions := &identity.SessionRevoker{
		DB:    db,
		Redis: rdb,
		TTL:   time.Duration(cfg.JWTRefreshExpirationHours) * time.Hour,
	}
	resolver := identity.NewResolver(db, cfg.JWTSecret, sessions)
	inApp := notify.NewInApp(db)
	mailer := notify.NewMailerFromConfig(cfg.Mailer)

	bookingService := booking.NewService(db, inApp, cfg.Booking.DailyLimit, cfg.Booking.Location)
	verificationService := verification.NewService(db, mailer, inApp, cfg.UploadMaxBytes)
	analyticsService := analytics.NewService(db, cfg.Booking.Location)
	reviewService := reviews.NewService(db)
	storyService := stories.NewService(db, cfg.StorySaveTimeout)

	bookingLimiter := middleware.NewRateLimiter(rdb, middleware.RateLimitConfig{
		Limit:  cfg.RateLimit.Limit,
		Window: cfg.RateLimit.Window,
	})
	registrationLimiter := middleware.NewRateLimiter(rdb, middleware.RateLimitConfig{
		Limit:  5,
		Window: time.Hour,
	})

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg, resolver)
	userHandler := handlers.NewUserHandler(db, sessions)
	petHandler := handlers.NewPetHandler(db)
	directoryHandler := handlers.NewDirectoryHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(bookingService)
	medicalRecordHandler := handlers.NewMedicalRecordHandler(db, cfg.UploadMaxBytes)
	verificationHandler := handlers.NewVerificationHandler(verificationService, cfg.UploadMaxBytes)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	storyHandler := handlers.NewStoryHandler(storyService)
	notificationHandler := handlers.NewNotificationHandler(inApp)
	settingsHandler := handlers.NewSettingsHandler(db)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		public.POST("/veterinarian/register", registrationLimiter.Middleware(), verificationHandler.Register)

		public.GET("/clinics", directoryHandler.GetClinics)
		public.GET("/clinics/:id", directoryHandler.GetClinic)
		public.GET("/veterinarians", directoryHandler.GetVeterinarians)
		public.GET("/veterinarians/:id", directoryHandler.GetVeterinarian)
		public.GET("/veterinarians/:id/availability", appointmentHandler.GetAvailability)
		public.GET("/veterinarians/:id/reviews", reviewHandler.GetVeterinarianReviews)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(resolver), middleware.SettingsMiddleware())
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		private.GET("/settings", settingsHandler.GetSettings)
		private.PUT("/settings", settingsHandler.UpdateSettings)

		notificationRoutes := private.Group("/notifications")
		{
			notificationRoutes.GET("", notificationHandler.GetNotifications)
			notificationRoutes.PATCH("/:id/read", notificationHandler.MarkNotificationAsRead)
			notificationRoutes.POST("/read-all", notificationHandler.MarkAllNotificationsAsRead)
		}

		ownerOnly := middleware.RoleAuthMiddleware(models.RolePetOwner)

		petRoutes := private.Group("/pets")
		petRoutes.Use(ownerOnly)
		{
			petRoutes.GET("", petHandler.GetPets)
			petRoutes.POST("", petHandler.CreatePet)
			petRoutes.GET("/:id", petHandler.GetPet)
			petRoutes.PUT("/:id", petHandler.UpdatePet)
			petRoutes.DELETE("/:id", petHandler.DeletePet)
		}
		private.GET("/pets/:id/medical-records",
			middleware.RoleAuthMiddleware(models.RolePetOwner, models.RoleVeterinarian, models.RoleAdmin),
			medicalRecordHandler.GetMedicalRecordsForPatient)

		storyRoutes := private.Group("/stories")
		storyRoutes.Use(ownerOnly)
		{
			storyRoutes.POST("", storyHandler.CreateStory)
			storyRoutes.GET("", storyHandler.GetStories)
			storyRoutes.DELETE("/:id", storyHandler.DeleteStory)
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", ownerOnly, bookingLimiter.Middleware(), appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", ownerOnly, appointmentHandler.GetAppointments)

			// Party checks happen in the booking service
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.POST("/:id/cancel", appointmentHandler.CancelAppointment)
			appointmentRoutes.POST("/:id/review", ownerOnly, reviewHandler.CreateReview)
		}

		medicalRecordRoutes := private.Group("/medical-records")
		{
			vetOnly := middleware.RoleAuthMiddleware(models.RoleVeterinarian)
			medicalRecordRoutes.POST("", vetOnly, medicalRecordHandler.CreateMedicalRecord)
			medicalRecordRoutes.GET("/:id", medicalRecordHandler.GetMedicalRecordByID)
			medicalRecordRoutes.PUT("/:id", vetOnly, medicalRecordHandler.UpdateMedicalRecord)
			medicalRecordRoutes.POST("/:id/attachments", vetOnly, medicalRecordHandler.UploadMedicalRecordAttachment)
			medicalRecordRoutes.GET("/:id/attachments/:attachmentId", medicalRecordHandler.GetMedicalRecordAttachment)
		}

		vetRoutes := private.Group("/veterinarian")
		vetRoutes.Use(middleware.RoleAuthMiddleware(models.RoleVeterinarian))
		{
			vetRoutes.GET("/appointments", appointmentHandler.GetVeterinarianAppointments)
			vetRoutes.GET("/analytics", analyticsHandler.GetVeterinarianStats)
		}

		adminRoutes := private.Group("/admin")
		adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			adminRoutes.GET("/applications", verificationHandler.GetApplications)
			adminRoutes.GET("/applications/:id", verificationHandler.GetApplication)
			adminRoutes.GET("/applications/:id/documents/:docId", verificationHandler.GetApplicationDocument)
			adminRoutes.POST("/applications/:id/approve", verificationHandler.ApproveApplication)
			adminRoutes.POST("/applications/:id/reject", verificationHandler.RejectApplication)

			adminRoutes.GET("/analytics", analyticsHandler.GetDashboard)
			adminRoutes.GET("/appointments", appointmentHandler.GetAllAppointments)

			adminRoutes.GET("/users", userHandler.GetUsers)
			adminRoutes.GET("/users/:id", userHandler.GetUserByID)
			adminRoutes.PATCH("/users/:id/active", userHandler.SetActive)

			adminRoutes.POST("/clinics", directoryHandler.CreateClinic)
			adminRoutes.PUT("/clinics/:id", directoryHandler.UpdateClinic)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "DOWN"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
