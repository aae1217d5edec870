package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"healthcare-portal-server/internal/config"
	"healthcare-portal-server/internal/handlers"
	"healthcare-portal-server/internal/insight"
	"healthcare-portal-server/internal/middleware"
	"healthcare-portal-server/internal/models"
	"healthcare-portal-server/internal/prediction"
)

// Services are the dependencies the handlers are built from.
type Services struct {
	Accounts     models.AccountStore
	Directory    models.UserDirectory
	Predictions  models.PredictionStore
	Appointments models.AppointmentStore
	Records      models.MedicalRecordStore
	Engine       handlers.Predictor
	Knowledge    *prediction.KnowledgeBase
	Insight      insight.Provider // nil disables AI analysis
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, cfg *config.Config, svc Services) {
	authHandler := handlers.NewAuthHandler(svc.Accounts, cfg)
	userHandler := handlers.NewUserHandler(svc.Directory)
	catalogHandler := handlers.NewCatalogHandler(svc.Knowledge)
	predictionHandler := handlers.NewPredictionHandler(svc.Predictions, svc.Engine, svc.Insight, cfg.Prediction.MinSymptoms)
	appointmentHandler := handlers.NewAppointmentHandler(svc.Appointments)
	recordHandler := handlers.NewMedicalRecordHandler(svc.Records)
	limiter := middleware.NewRateLimiter(cfg.Prediction.RatePerMinute, cfg.Prediction.RateBurst)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		public.GET("/symptoms", catalogHandler.ListSymptoms)
		public.GET("/diseases", catalogHandler.ListDiseases)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		userRoutes := private.Group("/users")
		{
			userRoutes.GET("/doctors", userHandler.GetDoctors)
			userRoutes.GET("/patients",
				middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleHospital, models.RoleAdmin),
				userHandler.GetPatients)

			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PATCH("/:id/role", userHandler.UpdateUserRole)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		// Ownership rules are enforced inside the handlers.
		predictionRoutes := private.Group("/predictions")
		{
			predictionRoutes.POST("", limiter.Middleware(), predictionHandler.CreatePrediction)
			predictionRoutes.GET("", predictionHandler.GetPredictions)
			predictionRoutes.GET("/:id", predictionHandler.GetPrediction)
			predictionRoutes.DELETE("/:id", predictionHandler.DeletePrediction)
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("",
				middleware.RoleAuthMiddleware(models.RolePatient, models.RoleDoctor, models.RoleAdmin),
				appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.PATCH("/:id/reschedule", appointmentHandler.RescheduleAppointment)
			appointmentRoutes.DELETE("/:id",
				middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin),
				appointmentHandler.DeleteAppointment)
		}

		recordRoutes := private.Group("/medical-records")
		{
			recordRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleDoctor), recordHandler.CreateMedicalRecord)
			recordRoutes.GET("/patient/:patientId", recordHandler.GetMedicalRecordsForPatient)
			recordRoutes.GET("/:id", recordHandler.GetMedicalRecordByID)
			recordRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), recordHandler.UpdateMedicalRecord)
			recordRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), recordHandler.DeleteMedicalRecord)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
}
