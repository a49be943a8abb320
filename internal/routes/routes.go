package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tritmo/internal/booking"
	"tritmo/internal/config"
	"tritmo/internal/handlers"
	"tritmo/internal/mailer"
	"tritmo/internal/middleware"
	"tritmo/internal/models"
	"tritmo/internal/payments"
	"tritmo/internal/realtime"
	"tritmo/internal/storage"
)

// Dependencies carries the shared services the handlers are built from.
type Dependencies struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Sessions booking.Store
	Hub      *realtime.Hub
	Mailer   *mailer.Mailer
	Gateway  *payments.Gateway
	Uploader *storage.Uploader
	Log      *zap.Logger
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(deps.DB, deps.Cfg)
	userHandler := handlers.NewUserHandler(deps.DB, deps.Hub)
	bookingHandler := handlers.NewBookingHandler(deps.DB, deps.Sessions, deps.Hub, deps.Mailer, deps.Log)
	appointmentHandler := handlers.NewAppointmentHandler(deps.DB, deps.Hub)
	prescriptionHandler := handlers.NewPrescriptionHandler(deps.DB, deps.Hub)
	notificationHandler := handlers.NewNotificationHandler(deps.DB, deps.Hub)
	billHandler := handlers.NewBillHandler(deps.DB, deps.Gateway, deps.Mailer, deps.Log)
	recordHandler := handlers.NewRecordHandler(deps.DB)
	uploadHandler := handlers.NewUploadHandler(deps.DB, deps.Uploader)
	dashboardHandler := handlers.NewDashboardHandler(deps.DB)
	realtimeHandler := realtime.NewHandler(deps.Hub, deps.Log)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		// The doctor directory is browsable before signing in.
		public.GET("/doctors", userHandler.GetDoctors)
		public.GET("/doctors/:id", userHandler.GetDoctor)
		public.GET("/users/:id/profile-image", uploadHandler.GetProfileImage)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(deps.Cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// Realtime notification channel
		private.GET("/realtime", realtimeHandler.HandleConnect)

		// Role-variant dashboard
		private.GET("/dashboard", dashboardHandler.GetDashboard)

		// Doctor slots (needs auth so patients can book from them)
		private.GET("/doctors/:id/slots", bookingHandler.GetAvailableSlots)

		// User management routes (admin-only)
		userRoutes := private.Group("/users")
		userRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			userRoutes.GET("", userHandler.GetUsers)
			userRoutes.GET("/:id", userHandler.GetUser)
			userRoutes.DELETE("/:id", userHandler.DeleteUser)
			userRoutes.PATCH("/:id/approval", userHandler.ApproveDoctor)
			userRoutes.PATCH("/:id/featured", userHandler.FeatureDoctor)
		}

		// Booking wizard routes (patients only)
		bookingRoutes := private.Group("/booking")
		bookingRoutes.Use(middleware.RoleAuthMiddleware(models.RolePatient))
		{
			bookingRoutes.POST("/start", bookingHandler.StartBooking)
			bookingRoutes.GET("", bookingHandler.GetBooking)
			bookingRoutes.DELETE("", bookingHandler.AbandonBooking)
			bookingRoutes.POST("/date", bookingHandler.SetDate)
			bookingRoutes.POST("/slot", bookingHandler.SetSlot)
			bookingRoutes.POST("/details", bookingHandler.SetDetails)
			bookingRoutes.POST("/payment", bookingHandler.SetMethod)
			bookingRoutes.POST("/back", bookingHandler.Back)
			bookingRoutes.POST("/confirm", bookingHandler.Confirm)
		}

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.GET("", appointmentHandler.GetAppointments)
			// Authorization and role rules inside the handlers
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointment)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
		}

		// Prescription routes
		prescriptionRoutes := private.Group("/prescriptions")
		{
			prescriptionRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleDoctor), prescriptionHandler.CreatePrescription)
			prescriptionRoutes.GET("", prescriptionHandler.GetPrescriptions)
			prescriptionRoutes.GET("/:id", prescriptionHandler.GetPrescription)
			prescriptionRoutes.PUT("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor), prescriptionHandler.UpdatePrescription)
			prescriptionRoutes.POST("/:id/finalize", middleware.RoleAuthMiddleware(models.RoleDoctor), prescriptionHandler.FinalizePrescription)
			prescriptionRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleDoctor), prescriptionHandler.DeletePrescription)
		}

		// Notification routes
		notificationRoutes := private.Group("/notifications")
		{
			notificationRoutes.GET("", notificationHandler.GetNotifications)
			notificationRoutes.PATCH("/:id/read", notificationHandler.MarkNotificationRead)
			notificationRoutes.POST("/read-all", notificationHandler.MarkAllNotificationsRead)
			notificationRoutes.POST("/broadcast", middleware.RoleAuthMiddleware(models.RoleAdmin), notificationHandler.Broadcast)
		}

		// Billing routes
		billRoutes := private.Group("/bills")
		{
			billRoutes.GET("", billHandler.GetBills)
			billRoutes.GET("/:id/invoice", billHandler.DownloadInvoice)
			billRoutes.POST("/:id/invoice/email", billHandler.EmailInvoice)
			billRoutes.POST("/:id/pay", billHandler.PayOffline)
			billRoutes.POST("/:id/pay/online", billHandler.PayOnline)
			billRoutes.POST("/:id/pay/online/complete", billHandler.CompleteOnlinePayment)
		}

		// Clinical record routes
		writerOnly := middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin)
		reportRoutes := private.Group("/reports")
		{
			reportRoutes.POST("", writerOnly, recordHandler.CreateReport)
			reportRoutes.GET("", recordHandler.GetReports)
			reportRoutes.DELETE("/:id", writerOnly, recordHandler.DeleteReport)
		}
		diagnosisRoutes := private.Group("/diagnoses")
		{
			diagnosisRoutes.POST("", writerOnly, recordHandler.CreateDiagnosis)
			diagnosisRoutes.GET("", recordHandler.GetDiagnoses)
			diagnosisRoutes.DELETE("/:id", writerOnly, recordHandler.DeleteDiagnosis)
		}
		noticeRoutes := private.Group("/notices")
		{
			noticeRoutes.POST("", writerOnly, recordHandler.CreateNotice)
			noticeRoutes.GET("", recordHandler.GetNotices)
			noticeRoutes.DELETE("/:id", writerOnly, recordHandler.DeleteNotice)
		}

		// Upload routes
		uploadRoutes := private.Group("/uploads")
		{
			uploadRoutes.POST("/profile-image", uploadHandler.UploadProfileImage)
			uploadRoutes.POST("/signature", middleware.RoleAuthMiddleware(models.RoleDoctor), uploadHandler.UploadSignature)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
