package routes

import (
	"github.com/gin-gonic/gin"

	"motorent/controllers"
	"motorent/middleware"
)

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine) {
	// Public routes (no authentication required)
	public := r.Group("/api")
	{
		auth := public.Group("/auth")
		{
			auth.POST("/login", controllers.Login)
			auth.POST("/register", controllers.Register)
			auth.POST("/forgot-password", controllers.ForgotPassword)
			auth.POST("/reset-password", controllers.ResetPassword)
		}

		// Catalog browsing is open to non-authenticated users
		public.GET("/cars", controllers.GetCars)
		public.GET("/cars/:id", controllers.GetCarByID)

		// Negotiation chatbot is stateless and public like the catalog
		public.POST("/chat/negotiate", controllers.NegotiatePrice)
	}

	// Protected routes (authentication required). All authenticated writes
	// are gated on maintenance mode; reads and admins pass through.
	protected := r.Group("/api")
	protected.Use(middleware.AuthMiddleware(), middleware.MaintenanceMiddleware())
	{
		protected.POST("/auth/refresh", controllers.RefreshToken)

		profile := protected.Group("/profile")
		{
			profile.GET("", controllers.GetUserProfile)
			profile.PUT("", controllers.UpdateUserProfile)
			profile.POST("/change-password", controllers.ChangePassword)
			profile.GET("/favorites", controllers.GetFavorites)
			profile.POST("/favorites/:carId", controllers.AddFavorite)
			profile.DELETE("/favorites/:carId", controllers.RemoveFavorite)
			profile.GET("/documents", controllers.GetMyDocuments)
			profile.POST("/documents", controllers.UploadDocument)
		}

		protected.GET("/notifications", controllers.GetNotifications)
		protected.POST("/notifications/:id/read", controllers.MarkNotificationRead)

		bookings := protected.Group("/bookings")
		{
			bookings.POST("", controllers.CreateBooking)
			bookings.GET("", controllers.GetMyBookings)
			bookings.GET("/:id", controllers.GetBookingByID)
			bookings.POST("/:id/request-cancellation", controllers.RequestCancellation)
		}

		checkout := protected.Group("/checkout")
		{
			checkout.POST("/razorpay-order", controllers.CreateRazorpayOrder)
			checkout.POST("/razorpay-verify", controllers.VerifyRazorpayPayment)
			checkout.POST("/sessions", controllers.CreateCheckoutSession)
			checkout.POST("/sessions/confirm", controllers.ConfirmCheckoutSession)
		}

		protected.POST("/upload", middleware.StaffAuthMiddleware(), controllers.UploadImage)

		// Admin routes
		admin := protected.Group("/admin")
		admin.Use(middleware.StaffAuthMiddleware())
		{
			admin.GET("/dashboard", controllers.AdminDashboard)

			admin.POST("/cars", controllers.CreateCar)
			admin.PUT("/cars/:id", controllers.UpdateCar)
			admin.DELETE("/cars/:id", controllers.DeleteCar)
			admin.PATCH("/cars/:id/toggle-status", controllers.ToggleCarStatus)

			admin.GET("/bookings", controllers.AdminGetBookings)
			admin.PUT("/bookings/:id/status", controllers.UpdateBookingStatus)
			admin.POST("/bookings/:id/cancellation/approve", controllers.ApproveCancellation)
			admin.POST("/bookings/:id/cancellation/reject", controllers.RejectCancellation)

			admin.GET("/users", controllers.GetUsers)
			admin.GET("/users/:id", controllers.GetUserByID)
			admin.PUT("/users/:id/role", middleware.AdminAuthMiddleware(), controllers.UpdateUserRole)
			admin.PUT("/documents/:userId/:docId", controllers.ReviewDocument)

			admin.GET("/settings", controllers.GetSettings)
			admin.PUT("/settings", middleware.AdminAuthMiddleware(), controllers.UpdateSettings)
		}
	}
}
