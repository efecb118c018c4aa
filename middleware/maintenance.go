package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"motorent/database"
)

// MaintenanceMiddleware rejects non-admin writes while maintenance mode is
// enabled in the site settings. Reads stay available, and admins keep
// access so they can turn maintenance off again.
func MaintenanceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		settings, err := database.GetSiteSettings(c.Request.Context())
		if err != nil {
			// Settings row missing should never block traffic
			log.Printf("Maintenance check failed: %v", err)
			c.Next()
			return
		}

		if settings.MaintenanceMode {
			if role, exists := c.Get("role"); !exists || role != database.RoleAdmin {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service is under maintenance, please try again later"})
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
