package controllers

import (
	"log"

	"github.com/gin-gonic/gin"

	"motorent/database"
)

// currentUserID extracts the authenticated user id set by the auth middleware
func currentUserID(c *gin.Context) (uint, bool) {
	userIDInterface, exists := c.Get("userID")
	if !exists {
		return 0, false
	}
	userID, ok := userIDInterface.(uint)
	return userID, ok
}

// currentRole extracts the authenticated role set by the auth middleware
func currentRole(c *gin.Context) string {
	role, exists := c.Get("role")
	if !exists {
		return ""
	}
	roleStr, _ := role.(string)
	return roleStr
}

// currentName extracts the authenticated display name set by the auth middleware
func currentName(c *gin.Context) string {
	name, exists := c.Get("name")
	if !exists {
		return ""
	}
	nameStr, _ := name.(string)
	return nameStr
}

// notifyUser writes an in-app notification row. Failures are logged only.
func notifyUser(userID uint, title, message, notifType string, relatedID uint, relatedType string) {
	notification := database.Notification{
		UserID:      userID,
		Title:       title,
		Message:     message,
		Type:        notifType,
		RelatedID:   &relatedID,
		RelatedType: relatedType,
	}
	if err := database.DB.Create(&notification).Error; err != nil {
		log.Printf("Error creating notification: %v", err)
	}
}

// auditAction records an admin mutation. Failures are logged only.
func auditAction(c *gin.Context, action, entityType string, entityID uint, detail string) {
	var userID *uint
	if id, ok := currentUserID(c); ok {
		userID = &id
	}
	entry := database.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Detail:     detail,
		IPAddress:  c.ClientIP(),
	}
	if err := database.DB.Create(&entry).Error; err != nil {
		log.Printf("Error writing audit log: %v", err)
	}
}
