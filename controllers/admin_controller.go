package controllers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"motorent/database"
	"motorent/utils"
)

// GetUsers lists accounts for the back office, optionally filtered by role
func GetUsers(c *gin.Context) {
	query := database.DB.Model(&database.User{}).Order("created_at DESC").Limit(200)

	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []database.User
	if err := query.Find(&users).Error; err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	for i := range users {
		users[i].PasswordHash = ""
	}

	c.JSON(http.StatusOK, users)
}

// GetUserByID returns one account with its documents
func GetUserByID(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var user database.User
	result := database.DB.Preload("Documents").First(&user, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		log.Printf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	user.PasswordHash = ""
	c.JSON(http.StatusOK, user)
}

// RoleUpdateRequest carries the new role for an account
type RoleUpdateRequest struct {
	Role string `json:"role" binding:"required,oneof=customer manager admin"`
}

// UpdateUserRole changes an account's role (admin)
func UpdateUserRole(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var request RoleUpdateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	var user database.User
	result := database.DB.First(&user, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		log.Printf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if err := database.DB.Model(&user).Update("role", request.Role).Error; err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	auditAction(c, "user_role_updated", "user", user.ID, request.Role)

	c.JSON(http.StatusOK, gin.H{"message": "User role updated", "role": request.Role})
}

// GetSettings returns the global settings row
func GetSettings(c *gin.Context) {
	settings, err := database.GetSiteSettings(c.Request.Context())
	if err != nil {
		log.Printf("Settings error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, settings)
}

// SettingsRequest contains the editable global settings
type SettingsRequest struct {
	SiteTitle             string  `json:"site_title" binding:"required"`
	DefaultCurrency       string  `json:"default_currency" binding:"required"`
	MaintenanceMode       bool    `json:"maintenance_mode"`
	SessionTimeoutMinutes int     `json:"session_timeout_minutes" binding:"required,gt=0"`
	GlobalDiscountPercent float64 `json:"global_discount_percent" binding:"gte=0,lte=100"`
	SMTPHost              string  `json:"smtp_host"`
	SMTPPort              int     `json:"smtp_port"`
	SMTPUser              string  `json:"smtp_user"`
	SMTPPassword          string  `json:"smtp_password"`
	SMTPFrom              string  `json:"smtp_from"`
}

// UpdateSettings upserts the fixed-id settings row and invalidates the cache
func UpdateSettings(c *gin.Context) {
	var request SettingsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	settings := database.SiteSettings{
		ID:                    database.SettingsID,
		SiteTitle:             request.SiteTitle,
		DefaultCurrency:       request.DefaultCurrency,
		MaintenanceMode:       request.MaintenanceMode,
		SessionTimeoutMinutes: request.SessionTimeoutMinutes,
		GlobalDiscountPercent: request.GlobalDiscountPercent,
		SMTPHost:              request.SMTPHost,
		SMTPPort:              request.SMTPPort,
		SMTPUser:              request.SMTPUser,
		SMTPPassword:          request.SMTPPassword,
		SMTPFrom:              request.SMTPFrom,
	}

	if err := database.DB.Save(&settings).Error; err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving settings"})
		return
	}

	database.InvalidateSettingsCache(c.Request.Context())
	auditAction(c, "settings_updated", "settings", database.SettingsID, "")

	c.JSON(http.StatusOK, gin.H{
		"message":  "Settings updated successfully",
		"settings": settings,
	})
}

// DocumentDecisionRequest carries the review outcome for a document
type DocumentDecisionRequest struct {
	Status   string `json:"status" binding:"required,oneof=Approved Rejected"`
	Comments string `json:"comments"`
}

// ReviewDocument approves or rejects a user's verification document
func ReviewDocument(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}
	docID, err := strconv.ParseUint(c.Param("docId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
		return
	}

	var request DocumentDecisionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	var document database.UserDocument
	result := database.DB.Where("id = ? AND user_id = ?", docID, userID).First(&document)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		log.Printf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	adminID, _ := currentUserID(c)
	now := time.Now()
	err = database.DB.Model(&document).Updates(map[string]interface{}{
		"status":         request.Status,
		"verified_at":    &now,
		"verified_by":    &adminID,
		"admin_comments": request.Comments,
	}).Error
	if err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	auditAction(c, "document_reviewed", "user_document", document.ID, request.Status)
	notifyUser(document.UserID, "Document "+request.Status,
		fmt.Sprintf("Your %s document was %s.", document.Type, request.Status),
		"document", document.ID, "user_document")

	var user database.User
	if err := database.DB.First(&user, document.UserID).Error; err == nil {
		utils.SendEmail(c.Request.Context(), user.Email, "Document review update",
			fmt.Sprintf("Hello %s,\n\nYour %s document was %s.", user.Name, document.Type, request.Status))
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Document reviewed",
		"status":  request.Status,
	})
}

// AdminDashboard returns back-office counters
func AdminDashboard(c *gin.Context) {
	var totalCars, totalUsers, totalBookings, pendingCancellations, pendingDocuments int64
	var revenue float64

	if err := database.DB.Model(&database.Car{}).Count(&totalCars).Error; err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	database.DB.Model(&database.User{}).Count(&totalUsers)
	database.DB.Model(&database.Booking{}).Count(&totalBookings)
	database.DB.Model(&database.Booking{}).
		Where("status = ?", database.BookingStatusCancellationRequested).
		Count(&pendingCancellations)
	database.DB.Model(&database.UserDocument{}).
		Where("status = ?", database.DocumentStatusPending).
		Count(&pendingDocuments)
	database.DB.Model(&database.Booking{}).
		Where("status IN ?", []string{database.BookingStatusConfirmed, database.BookingStatusCompleted}).
		Select("COALESCE(SUM(total_price), 0)").
		Scan(&revenue)

	c.JSON(http.StatusOK, gin.H{
		"total_cars":            totalCars,
		"total_users":           totalUsers,
		"total_bookings":        totalBookings,
		"pending_cancellations": pendingCancellations,
		"pending_documents":     pendingDocuments,
		"revenue":               revenue,
	})
}
