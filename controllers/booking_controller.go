package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"motorent/database"
	"motorent/utils"
)

// BookingRequest contains the data for booking creation
type BookingRequest struct {
	CarID     uint   `json:"car_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// activeBookingStatuses are the statuses that hold a car's time range
var activeBookingStatuses = []string{database.BookingStatusPending, database.BookingStatusConfirmed}

// CreateBooking creates a booking on the direct (pay later) path
func CreateBooking(c *gin.Context) {
	var request BookingRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	booking, status, errMsg := createBookingWithStatus(c, request, database.BookingStatusConfirmed)
	if booking == nil {
		c.JSON(status, gin.H{"error": errMsg})
		return
	}

	notifyUser(booking.UserID, "Booking Confirmed",
		fmt.Sprintf("Your booking for %s is confirmed.", booking.CarName),
		"booking", booking.ID, "booking")

	c.JSON(http.StatusCreated, gin.H{
		"message": "Booking created successfully",
		"booking": booking,
	})
}

// createBookingWithStatus runs the availability engine and inserts a booking
// with the given initial status. It returns the created booking, or a nil
// booking with an HTTP status and message describing the failure.
//
// The overlap check runs inside a transaction that first takes a row lock on
// the car, so two concurrent requests for the same car serialize instead of
// both passing the check.
func createBookingWithStatus(c *gin.Context, request BookingRequest, initialStatus string) (*database.Booking, int, string) {
	userID, ok := currentUserID(c)
	if !ok {
		return nil, http.StatusUnauthorized, "User ID not found"
	}
	role := currentRole(c)

	startDate, err := time.Parse(time.RFC3339, request.StartDate)
	if err != nil {
		return nil, http.StatusBadRequest, "start_date must be a valid RFC3339 timestamp"
	}
	endDate, err := time.Parse(time.RFC3339, request.EndDate)
	if err != nil {
		return nil, http.StatusBadRequest, "end_date must be a valid RFC3339 timestamp"
	}

	if !endDate.After(startDate) {
		return nil, http.StatusBadRequest, "end_date must be after start_date"
	}
	if endDate.Sub(startDate) < time.Hour {
		return nil, http.StatusBadRequest, "Minimum booking duration is 1 hour"
	}
	if role != database.RoleAdmin && !startDate.After(time.Now()) {
		return nil, http.StatusBadRequest, "start_date must be in the future"
	}

	var car database.Car
	result := database.DB.First(&car, request.CarID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, http.StatusNotFound, "Car not found"
		}
		log.Printf("Database error: %v", result.Error)
		return nil, http.StatusInternalServerError, "Server error"
	}

	if !car.IsActive {
		return nil, http.StatusBadRequest, "Car is not available for booking"
	}

	settings, err := database.GetSiteSettings(c.Request.Context())
	if err != nil {
		log.Printf("Settings error: %v", err)
		return nil, http.StatusInternalServerError, "Server error"
	}

	totalPrice := computeTotalPrice(&car, settings, startDate, endDate)

	// Begin transaction
	tx := database.DB.Begin()
	if tx.Error != nil {
		log.Printf("Transaction error: %v", tx.Error)
		return nil, http.StatusInternalServerError, "Server error"
	}

	// Serialize concurrent bookings on the same car. SQLite has a single
	// writer and does not support FOR UPDATE.
	lockQuery := tx.Model(&database.Car{})
	if tx.Dialector.Name() == "postgres" {
		lockQuery = lockQuery.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var lockedCar database.Car
	if err := lockQuery.First(&lockedCar, car.ID).Error; err != nil {
		tx.Rollback()
		log.Printf("Database error: %v", err)
		return nil, http.StatusInternalServerError, "Server error"
	}

	// Conflict check: [a,b) and [c,d) overlap iff a < d and c < b
	var conflicts int64
	err = tx.Model(&database.Booking{}).
		Where("car_id = ? AND status IN ? AND start_date < ? AND end_date > ?",
			car.ID, activeBookingStatuses, endDate, startDate).
		Count(&conflicts).Error
	if err != nil {
		tx.Rollback()
		log.Printf("Database error: %v", err)
		return nil, http.StatusInternalServerError, "Server error"
	}

	if conflicts > 0 {
		tx.Rollback()
		return nil, http.StatusConflict, "Car is already booked for the requested time range"
	}

	booking := database.Booking{
		CarID:       car.ID,
		CarName:     car.Name,
		CarImageURL: firstImageURL(car.ImageURLs),
		UserID:      userID,
		UserName:    currentName(c),
		StartDate:   startDate,
		EndDate:     endDate,
		TotalPrice:  totalPrice,
		Status:      initialStatus,
	}

	if err := tx.Create(&booking).Error; err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			log.Printf("Failed to rollback transaction: %v", rbErr)
		}
		log.Printf("Database error: %v", err)
		return nil, http.StatusInternalServerError, "Error creating booking"
	}

	if err := tx.Commit().Error; err != nil {
		log.Printf("Transaction commit error: %v", err)
		return nil, http.StatusInternalServerError, "Server error"
	}

	return &booking, http.StatusCreated, ""
}

// computeTotalPrice prices a rental as whole hours times the hourly rate,
// discounted by the car discount when present, else by the site-wide one.
func computeTotalPrice(car *database.Car, settings *database.SiteSettings, start, end time.Time) float64 {
	hours := int(end.Sub(start).Hours())
	total := float64(hours) * car.PricePerHour

	discount := effectiveDiscount(car, settings)
	if discount > 0 {
		total = total * (1 - discount/100)
	}

	return math.Round(total*100) / 100
}

func effectiveDiscount(car *database.Car, settings *database.SiteSettings) float64 {
	if car.DiscountPercent != nil && *car.DiscountPercent > 0 {
		return *car.DiscountPercent
	}
	if settings != nil {
		return settings.GlobalDiscountPercent
	}
	return 0
}

// firstImageURL returns the first entry of a JSON-encoded URL list
func firstImageURL(imageURLs string) string {
	var urls []string
	if err := json.Unmarshal([]byte(imageURLs), &urls); err != nil || len(urls) == 0 {
		return ""
	}
	return urls[0]
}

// confirmBookingPayment transitions a Pending booking to Confirmed after a
// verified payment. The transition is idempotent: a booking already Confirmed
// returns success without re-mutating; any other status is rejected.
func confirmBookingPayment(booking *database.Booking, paymentRef string) (int, string) {
	switch booking.Status {
	case database.BookingStatusConfirmed:
		return http.StatusOK, ""
	case database.BookingStatusPending:
	default:
		return http.StatusBadRequest, "Booking is not awaiting payment"
	}

	err := database.DB.Model(booking).
		Updates(map[string]interface{}{
			"status":      database.BookingStatusConfirmed,
			"payment_ref": paymentRef,
		}).Error
	if err != nil {
		log.Printf("Database error: %v", err)
		return http.StatusInternalServerError, "Error updating booking"
	}

	notifyUser(booking.UserID, "Payment Successful",
		fmt.Sprintf("Payment received, your booking for %s is confirmed.", booking.CarName),
		"payment", booking.ID, "booking")

	return http.StatusOK, ""
}

// GetMyBookings lists the authenticated user's bookings
func GetMyBookings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found"})
		return
	}

	var bookings []database.Booking
	result := database.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&bookings)
	if result.Error != nil {
		log.Printf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, bookings)
}

// GetBookingByID returns one booking, visible to its owner and to staff
func GetBookingByID(c *gin.Context) {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found"})
		return
	}
	role := currentRole(c)

	var booking database.Booking
	result := database.DB.First(&booking, bookingID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return
		}
		log.Printf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if booking.UserID != userID && role != database.RoleAdmin && role != database.RoleManager {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	c.JSON(http.StatusOK, booking)
}

// RequestCancellation lets a user ask for a Confirmed future booking to be
// cancelled. The request goes to admin review, it does not cancel directly.
func RequestCancellation(c *gin.Context) {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found"})
		return
	}

	var booking database.Booking
	result := database.DB.Where("id = ? AND user_id = ?", bookingID, userID).First(&booking)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found or doesn't belong to you"})
			return
		}
		log.Printf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if booking.Status != database.BookingStatusConfirmed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only confirmed bookings can be cancelled"})
		return
	}
	if !booking.StartDate.After(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Booking has already started"})
		return
	}

	err = database.DB.Model(&booking).
		Update("status", database.BookingStatusCancellationRequested).Error
	if err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	notifyUser(booking.UserID, "Cancellation Requested",
		fmt.Sprintf("Your cancellation request for %s is awaiting review.", booking.CarName),
		"cancellation", booking.ID, "booking")

	c.JSON(http.StatusOK, gin.H{
		"message": "Cancellation requested",
		"status":  database.BookingStatusCancellationRequested,
	})
}

// CancellationDecisionRequest carries an optional admin comment
type CancellationDecisionRequest struct {
	Note string `json:"note"`
}

// ApproveCancellation sets a Cancellation Requested booking to Cancelled and
// issues a simulated refund notification. Re-applying to an already
// cancelled booking is a no-op success; any other status is a conflict.
func ApproveCancellation(c *gin.Context) {
	booking, done := loadBookingForDecision(c)
	if booking == nil {
		return
	}
	if done {
		if booking.Status == database.BookingStatusCancelled {
			c.JSON(http.StatusOK, gin.H{"message": "Booking already cancelled", "status": booking.Status})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": "Booking is not awaiting cancellation review", "status": booking.Status})
		return
	}

	var request CancellationDecisionRequest
	_ = c.ShouldBindJSON(&request)

	err := database.DB.Model(booking).Updates(map[string]interface{}{
		"status":            database.BookingStatusCancelled,
		"cancellation_note": request.Note,
	}).Error
	if err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	auditAction(c, "cancellation_approved", "booking", booking.ID, request.Note)
	notifyUser(booking.UserID, "Booking Cancelled",
		fmt.Sprintf("Your booking for %s was cancelled. A refund of %.2f has been initiated.",
			booking.CarName, booking.TotalPrice),
		"cancellation", booking.ID, "booking")

	var user database.User
	if err := database.DB.First(&user, booking.UserID).Error; err == nil {
		utils.SendEmail(c.Request.Context(), user.Email, "Booking cancelled",
			fmt.Sprintf("Hello %s,\n\nYour booking for %s has been cancelled and a refund of %.2f has been initiated.",
				user.Name, booking.CarName, booking.TotalPrice))
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cancellation approved",
		"status":  database.BookingStatusCancelled,
	})
}

// RejectCancellation returns a Cancellation Requested booking to Confirmed.
// Re-applying to an already confirmed booking is a no-op success; any other
// status is a conflict.
func RejectCancellation(c *gin.Context) {
	booking, done := loadBookingForDecision(c)
	if booking == nil {
		return
	}
	if done {
		if booking.Status == database.BookingStatusConfirmed {
			c.JSON(http.StatusOK, gin.H{"message": "Booking already confirmed", "status": booking.Status})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": "Booking is not awaiting cancellation review", "status": booking.Status})
		return
	}

	var request CancellationDecisionRequest
	_ = c.ShouldBindJSON(&request)

	err := database.DB.Model(booking).Updates(map[string]interface{}{
		"status":            database.BookingStatusConfirmed,
		"cancellation_note": request.Note,
	}).Error
	if err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	auditAction(c, "cancellation_rejected", "booking", booking.ID, request.Note)
	notifyUser(booking.UserID, "Cancellation Rejected",
		fmt.Sprintf("Your cancellation request for %s was rejected. The booking remains confirmed.", booking.CarName),
		"cancellation", booking.ID, "booking")

	c.JSON(http.StatusOK, gin.H{
		"message": "Cancellation rejected",
		"status":  database.BookingStatusConfirmed,
	})
}

// loadBookingForDecision fetches the booking for an admin cancellation
// decision. The second return value marks a booking that already left the
// Cancellation Requested state; the decision endpoints treat their own
// outcome state as a no-op success and everything else as a conflict.
func loadBookingForDecision(c *gin.Context) (*database.Booking, bool) {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return nil, false
	}

	var booking database.Booking
	result := database.DB.First(&booking, bookingID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return nil, false
		}
		log.Printf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return nil, false
	}

	if booking.Status != database.BookingStatusCancellationRequested {
		return &booking, true
	}

	return &booking, false
}

// BookingStatusRequest is the admin status-override payload
type BookingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

var settableBookingStatuses = map[string]bool{
	database.BookingStatusPending:               true,
	database.BookingStatusConfirmed:             true,
	database.BookingStatusCancelled:             true,
	database.BookingStatusCompleted:             true,
	database.BookingStatusCancellationRequested: true,
	database.BookingStatusCancellationRejected:  true,
}

// UpdateBookingStatus lets staff set a booking status directly
func UpdateBookingStatus(c *gin.Context) {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var request BookingStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	if !settableBookingStatuses[request.Status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking status"})
		return
	}

	var booking database.Booking
	result := database.DB.First(&booking, bookingID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return
		}
		log.Printf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if err := database.DB.Model(&booking).Update("status", request.Status).Error; err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	auditAction(c, "booking_status_updated", "booking", booking.ID, request.Status)

	c.JSON(http.StatusOK, gin.H{
		"message": "Booking status updated",
		"status":  request.Status,
	})
}

// AdminGetBookings lists bookings for the back office, newest first
func AdminGetBookings(c *gin.Context) {
	query := database.DB.Model(&database.Booking{}).Order("created_at DESC").Limit(100)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if carID := c.Query("car_id"); carID != "" {
		query = query.Where("car_id = ?", carID)
	}

	var bookings []database.Booking
	if err := query.Find(&bookings).Error; err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, bookings)
}
