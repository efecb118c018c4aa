package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"motorent/database"
)

// CarRequest contains the data for creating/updating a car listing
type CarRequest struct {
	Name               string    `json:"name" binding:"required"`
	Description        string    `json:"description"`
	Type               string    `json:"type" binding:"required"`
	PricePerHour       float64   `json:"price_per_hour" binding:"required,gt=0"`
	MinNegotiablePrice *float64  `json:"min_negotiable_price"`
	MaxNegotiablePrice *float64  `json:"max_negotiable_price"`
	ImageURLs          []string  `json:"image_urls" binding:"required,min=1"`
	Features           []string  `json:"features"`
	Seats              int       `json:"seats" binding:"required,gt=0"`
	Engine             string    `json:"engine"`
	Transmission       string    `json:"transmission"`
	FuelType           string    `json:"fuel_type"`
	Location           string    `json:"location"`
	DiscountPercent    *float64  `json:"discount_percent"`
	Availability       []struct {
		StartDate string `json:"start_date" binding:"required"`
		EndDate   string `json:"end_date" binding:"required"`
	} `json:"availability"`
}

// validateCarRequest checks the enum and negotiable-bounds invariants.
// Returns a non-empty message on failure.
func validateCarRequest(request *CarRequest) string {
	validType := false
	for _, t := range database.CarTypes {
		if request.Type == t {
			validType = true
			break
		}
	}
	if !validType {
		return "Invalid car type"
	}

	// Negotiable bounds never cross the hourly price
	if request.MinNegotiablePrice != nil && *request.MinNegotiablePrice > request.PricePerHour {
		return "min_negotiable_price cannot exceed price_per_hour"
	}
	if request.MaxNegotiablePrice != nil && *request.MaxNegotiablePrice < request.PricePerHour {
		return "max_negotiable_price cannot be below price_per_hour"
	}
	if request.MinNegotiablePrice != nil && request.MaxNegotiablePrice != nil &&
		*request.MinNegotiablePrice > *request.MaxNegotiablePrice {
		return "min_negotiable_price cannot exceed max_negotiable_price"
	}

	if request.DiscountPercent != nil && (*request.DiscountPercent < 0 || *request.DiscountPercent > 100) {
		return "discount_percent must be between 0 and 100"
	}

	return ""
}

func encodeStringList(list []string) string {
	raw, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// CreateCar creates a new car listing (admin)
func CreateCar(c *gin.Context) {
	var request CarRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	if msg := validateCarRequest(&request); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	car := database.Car{
		Name:               request.Name,
		Description:        request.Description,
		Type:               request.Type,
		PricePerHour:       request.PricePerHour,
		MinNegotiablePrice: request.MinNegotiablePrice,
		MaxNegotiablePrice: request.MaxNegotiablePrice,
		ImageURLs:          encodeStringList(request.ImageURLs),
		Features:           encodeStringList(request.Features),
		Seats:              request.Seats,
		Engine:             request.Engine,
		Transmission:       request.Transmission,
		FuelType:           request.FuelType,
		Location:           request.Location,
		DiscountPercent:    request.DiscountPercent,
		IsActive:           true,
	}

	for _, window := range request.Availability {
		start, err := time.Parse(time.RFC3339, window.StartDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid availability start_date"})
			return
		}
		end, err := time.Parse(time.RFC3339, window.EndDate)
		if err != nil || !end.After(start) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid availability window"})
			return
		}
		car.Availability = append(car.Availability, database.CarAvailability{
			StartDate: start,
			EndDate:   end,
		})
	}

	if err := database.DB.Create(&car).Error; err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating car"})
		return
	}

	auditAction(c, "car_created", "car", car.ID, car.Name)

	c.JSON(http.StatusCreated, gin.H{
		"message": "Car created successfully",
		"car":     car,
	})
}

// UpdateCar updates a car listing (admin)
func UpdateCar(c *gin.Context) {
	carID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid car ID"})
		return
	}

	var request CarRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	if msg := validateCarRequest(&request); msg != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	var car database.Car
	result := database.DB.First(&car, carID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Car not found"})
			return
		}
		log.Printf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	car.Name = request.Name
	car.Description = request.Description
	car.Type = request.Type
	car.PricePerHour = request.PricePerHour
	car.MinNegotiablePrice = request.MinNegotiablePrice
	car.MaxNegotiablePrice = request.MaxNegotiablePrice
	car.ImageURLs = encodeStringList(request.ImageURLs)
	car.Features = encodeStringList(request.Features)
	car.Seats = request.Seats
	car.Engine = request.Engine
	car.Transmission = request.Transmission
	car.FuelType = request.FuelType
	car.Location = request.Location
	car.DiscountPercent = request.DiscountPercent

	tx := database.DB.Begin()
	if tx.Error != nil {
		log.Printf("Transaction error: %v", tx.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if err := tx.Save(&car).Error; err != nil {
		tx.Rollback()
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating car"})
		return
	}

	if len(request.Availability) > 0 {
		if err := tx.Where("car_id = ?", car.ID).Delete(&database.CarAvailability{}).Error; err != nil {
			tx.Rollback()
			log.Printf("Database error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating availability"})
			return
		}
		for _, window := range request.Availability {
			start, err := time.Parse(time.RFC3339, window.StartDate)
			if err != nil {
				tx.Rollback()
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid availability start_date"})
				return
			}
			end, err := time.Parse(time.RFC3339, window.EndDate)
			if err != nil || !end.After(start) {
				tx.Rollback()
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid availability window"})
				return
			}
			if err := tx.Create(&database.CarAvailability{
				CarID:     car.ID,
				StartDate: start,
				EndDate:   end,
			}).Error; err != nil {
				tx.Rollback()
				log.Printf("Database error: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Error updating availability"})
				return
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		log.Printf("Transaction commit error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	auditAction(c, "car_updated", "car", car.ID, car.Name)

	c.JSON(http.StatusOK, gin.H{
		"message": "Car updated successfully",
		"car":     car,
	})
}

// DeleteCar removes a car listing. Deletion is blocked while Pending or
// Confirmed bookings still reference the car.
func DeleteCar(c *gin.Context) {
	carID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid car ID"})
		return
	}

	var car database.Car
	result := database.DB.First(&car, carID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Car not found"})
			return
		}
		log.Printf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	var active int64
	err = database.DB.Model(&database.Booking{}).
		Where("car_id = ? AND status IN ?", car.ID, activeBookingStatuses).
		Count(&active).Error
	if err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if active > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Car has active or pending bookings"})
		return
	}

	if err := database.DB.Delete(&car).Error; err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error deleting car"})
		return
	}

	auditAction(c, "car_deleted", "car", car.ID, car.Name)

	c.JSON(http.StatusOK, gin.H{"message": "Car deleted successfully"})
}

// ToggleCarStatus flips a car's active flag (admin)
func ToggleCarStatus(c *gin.Context) {
	carID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid car ID"})
		return
	}

	var car database.Car
	result := database.DB.First(&car, carID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Car not found"})
			return
		}
		log.Printf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if err := database.DB.Model(&car).Update("is_active", !car.IsActive).Error; err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Car status updated",
		"is_active": !car.IsActive,
	})
}

// GetCarByID returns one car listing with its availability windows
func GetCarByID(c *gin.Context) {
	carID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid car ID"})
		return
	}

	var car database.Car
	result := database.DB.Preload("Availability").First(&car, carID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Car not found"})
			return
		}
		log.Printf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	c.JSON(http.StatusOK, car)
}

// GetCars searches the catalog. Filters: free text over name/description,
// type, price range, location substring and an optional requested time
// window. When a window is given, a car is listed only if the window falls
// inside one of its availability windows and no Confirmed booking overlaps
// it. Pagination runs after availability filtering.
func GetCars(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "12"))
	if limit < 1 || limit > 100 {
		limit = 12
	}

	query := database.DB.Model(&database.Car{}).
		Preload("Availability").
		Where("is_active = ?", true)

	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	if carType := c.Query("type"); carType != "" {
		query = query.Where("type = ?", carType)
	}
	if location := c.Query("location"); location != "" {
		query = query.Where("location LIKE ?", "%"+location+"%")
	}
	if minPrice := c.Query("min_price"); minPrice != "" {
		if v, err := strconv.ParseFloat(minPrice, 64); err == nil {
			query = query.Where("price_per_hour >= ?", v)
		}
	}
	if maxPrice := c.Query("max_price"); maxPrice != "" {
		if v, err := strconv.ParseFloat(maxPrice, 64); err == nil {
			query = query.Where("price_per_hour <= ?", v)
		}
	}

	var cars []database.Car
	if err := query.Order("created_at DESC").Find(&cars).Error; err != nil {
		log.Printf("Database error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	// Optional requested time window
	startStr, endStr := c.Query("start_date"), c.Query("end_date")
	if startStr != "" && endStr != "" {
		start, err1 := time.Parse(time.RFC3339, startStr)
		end, err2 := time.Parse(time.RFC3339, endStr)
		if err1 != nil || err2 != nil || !end.After(start) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid time window"})
			return
		}
		cars, err := filterAvailable(cars, start, end)
		if err != nil {
			log.Printf("Database error: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}

		paginated, total := paginateCars(cars, page, limit)
		c.JSON(http.StatusOK, gin.H{
			"cars":  paginated,
			"total": total,
			"page":  page,
			"limit": limit,
		})
		return
	}

	paginated, total := paginateCars(cars, page, limit)
	c.JSON(http.StatusOK, gin.H{
		"cars":  paginated,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// filterAvailable keeps cars whose availability windows contain [start,end)
// and which have no Confirmed booking overlapping it
func filterAvailable(cars []database.Car, start, end time.Time) ([]database.Car, error) {
	if len(cars) == 0 {
		return cars, nil
	}

	carIDs := make([]uint, 0, len(cars))
	for _, car := range cars {
		carIDs = append(carIDs, car.ID)
	}

	var conflicts []database.Booking
	err := database.DB.
		Where("car_id IN ? AND status = ? AND start_date < ? AND end_date > ?",
			carIDs, database.BookingStatusConfirmed, end, start).
		Find(&conflicts).Error
	if err != nil {
		return nil, err
	}

	booked := make(map[uint]bool, len(conflicts))
	for _, b := range conflicts {
		booked[b.CarID] = true
	}

	available := make([]database.Car, 0, len(cars))
	for _, car := range cars {
		if booked[car.ID] {
			continue
		}
		covered := false
		for _, window := range car.Availability {
			if !window.StartDate.After(start) && !end.After(window.EndDate) {
				covered = true
				break
			}
		}
		if covered {
			available = append(available, car)
		}
	}

	return available, nil
}

func paginateCars(cars []database.Car, page, limit int) ([]database.Car, int) {
	total := len(cars)
	offset := (page - 1) * limit
	if offset >= total {
		return []database.Car{}, total
	}
	endIdx := offset + limit
	if endIdx > total {
		endIdx = total
	}
	return cars[offset:endIdx], total
}
