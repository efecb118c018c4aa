package controllers

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorent/database"
)

func bookingPayload(carID uint, start, end time.Time) BookingRequest {
	return BookingRequest{
		CarID:     carID,
		StartDate: start.Format(time.RFC3339),
		EndDate:   end.Format(time.RFC3339),
	}
}

func doCreateBooking(user database.User, payload BookingRequest) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c := authedContext(w, user)
	c.Request = jsonRequest(http.MethodPost, "/api/bookings", payload)
	CreateBooking(c)
	return w
}

func lastBooking(t *testing.T) database.Booking {
	t.Helper()
	var booking database.Booking
	require.NoError(t, database.DB.Order("id DESC").First(&booking).Error)
	return booking
}

func TestCreateBookingPricing(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "pricing@test.local", database.RoleCustomer)
	car := createTestCar(t, "Swift", 100, nil)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	w := doCreateBooking(user, bookingPayload(car.ID, start, start.Add(3*time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	booking := lastBooking(t)
	assert.Equal(t, 300.0, booking.TotalPrice)
	assert.Equal(t, database.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, "Swift", booking.CarName)
	assert.Equal(t, "/uploads/test.jpg", booking.CarImageURL)
	assert.Equal(t, user.ID, booking.UserID)
}

func TestCreateBookingGlobalDiscount(t *testing.T) {
	setupTestDB(t)
	setGlobalDiscount(t, 10)
	user := createTestUser(t, "discount@test.local", database.RoleCustomer)
	car := createTestCar(t, "City", 50, nil)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	w := doCreateBooking(user, bookingPayload(car.ID, start, start.Add(2*time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	assert.Equal(t, 90.0, lastBooking(t).TotalPrice)
}

func TestCreateBookingCarDiscountOverridesGlobal(t *testing.T) {
	setupTestDB(t)
	setGlobalDiscount(t, 10)
	carDiscount := 20.0
	user := createTestUser(t, "override@test.local", database.RoleCustomer)
	car := createTestCar(t, "Verna", 100, &carDiscount)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	w := doCreateBooking(user, bookingPayload(car.ID, start, start.Add(time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	assert.Equal(t, 80.0, lastBooking(t).TotalPrice)
}

func TestCreateBookingOverlapConflict(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "overlap@test.local", database.RoleCustomer)
	car := createTestCar(t, "Creta", 100, nil)

	day := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	at := func(h int) time.Time { return day.Add(time.Duration(h) * time.Hour) }

	// 10:00-13:00 books fine
	w := doCreateBooking(user, bookingPayload(car.ID, at(10), at(13)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// 12:00-14:00 overlaps
	w = doCreateBooking(user, bookingPayload(car.ID, at(12), at(14)))
	assert.Equal(t, http.StatusConflict, w.Code)

	// Fully containing window also overlaps
	w = doCreateBooking(user, bookingPayload(car.ID, at(9), at(15)))
	assert.Equal(t, http.StatusConflict, w.Code)

	// 13:00-14:00 is adjacent, not overlapping
	w = doCreateBooking(user, bookingPayload(car.ID, at(13), at(14)))
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Other cars are unaffected
	other := createTestCar(t, "Nexon", 80, nil)
	w = doCreateBooking(user, bookingPayload(other.ID, at(12), at(14)))
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCreateBookingPendingHoldsRange(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "pending@test.local", database.RoleCustomer)
	car := createTestCar(t, "i20", 100, nil)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	pending := database.Booking{
		CarID:     car.ID,
		UserID:    user.ID,
		StartDate: start,
		EndDate:   start.Add(2 * time.Hour),
		Status:    database.BookingStatusPending,
	}
	require.NoError(t, database.DB.Create(&pending).Error)

	w := doCreateBooking(user, bookingPayload(car.ID, start.Add(time.Hour), start.Add(3*time.Hour)))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateBookingValidation(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "validation@test.local", database.RoleCustomer)
	car := createTestCar(t, "Polo", 100, nil)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)

	// end before start
	w := doCreateBooking(user, bookingPayload(car.ID, start, start.Add(-time.Hour)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// shorter than one hour
	w = doCreateBooking(user, bookingPayload(car.ID, start, start.Add(30*time.Minute)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// start in the past for a customer
	w = doCreateBooking(user, bookingPayload(car.ID, time.Now().Add(-2*time.Hour), time.Now().Add(2*time.Hour)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// unknown car
	w = doCreateBooking(user, bookingPayload(9999, start, start.Add(time.Hour)))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// inactive car
	require.NoError(t, database.DB.Model(&car).Update("is_active", false).Error)
	w = doCreateBooking(user, bookingPayload(car.ID, start, start.Add(time.Hour)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// malformed timestamp
	w = doCreateBooking(user, BookingRequest{CarID: car.ID, StartDate: "tomorrow", EndDate: "later"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBookingAdminCanBackdate(t *testing.T) {
	setupTestDB(t)
	admin := createTestUser(t, "admin@test.local", database.RoleAdmin)
	car := createTestCar(t, "Fortuner", 200, nil)

	start := time.Now().Add(-3 * time.Hour).Truncate(time.Hour)
	w := doCreateBooking(admin, bookingPayload(car.ID, start, start.Add(2*time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 400.0, lastBooking(t).TotalPrice)
}

func requestCancellation(user database.User, bookingID uint) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c := authedContext(w, user)
	c.Request = jsonRequest(http.MethodPost, "/api/bookings/1/request-cancellation", nil)
	c.Params = gin.Params{{Key: "id", Value: itoa(bookingID)}}
	RequestCancellation(c)
	return w
}

func decideCancellation(admin database.User, bookingID uint, approve bool) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c := authedContext(w, admin)
	c.Request = jsonRequest(http.MethodPost, "/decision", CancellationDecisionRequest{Note: "reviewed"})
	c.Params = gin.Params{{Key: "id", Value: itoa(bookingID)}}
	if approve {
		ApproveCancellation(c)
	} else {
		RejectCancellation(c)
	}
	return w
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func bookingStatus(t *testing.T, id uint) string {
	t.Helper()
	var booking database.Booking
	require.NoError(t, database.DB.First(&booking, id).Error)
	return booking.Status
}

func TestCancellationWorkflow(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "cancel@test.local", database.RoleCustomer)
	admin := createTestUser(t, "cancel-admin@test.local", database.RoleAdmin)
	car := createTestCar(t, "Altroz", 100, nil)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	w := doCreateBooking(user, bookingPayload(car.ID, start, start.Add(2*time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code)
	booking := lastBooking(t)

	// Request, then admin rejects: back to Confirmed
	w = requestCancellation(user, booking.ID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, database.BookingStatusCancellationRequested, bookingStatus(t, booking.ID))

	w = decideCancellation(admin, booking.ID, false)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, database.BookingStatusConfirmed, bookingStatus(t, booking.ID))

	// Rejection is not terminal: the user may request again
	w = requestCancellation(user, booking.ID)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Admin approves: Cancelled, and re-approval is a no-op success
	w = decideCancellation(admin, booking.ID, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, database.BookingStatusCancelled, bookingStatus(t, booking.ID))

	w = decideCancellation(admin, booking.ID, true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, database.BookingStatusCancelled, bookingStatus(t, booking.ID))
}

func TestCancellationDecisionOnUnrequestedBooking(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "decision@test.local", database.RoleCustomer)
	admin := createTestUser(t, "decision-admin@test.local", database.RoleAdmin)
	car := createTestCar(t, "Venue", 100, nil)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	w := doCreateBooking(user, bookingPayload(car.ID, start, start.Add(2*time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code)
	booking := lastBooking(t)

	// No cancellation was ever requested: both decisions conflict
	w = decideCancellation(admin, booking.ID, true)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, database.BookingStatusConfirmed, bookingStatus(t, booking.ID))

	require.NoError(t, database.DB.Model(&database.Booking{}).
		Where("id = ?", booking.ID).
		Update("status", database.BookingStatusCompleted).Error)
	w = decideCancellation(admin, booking.ID, true)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = decideCancellation(admin, booking.ID, false)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, database.BookingStatusCompleted, bookingStatus(t, booking.ID))

	// The decision's own outcome state stays a no-op success
	require.NoError(t, database.DB.Model(&database.Booking{}).
		Where("id = ?", booking.ID).
		Update("status", database.BookingStatusCancelled).Error)
	w = decideCancellation(admin, booking.ID, true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCancellationGuards(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "guards@test.local", database.RoleCustomer)
	stranger := createTestUser(t, "stranger@test.local", database.RoleCustomer)
	car := createTestCar(t, "Baleno", 100, nil)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	w := doCreateBooking(user, bookingPayload(car.ID, start, start.Add(2*time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code)
	booking := lastBooking(t)

	// Not the owner
	w = requestCancellation(stranger, booking.ID)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Already started
	require.NoError(t, database.DB.Model(&database.Booking{}).
		Where("id = ?", booking.ID).
		Update("start_date", time.Now().Add(-time.Hour)).Error)
	w = requestCancellation(user, booking.ID)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Not Confirmed
	require.NoError(t, database.DB.Model(&database.Booking{}).
		Where("id = ?", booking.ID).
		Updates(map[string]interface{}{
			"start_date": start,
			"status":     database.BookingStatusPending,
		}).Error)
	w = requestCancellation(user, booking.ID)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateBookingStatus(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "status@test.local", database.RoleCustomer)
	admin := createTestUser(t, "status-admin@test.local", database.RoleAdmin)
	car := createTestCar(t, "Harrier", 100, nil)

	start := time.Now().Add(24 * time.Hour).Truncate(time.Hour)
	w := doCreateBooking(user, bookingPayload(car.ID, start, start.Add(2*time.Hour)))
	require.Equal(t, http.StatusCreated, w.Code)
	booking := lastBooking(t)

	setStatus := func(status string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		c := authedContext(w, admin)
		c.Request = jsonRequest(http.MethodPut, "/status", BookingStatusRequest{Status: status})
		c.Params = gin.Params{{Key: "id", Value: itoa(booking.ID)}}
		UpdateBookingStatus(c)
		return w
	}

	w = setStatus(database.BookingStatusCompleted)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, database.BookingStatusCompleted, bookingStatus(t, booking.ID))

	w = setStatus("Teleported")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
