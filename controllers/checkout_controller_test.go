package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motorent/config"
	"motorent/database"
)

const testRazorpaySecret = "test_rzp_secret"

func signRazorpay(orderID, paymentID string) string {
	h := hmac.New(sha256.New, []byte(testRazorpaySecret))
	h.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}

func createPendingRazorpayBooking(t *testing.T, user database.User, car database.Car, orderID string) database.Booking {
	t.Helper()
	booking := database.Booking{
		UserID:          user.ID,
		CarID:           car.ID,
		CarName:         car.Name,
		StartDate:       time.Now().Add(24 * time.Hour),
		EndDate:         time.Now().Add(27 * time.Hour),
		TotalPrice:      300,
		Status:          database.BookingStatusPending,
		PaymentProvider: database.PaymentProviderRazorpay,
		PaymentOrderID:  orderID,
	}
	require.NoError(t, database.DB.Create(&booking).Error)
	return booking
}

func doVerifyRazorpay(user database.User, orderID, paymentID, signature string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c := authedContext(w, user)
	c.Request = jsonRequest(http.MethodPost, "/api/checkout/razorpay-verify", map[string]string{
		"order_id":   orderID,
		"payment_id": paymentID,
		"signature":  signature,
	})
	VerifyRazorpayPayment(c)
	return w
}

func TestVerifyRazorpaySignature(t *testing.T) {
	payload := "order_abc|pay_xyz"
	good := signRazorpay("order_abc", "pay_xyz")

	assert.True(t, verifyRazorpaySignature(payload, good, testRazorpaySecret))
	assert.False(t, verifyRazorpaySignature(payload, good, "different_secret"))
	assert.False(t, verifyRazorpaySignature(payload, "deadbeef", testRazorpaySecret))
	assert.False(t, verifyRazorpaySignature("order_abc|pay_other", good, testRazorpaySecret))
}

func TestVerifyRazorpayPaymentConfirmsBooking(t *testing.T) {
	setupTestDB(t)
	config.AppConfig.RazorpayKeySecret = testRazorpaySecret

	user := createTestUser(t, "payer@example.com", database.RoleCustomer)
	car := createTestCar(t, "Paid Car", 100, nil)
	booking := createPendingRazorpayBooking(t, user, car, "order_ok_1")

	w := doVerifyRazorpay(user, "order_ok_1", "pay_1", signRazorpay("order_ok_1", "pay_1"))
	assert.Equal(t, http.StatusOK, w.Code)

	var confirmed database.Booking
	require.NoError(t, database.DB.First(&confirmed, booking.ID).Error)
	assert.Equal(t, database.BookingStatusConfirmed, confirmed.Status)
	assert.Equal(t, "pay_1", confirmed.PaymentRef)

	var notifications int64
	database.DB.Model(&database.Notification{}).Where("user_id = ?", user.ID).Count(&notifications)
	assert.Equal(t, int64(1), notifications)

	// Re-verifying a confirmed booking is a no-op success
	w = doVerifyRazorpay(user, "order_ok_1", "pay_1", signRazorpay("order_ok_1", "pay_1"))
	assert.Equal(t, http.StatusOK, w.Code)

	database.DB.Model(&database.Notification{}).Where("user_id = ?", user.ID).Count(&notifications)
	assert.Equal(t, int64(1), notifications)
}

func TestVerifyRazorpayPaymentRejectsBadSignature(t *testing.T) {
	setupTestDB(t)
	config.AppConfig.RazorpayKeySecret = testRazorpaySecret

	user := createTestUser(t, "payer@example.com", database.RoleCustomer)
	car := createTestCar(t, "Unpaid Car", 100, nil)
	booking := createPendingRazorpayBooking(t, user, car, "order_bad_1")

	w := doVerifyRazorpay(user, "order_bad_1", "pay_1", "not_a_real_signature")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Signature computed over a different payment id
	w = doVerifyRazorpay(user, "order_bad_1", "pay_1", signRazorpay("order_bad_1", "pay_2"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var unchanged database.Booking
	require.NoError(t, database.DB.First(&unchanged, booking.ID).Error)
	assert.Equal(t, database.BookingStatusPending, unchanged.Status)
}

func TestVerifyRazorpayPaymentOwnershipAndLookup(t *testing.T) {
	setupTestDB(t)
	config.AppConfig.RazorpayKeySecret = testRazorpaySecret

	owner := createTestUser(t, "owner@example.com", database.RoleCustomer)
	stranger := createTestUser(t, "stranger@example.com", database.RoleCustomer)
	car := createTestCar(t, "Guarded Car", 100, nil)
	createPendingRazorpayBooking(t, owner, car, "order_owned_1")

	// Valid signature, unknown order
	w := doVerifyRazorpay(owner, "order_unknown", "pay_1", signRazorpay("order_unknown", "pay_1"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Valid signature, someone else's booking
	w = doVerifyRazorpay(stranger, "order_owned_1", "pay_1", signRazorpay("order_owned_1", "pay_1"))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestMinorUnitsRoundsToNearestUnit(t *testing.T) {
	// A one-hour rental at 0.60/h with a 5% discount prices at 0.57, whose
	// float form sits just below 57.00 minor units; truncation would charge 56.
	discount := 5.0
	car := database.Car{PricePerHour: 0.6, DiscountPercent: &discount}
	start := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	total := computeTotalPrice(&car, &database.SiteSettings{}, start, start.Add(time.Hour))
	assert.Equal(t, 0.57, total)
	assert.Equal(t, int64(57), minorUnits(total))

	car.PricePerHour = 1.2
	total = computeTotalPrice(&car, &database.SiteSettings{}, start, start.Add(time.Hour))
	assert.Equal(t, 1.14, total)
	assert.Equal(t, int64(114), minorUnits(total))

	assert.Equal(t, int64(30000), minorUnits(300))
	assert.Equal(t, int64(9990), minorUnits(99.9))
}

func TestAttachPaymentOrder(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "attach@example.com", database.RoleCustomer)
	car := createTestCar(t, "Attached Car", 100, nil)
	booking := createPendingRazorpayBooking(t, user, car, "")

	require.NoError(t, attachPaymentOrder(&booking, database.PaymentProviderRazorpay, "order_att_1"))

	var saved database.Booking
	require.NoError(t, database.DB.First(&saved, booking.ID).Error)
	assert.Equal(t, "order_att_1", saved.PaymentOrderID)
	assert.Equal(t, database.PaymentProviderRazorpay, saved.PaymentProvider)

	// A persistence failure must surface: the verify callbacks find the
	// booking by order id, so losing it strands the booking in Pending.
	require.NoError(t, database.DB.Migrator().DropTable(&database.Booking{}))
	assert.Error(t, attachPaymentOrder(&booking, database.PaymentProviderRazorpay, "order_att_2"))
}

func TestConfirmBookingPaymentRejectsNonPending(t *testing.T) {
	setupTestDB(t)
	user := createTestUser(t, "payer@example.com", database.RoleCustomer)
	car := createTestCar(t, "Cancelled Car", 100, nil)

	booking := createPendingRazorpayBooking(t, user, car, "order_cancelled_1")
	require.NoError(t, database.DB.Model(&booking).Update("status", database.BookingStatusCancelled).Error)
	booking.Status = database.BookingStatusCancelled

	status, errMsg := confirmBookingPayment(&booking, "pay_late")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotEmpty(t, errMsg)

	var unchanged database.Booking
	require.NoError(t, database.DB.First(&unchanged, booking.ID).Error)
	assert.Equal(t, database.BookingStatusCancelled, unchanged.Status)
	assert.Empty(t, unchanged.PaymentRef)
}
