package controllers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/razorpay/razorpay-go"
	"github.com/stripe/stripe-go/v78"
	checkoutsession "github.com/stripe/stripe-go/v78/checkout/session"
	"gorm.io/gorm"

	"motorent/config"
	"motorent/database"
)

// RazorpayOrderRequest contains the booking details for the order/verify path
type RazorpayOrderRequest struct {
	BookingRequest
}

// PaymentVerificationRequest contains data for verifying a Razorpay payment
type PaymentVerificationRequest struct {
	PaymentID string `json:"payment_id" binding:"required"`
	OrderID   string `json:"order_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// CheckoutSessionRequest contains the booking details for the hosted path
type CheckoutSessionRequest struct {
	BookingRequest
}

// CheckoutConfirmRequest identifies the hosted session to confirm
type CheckoutConfirmRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// minorUnits converts a major-unit price to the smallest currency unit,
// rounded to the nearest unit. Plain truncation undercharges by one unit
// for totals like 0.57 whose float representation sits just below x.00.
func minorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// attachPaymentOrder records the provider order id on the booking. The
// verification callbacks look the booking up by this id, so a failure here
// leaves the booking unconfirmable and must fail the checkout attempt.
func attachPaymentOrder(booking *database.Booking, provider, orderID string) error {
	return database.DB.Model(booking).Updates(map[string]interface{}{
		"payment_provider": provider,
		"payment_order_id": orderID,
	}).Error
}

// CreateRazorpayOrder creates a Pending booking and a Razorpay order sized
// to its total price in minor currency units
func CreateRazorpayOrder(c *gin.Context) {
	var request RazorpayOrderRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	booking, status, errMsg := createBookingWithStatus(c, request.BookingRequest, database.BookingStatusPending)
	if booking == nil {
		c.JSON(status, gin.H{"error": errMsg})
		return
	}

	settings, err := database.GetSiteSettings(c.Request.Context())
	if err != nil {
		log.Printf("Settings error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	client := razorpay.NewClient(config.AppConfig.RazorpayKeyID, config.AppConfig.RazorpayKeySecret)

	// Razorpay uses the smallest currency unit
	amountMinor := minorUnits(booking.TotalPrice)

	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": settings.DefaultCurrency,
		"receipt":  fmt.Sprintf("booking_%d", booking.ID),
		"notes": map[string]interface{}{
			"booking_id": booking.ID,
			"user_id":    booking.UserID,
		},
	}

	razorpayOrder, err := client.Order.Create(data, nil)
	if err != nil {
		log.Printf("Razorpay order creation error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating payment order"})
		return
	}

	orderID, _ := razorpayOrder["id"].(string)
	if err := attachPaymentOrder(booking, database.PaymentProviderRazorpay, orderID); err != nil {
		log.Printf("Database error updating booking: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving payment order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"razorpay_order_id": orderID,
		"amount":            booking.TotalPrice,
		"currency":          settings.DefaultCurrency,
		"key":               config.AppConfig.RazorpayKeyID,
		"booking_id":        booking.ID,
	})
}

// VerifyRazorpayPayment verifies a completed Razorpay payment. The expected
// signature is recomputed from order id + payment id with the key secret and
// the booking is confirmed only on exact match.
func VerifyRazorpayPayment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found"})
		return
	}

	var request PaymentVerificationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	payload := request.OrderID + "|" + request.PaymentID
	if !verifyRazorpaySignature(payload, request.Signature, config.AppConfig.RazorpayKeySecret) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment signature"})
		return
	}

	var booking database.Booking
	result := database.DB.
		Where("payment_order_id = ? AND payment_provider = ?", request.OrderID, database.PaymentProviderRazorpay).
		First(&booking)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found for this order"})
			return
		}
		log.Printf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if booking.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This booking doesn't belong to you"})
		return
	}

	status, errMsg := confirmBookingPayment(&booking, request.PaymentID)
	if errMsg != "" {
		c.JSON(status, gin.H{"error": errMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Payment verified successfully",
		"status":  database.BookingStatusConfirmed,
	})
}

func verifyRazorpaySignature(data, signature, secret string) bool {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(data))
	expectedSignature := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expectedSignature), []byte(signature))
}

// CreateCheckoutSession creates a Pending booking and a Stripe hosted
// Checkout Session for it. The booking stays Pending until the session is
// confirmed server-side; the redirect alone never confirms it.
func CreateCheckoutSession(c *gin.Context) {
	var request CheckoutSessionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	booking, status, errMsg := createBookingWithStatus(c, request.BookingRequest, database.BookingStatusPending)
	if booking == nil {
		c.JSON(status, gin.H{"error": errMsg})
		return
	}

	settings, err := database.GetSiteSettings(c.Request.Context())
	if err != nil {
		log.Printf("Settings error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	stripe.Key = config.AppConfig.StripeSecretKey

	amountMinor := minorUnits(booking.TotalPrice)
	currency := settings.DefaultCurrency
	if currency == "" {
		currency = "inr"
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(booking.CarName),
					},
					UnitAmount: stripe.Int64(amountMinor),
				},
				Quantity: stripe.Int64(1),
			},
		},
		ClientReferenceID: stripe.String(fmt.Sprintf("%d", booking.ID)),
		SuccessURL:        stripe.String(config.AppConfig.AppURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(config.AppConfig.AppURL + "/checkout/cancel"),
	}

	session, err := checkoutsession.New(params)
	if err != nil {
		log.Printf("Stripe session creation error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating checkout session"})
		return
	}

	if err := attachPaymentOrder(booking, database.PaymentProviderStripe, session.ID); err != nil {
		log.Printf("Database error updating booking: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error saving payment order"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":   session.ID,
		"checkout_url": session.URL,
		"booking_id":   booking.ID,
		"amount":       booking.TotalPrice,
	})
}

// ConfirmCheckoutSession confirms a Stripe-paid booking. The session is
// re-read from Stripe and the booking is confirmed only when Stripe itself
// reports the session as paid.
func ConfirmCheckoutSession(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found"})
		return
	}

	var request CheckoutConfirmRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	var booking database.Booking
	result := database.DB.
		Where("payment_order_id = ? AND payment_provider = ?", request.SessionID, database.PaymentProviderStripe).
		First(&booking)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found for this session"})
			return
		}
		log.Printf("Database error: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}

	if booking.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "This booking doesn't belong to you"})
		return
	}

	stripe.Key = config.AppConfig.StripeSecretKey

	session, err := checkoutsession.Get(request.SessionID, nil)
	if err != nil {
		log.Printf("Stripe session retrieve error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving checkout session"})
		return
	}

	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Payment has not completed"})
		return
	}

	paymentRef := ""
	if session.PaymentIntent != nil {
		paymentRef = session.PaymentIntent.ID
	}

	status, errMsg := confirmBookingPayment(&booking, paymentRef)
	if errMsg != "" {
		c.JSON(status, gin.H{"error": errMsg})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Payment confirmed successfully",
		"status":  database.BookingStatusConfirmed,
	})
}
