package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"motorent/config"
	"motorent/database"
)

// setupTestDB points the global DB at a fresh in-memory sqlite database and
// seeds the fixed settings row.
func setupTestDB(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.InitConfig()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	database.DB = db
	require.NoError(t, database.RunMigrations())
	database.SeedDefaultSettings()
}

func createTestUser(t *testing.T, email, role string) database.User {
	t.Helper()
	user := database.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, database.DB.Create(&user).Error)
	return user
}

func createTestCar(t *testing.T, name string, pricePerHour float64, discount *float64) database.Car {
	t.Helper()
	car := database.Car{
		Name:            name,
		Type:            "sedan",
		PricePerHour:    pricePerHour,
		ImageURLs:       `["/uploads/test.jpg"]`,
		Features:        `["AC"]`,
		Seats:           5,
		Location:        "Hyderabad",
		DiscountPercent: discount,
		IsActive:        true,
	}
	require.NoError(t, database.DB.Create(&car).Error)
	return car
}

// authedContext builds a gin test context carrying the auth middleware keys
func authedContext(w *httptest.ResponseRecorder, user database.User) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	c.Set("userID", user.ID)
	c.Set("email", user.Email)
	c.Set("role", user.Role)
	c.Set("name", user.Name)
	return c
}

func jsonRequest(method, target string, payload interface{}) *http.Request {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func setGlobalDiscount(t *testing.T, percent float64) {
	t.Helper()
	err := database.DB.Model(&database.SiteSettings{}).
		Where("id = ?", database.SettingsID).
		Update("global_discount_percent", percent).Error
	require.NoError(t, err)
}
