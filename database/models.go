package database

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account in the system
type User struct {
	gorm.Model
	Name         string         `json:"name"`
	Email        string         `json:"email" gorm:"uniqueIndex"`
	PasswordHash string         `json:"-"`
	Role         string         `json:"role"`
	Phone        string         `json:"phone"`
	Address      string         `json:"address"`
	Location     string         `json:"location"`
	Documents    []UserDocument `json:"documents"`
}

// UserDocument is a verification document uploaded by a user.
// At most one document per type exists for a user; a new upload of the
// same type replaces the previous entry.
type UserDocument struct {
	gorm.Model
	UserID        uint       `json:"user_id" gorm:"index"`
	Type          string     `json:"type"`
	FileName      string     `json:"file_name"`
	FilePath      string     `json:"file_path"`
	Status        string     `json:"status"`
	UploadedAt    time.Time  `json:"uploaded_at"`
	VerifiedAt    *time.Time `json:"verified_at"`
	VerifiedBy    *uint      `json:"verified_by"`
	AdminComments string     `json:"admin_comments"`
}

// FavoriteCar links a user to a car they bookmarked
type FavoriteCar struct {
	gorm.Model
	UserID uint `json:"user_id" gorm:"index;uniqueIndex:idx_fav_user_car"`
	CarID  uint `json:"car_id" gorm:"uniqueIndex:idx_fav_user_car"`
	Car    Car  `gorm:"foreignKey:CarID" json:"car"`
}

// Car represents a rentable car listing
type Car struct {
	gorm.Model
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	Type               string            `json:"type"`
	PricePerHour       float64           `json:"price_per_hour"`
	MinNegotiablePrice *float64          `json:"min_negotiable_price"`
	MaxNegotiablePrice *float64          `json:"max_negotiable_price"`
	ImageURLs          string            `json:"image_urls"` // JSON-encoded list
	Features           string            `json:"features"`   // JSON-encoded list
	Seats              int               `json:"seats"`
	Engine             string            `json:"engine"`
	Transmission       string            `json:"transmission"`
	FuelType           string            `json:"fuel_type"`
	Rating             float64           `json:"rating"`
	ReviewsCount       int               `json:"reviews_count"`
	Location           string            `json:"location"`
	DiscountPercent    *float64          `json:"discount_percent"`
	IsActive           bool              `json:"is_active" gorm:"column:is_active"`
	Availability       []CarAvailability `json:"availability"`
}

// CarAvailability is a general availability window for a car
type CarAvailability struct {
	gorm.Model
	CarID     uint      `json:"car_id" gorm:"index"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Booking represents a rental booking. Car and user display fields are
// copied at creation time so historical bookings remain readable even if
// the source records later change.
type Booking struct {
	gorm.Model
	CarID            uint      `json:"car_id" gorm:"index"`
	CarName          string    `json:"car_name"`
	CarImageURL      string    `json:"car_image_url"`
	UserID           uint      `json:"user_id" gorm:"index"`
	UserName         string    `json:"user_name"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	TotalPrice       float64   `json:"total_price"`
	Status           string    `json:"status"`
	PaymentProvider  string    `json:"payment_provider"`
	PaymentOrderID   string    `json:"payment_order_id"`
	PaymentRef       string    `json:"payment_ref"`
	CancellationNote string    `json:"cancellation_note"`
	Car              Car       `gorm:"foreignKey:CarID" json:"car"`
	User             User      `gorm:"foreignKey:UserID" json:"user"`
}

// SiteSettings is the single global configuration row (fixed id)
type SiteSettings struct {
	ID                    uint      `json:"id" gorm:"primaryKey"`
	SiteTitle             string    `json:"site_title"`
	DefaultCurrency       string    `json:"default_currency"`
	MaintenanceMode       bool      `json:"maintenance_mode"`
	SessionTimeoutMinutes int       `json:"session_timeout_minutes"`
	GlobalDiscountPercent float64   `json:"global_discount_percent"`
	SMTPHost              string    `json:"smtp_host"`
	SMTPPort              int       `json:"smtp_port"`
	SMTPUser              string    `json:"smtp_user"`
	SMTPPassword          string    `json:"-"`
	SMTPFrom              string    `json:"smtp_from"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Notification represents a system notification
type Notification struct {
	gorm.Model
	UserID      uint   `json:"user_id" gorm:"index"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	Type        string `json:"type"`
	RelatedID   *uint  `json:"related_id"`
	RelatedType string `json:"related_type"`
	IsRead      bool   `json:"is_read"`
	User        User   `gorm:"foreignKey:UserID" json:"user"`
}

// PasswordReset represents a password reset request
type PasswordReset struct {
	gorm.Model
	UserID    uint      `json:"user_id"`
	Token     string    `json:"token" gorm:"index"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `gorm:"foreignKey:UserID" json:"user"`
}

// AuditLog records admin mutations for traceability
type AuditLog struct {
	gorm.Model
	UserID     *uint  `json:"user_id"`
	Action     string `json:"action"`
	EntityType string `json:"entity_type"`
	EntityID   uint   `json:"entity_id"`
	Detail     string `json:"detail"`
	IPAddress  string `json:"ip_address"`
}

// SettingsID is the fixed primary key of the SiteSettings row
const SettingsID uint = 1

// Constants for status values
const (
	BookingStatusPending               = "Pending"
	BookingStatusConfirmed             = "Confirmed"
	BookingStatusCancelled             = "Cancelled"
	BookingStatusCompleted             = "Completed"
	BookingStatusCancellationRequested = "Cancellation Requested"
	// Display-only marker accepted by the admin status endpoint; the reject
	// action itself returns a booking to Confirmed.
	BookingStatusCancellationRejected = "Cancellation Rejected"

	DocumentStatusPending  = "Pending"
	DocumentStatusApproved = "Approved"
	DocumentStatusRejected = "Rejected"

	DocumentTypePhotoID        = "photo_id"
	DocumentTypeDrivingLicense = "driving_license"

	PaymentProviderRazorpay = "razorpay"
	PaymentProviderStripe   = "stripe"

	// User roles
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleCustomer = "customer"
)

// CarTypes are the accepted body styles for a car listing
var CarTypes = []string{"sedan", "suv", "hatchback", "convertible", "coupe", "pickup", "van"}

// DocumentTypes are the accepted verification document types
var DocumentTypes = []string{DocumentTypePhotoID, DocumentTypeDrivingLicense}
