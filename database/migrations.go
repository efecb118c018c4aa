package database

import (
	"errors"
	"log"

	"gorm.io/gorm"
)

// RunMigrations runs all database migrations
func RunMigrations() error {
	log.Println("Running database migrations...")

	// AutoMigrate will create tables if they don't exist
	if err := DB.AutoMigrate(
		&User{},
		&UserDocument{},
		&FavoriteCar{},
		&Car{},
		&CarAvailability{},
		&Booking{},
		&SiteSettings{},
		&Notification{},
		&PasswordReset{},
		&AuditLog{},
	); err != nil {
		log.Printf("Migration failed: %v", err)
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// SeedDefaultSettings creates the fixed-id settings row if it is missing
func SeedDefaultSettings() {
	var settings SiteSettings
	err := DB.First(&settings, SettingsID).Error
	if err == nil {
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Failed to check site settings: %v", err)
		return
	}

	settings = SiteSettings{
		ID:                    SettingsID,
		SiteTitle:             "MotoRent",
		DefaultCurrency:       "INR",
		SessionTimeoutMinutes: 24 * 60,
		GlobalDiscountPercent: 0,
	}
	if err := DB.Create(&settings).Error; err != nil {
		log.Printf("Failed to create default site settings: %v", err)
	} else {
		log.Println("Default site settings created.")
	}
}

// SeedDefaultAdmin creates a default admin if none exists
func SeedDefaultAdmin(passwordHash string) {
	var count int64
	if err := DB.Model(&User{}).Where("role = ?", RoleAdmin).Count(&count).Error; err != nil {
		log.Printf("Failed to check existing admin: %v", err)
		return
	}

	if count == 0 {
		admin := User{
			Name:         "Super Admin",
			Email:        "admin@motorent.local",
			PasswordHash: passwordHash,
			Role:         RoleAdmin,
			Address:      "Admin HQ",
			Location:     "Hyderabad",
		}

		if err := DB.Create(&admin).Error; err != nil {
			log.Printf("Failed to create admin: %v", err)
		} else {
			log.Println("Default admin user created successfully.")
		}
	}
}
