package jobs

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"motorent/database"
)

// StartScheduler registers the background jobs and starts the cron loop.
// The returned cron can be stopped on shutdown.
func StartScheduler() *cron.Cron {
	c := cron.New(cron.WithLocation(time.UTC))

	if _, err := c.AddFunc("@every 10m", CompleteFinishedBookings); err != nil {
		log.Printf("Failed to register CompleteFinishedBookings job: %v", err)
	}

	c.Start()
	log.Println("Background scheduler started")
	return c
}

// CompleteFinishedBookings marks Confirmed bookings whose end time has
// passed as Completed.
func CompleteFinishedBookings() {
	result := database.DB.Model(&database.Booking{}).
		Where("status = ? AND end_date <= ?", database.BookingStatusConfirmed, time.Now()).
		Update("status", database.BookingStatusCompleted)
	if result.Error != nil {
		log.Printf("CompleteFinishedBookings failed: %v", result.Error)
		return
	}
	if result.RowsAffected > 0 {
		log.Printf("Marked %d bookings as completed", result.RowsAffected)
	}
}
