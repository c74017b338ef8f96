package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/seatrans/ferry-booking-backend/internal/database"
)

// RateLimitService throttles booking creation per user. Unpaid bookings hold
// capacity until they expire, so a user hammering the booking endpoint could
// lock out a whole sailing without paying for anything.
type RateLimitService struct {
	db    database.DB
	clock Clock
}

// NewRateLimitService creates a new rate limit service
func NewRateLimitService(db database.DB, clock Clock) *RateLimitService {
	return &RateLimitService{
		db:    db,
		clock: clock,
	}
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	MaxBookings int           // max bookings a user may create per window
	Window      time.Duration // sliding window size
	MaxPending  int           // max simultaneously unpaid bookings per user
}

// DefaultRateLimitConfig returns the default rate limit configuration
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxBookings: 10,
		Window:      1 * time.Hour,
		MaxPending:  3,
	}
}

// RateLimitError represents a rate limit exceeded error
type RateLimitError struct {
	Message    string
	RetryAfter time.Time
}

func (e *RateLimitError) Error() string {
	return e.Message
}

// CheckBookingRateLimit rejects booking creation when the user has too many
// recent bookings or too many unpaid ones outstanding.
func (s *RateLimitService) CheckBookingRateLimit(userID string) error {
	config := DefaultRateLimitConfig()

	count, lastCreated, err := s.recentBookingCount(userID, config.Window)
	if err != nil {
		return fmt.Errorf("failed to check booking rate limit: %w", err)
	}
	if count >= config.MaxBookings {
		retryAfter := lastCreated.Add(config.Window)
		return &RateLimitError{
			Message:    fmt.Sprintf("Too many bookings created recently. Please try again after %s", retryAfter.Format("15:04:05")),
			RetryAfter: retryAfter,
		}
	}

	pending, err := s.pendingBookingCount(userID)
	if err != nil {
		return fmt.Errorf("failed to check pending bookings: %w", err)
	}
	if pending >= config.MaxPending {
		return &RateLimitError{
			Message: "Too many unpaid bookings. Please complete or cancel an existing booking first.",
		}
	}

	return nil
}

// recentBookingCount counts the user's bookings created inside the window
func (s *RateLimitService) recentBookingCount(userID string, window time.Duration) (int, time.Time, error) {
	windowStart := s.clock.Now().Add(-window)

	var count int
	var lastCreated time.Time
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(MAX(created_at), NOW())
		FROM bookings
		WHERE user_id = $1 AND created_at > $2`,
		userID, windowStart,
	).Scan(&count, &lastCreated)
	if err != nil && err != sql.ErrNoRows {
		return 0, time.Time{}, err
	}

	return count, lastCreated, nil
}

// pendingBookingCount counts the user's unpaid bookings still holding capacity
func (s *RateLimitService) pendingBookingCount(userID string) (int, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*)
		FROM bookings
		WHERE user_id = $1 AND status = 'pending'`,
		userID,
	).Scan(&count)
	if err != nil && err != sql.ErrNoRows {
		return 0, err
	}

	return count, nil
}
