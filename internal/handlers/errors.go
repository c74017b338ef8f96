package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/seatrans/ferry-booking-backend/internal/services"
)

// respondError maps domain errors onto HTTP status codes. Anything
// unrecognized is a 500 with a generic message so internals never leak.
func respondError(c *gin.Context, err error) {
	var insufficient *models.InsufficientCapacityError
	var unavailable *models.ScheduleUnavailableError
	var invalid *models.InvalidTransitionError
	var gateway *models.GatewayUnavailableError
	var rateLimited *services.RateLimitError

	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{
			"error":     err.Error(),
			"class":     insufficient.Class,
			"requested": insufficient.Requested,
			"available": insufficient.Available,
		})
	case errors.As(err, &unavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "status": unavailable.Status})
	case errors.As(err, &invalid):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Booking was modified concurrently, please retry"})
	case errors.Is(err, models.ErrScheduleNotOperating):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrPaymentVerificationFailed):
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid notification signature"})
	case errors.As(err, &gateway):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Payment gateway unavailable, please try again"})
	case errors.As(err, &rateLimited):
		if !rateLimited.RetryAfter.IsZero() {
			c.Header("Retry-After", rateLimited.RetryAfter.UTC().Format(http.TimeFormat))
		}
		c.JSON(http.StatusTooManyRequests, gin.H{"error": rateLimited.Message})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
