package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seatrans/ferry-booking-backend/internal/middleware"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/seatrans/ferry-booking-backend/internal/services"
)

// BookingHandler handles passenger booking operations
type BookingHandler struct {
	reservationSvc *services.ReservationService
	statusSvc      *services.BookingStatusService
	rateLimiter    *services.RateLimitService
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(reservationSvc *services.ReservationService, statusSvc *services.BookingStatusService, rateLimiter *services.RateLimitService) *BookingHandler {
	return &BookingHandler{
		reservationSvc: reservationSvc,
		statusSvc:      statusSvc,
		rateLimiter:    rateLimiter,
	}
}

// CreateBooking creates a new ferry booking
// @Summary Create a new ferry booking
// @Description Reserve capacity on a sailing and create the booking with tickets and payment
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} services.BookingResult "Booking created"
// @Failure 400 {object} map[string]interface{} "Invalid request"
// @Failure 409 {object} map[string]interface{} "Capacity exceeded or sailing unavailable"
// @Failure 429 {object} map[string]interface{} "Too many recent or unpaid bookings"
// @Router /api/v1/bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.rateLimiter.CheckBookingRateLimit(userID); err != nil {
		respondError(c, err)
		return
	}

	result, err := h.reservationSvc.CreateBooking(userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// GetBooking returns one booking with tickets, vehicles and payment
// @Summary Get booking details
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} services.BookingResult
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /api/v1/bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.reservationSvc.GetBooking(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if result.Booking.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Booking does not belong to user"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMyBookings returns the authenticated user's bookings
// @Summary List my bookings
// @Tags Bookings
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/bookings [get]
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookings, err := h.reservationSvc.ListUserBookings(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// LookupBookingByCode returns a booking by its printed booking code
// @Summary Look up a booking by code
// @Description Resolve a booking from the code printed on the customer's ticket, for counter staff
// @Tags Admin
// @Produce json
// @Param code path string true "Booking code"
// @Success 200 {object} services.BookingResult
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /api/v1/admin/bookings/{code} [get]
func (h *BookingHandler) LookupBookingByCode(c *gin.Context) {
	result, err := h.reservationSvc.GetBookingByCode(c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CancelBooking cancels a booking owned by the caller
// @Summary Cancel a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body models.CancelBookingRequest false "Cancellation reason"
// @Success 200 {object} models.Booking
// @Failure 409 {object} map[string]interface{} "Transition not allowed"
// @Router /api/v1/bookings/{id}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	booking, err := h.reservationSvc.CancelBooking(c.Param("id"), userID, models.ActorTypeUser, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, booking)
}

// RescheduleBooking moves a confirmed booking to a new sailing
// @Summary Reschedule a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param request body models.RescheduleBookingRequest true "Target sailing"
// @Success 200 {object} services.BookingResult "Replacement booking"
// @Failure 409 {object} map[string]interface{} "Capacity exceeded or booking not confirmed"
// @Router /api/v1/bookings/{id}/reschedule [post]
func (h *BookingHandler) RescheduleBooking(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.RescheduleBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	result, err := h.reservationSvc.RescheduleBooking(c.Param("id"), userID, models.ActorTypeUser, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
