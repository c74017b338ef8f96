package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/seatrans/ferry-booking-backend/internal/database"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/seatrans/ferry-booking-backend/internal/services"
)

// ScheduleHandler handles schedule and sailing-date operations
type ScheduleHandler struct {
	scheduleSvc      *services.ScheduleService
	scheduleRepo     *database.ScheduleRepository
	scheduleDateRepo *database.ScheduleDateRepository
}

// NewScheduleHandler creates a new ScheduleHandler
func NewScheduleHandler(
	scheduleSvc *services.ScheduleService,
	scheduleRepo *database.ScheduleRepository,
	scheduleDateRepo *database.ScheduleDateRepository,
) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleSvc:      scheduleSvc,
		scheduleRepo:     scheduleRepo,
		scheduleDateRepo: scheduleDateRepo,
	}
}

// ListSchedules returns active schedules, optionally filtered by route
// @Summary List active schedules
// @Tags Schedules
// @Produce json
// @Param route_id query string false "Route ID filter"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/schedules [get]
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	var (
		schedules []models.Schedule
		err       error
	)
	if routeID := c.Query("route_id"); routeID != "" {
		schedules, err = h.scheduleRepo.GetActiveByRoute(routeID)
	} else {
		schedules, err = h.scheduleRepo.GetActive()
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list schedules"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"schedules": schedules, "count": len(schedules)})
}

// ListSailings returns sailing dates for a schedule over a date range
// @Summary List sailing dates
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/schedules/{id}/sailings [get]
func (h *ScheduleHandler) ListSailings(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date"})
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date"})
		return
	}

	sailings, err := h.scheduleDateRepo.ListRange(c.Param("id"), from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sailings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sailings": sailings, "count": len(sailings)})
}

// FindAvailability searches a route for the nearest sailing that fits a load
// @Summary Find nearest available sailing
// @Tags Schedules
// @Produce json
// @Param route_id query string true "Route ID"
// @Param date query string true "Preferred date (YYYY-MM-DD)"
// @Param passengers query int true "Passenger count"
// @Success 200 {object} services.AvailableSailing
// @Failure 404 {object} map[string]interface{} "Nothing available in the search window"
// @Router /api/v1/availability [get]
func (h *ScheduleHandler) FindAvailability(c *gin.Context) {
	routeID := c.Query("route_id")
	if routeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "route_id is required"})
		return
	}
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date"})
		return
	}

	var query struct {
		Passengers  int `form:"passengers" binding:"required,min=1"`
		Motorcycles int `form:"motorcycles"`
		Cars        int `form:"cars"`
		Buses       int `form:"buses"`
		Trucks      int `form:"trucks"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query", "details": err.Error()})
		return
	}

	vehicles := models.VehicleCounts{
		Motorcycles: query.Motorcycles,
		Cars:        query.Cars,
		Buses:       query.Buses,
		Trucks:      query.Trucks,
	}

	sailing, err := h.scheduleSvc.FindNearestAvailable(routeID, date, query.Passengers, vehicles)
	if err != nil {
		respondError(c, err)
		return
	}
	if sailing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No sailing available within the search window"})
		return
	}

	c.JSON(http.StatusOK, sailing)
}

// UpdateScheduleStatus changes a schedule's status (operator only)
// @Summary Update schedule status
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param request body models.UpdateScheduleStatusRequest true "New status"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/schedules/{id}/status [put]
func (h *ScheduleHandler) UpdateScheduleStatus(c *gin.Context) {
	var req models.UpdateScheduleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.scheduleSvc.UpdateScheduleStatus(c.Param("id"), req.Status, req.StatusReason, req.StatusExpiry); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Schedule status updated"})
}

// SetSailingStatus applies a manual override to one sailing date (operator only)
// @Summary Override sailing date status
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule date ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/sailings/{id}/status [put]
func (h *ScheduleHandler) SetSailingStatus(c *gin.Context) {
	var req struct {
		Status       models.ScheduleDateStatus `json:"status" binding:"required"`
		StatusReason *string                   `json:"status_reason,omitempty"`
		StatusExpiry *time.Time                `json:"status_expiry,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := h.scheduleSvc.SetSailingStatus(c.Param("id"), req.Status, req.StatusReason, req.StatusExpiry); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Sailing status updated"})
}

// GenerateDates materializes sailing dates for a schedule (operator only)
// @Summary Generate sailing dates
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param request body models.GenerateDatesRequest true "Date range"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/schedules/{id}/generate-dates [post]
func (h *ScheduleHandler) GenerateDates(c *gin.Context) {
	var req models.GenerateDatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	from, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from date"})
		return
	}
	to, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to date"})
		return
	}

	created, err := h.scheduleSvc.GenerateDates(c.Param("id"), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Sailing dates generated", "created": created})
}
