package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seatrans/ferry-booking-backend/internal/database"
	"github.com/seatrans/ferry-booking-backend/internal/services"
)

// OpsHandler exposes health and operational endpoints
type OpsHandler struct {
	db                database.DB
	reconciliationSvc *services.ReconciliationService
}

// NewOpsHandler creates a new OpsHandler
func NewOpsHandler(db database.DB, reconciliationSvc *services.ReconciliationService) *OpsHandler {
	return &OpsHandler{
		db:                db,
		reconciliationSvc: reconciliationSvc,
	}
}

// Health reports service and database health
// @Summary Health check
// @Tags Ops
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *OpsHandler) Health(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "database": "up"})
}

// RunSweep triggers an immediate reconciliation sweep (operator only)
// @Summary Run reconciliation sweep now
// @Tags Ops
// @Produce json
// @Success 200 {object} services.SweepReport
// @Router /api/v1/admin/sweeps/run [post]
func (h *OpsHandler) RunSweep(c *gin.Context) {
	report := h.reconciliationSvc.RunAll()
	c.JSON(http.StatusOK, report)
}
