package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seatrans/ferry-booking-backend/internal/database"
)

// TicketHandler handles boarding operations performed by port staff
type TicketHandler struct {
	ticketRepo *database.TicketRepository
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(ticketRepo *database.TicketRepository) *TicketHandler {
	return &TicketHandler{ticketRepo: ticketRepo}
}

// CheckIn marks a ticket's passenger as boarded
// @Summary Check in a passenger by ticket code
// @Tags Tickets
// @Produce json
// @Param code path string true "Ticket code"
// @Success 200 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{} "Ticket not active or already boarded"
// @Router /api/v1/tickets/{code}/check-in [post]
func (h *TicketHandler) CheckIn(c *gin.Context) {
	code := c.Param("code")

	boarded, err := h.ticketRepo.CheckIn(code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check in ticket"})
		return
	}
	if !boarded {
		c.JSON(http.StatusConflict, gin.H{"error": "Ticket is not active or passenger already boarded"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Passenger boarded", "ticket_code": code})
}
