package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/seatrans/ferry-booking-backend/internal/models"
	"github.com/seatrans/ferry-booking-backend/internal/services"
	"github.com/sirupsen/logrus"
)

// PaymentWebhookHandler receives asynchronous payment notifications from the
// gateway. The signature is verified before anything is looked up or
// written; a forged or tampered notification gets a 403 and no side effects.
type PaymentWebhookHandler struct {
	paymentSvc *services.PaymentService
	logger     *logrus.Logger
}

// NewPaymentWebhookHandler creates a new PaymentWebhookHandler
func NewPaymentWebhookHandler(paymentSvc *services.PaymentService, logger *logrus.Logger) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{
		paymentSvc: paymentSvc,
		logger:     logger,
	}
}

// HandleNotification processes a gateway payment notification
// @Summary Midtrans payment notification webhook
// @Tags Payments
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{} "Invalid signature"
// @Router /api/v1/payments/notifications [post]
func (h *PaymentWebhookHandler) HandleNotification(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	if err := h.paymentSvc.ProcessNotification(body); err != nil {
		switch {
		case errors.Is(err, models.ErrPaymentVerificationFailed):
			h.logger.Warn("Rejected payment notification with invalid signature")
			c.JSON(http.StatusForbidden, gin.H{"error": "Invalid signature"})
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown order"})
		default:
			h.logger.WithError(err).Error("Failed to process payment notification")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process notification"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification processed"})
}
