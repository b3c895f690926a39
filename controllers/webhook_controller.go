package controllers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"commerce-backend/middlewares"
	"commerce-backend/models"
	"commerce-backend/services"
)

type WebhookController struct {
	reconciler *services.WebhookReconciler
}

func NewWebhookController(reconciler *services.WebhookReconciler) *WebhookController {
	return &WebhookController{reconciler: reconciler}
}

// Handle ingests asynchronous gateway events. Every understood-or-not event
// is acknowledged with 200 so the gateway does not retry-storm; only an
// infrastructure failure returns 5xx, which makes the gateway redeliver an
// event we could not durably apply.
func (ctl *WebhookController) Handle(c *gin.Context) {
	var ev models.WebhookEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		middlewares.RecordWebhookEvent("malformed", "rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event payload"})
		return
	}

	if err := ctl.reconciler.Handle(c.Request.Context(), &ev); err != nil {
		middlewares.RecordWebhookEvent(ev.Type, "error")
		slog.Error("webhook reconciliation failed",
			"event_id", ev.ID, "type", ev.Type, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event not applied"})
		return
	}

	middlewares.RecordWebhookEvent(ev.Type, "acknowledged")
	c.JSON(http.StatusOK, gin.H{"received": true})
}
