package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"payrelay/internal/service"
	"payrelay/pkg/mollie"

	"github.com/gin-gonic/gin"
)

// WebhookHandler takes Mollie webhook notifications. The body is only trusted
// for the payment id; the actual state comes from a follow-up fetch.
type WebhookHandler struct {
	client     mollie.Processor
	reconciler *service.Reconciler
}

func NewWebhookHandler(client mollie.Processor, reconciler *service.Reconciler) *WebhookHandler {
	return &WebhookHandler{client: client, reconciler: reconciler}
}

// Handle acknowledges the webhook immediately and reconciles in a detached
// goroutine, so Mollie never waits on the fetch. Follow-up failures are logged
// and dropped; Mollie redelivers webhooks, and the next poll or redelivery
// will reconcile.
func (h *WebhookHandler) Handle(c *gin.Context) {
	var payload struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil || payload.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing id in webhook payload"})
		return
	}

	go h.followUp(payload.ID)
	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

func (h *WebhookHandler) followUp(mollieID string) {
	// Detached from the request context: a closed webhook connection must not
	// cancel the reconciliation.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mp, err := h.client.FetchPayment(ctx, mollieID)
	if err != nil {
		log.Printf("[Webhook] fetch %s failed: %v", mollieID, err)
		return
	}
	if _, err := h.reconciler.ReconcileByMollieID(mollieID, mp, nil); err != nil {
		log.Printf("[Webhook] reconcile %s failed: %v", mollieID, err)
	}
}
