package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"payrelay/config"
	"payrelay/internal/repository"
	"payrelay/internal/service"
	"payrelay/pkg/mollie"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

type PaymentHandler struct {
	cfg         *config.Config
	client      mollie.Processor
	reconciler  *service.Reconciler
	paymentRepo *repository.PaymentRepository
}

func NewPaymentHandler(cfg *config.Config, client mollie.Processor, reconciler *service.Reconciler, paymentRepo *repository.PaymentRepository) *PaymentHandler {
	return &PaymentHandler{
		cfg:         cfg,
		client:      client,
		reconciler:  reconciler,
		paymentRepo: paymentRepo,
	}
}

// Create makes a Mollie payment and mirrors it locally, keyed by the
// idempotency key (caller-supplied or generated by the client).
func (h *PaymentHandler) Create(c *gin.Context) {
	var req struct {
		Amount         string                 `json:"amount" binding:"required"`
		Currency       string                 `json:"currency"`
		Description    string                 `json:"description"`
		RedirectURL    string                 `json:"redirect_url"`
		Metadata       map[string]interface{} `json:"metadata"`
		IdempotencyKey string                 `json:"idempotency_key"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	redirectURL := req.RedirectURL
	if redirectURL == "" {
		redirectURL = h.cfg.Service.FrontendReturnURL
	}

	mp, idemKey, err := h.client.CreatePayment(c.Request.Context(), mollie.CreateRequest{
		Amount:         req.Amount,
		Currency:       req.Currency,
		Description:    req.Description,
		RedirectURL:    redirectURL,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       req.Metadata,
	})
	if err != nil {
		log.Printf("[Payments] create failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	var metadata datatypes.JSON
	if req.Metadata != nil {
		b, err := json.Marshal(req.Metadata)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid metadata"})
			return
		}
		metadata = b
	}
	if _, err := h.reconciler.ReconcileByIdempotencyKey(idemKey, mp, metadata); err != nil {
		log.Printf("[Payments] persist %s failed: %v", mp.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mollie_id":    mp.ID,
		"checkout_url": mp.CheckoutURL,
		"status":       mp.Status,
	})
}

// Status re-fetches the payment from Mollie (the local row is never trusted as
// the answer) and folds the response into the mirror on the way out.
func (h *PaymentHandler) Status(c *gin.Context) {
	mollieID := c.Param("mollie_id")
	mp, err := h.client.FetchPayment(c.Request.Context(), mollieID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.reconciler.ReconcileByMollieID(mollieID, mp, nil); err != nil {
		log.Printf("[Payments] persist %s failed: %v", mollieID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to persist payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"mollie_id":    mp.ID,
		"status":       mp.Status,
		"amount":       mp.Amount,
		"description":  mp.Description,
		"checkout_url": mp.CheckoutURL,
		"raw":          mp.Raw,
	})
}

// List returns recent local payment records, newest first. Local view only;
// it never contacts Mollie.
func (h *PaymentHandler) List(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}
	payments, err := h.paymentRepo.List(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": payments})
}
