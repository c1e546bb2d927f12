// Package api contains the HTTP handlers and routing for the payment gateway.
package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/commercegate/heartland-payments/internal/domain"
	"github.com/commercegate/heartland-payments/internal/gateway"
	"github.com/commercegate/heartland-payments/internal/handshake"
	"github.com/gin-gonic/gin"
)

// Handler contains the HTTP handlers for the payment API.
type Handler struct {
	service  *gateway.Service
	payments domain.PaymentStore

	// Checkout-page configuration handed to the secure-frame script.
	publicKey    string
	frameTargets handshake.FrameTargets
}

// NewHandler creates a new API handler.
func NewHandler(service *gateway.Service, payments domain.PaymentStore, publicKey string, frameTargets handshake.FrameTargets) *Handler {
	return &Handler{
		service:      service,
		payments:     payments,
		publicKey:    publicKey,
		frameTargets: frameTargets,
	}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// PaymentMethodRequest is the JSON body for creating a payment method from
// a completed tokenization handshake.
type PaymentMethodRequest struct {
	TokenValue string `json:"token_value" binding:"required"`
	CardType   string `json:"card_type"`
	LastFour   string `json:"last_four"`
	ExpMonth   string `json:"exp_month"`
	ExpYear    string `json:"exp_year"`
	PostalCode string `json:"postal_code"`
}

// CreatePaymentMethod handles POST /payment-methods.
func (h *Handler) CreatePaymentMethod(c *gin.Context) {
	var req PaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	method, err := h.service.CreatePaymentMethod(c.Request.Context(), gateway.CardDetails{
		TokenValue: req.TokenValue,
		CardType:   req.CardType,
		LastFour:   req.LastFour,
		ExpMonth:   req.ExpMonth,
		ExpYear:    req.ExpYear,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, method)
}

// UpdatePaymentMethodRequest is the JSON body for billing updates.
type UpdatePaymentMethodRequest struct {
	PostalCode string `json:"postal_code"`
	ExpMonth   string `json:"exp_month"`
	ExpYear    string `json:"exp_year"`
}

// UpdatePaymentMethod handles PATCH /payment-methods/:id.
func (h *Handler) UpdatePaymentMethod(c *gin.Context) {
	var req UpdatePaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	method, err := h.service.UpdatePaymentMethod(c.Request.Context(), c.Param("id"), req.PostalCode, req.ExpMonth, req.ExpYear)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, method)
}

// DeletePaymentMethod handles DELETE /payment-methods/:id.
func (h *Handler) DeletePaymentMethod(c *gin.Context) {
	if err := h.service.DeletePaymentMethod(c.Request.Context(), c.Param("id")); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreatePaymentRequest is the JSON body for creating a payment.
type CreatePaymentRequest struct {
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
	Amount          string `json:"amount" binding:"required"`
	Currency        string `json:"currency" binding:"required"`
	Capture         *bool  `json:"capture"`
}

// CreatePayment handles POST /payments. capture defaults to true.
func (h *Handler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	amount, err := domain.NewAmount(req.Amount, req.Currency)
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "amount must be a positive decimal with a currency",
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	capture := true
	if req.Capture != nil {
		capture = *req.Capture
	}

	p := domain.NewPayment(req.PaymentMethodID, amount)
	if err := h.service.CreatePayment(c.Request.Context(), p, capture); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GetPayment handles GET /payments/:id.
func (h *Handler) GetPayment(c *gin.Context) {
	p, err := h.payments.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// AmountRequest is an optional amount override for capture and refund.
type AmountRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// parseOptionalAmount reads an optional amount from the request body.
// An empty body or empty amount means "use the payment's full amount".
func parseOptionalAmount(c *gin.Context) (*domain.Amount, bool) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "Invalid request body: " + err.Error(),
			Code:    "VALIDATION_ERROR",
		})
		return nil, false
	}
	if req.Amount == "" {
		return nil, true
	}
	amount, err := domain.NewAmount(req.Amount, req.Currency)
	if err != nil || !amount.IsPositive() {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "amount must be a positive decimal with a currency",
			Code:    "VALIDATION_ERROR",
		})
		return nil, false
	}
	return &amount, true
}

// CapturePayment handles POST /payments/:id/capture.
func (h *Handler) CapturePayment(c *gin.Context) {
	amount, ok := parseOptionalAmount(c)
	if !ok {
		return
	}

	p, err := h.payments.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if err := h.service.CapturePayment(c.Request.Context(), p, amount); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// VoidResponse reports how a void ended, including the fallback refund
// bookkeeping when the batch had already settled.
type VoidResponse struct {
	Outcome string          `json:"outcome"`
	Payment *domain.Payment `json:"payment"`
}

// VoidPayment handles POST /payments/:id/void.
func (h *Handler) VoidPayment(c *gin.Context) {
	p, err := h.payments.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	result, err := h.service.VoidPayment(c.Request.Context(), p)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, VoidResponse{Outcome: string(result.Outcome), Payment: p})
}

// RefundPayment handles POST /payments/:id/refund.
func (h *Handler) RefundPayment(c *gin.Context) {
	amount, ok := parseOptionalAmount(c)
	if !ok {
		return
	}

	p, err := h.payments.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if _, err := h.service.RefundPayment(c.Request.Context(), p, amount); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CheckoutConfig handles GET /checkout/config. It hands the hosting page
// everything it needs to boot the secure frames: the public key and the
// element targets. The secret key never appears here.
func (h *Handler) CheckoutConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"public_key": h.publicKey,
		"fields": gin.H{
			"card_number":     h.frameTargets.CardNumber,
			"card_expiration": h.frameTargets.CardExpiration,
			"card_cvv":        h.frameTargets.CardCvv,
		},
	})
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "heartland-payments",
	})
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(c *gin.Context, err error) {
	statusCode := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, domain.ErrPreconditionViolation):
		statusCode = http.StatusConflict
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrMalformedToken),
		errors.Is(err, domain.ErrRefundExceedsAmount):
		statusCode = http.StatusBadRequest
	case errors.Is(err, domain.ErrGatewayDeclined):
		statusCode = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrPersistence):
		// Remote and local state diverged; make sure it shows up in logs.
		log.Printf("ALERT: %v", err)
		statusCode = http.StatusInternalServerError
	}

	var paymentErr *domain.PaymentError
	if errors.As(err, &paymentErr) {
		c.JSON(statusCode, ErrorResponse{
			Success: false,
			Error:   paymentErr.Error(),
			Code:    paymentErr.Code,
		})
		return
	}

	c.JSON(statusCode, ErrorResponse{
		Success: false,
		Error:   err.Error(),
		Code:    "INTERNAL_ERROR",
	})
}
