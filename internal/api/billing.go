package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clipscribe/clipscribe/internal/apperrors"
	"github.com/clipscribe/clipscribe/internal/database"
	"github.com/clipscribe/clipscribe/internal/events"
	"github.com/clipscribe/clipscribe/internal/server"
	"github.com/clipscribe/clipscribe/internal/validation"
)

type orderRequest struct {
	Plan string `json:"plan" validate:"required"`
}

type verifyRequest struct {
	OrderID   string `json:"orderId" validate:"required"`
	PaymentID string `json:"paymentId" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

type activationResponse struct {
	Status    string    `json:"status"`
	Plan      string    `json:"plan"`
	PeriodEnd time.Time `json:"periodEnd"`
}

type paymentResponse struct {
	OrderID     string    `json:"orderId"`
	PaymentID   string    `json:"paymentId,omitempty"`
	Plan        string    `json:"plan"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *Handlers) billingKey(c *gin.Context) {
	server.RespondOK(c, gin.H{"keyId": h.deps.Billing.KeyID()})
}

func (h *Handlers) createOrder(c *gin.Context) {
	userID, err := h.callerID(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, apperrors.Validation("invalid request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	order, err := h.deps.Billing.CreateOrder(c.Request.Context(), userID, req.Plan)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondCreated(c, order)
}

func (h *Handlers) verifyPayment(c *gin.Context) {
	userID, err := h.callerID(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondWithError(c, apperrors.Validation("invalid request body"))
		return
	}
	if err := validation.Validate(&req); err != nil {
		server.RespondWithError(c, err)
		return
	}

	activation, err := h.deps.Billing.VerifyPayment(c.Request.Context(), userID,
		req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	h.publishEvent(c.Request.Context(), events.TypeSubscriptionActivated, userID,
		events.SubscriptionActivated{Plan: activation.Plan, PeriodEnd: activation.PeriodEnd})

	server.RespondOK(c, activationResponse{
		Status:    database.SubscriptionActive,
		Plan:      activation.Plan,
		PeriodEnd: activation.PeriodEnd,
	})
}

func (h *Handlers) billingHistory(c *gin.Context) {
	userID, err := h.callerID(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	payments, err := h.deps.Billing.History(c.Request.Context(), userID)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}

	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, paymentResponse{
			OrderID:     p.OrderID,
			PaymentID:   p.PaymentID,
			Plan:        p.Plan,
			AmountCents: p.AmountCents,
			Currency:    p.Currency,
			Status:      p.Status,
			CreatedAt:   p.CreatedAt,
		})
	}
	server.RespondOK(c, out)
}
