package handler

import (
	"context"

	financeapp "github.com/erp/accounting/internal/application/finance"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ObligationService is implemented by both the payable and the receivable
// application services
type ObligationService interface {
	Create(ctx context.Context, req financeapp.CreateObligationRequest) (*financeapp.ObligationResponse, error)
	Get(ctx context.Context, organizationID, id uuid.UUID) (*financeapp.ObligationResponse, error)
	RegisterPayment(ctx context.Context, req financeapp.RegisterPaymentRequest) (*financeapp.ObligationResponse, error)
	ConfirmPayment(ctx context.Context, req financeapp.ConfirmPaymentRequest) (*financeapp.ObligationResponse, error)
	CancelPayment(ctx context.Context, req financeapp.CancelPaymentRequest) (*financeapp.ObligationResponse, error)
	Cancel(ctx context.Context, req financeapp.CancelObligationRequest) (*financeapp.ObligationResponse, error)
}

// ObligationHandler exposes one kind of obligation (payables or
// receivables) over HTTP
type ObligationHandler struct {
	BaseHandler
	service ObligationService
}

// NewObligationHandler creates a new ObligationHandler
func NewObligationHandler(service ObligationService) *ObligationHandler {
	return &ObligationHandler{service: service}
}

// Create registers a new obligation.
// POST /api/v1/finance/{payables|receivables}
func (h *ObligationHandler) Create(c *gin.Context) {
	var req financeapp.CreateObligationRequest
	if !h.bindJSON(c, &req, nil) {
		return
	}

	resp, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get returns an obligation with its payments.
// GET /api/v1/finance/{payables|receivables}/:id?organization_id=
func (h *ObligationHandler) Get(c *gin.Context) {
	orgID, err := getOrganizationID(c)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.Get(c.Request.Context(), orgID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// RegisterPayment adds a pending payment.
// POST /api/v1/finance/{payables|receivables}/:id/payments
func (h *ObligationHandler) RegisterPayment(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req financeapp.RegisterPaymentRequest
	if !h.bindJSON(c, &req, func() { req.ObligationID = id }) {
		return
	}

	resp, err := h.service.RegisterPayment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ConfirmPayment confirms a pending payment, which may settle the obligation.
// POST /api/v1/finance/{payables|receivables}/:id/payments/:payment_id/confirm
func (h *ObligationHandler) ConfirmPayment(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	paymentID, ok := h.pathID(c, "payment_id")
	if !ok {
		return
	}
	var req financeapp.ConfirmPaymentRequest
	if !h.bindJSON(c, &req, func() {
		req.ObligationID = id
		req.PaymentID = paymentID
	}) {
		return
	}

	resp, err := h.service.ConfirmPayment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CancelPayment cancels a pending payment.
// POST /api/v1/finance/{payables|receivables}/:id/payments/:payment_id/cancel
func (h *ObligationHandler) CancelPayment(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	paymentID, ok := h.pathID(c, "payment_id")
	if !ok {
		return
	}
	var req financeapp.CancelPaymentRequest
	if !h.bindJSON(c, &req, func() {
		req.ObligationID = id
		req.PaymentID = paymentID
	}) {
		return
	}

	resp, err := h.service.CancelPayment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel cancels the whole obligation.
// POST /api/v1/finance/{payables|receivables}/:id/cancel
func (h *ObligationHandler) Cancel(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req financeapp.CancelObligationRequest
	if !h.bindJSON(c, &req, func() { req.ObligationID = id }) {
		return
	}

	resp, err := h.service.Cancel(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

func (h *ObligationHandler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
