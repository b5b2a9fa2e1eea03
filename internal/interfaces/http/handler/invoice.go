package handler

import (
	appbilling "github.com/buildingledger/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
)

// InvoiceHandler handles invoices and their per-unit distributions
type InvoiceHandler struct {
	BaseHandler
	invoices *appbilling.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoices *appbilling.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

// Calculate godoc
// @ID           calculateDistribution
// @Summary      Preview how an amount splits across units
// @Description  Dry run; nothing is persisted
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body appbilling.CalculateDistributionInput true "Split request"
// @Success      200 {object} APIResponse[[]billing.DistributionShare]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /invoices/calculate [post]
func (h *InvoiceHandler) Calculate(c *gin.Context) {
	var req appbilling.CalculateDistributionInput
	if !h.bindJSON(c, &req) {
		return
	}

	shares, err := h.invoices.CalculateDistribution(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, shares)
}

// Create godoc
// @ID           createInvoice
// @Summary      Issue an invoice and split it across units
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body appbilling.CreateInvoiceInput true "Invoice"
// @Success      201 {object} APIResponse[appbilling.InvoiceResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req appbilling.CreateInvoiceInput
	if !h.bindJSON(c, &req) {
		return
	}

	invoice, err := h.invoices.CreateInvoiceWithDistributions(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, invoice)
}

// Get godoc
// @ID           getInvoice
// @Summary      Get an invoice with its active distributions
// @Tags         invoices
// @Produce      json
// @Param        invoice_id path string true "Invoice ID"
// @Success      200 {object} APIResponse[appbilling.InvoiceResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /invoices/{invoice_id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "invoice_id")
	if !ok {
		return
	}

	invoice, err := h.invoices.GetInvoice(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// ReplaceDistributions godoc
// @ID           replaceInvoiceDistributions
// @Summary      Re-split an invoice
// @Description  Soft-deletes the current distributions and creates a new set
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        invoice_id path string true "Invoice ID"
// @Param        request body appbilling.ReplaceDistributionsInput true "New split"
// @Success      200 {object} APIResponse[[]appbilling.DistributionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /invoices/{invoice_id}/distributions [put]
func (h *InvoiceHandler) ReplaceDistributions(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "invoice_id")
	if !ok {
		return
	}

	var req appbilling.ReplaceDistributionsInput
	if !h.bindJSON(c, &req) {
		return
	}

	distributions, err := h.invoices.BulkReplaceDistributions(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, distributions)
}

// UpdateDistribution godoc
// @ID           updateDistribution
// @Summary      Edit a distribution's description or status
// @Tags         distributions
// @Accept       json
// @Produce      json
// @Param        distribution_id path string true "Distribution ID"
// @Param        request body appbilling.UpdateDistributionInput true "Changes"
// @Success      200 {object} APIResponse[appbilling.DistributionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /distributions/{distribution_id} [patch]
func (h *InvoiceHandler) UpdateDistribution(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "distribution_id")
	if !ok {
		return
	}

	var req appbilling.UpdateDistributionInput
	if !h.bindJSON(c, &req) {
		return
	}

	distribution, err := h.invoices.UpdateDistribution(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, distribution)
}

// DeleteDistribution godoc
// @ID           deleteDistribution
// @Summary      Soft-delete a distribution and redistribute the invoice
// @Tags         distributions
// @Param        distribution_id path string true "Distribution ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /distributions/{distribution_id} [delete]
func (h *InvoiceHandler) DeleteDistribution(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "distribution_id")
	if !ok {
		return
	}

	if err := h.invoices.DeleteDistribution(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RestoreDistribution godoc
// @ID           restoreDistribution
// @Summary      Restore a soft-deleted distribution
// @Tags         distributions
// @Produce      json
// @Param        distribution_id path string true "Distribution ID"
// @Success      200 {object} APIResponse[appbilling.DistributionResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /distributions/{distribution_id}/restore [post]
func (h *InvoiceHandler) RestoreDistribution(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "distribution_id")
	if !ok {
		return
	}

	distribution, err := h.invoices.RestoreDistribution(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, distribution)
}
