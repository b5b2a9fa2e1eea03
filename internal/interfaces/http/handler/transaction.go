package handler

import (
	appbilling "github.com/buildingledger/backend/internal/application/billing"
	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/buildingledger/backend/internal/domain/shared"
	"github.com/buildingledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// TransactionHandler handles payments and building income
type TransactionHandler struct {
	BaseHandler
	transactions *appbilling.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(transactions *appbilling.TransactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

// ListTransactionsQuery filters a unit's transaction history
type ListTransactionsQuery struct {
	dto.ListRequest
	Status      billing.TransactionStatus `form:"status" binding:"omitempty,enum"`
	TargetGroup billing.TargetGroup       `form:"target_group" binding:"omitempty,oneof=resident owner"`
}

// Record godoc
// @ID           recordTransaction
// @Summary      Record a payment against a unit ledger
// @Description  A paid transaction is allocated to the unit's open distributions in FIFO order
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        request body appbilling.RecordTransactionInput true "Payment"
// @Success      201 {object} APIResponse[appbilling.TransactionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /transactions [post]
func (h *TransactionHandler) Record(c *gin.Context) {
	var req appbilling.RecordTransactionInput
	if !h.bindJSON(c, &req) {
		return
	}

	tx, err := h.transactions.Record(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, tx)
}

// RecordBuildingIncome godoc
// @ID           recordBuildingIncome
// @Summary      Record income booked directly to a building
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        building_id path string true "Building ID"
// @Param        request body appbilling.RecordBuildingIncomeInput true "Income"
// @Success      201 {object} APIResponse[appbilling.TransactionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /buildings/{building_id}/income [post]
func (h *TransactionHandler) RecordBuildingIncome(c *gin.Context) {
	buildingID, ok := h.parseUUIDParam(c, "building_id")
	if !ok {
		return
	}

	var req appbilling.RecordBuildingIncomeInput
	if !h.bindJSON(c, &req) {
		return
	}
	req.BuildingID = buildingID

	tx, err := h.transactions.RecordBuildingIncome(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, tx)
}

// Get godoc
// @ID           getTransaction
// @Summary      Get a transaction with its allocated total
// @Tags         transactions
// @Produce      json
// @Param        transaction_id path string true "Transaction ID"
// @Success      200 {object} APIResponse[appbilling.TransactionResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /transactions/{transaction_id} [get]
func (h *TransactionHandler) Get(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "transaction_id")
	if !ok {
		return
	}

	tx, err := h.transactions.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}

// Update godoc
// @ID           updateTransaction
// @Summary      Edit a transaction
// @Description  Status and amount changes re-run allocation for the unit
// @Tags         transactions
// @Accept       json
// @Produce      json
// @Param        transaction_id path string true "Transaction ID"
// @Param        request body appbilling.UpdateTransactionInput true "Changes"
// @Success      200 {object} APIResponse[appbilling.TransactionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /transactions/{transaction_id} [patch]
func (h *TransactionHandler) Update(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "transaction_id")
	if !ok {
		return
	}

	var req appbilling.UpdateTransactionInput
	if !h.bindJSON(c, &req) {
		return
	}

	tx, err := h.transactions.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}

// Delete godoc
// @ID           deleteTransaction
// @Summary      Soft-delete a transaction and release its allocations
// @Tags         transactions
// @Param        transaction_id path string true "Transaction ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /transactions/{transaction_id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "transaction_id")
	if !ok {
		return
	}

	if err := h.transactions.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Restore godoc
// @ID           restoreTransaction
// @Summary      Restore a soft-deleted transaction
// @Tags         transactions
// @Produce      json
// @Param        transaction_id path string true "Transaction ID"
// @Success      200 {object} APIResponse[appbilling.TransactionResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /transactions/{transaction_id}/restore [post]
func (h *TransactionHandler) Restore(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "transaction_id")
	if !ok {
		return
	}

	tx, err := h.transactions.Restore(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tx)
}

// ListByUnit godoc
// @ID           listUnitTransactions
// @Summary      List a unit's transactions
// @Tags         transactions
// @Produce      json
// @Param        unit_id path string true "Unit ID"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20)
// @Param        status query string false "Transaction status"
// @Param        target_group query string false "Ledger" Enums(resident, owner)
// @Success      200 {object} APIResponse[[]appbilling.TransactionResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /units/{unit_id}/transactions [get]
func (h *TransactionHandler) ListByUnit(c *gin.Context) {
	unitID, ok := h.parseUUIDParam(c, "unit_id")
	if !ok {
		return
	}

	query := ListTransactionsQuery{ListRequest: dto.DefaultListRequest()}
	if !h.bindQuery(c, &query) {
		return
	}

	filter := billing.TransactionFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  query.OrderBy,
			OrderDir: query.OrderDir,
		},
	}
	if query.Status != "" {
		filter.Status = &query.Status
	}
	if query.TargetGroup != "" {
		filter.TargetGroup = &query.TargetGroup
	}

	txs, total, err := h.transactions.ListByUnit(c.Request.Context(), unitID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, txs, total, query.Page, query.PageSize)
}
