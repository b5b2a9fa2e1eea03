package handler

import (
	appbilling "github.com/buildingledger/backend/internal/application/billing"
	"github.com/gin-gonic/gin"
)

// BalanceHandler exposes cached balances and the recompute triggers
type BalanceHandler struct {
	BaseHandler
	balances *appbilling.BalanceService
}

// NewBalanceHandler creates a new BalanceHandler
func NewBalanceHandler(balances *appbilling.BalanceService) *BalanceHandler {
	return &BalanceHandler{balances: balances}
}

// GetBuilding godoc
// @ID           getBuilding
// @Summary      Get a building with its cached balances
// @Tags         buildings
// @Produce      json
// @Param        building_id path string true "Building ID"
// @Success      200 {object} APIResponse[appbilling.BuildingResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /buildings/{building_id} [get]
func (h *BalanceHandler) GetBuilding(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "building_id")
	if !ok {
		return
	}

	building, err := h.balances.GetBuildingBalance(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, building)
}

// RecomputeBuilding godoc
// @ID           recomputeBuilding
// @Summary      Rebuild every balance of a building from its rows
// @Tags         buildings
// @Produce      json
// @Param        building_id path string true "Building ID"
// @Success      200 {object} APIResponse[appbilling.BuildingResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Router       /buildings/{building_id}/recompute [post]
func (h *BalanceHandler) RecomputeBuilding(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "building_id")
	if !ok {
		return
	}

	building, err := h.balances.RecomputeBuilding(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, building)
}

// GetUnit godoc
// @ID           getUnit
// @Summary      Get a unit with both ledgers
// @Tags         units
// @Produce      json
// @Param        unit_id path string true "Unit ID"
// @Success      200 {object} APIResponse[appbilling.UnitResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /units/{unit_id} [get]
func (h *BalanceHandler) GetUnit(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "unit_id")
	if !ok {
		return
	}

	unit, err := h.balances.GetUnitBalance(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, unit)
}

// RecomputeUnit godoc
// @ID           recomputeUnit
// @Summary      Reset a unit's allocations and rebuild them in FIFO order
// @Tags         units
// @Produce      json
// @Param        unit_id path string true "Unit ID"
// @Success      200 {object} APIResponse[appbilling.UnitResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Router       /units/{unit_id}/recompute [post]
func (h *BalanceHandler) RecomputeUnit(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "unit_id")
	if !ok {
		return
	}

	unit, err := h.balances.ResetAndRecomputeUnit(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, unit)
}

// ListUnitDistributions godoc
// @ID           listUnitDistributions
// @Summary      List a unit's active distributions oldest first
// @Tags         units
// @Produce      json
// @Param        unit_id path string true "Unit ID"
// @Success      200 {object} APIResponse[[]appbilling.DistributionResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /units/{unit_id}/distributions [get]
func (h *BalanceHandler) ListUnitDistributions(c *gin.Context) {
	id, ok := h.parseUUIDParam(c, "unit_id")
	if !ok {
		return
	}

	distributions, err := h.balances.ListUnitDistributions(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, distributions)
}
