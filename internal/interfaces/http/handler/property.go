package handler

import (
	appbilling "github.com/buildingledger/backend/internal/application/billing"
	"github.com/buildingledger/backend/internal/domain/billing"
	"github.com/gin-gonic/gin"
)

// PropertyHandler handles building and unit registration
type PropertyHandler struct {
	BaseHandler
	properties *appbilling.PropertyService
}

// NewPropertyHandler creates a new PropertyHandler
func NewPropertyHandler(properties *appbilling.PropertyService) *PropertyHandler {
	return &PropertyHandler{properties: properties}
}

// CreateBuilding godoc
// @ID           createBuilding
// @Summary      Register a building
// @Tags         buildings
// @Accept       json
// @Produce      json
// @Param        request body appbilling.CreateBuildingInput true "Building"
// @Success      201 {object} APIResponse[appbilling.BuildingResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /buildings [post]
func (h *PropertyHandler) CreateBuilding(c *gin.Context) {
	var req appbilling.CreateBuildingInput
	if !h.bindJSON(c, &req) {
		return
	}

	building, err := h.properties.CreateBuilding(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, building)
}

// CreateUnit godoc
// @ID           createUnit
// @Summary      Add a unit to a building
// @Tags         units
// @Accept       json
// @Produce      json
// @Param        building_id path string true "Building ID"
// @Param        request body appbilling.CreateUnitInput true "Unit"
// @Success      201 {object} APIResponse[appbilling.UnitResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /buildings/{building_id}/units [post]
func (h *PropertyHandler) CreateUnit(c *gin.Context) {
	buildingID, ok := h.parseUUIDParam(c, "building_id")
	if !ok {
		return
	}

	var req appbilling.CreateUnitInput
	if !h.bindJSON(c, &req) {
		return
	}
	req.BuildingID = buildingID

	unit, err := h.properties.CreateUnit(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, unit)
}

// ListUnits godoc
// @ID           listBuildingUnits
// @Summary      List the units of a building
// @Tags         units
// @Produce      json
// @Param        building_id path string true "Building ID"
// @Success      200 {object} APIResponse[[]appbilling.UnitResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /buildings/{building_id}/units [get]
func (h *PropertyHandler) ListUnits(c *gin.Context) {
	buildingID, ok := h.parseUUIDParam(c, "building_id")
	if !ok {
		return
	}

	units, err := h.properties.ListUnits(c.Request.Context(), buildingID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, units)
}

// UpdateUnit godoc
// @ID           updateUnit
// @Summary      Edit a unit's attributes and base balances
// @Description  Base balances roll into the unit and building balances immediately.
// @Tags         units
// @Accept       json
// @Produce      json
// @Param        unit_id path string true "Unit ID"
// @Param        request body appbilling.UpdateUnitInput true "Changed fields"
// @Success      200 {object} APIResponse[appbilling.UnitResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /units/{unit_id} [patch]
func (h *PropertyHandler) UpdateUnit(c *gin.Context) {
	unitID, ok := h.parseUUIDParam(c, "unit_id")
	if !ok {
		return
	}

	var req appbilling.UpdateUnitInput
	if !h.bindJSON(c, &req) {
		return
	}

	unit, err := h.properties.UpdateUnit(c.Request.Context(), unitID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, unit)
}

// AddMember godoc
// @ID           addUnitMember
// @Summary      Assign a user to a unit
// @Tags         units
// @Accept       json
// @Produce      json
// @Param        unit_id path string true "Unit ID"
// @Param        request body appbilling.UnitMemberInput true "Member"
// @Success      201 {object} APIResponse[appbilling.UnitResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /units/{unit_id}/members [post]
func (h *PropertyHandler) AddMember(c *gin.Context) {
	unitID, ok := h.parseUUIDParam(c, "unit_id")
	if !ok {
		return
	}

	var req appbilling.UnitMemberInput
	if !h.bindJSON(c, &req) {
		return
	}

	unit, err := h.properties.AddUnitMember(c.Request.Context(), unitID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, unit)
}

// RemoveMember godoc
// @ID           removeUnitMember
// @Summary      Remove a user's role from a unit
// @Tags         units
// @Produce      json
// @Param        unit_id path string true "Unit ID"
// @Param        user_id path string true "User ID"
// @Param        role path string true "resident or owner"
// @Success      200 {object} APIResponse[appbilling.UnitResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /units/{unit_id}/members/{user_id}/{role} [delete]
func (h *PropertyHandler) RemoveMember(c *gin.Context) {
	unitID, ok := h.parseUUIDParam(c, "unit_id")
	if !ok {
		return
	}
	userID, ok := h.parseUUIDParam(c, "user_id")
	if !ok {
		return
	}

	unit, err := h.properties.RemoveUnitMember(c.Request.Context(), unitID, appbilling.UnitMemberInput{
		UserID: userID,
		Role:   billing.TargetGroup(c.Param("role")),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, unit)
}
