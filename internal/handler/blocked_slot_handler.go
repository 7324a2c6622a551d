package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type blockedSlotManager interface {
	Create(ctx context.Context, req dto.BlockedSlotInput) (*models.BlockedSlot, error)
	List(ctx context.Context, query dto.BlockedSlotQuery) ([]models.BlockedSlot, error)
	Delete(ctx context.Context, id string) error
}

// BlockedSlotHandler exposes teacher and room unavailabilities.
type BlockedSlotHandler struct {
	service blockedSlotManager
}

// NewBlockedSlotHandler constructs the handler.
func NewBlockedSlotHandler(svc *service.BlockedSlotService) *BlockedSlotHandler {
	return &BlockedSlotHandler{service: svc}
}

// List godoc
// @Summary List blocked slots
// @Tags Blocked Slots
// @Produce json
// @Param teacher query string false "Teacher"
// @Param room query string false "Room"
// @Param day query string false "Weekday"
// @Success 200 {object} response.Envelope
// @Router /blocked-slots [get]
func (h *BlockedSlotHandler) List(c *gin.Context) {
	var query dto.BlockedSlotQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	slots, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Create godoc
// @Summary Block a teacher or room at a window
// @Tags Blocked Slots
// @Accept json
// @Produce json
// @Param payload body dto.BlockedSlotInput true "Blocked slot"
// @Success 201 {object} response.Envelope
// @Router /blocked-slots [post]
func (h *BlockedSlotHandler) Create(c *gin.Context) {
	var req dto.BlockedSlotInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid blocked slot payload"))
		return
	}
	slot, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Delete godoc
// @Summary Remove a blocked slot
// @Tags Blocked Slots
// @Param id path string true "Blocked slot ID"
// @Success 204
// @Router /blocked-slots/{id} [delete]
func (h *BlockedSlotHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
