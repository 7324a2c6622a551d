package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

type timetableGenerator interface {
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error)
	Enqueue(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.EnqueueTimetableResponse, error)
	GetRun(ctx context.Context, id string) (*models.TimetableRun, error)
	ListRuns(ctx context.Context, query dto.TimetableRunQuery) ([]models.TimetableRun, *models.Pagination, error)
	Placements(ctx context.Context, id string, query dto.PlacementQuery) ([]models.Placement, error)
	DeleteRun(ctx context.Context, id string) error
	Calendar() service.SlotCalendar
}

type timetableExporter interface {
	Export(ctx context.Context, runID string, req dto.ExportTimetableRequest) (*dto.ExportTimetableResponse, error)
	Open(ctx context.Context, token string) (*service.ExportedFile, error)
	PurgeRun(runID string) error
}

// TimetableHandler exposes generation runs, their views and exports.
type TimetableHandler struct {
	service timetableGenerator
	exports timetableExporter
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService, exports *service.ExportService) *TimetableHandler {
	return &TimetableHandler{service: svc, exports: exports}
}

// Generate godoc
// @Summary Generate a timetable
// @Description Runs the placement engine. With async=true the run is queued and 202 is returned.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param async query bool false "Queue the run"
// @Param payload body dto.GenerateTimetableRequest false "Inline catalog"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	req.RequestedBy = requesterID(c)

	if boolQuery(c, "async") {
		queued, err := h.service.Enqueue(c.Request.Context(), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Accepted(c, queued)
		return
	}

	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, map[string]interface{}{
		"placed":   len(result.Placements),
		"unplaced": len(result.Unplaced),
	})
}

// ListRuns godoc
// @Summary List generation runs
// @Tags Timetables
// @Produce json
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetables/runs [get]
func (h *TimetableHandler) ListRuns(c *gin.Context) {
	var query dto.TimetableRunQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	runs, pagination, err := h.service.ListRuns(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, runs, pagination)
}

// GetRun godoc
// @Summary Get a run with its placements
// @Tags Timetables
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/runs/{id} [get]
func (h *TimetableHandler) GetRun(c *gin.Context) {
	run, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}

// Placements godoc
// @Summary Filtered timetable view of a run
// @Tags Timetables
// @Produce json
// @Param id path string true "Run ID"
// @Param group query string false "Group code, includes its cohort"
// @Param teacher query string false "Teacher"
// @Param room query string false "Room"
// @Param day query string false "Weekday"
// @Success 200 {object} response.Envelope
// @Router /timetables/runs/{id}/placements [get]
func (h *TimetableHandler) Placements(c *gin.Context) {
	var query dto.PlacementQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	placements, err := h.service.Placements(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, placements, nil)
}

// DeleteRun godoc
// @Summary Delete a run and its exports
// @Tags Timetables
// @Param id path string true "Run ID"
// @Success 204
// @Router /timetables/runs/{id} [delete]
func (h *TimetableHandler) DeleteRun(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.DeleteRun(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	if h.exports != nil {
		if err := h.exports.PurgeRun(id); err != nil {
			response.Error(c, err)
			return
		}
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export a run as CSV or PDF
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Param payload body dto.ExportTimetableRequest true "Export options"
// @Success 201 {object} response.Envelope
// @Router /timetables/runs/{id}/export [post]
func (h *TimetableHandler) Export(c *gin.Context) {
	var req dto.ExportTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
		return
	}
	result, err := h.exports.Export(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an exported timetable
// @Tags Timetables
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200
// @Router /exports/{token} [get]
func (h *TimetableHandler) Download(c *gin.Context) {
	file, err := h.exports.Open(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Name, file.ContentType, file.Body)
}

// Calendar godoc
// @Summary Teaching windows per weekday
// @Tags Timetables
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /timetables/calendar [get]
func (h *TimetableHandler) Calendar(c *gin.Context) {
	calendar := h.service.Calendar()
	days := make([]dto.CalendarDay, 0, len(calendar.Days()))
	for _, day := range calendar.Days() {
		days = append(days, dto.CalendarDay{Day: day, Windows: calendar.WindowsFor(day)})
	}
	response.JSON(c, http.StatusOK, days, nil)
}
