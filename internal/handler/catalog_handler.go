package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/catalog"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/response"
)

const maxCatalogUpload = 8 << 20

type catalogManager interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	UpsertRooms(ctx context.Context, req dto.UpsertRoomsRequest) ([]models.Room, error)
	DeleteRoom(ctx context.Context, name string) error
	ListSessions(ctx context.Context) ([]models.SessionDemand, error)
	ReplaceSessions(ctx context.Context, req dto.ReplaceSessionsRequest) ([]models.SessionDemand, error)
	Import(ctx context.Context, in service.CatalogImport) (*dto.CatalogImportResponse, error)
}

// CatalogHandler manages the stored room and session catalogs.
type CatalogHandler struct {
	service catalogManager
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// ListRooms godoc
// @Summary List catalog rooms
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/rooms [get]
func (h *CatalogHandler) ListRooms(c *gin.Context) {
	rooms, err := h.service.ListRooms(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// UpsertRooms godoc
// @Summary Add or update rooms
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.UpsertRoomsRequest true "Rooms"
// @Success 200 {object} response.Envelope
// @Router /catalog/rooms [post]
func (h *CatalogHandler) UpsertRooms(c *gin.Context) {
	var req dto.UpsertRoomsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rooms payload"))
		return
	}
	rooms, err := h.service.UpsertRooms(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, nil)
}

// DeleteRoom godoc
// @Summary Delete a room
// @Tags Catalog
// @Param name path string true "Room name"
// @Success 204
// @Router /catalog/rooms/{name} [delete]
func (h *CatalogHandler) DeleteRoom(c *gin.Context) {
	if err := h.service.DeleteRoom(c.Request.Context(), c.Param("name")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSessions godoc
// @Summary List stored session demands
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/sessions [get]
func (h *CatalogHandler) ListSessions(c *gin.Context) {
	sessions, err := h.service.ListSessions(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// ReplaceSessions godoc
// @Summary Replace the session catalog
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.ReplaceSessionsRequest true "Sessions"
// @Success 200 {object} response.Envelope
// @Router /catalog/sessions [put]
func (h *CatalogHandler) ReplaceSessions(c *gin.Context) {
	var req dto.ReplaceSessionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sessions payload"))
		return
	}
	sessions, err := h.service.ReplaceSessions(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}

// Import godoc
// @Summary Import CSV catalogs
// @Description Multipart upload with optional "rooms" and "sessions" files. Sessions replace the stored catalog.
// @Tags Catalog
// @Accept multipart/form-data
// @Produce json
// @Param rooms formData file false "Rooms CSV"
// @Param sessions formData file false "Sessions CSV"
// @Param delimiter formData string false "comma, semicolon, tab or pipe"
// @Success 200 {object} response.Envelope
// @Router /catalog/import [post]
func (h *CatalogHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCatalogUpload)

	delim, err := catalog.ParseDelimiter(c.PostForm("delimiter"))
	if err != nil {
		response.Error(c, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid delimiter"), map[string]string{"delimiter": err.Error()}))
		return
	}

	in := service.CatalogImport{Delimiter: delim}
	rooms, closeRooms, err := formFile(c, "rooms")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeRooms()
	sessions, closeSessions, err := formFile(c, "sessions")
	if err != nil {
		response.Error(c, err)
		return
	}
	defer closeSessions()
	if rooms != nil {
		in.Rooms = rooms
	}
	if sessions != nil {
		in.Sessions = sessions
	}

	result, err := h.service.Import(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// formFile opens an optional upload. A missing field yields a nil file.
func formFile(c *gin.Context, field string) (multipart.File, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, func() {}, nil
		}
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid upload")
	}
	file, err := header.Open()
	if err != nil {
		return nil, func() {}, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload")
	}
	return file, func() { _ = file.Close() }, nil
}
