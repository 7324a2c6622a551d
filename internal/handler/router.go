package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/timetable-api/internal/middleware"
	"github.com/noah-isme/timetable-api/internal/models"
)

// Handlers groups the API handlers mounted under the API prefix.
type Handlers struct {
	Timetable    *TimetableHandler
	Catalog      *CatalogHandler
	BlockedSlots *BlockedSlotHandler
}

// RegisterRoutes mounts the API. Downloads are public since the signed token
// is the credential; everything else requires a bearer token.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, tokens middleware.TokenValidator) {
	api.GET("/exports/:token", h.Timetable.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)
	admin := middleware.RequireRoles(models.RoleAdmin)

	timetables := secured.Group("/timetables")
	timetables.GET("/calendar", staff, h.Timetable.Calendar)
	timetables.POST("/generate", admin, h.Timetable.Generate)
	timetables.GET("/runs", staff, h.Timetable.ListRuns)
	timetables.GET("/runs/:id", staff, h.Timetable.GetRun)
	timetables.DELETE("/runs/:id", admin, h.Timetable.DeleteRun)
	timetables.GET("/runs/:id/placements", staff, h.Timetable.Placements)
	timetables.POST("/runs/:id/export", staff, h.Timetable.Export)

	catalog := secured.Group("/catalog")
	catalog.GET("/rooms", staff, h.Catalog.ListRooms)
	catalog.POST("/rooms", admin, h.Catalog.UpsertRooms)
	catalog.DELETE("/rooms/:name", admin, h.Catalog.DeleteRoom)
	catalog.GET("/sessions", staff, h.Catalog.ListSessions)
	catalog.PUT("/sessions", admin, h.Catalog.ReplaceSessions)
	catalog.POST("/import", admin, h.Catalog.Import)

	blocked := secured.Group("/blocked-slots")
	blocked.GET("", staff, h.BlockedSlots.List)
	blocked.POST("", admin, h.BlockedSlots.Create)
	blocked.DELETE("/:id", admin, h.BlockedSlots.Delete)
}
