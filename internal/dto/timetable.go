package dto

import (
	"strings"
	"time"

	"github.com/noah-isme/timetable-api/internal/models"
)

// SessionDemandInput describes one session to place.
type SessionDemandInput struct {
	ID        string   `json:"id"`
	Subject   string   `json:"subject" validate:"required"`
	Kind      string   `json:"kind" validate:"required"`
	Teacher   string   `json:"teacher" validate:"required"`
	Group     string   `json:"group" validate:"required"`
	Cohort    string   `json:"cohort"`
	Track     string   `json:"track" validate:"required"`
	Headcount int      `json:"headcount" validate:"min=1"`
	Equipment []string `json:"equipment"`
	Priority  *int     `json:"priority" validate:"omitempty,min=0"`
}

// ToModel converts the input, normalising the kind and defaulting the priority
// rank from the kind when absent.
func (in SessionDemandInput) ToModel() models.SessionDemand {
	kind := models.SessionKind(strings.ToUpper(strings.TrimSpace(in.Kind)))
	priority := kind.DefaultPriority()
	if in.Priority != nil {
		priority = *in.Priority
	}
	return models.SessionDemand{
		ID:        in.ID,
		Subject:   strings.TrimSpace(in.Subject),
		Kind:      kind,
		Teacher:   strings.TrimSpace(in.Teacher),
		Group:     strings.TrimSpace(in.Group),
		Cohort:    strings.TrimSpace(in.Cohort),
		Track:     strings.TrimSpace(in.Track),
		Headcount: in.Headcount,
		Equipment: in.Equipment,
		Priority:  priority,
	}
}

// RoomInput describes a catalog room.
type RoomInput struct {
	Name      string   `json:"name" validate:"required"`
	Capacity  int      `json:"capacity" validate:"min=1"`
	Kind      string   `json:"kind" validate:"required"`
	Equipment []string `json:"equipment"`
}

// ToModel converts the input, normalising the kind.
func (in RoomInput) ToModel() models.Room {
	return models.Room{
		Name:      strings.TrimSpace(in.Name),
		Capacity:  in.Capacity,
		Kind:      models.RoomKind(strings.ToUpper(strings.TrimSpace(in.Kind))),
		Equipment: in.Equipment,
	}
}

// BlockedSlotInput marks a teacher, and optionally a room, unavailable.
type BlockedSlotInput struct {
	Teacher string `json:"teacher" validate:"required"`
	Day     string `json:"day" validate:"required"`
	Start   string `json:"start" validate:"required"`
	Room    string `json:"room"`
	Reason  string `json:"reason"`
}

// ToModel converts the input, parsing the weekday.
func (in BlockedSlotInput) ToModel() (models.BlockedSlot, error) {
	day, err := models.ParseWeekday(in.Day)
	if err != nil {
		return models.BlockedSlot{}, err
	}
	return models.BlockedSlot{
		Teacher: strings.TrimSpace(in.Teacher),
		Day:     day,
		Start:   strings.TrimSpace(in.Start),
		Room:    strings.TrimSpace(in.Room),
		Reason:  strings.TrimSpace(in.Reason),
	}, nil
}

// GenerateTimetableRequest starts a run. Each empty list is read from the stored catalog.
type GenerateTimetableRequest struct {
	Sessions     []SessionDemandInput `json:"sessions" validate:"omitempty,dive"`
	Rooms        []RoomInput          `json:"rooms" validate:"omitempty,dive"`
	BlockedSlots []BlockedSlotInput   `json:"blockedSlots" validate:"omitempty,dive"`
	RequestedBy  string               `json:"-"`
}

// Inline reports whether any catalog list is supplied by the request.
func (r GenerateTimetableRequest) Inline() bool {
	return len(r.Sessions) > 0 || len(r.Rooms) > 0 || len(r.BlockedSlots) > 0
}

// GenerateTimetableResponse returns the run outcome.
type GenerateTimetableResponse struct {
	RunID               string                  `json:"runId"`
	Status              models.RunStatus        `json:"status"`
	Placements          []models.Placement      `json:"placements"`
	Unplaced            []models.UnplacedRecord `json:"unplaced"`
	Stats               models.RunStats         `json:"stats"`
	IgnoredBlockedSlots []models.BlockedSlot    `json:"ignoredBlockedSlots,omitempty"`
}

// EnqueueTimetableResponse acknowledges an asynchronous run.
type EnqueueTimetableResponse struct {
	RunID  string           `json:"runId"`
	Status models.RunStatus `json:"status"`
}

// TimetableRunQuery paginates run listings.
type TimetableRunQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"pageSize"`
}

// PlacementQuery filters a run's placements.
type PlacementQuery struct {
	Group   string `form:"group" json:"group"`
	Teacher string `form:"teacher" json:"teacher"`
	Room    string `form:"room" json:"room"`
	Day     string `form:"day" json:"day"`
}

// ExportTimetableRequest renders a run as a downloadable file.
type ExportTimetableRequest struct {
	Format  string `json:"format" validate:"required,oneof=csv pdf"`
	Group   string `json:"group"`
	Teacher string `json:"teacher"`
	Room    string `json:"room"`
}

// ExportTimetableResponse carries the signed download link.
type ExportTimetableResponse struct {
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// UpsertRoomsRequest adds or updates catalog rooms.
type UpsertRoomsRequest struct {
	Rooms []RoomInput `json:"rooms" validate:"required,min=1,dive"`
}

// ReplaceSessionsRequest swaps the stored session catalog.
type ReplaceSessionsRequest struct {
	Sessions []SessionDemandInput `json:"sessions" validate:"required,dive"`
}

// CatalogImportResponse reports how many records an import stored.
type CatalogImportResponse struct {
	Rooms        int `json:"rooms"`
	Sessions     int `json:"sessions"`
	BlockedSlots int `json:"blockedSlots"`
}

// BlockedSlotQuery filters blocked slot listings.
type BlockedSlotQuery struct {
	Teacher string `form:"teacher"`
	Room    string `form:"room"`
	Day     string `form:"day"`
}

// CalendarDay lists the windows of a weekday.
type CalendarDay struct {
	Day     models.Weekday      `json:"day"`
	Windows []models.TimeWindow `json:"windows"`
}
