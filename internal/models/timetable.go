package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SessionKind enumerates the kinds of teaching sessions that can be placed.
type SessionKind string

const (
	SessionLecture  SessionKind = "LECTURE"
	SessionTutorial SessionKind = "TUTORIAL"
	SessionLab      SessionKind = "LAB"
	SessionExam     SessionKind = "EXAM"
)

// DefaultPriority returns the rank used when a demand carries no explicit priority.
// Lower ranks are placed first.
func (k SessionKind) DefaultPriority() int {
	switch k {
	case SessionExam:
		return 0
	case SessionLecture:
		return 1
	case SessionTutorial:
		return 2
	case SessionLab:
		return 3
	default:
		return 4
	}
}

// Valid reports whether the kind is one of the known session kinds.
func (k SessionKind) Valid() bool {
	switch k {
	case SessionLecture, SessionTutorial, SessionLab, SessionExam:
		return true
	}
	return false
}

// RoomKind enumerates room categories.
type RoomKind string

const (
	RoomAmphitheater RoomKind = "AMPHITHEATER"
	RoomLecture      RoomKind = "LECTURE_ROOM"
	RoomTutorial     RoomKind = "TUTORIAL_ROOM"
	RoomLab          RoomKind = "LAB_ROOM"
	RoomPreparation  RoomKind = "PREPARATION"
)

// Weekday identifies a teaching day. Values follow ISO numbering (1 = Monday).
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// TeachingDays lists the weekdays in canonical order.
var TeachingDays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

var weekdayNames = map[Weekday]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
	Saturday:  "SATURDAY",
	Sunday:    "SUNDAY",
}

func (d Weekday) String() string {
	if name, ok := weekdayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DAY_%d", int(d))
}

// MarshalText renders the weekday name.
func (d Weekday) MarshalText() ([]byte, error) {
	if _, ok := weekdayNames[d]; !ok {
		return nil, fmt.Errorf("invalid weekday %d", int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText accepts weekday names (any case) or ISO numbers.
func (d *Weekday) UnmarshalText(text []byte) error {
	parsed, err := ParseWeekday(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseWeekday converts "MONDAY", "mon" or "1" into a Weekday.
func ParseWeekday(raw string) (Weekday, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	if value == "" {
		return 0, fmt.Errorf("weekday is empty")
	}
	if n, err := strconv.Atoi(value); err == nil {
		if _, ok := weekdayNames[Weekday(n)]; ok {
			return Weekday(n), nil
		}
		return 0, fmt.Errorf("invalid weekday %q", raw)
	}
	for day, name := range weekdayNames {
		if name == value || (len(value) == 3 && strings.HasPrefix(name, value)) {
			return day, nil
		}
	}
	return 0, fmt.Errorf("invalid weekday %q", raw)
}

// TimeWindow is an indivisible teaching slot expressed as HH:MM bounds.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (w TimeWindow) String() string {
	return w.Start + "-" + w.End
}

// SessionDemand is a request to place one teaching session.
type SessionDemand struct {
	ID        string      `db:"id" json:"id"`
	Subject   string      `db:"subject" json:"subject" validate:"required"`
	Kind      SessionKind `db:"kind" json:"kind" validate:"required,oneof=LECTURE TUTORIAL LAB EXAM"`
	Teacher   string      `db:"teacher" json:"teacher" validate:"required"`
	Group     string      `db:"group_code" json:"group" validate:"required"`
	Cohort    string      `db:"cohort_code" json:"cohort,omitempty"`
	Track     string      `db:"track" json:"track" validate:"required"`
	Headcount int         `db:"headcount" json:"headcount" validate:"min=1"`
	Equipment []string    `db:"-" json:"equipment,omitempty"`
	Priority  int         `db:"priority" json:"priority" validate:"min=0"`
}

// Room is a schedulable location.
type Room struct {
	Name      string   `db:"name" json:"name" validate:"required"`
	Capacity  int      `db:"capacity" json:"capacity" validate:"min=1"`
	Kind      RoomKind `db:"kind" json:"kind" validate:"required,oneof=AMPHITHEATER LECTURE_ROOM TUTORIAL_ROOM LAB_ROOM PREPARATION"`
	Equipment []string `db:"-" json:"equipment,omitempty"`
}

// HasEquipment reports whether the room offers every requested tag.
func (r Room) HasEquipment(required []string) bool {
	for _, tag := range required {
		found := false
		for _, have := range r.Equipment {
			if strings.EqualFold(have, tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// BlockedSlot marks a teacher (and optionally a room) unavailable at a day/start.
type BlockedSlot struct {
	ID        string    `db:"id" json:"id"`
	Teacher   string    `db:"teacher" json:"teacher" validate:"required"`
	Day       Weekday   `db:"day_of_week" json:"day" validate:"min=1,max=7"`
	Start     string    `db:"start_time" json:"start" validate:"required"`
	Room      string    `db:"room" json:"room,omitempty"`
	Reason    string    `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TeacherKey is the comparison form of a teacher name. Blocked slots match
// demands on this key.
func TeacherKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// PlacementPhase records which strategy committed a placement.
type PlacementPhase string

const (
	PhaseFastPath PlacementPhase = "FAST_PATH"
	PhaseFallback PlacementPhase = "FALLBACK"
)

// Placement binds a demand to a day, window and room.
type Placement struct {
	ID        string         `db:"id" json:"id"`
	RunID     string         `db:"run_id" json:"run_id,omitempty"`
	DemandID  string         `db:"demand_id" json:"demand_id,omitempty"`
	Subject   string         `db:"subject" json:"subject"`
	Kind      SessionKind    `db:"kind" json:"kind"`
	Teacher   string         `db:"teacher" json:"teacher"`
	Group     string         `db:"group_code" json:"group"`
	Cohort    string         `db:"cohort_code" json:"cohort,omitempty"`
	Track     string         `db:"track" json:"track"`
	Headcount int            `db:"headcount" json:"headcount"`
	Day       Weekday        `db:"day_of_week" json:"day"`
	Start     string         `db:"start_time" json:"start"`
	End       string         `db:"end_time" json:"end"`
	Room      string         `db:"room" json:"room"`
	Phase     PlacementPhase `db:"phase" json:"phase"`
}

// UnplacedReasonNoSlot is recorded when neither strategy finds a feasible slot.
const UnplacedReasonNoSlot = "no feasible slot found"

// UnplacedRecord reports a demand that could not be placed.
type UnplacedRecord struct {
	Demand SessionDemand `json:"demand"`
	Reason string        `json:"reason"`
}

// ConflictKind enumerates constraint violations of a candidate placement.
type ConflictKind string

const (
	ConflictRoomOccupied   ConflictKind = "ROOM_OCCUPIED"
	ConflictTeacherBusy    ConflictKind = "TEACHER_BUSY"
	ConflictGroupBusy      ConflictKind = "GROUP_BUSY"
	ConflictTeacherBlocked ConflictKind = "TEACHER_BLOCKED"
	ConflictRoomBlocked    ConflictKind = "ROOM_BLOCKED"
)

// ConflictSet is an ordered, duplicate-free collection of conflict kinds.
type ConflictSet []ConflictKind

// Add inserts kind unless already present.
func (s ConflictSet) Add(kind ConflictKind) ConflictSet {
	if s.Has(kind) {
		return s
	}
	return append(s, kind)
}

// Has reports membership.
func (s ConflictSet) Has(kind ConflictKind) bool {
	for _, k := range s {
		if k == kind {
			return true
		}
	}
	return false
}

// Empty reports whether the candidate is placeable.
func (s ConflictSet) Empty() bool { return len(s) == 0 }

// RunStatus tracks a generation run lifecycle.
type RunStatus string

const (
	RunStatusPending   RunStatus = "PENDING"
	RunStatusCompleted RunStatus = "COMPLETED"
	RunStatusFailed    RunStatus = "FAILED"
)

// RunStats summarises the outcome of a generation run. Persisted as JSONB.
type RunStats struct {
	FastPath  int            `json:"fast_path"`
	Fallback  int            `json:"fallback"`
	Unplaced  int            `json:"unplaced"`
	PerDay    map[string]int `json:"per_day"`
	PerWindow map[string]int `json:"per_window"`
	RoomUsage map[string]int `json:"room_usage"`
}

// Value marshals stats to JSON for persistence.
func (s RunStats) Value() (driver.Value, error) {
	if s.PerDay == nil {
		s.PerDay = map[string]int{}
	}
	if s.PerWindow == nil {
		s.PerWindow = map[string]int{}
	}
	if s.RoomUsage == nil {
		s.RoomUsage = map[string]int{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal run stats: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the stats struct.
func (s *RunStats) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*s = RunStats{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for RunStats", value)
	}
	if len(data) == 0 {
		*s = RunStats{}
		return nil
	}
	if err := json.Unmarshal(data, s); err != nil {
		return fmt.Errorf("unmarshal run stats: %w", err)
	}
	return nil
}

// TimetableRun is one persisted generation attempt and its result.
type TimetableRun struct {
	ID            string           `db:"id" json:"id"`
	Status        RunStatus        `db:"status" json:"status"`
	Source        string           `db:"source" json:"source"`
	PlacedCount   int              `db:"placed_count" json:"placed_count"`
	UnplacedCount int              `db:"unplaced_count" json:"unplaced_count"`
	Stats         RunStats         `db:"stats" json:"stats"`
	ErrorMessage  *string          `db:"error_message" json:"error_message,omitempty"`
	CreatedBy     string           `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
	CompletedAt   *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	Placements    []Placement      `db:"-" json:"placements,omitempty"`
	Unplaced      []UnplacedRecord `db:"-" json:"unplaced,omitempty"`
}

// Run sources.
const (
	RunSourceInline  = "INLINE"
	RunSourceCatalog = "CATALOG"
)

// PlacementFilter narrows a timetable view. Groups match any of the listed codes.
type PlacementFilter struct {
	Groups  []string
	Teacher string
	Room    string
	Day     Weekday
}

// BlockedSlotFilter narrows blocked slot listings.
type BlockedSlotFilter struct {
	Teacher string
	Room    string
	Day     Weekday
}
