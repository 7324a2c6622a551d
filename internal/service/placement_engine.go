package service

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/validation"
)

// EngineConfig is the immutable configuration shared by every run.
type EngineConfig struct {
	Calendar SlotCalendar
	Rooms    RoomMatcherConfig
}

// EngineInput is the snapshot a single run works on.
type EngineInput struct {
	Demands []models.SessionDemand `json:"sessions" validate:"dive"`
	Rooms   []models.Room          `json:"rooms" validate:"dive"`
	Blocked []models.BlockedSlot   `json:"blocked_slots" validate:"dive"`
}

// EngineResult is the outcome of a run. Every demand appears exactly once in
// Placements or Unplaced.
type EngineResult struct {
	Placements     []models.Placement      `json:"placements"`
	Unplaced       []models.UnplacedRecord `json:"unplaced"`
	Stats          models.RunStats         `json:"stats"`
	IgnoredBlocked []models.BlockedSlot    `json:"ignored_blocked_slots,omitempty"`
}

// PlacementEngine places session demands greedily: a load-balanced fast path
// first, then a canonical-order fallback over every candidate room. Committed
// placements are never revisited.
type PlacementEngine struct {
	cfg       EngineConfig
	validator *validation.Validator
	detector  ConflictDetector
	logger    *zap.Logger
}

// NewPlacementEngine constructs an engine. A zero calendar falls back to the default week.
func NewPlacementEngine(cfg EngineConfig, validator *validation.Validator, logger *zap.Logger) *PlacementEngine {
	if len(cfg.Calendar.Days()) == 0 {
		cfg.Calendar = DefaultSlotCalendar()
	}
	if validator == nil {
		validator = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PlacementEngine{cfg: cfg, validator: validator, logger: logger}
}

// Calendar exposes the window table used by the engine.
func (e *PlacementEngine) Calendar() SlotCalendar {
	return e.cfg.Calendar
}

type runState struct {
	tt       *timetable
	blocked  blockedIndex
	matcher  *RoomMatcher
	balancer *LoadBalancer
	days     []models.Weekday
}

// Run validates input and places every demand. Malformed input aborts the run
// before any placement is produced; infeasible demands are reported as unplaced.
func (e *PlacementEngine) Run(input EngineInput) (*EngineResult, error) {
	cohorts, err := e.validate(input)
	if err != nil {
		return nil, err
	}

	matcher := NewRoomMatcher(input.Rooms, e.cfg.Rooms)
	blocked, ignored := indexBlockedSlots(input.Blocked, e.cfg.Calendar, matcher, e.logger)
	state := &runState{
		tt:       newTimetable(),
		blocked:  blocked,
		matcher:  matcher,
		balancer: NewLoadBalancer(cohorts),
		days:     e.cfg.Calendar.Days(),
	}

	ordered := append([]models.SessionDemand(nil), input.Demands...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	result := &EngineResult{
		Placements:     make([]models.Placement, 0, len(ordered)),
		Unplaced:       make([]models.UnplacedRecord, 0),
		IgnoredBlocked: ignored,
	}
	for _, demand := range ordered {
		placement, ok := e.fastPath(state, demand)
		if !ok {
			placement, ok = e.fallback(state, demand)
		}
		if !ok {
			e.logger.Warn("session demand unplaced",
				zap.String("subject", demand.Subject),
				zap.String("kind", string(demand.Kind)),
				zap.String("teacher", demand.Teacher),
				zap.String("group", demand.Group),
				zap.Int("headcount", demand.Headcount))
			result.Unplaced = append(result.Unplaced, models.UnplacedRecord{Demand: demand, Reason: models.UnplacedReasonNoSlot})
			continue
		}
		state.tt.add(placement)
		result.Placements = append(result.Placements, placement)
	}

	result.Stats = summarize(result)
	e.logger.Info("timetable run finished",
		zap.Int("demands", len(ordered)),
		zap.Int("placed", len(result.Placements)),
		zap.Int("fast_path", result.Stats.FastPath),
		zap.Int("fallback", result.Stats.Fallback),
		zap.Int("unplaced", result.Stats.Unplaced),
		zap.Int("ignored_blocked_slots", len(ignored)))
	return result, nil
}

func (e *PlacementEngine) fastPath(state *runState, demand models.SessionDemand) (models.Placement, bool) {
	candidates := state.matcher.CandidateRooms(demand.Kind, demand.Headcount, demand.Equipment)
	if len(candidates) == 0 {
		return models.Placement{}, false
	}
	for _, day := range state.balancer.RankDays(state.tt, demand.Group, state.days) {
		window, ok := e.firstFreeWindow(state.tt, day, demand)
		if !ok {
			continue
		}
		for _, room := range candidates {
			if state.tt.roomOccupied(day, window.Start, room.Name) {
				continue
			}
			candidate := newPlacement(demand, day, window, room, models.PhaseFastPath)
			if e.detector.Conflicts(state.tt, state.blocked, candidate).Empty() {
				return candidate, true
			}
			break
		}
	}
	return models.Placement{}, false
}

func (e *PlacementEngine) fallback(state *runState, demand models.SessionDemand) (models.Placement, bool) {
	candidates := state.matcher.CandidateRooms(demand.Kind, demand.Headcount, demand.Equipment)
	for _, day := range state.days {
		window, ok := e.firstFreeWindow(state.tt, day, demand)
		if !ok {
			continue
		}
		for _, room := range candidates {
			candidate := newPlacement(demand, day, window, room, models.PhaseFallback)
			if e.detector.Conflicts(state.tt, state.blocked, candidate).Empty() {
				return candidate, true
			}
		}
	}
	return models.Placement{}, false
}

// firstFreeWindow is the earliest window of day where neither the teacher nor the
// group is already placed.
func (e *PlacementEngine) firstFreeWindow(tt *timetable, day models.Weekday, demand models.SessionDemand) (models.TimeWindow, bool) {
	for _, window := range e.cfg.Calendar.WindowsFor(day) {
		if tt.participantsFree(day, window.Start, demand.Teacher, demand.Group) {
			return window, true
		}
	}
	return models.TimeWindow{}, false
}

// validate checks the whole input and derives the group → cohort relation.
func (e *PlacementEngine) validate(input EngineInput) (map[string]string, error) {
	if err := e.validator.Struct(input); err != nil {
		return nil, err
	}

	details := make(map[string]string)
	seenRooms := make(map[string]int, len(input.Rooms))
	for i, room := range input.Rooms {
		if first, ok := seenRooms[room.Name]; ok {
			details[fmt.Sprintf("rooms[%d].name", i)] = fmt.Sprintf("duplicate room name %q (first at rooms[%d])", room.Name, first)
			continue
		}
		seenRooms[room.Name] = i
	}

	cohorts := make(map[string]string)
	for i, demand := range input.Demands {
		if demand.Cohort == "" {
			continue
		}
		field := fmt.Sprintf("sessions[%d].cohort", i)
		if demand.Cohort == demand.Group {
			details[field] = "cohort must differ from group"
			continue
		}
		if existing, ok := cohorts[demand.Group]; ok && existing != demand.Cohort {
			details[field] = fmt.Sprintf("group %q already belongs to cohort %q", demand.Group, existing)
			continue
		}
		cohorts[demand.Group] = demand.Cohort
	}

	if len(details) > 0 {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid timetable input"), details)
	}
	return cohorts, nil
}

func newPlacement(demand models.SessionDemand, day models.Weekday, window models.TimeWindow, room models.Room, phase models.PlacementPhase) models.Placement {
	return models.Placement{
		DemandID:  demand.ID,
		Subject:   demand.Subject,
		Kind:      demand.Kind,
		Teacher:   demand.Teacher,
		Group:     demand.Group,
		Cohort:    demand.Cohort,
		Track:     demand.Track,
		Headcount: demand.Headcount,
		Day:       day,
		Start:     window.Start,
		End:       window.End,
		Room:      room.Name,
		Phase:     phase,
	}
}

func summarize(result *EngineResult) models.RunStats {
	stats := models.RunStats{
		Unplaced:  len(result.Unplaced),
		PerDay:    make(map[string]int),
		PerWindow: make(map[string]int),
		RoomUsage: make(map[string]int),
	}
	for _, p := range result.Placements {
		switch p.Phase {
		case models.PhaseFastPath:
			stats.FastPath++
		case models.PhaseFallback:
			stats.Fallback++
		}
		stats.PerDay[p.Day.String()]++
		stats.PerWindow[p.Start]++
		stats.RoomUsage[p.Room]++
	}
	return stats
}
