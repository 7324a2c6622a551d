package service

import (
	"sort"

	"github.com/noah-isme/timetable-api/internal/models"
)

// RoomMatcherConfig holds the headcount ceilings above which tutorials and labs
// move to lecture spaces.
type RoomMatcherConfig struct {
	TutorialRoomCeiling int
	LabRoomCeiling      int
}

// RoomMatcher selects rooms able to host a session kind. It knows nothing about
// occupancy.
type RoomMatcher struct {
	rooms  []models.Room
	byName map[string]struct{}
	cfg    RoomMatcherConfig
}

// NewRoomMatcher copies the catalog and applies default ceilings (50 tutorial, 30 lab).
func NewRoomMatcher(rooms []models.Room, cfg RoomMatcherConfig) *RoomMatcher {
	if cfg.TutorialRoomCeiling <= 0 {
		cfg.TutorialRoomCeiling = 50
	}
	if cfg.LabRoomCeiling <= 0 {
		cfg.LabRoomCeiling = 30
	}
	byName := make(map[string]struct{}, len(rooms))
	for _, room := range rooms {
		byName[room.Name] = struct{}{}
	}
	return &RoomMatcher{
		rooms:  append([]models.Room(nil), rooms...),
		byName: byName,
		cfg:    cfg,
	}
}

// Known reports whether name is part of the catalog.
func (m *RoomMatcher) Known(name string) bool {
	_, ok := m.byName[name]
	return ok
}

// CandidateRooms returns compatible rooms with enough capacity and every required
// equipment tag, smallest first. Ties keep catalog order.
func (m *RoomMatcher) CandidateRooms(kind models.SessionKind, headcount int, equipment []string) []models.Room {
	lectureSpaces := []models.RoomKind{models.RoomAmphitheater, models.RoomLecture}

	switch kind {
	case models.SessionLecture:
		return m.fitting(headcount, equipment, lectureSpaces...)
	case models.SessionTutorial:
		return m.withSubstitution(models.RoomTutorial, m.cfg.TutorialRoomCeiling, headcount, equipment)
	case models.SessionLab:
		return m.withSubstitution(models.RoomLab, m.cfg.LabRoomCeiling, headcount, equipment)
	case models.SessionExam:
		amphitheaters := m.fitting(headcount, equipment, models.RoomAmphitheater)
		return append(amphitheaters, m.fitting(headcount, equipment, models.RoomLecture)...)
	default:
		return nil
	}
}

// withSubstitution serves primary rooms unless the headcount exceeds ceiling or
// no primary room can hold the group, in which case lecture spaces are used.
func (m *RoomMatcher) withSubstitution(primary models.RoomKind, ceiling, headcount int, equipment []string) []models.Room {
	if headcount <= ceiling {
		if rooms := m.fitting(headcount, equipment, primary); len(rooms) > 0 {
			return rooms
		}
	}
	return m.fitting(headcount, equipment, models.RoomAmphitheater, models.RoomLecture)
}

func (m *RoomMatcher) fitting(headcount int, equipment []string, kinds ...models.RoomKind) []models.Room {
	var result []models.Room
	for _, room := range m.rooms {
		if room.Kind == models.RoomPreparation || !containsRoomKind(kinds, room.Kind) {
			continue
		}
		if room.Capacity < headcount || !room.HasEquipment(equipment) {
			continue
		}
		result = append(result, room)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Capacity < result[j].Capacity
	})
	return result
}

func containsRoomKind(kinds []models.RoomKind, kind models.RoomKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
