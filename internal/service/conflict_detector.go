package service

import (
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
)

// blockedIndex groups accepted blocked slots by (day, start).
type blockedIndex map[slotKey][]models.BlockedSlot

// indexBlockedSlots keeps blocked slots that fall on the calendar grid. Off-grid
// slots are dropped. A slot naming a room outside the catalog keeps its teacher
// part with the room cleared. Both cases are returned as ignored.
func indexBlockedSlots(slots []models.BlockedSlot, calendar SlotCalendar, matcher *RoomMatcher, logger *zap.Logger) (blockedIndex, []models.BlockedSlot) {
	if logger == nil {
		logger = zap.NewNop()
	}
	index := make(blockedIndex)
	var ignored []models.BlockedSlot
	for _, slot := range slots {
		if _, ok := calendar.WindowAt(slot.Day, slot.Start); !ok {
			logger.Warn("ignoring blocked slot outside calendar",
				zap.String("teacher", slot.Teacher),
				zap.Stringer("day", slot.Day),
				zap.String("start", slot.Start))
			ignored = append(ignored, slot)
			continue
		}
		if slot.Room != "" && !matcher.Known(slot.Room) {
			logger.Warn("ignoring unknown room of blocked slot",
				zap.String("teacher", slot.Teacher),
				zap.Stringer("day", slot.Day),
				zap.String("start", slot.Start),
				zap.String("room", slot.Room))
			ignored = append(ignored, slot)
			slot.Room = ""
		}
		key := slotKey{Day: slot.Day, Start: slot.Start}
		index[key] = append(index[key], slot)
	}
	return index, ignored
}

// ConflictDetector reports every hard-constraint violation of a candidate placement.
type ConflictDetector struct{}

// Conflicts returns the violations of candidate against the committed timetable and
// the blocked slots. An empty set means the candidate is placeable.
func (ConflictDetector) Conflicts(tt *timetable, blocked blockedIndex, candidate models.Placement) models.ConflictSet {
	var conflicts models.ConflictSet
	for _, existing := range tt.at(candidate.Day, candidate.Start) {
		if existing.Room == candidate.Room {
			conflicts = conflicts.Add(models.ConflictRoomOccupied)
		}
		if existing.Teacher == candidate.Teacher {
			conflicts = conflicts.Add(models.ConflictTeacherBusy)
		}
		if existing.Group == candidate.Group {
			conflicts = conflicts.Add(models.ConflictGroupBusy)
		}
	}
	for _, slot := range blocked[slotKey{Day: candidate.Day, Start: candidate.Start}] {
		if models.TeacherKey(slot.Teacher) == models.TeacherKey(candidate.Teacher) {
			conflicts = conflicts.Add(models.ConflictTeacherBlocked)
		}
		if slot.Room != "" && slot.Room == candidate.Room {
			conflicts = conflicts.Add(models.ConflictRoomBlocked)
		}
	}
	return conflicts
}
