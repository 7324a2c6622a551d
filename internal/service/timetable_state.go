package service

import "github.com/noah-isme/timetable-api/internal/models"

type slotKey struct {
	Day   models.Weekday
	Start string
}

// timetable is the in-progress set of committed placements for one run, indexed
// by (day, window start).
type timetable struct {
	placements []models.Placement
	bySlot     map[slotKey][]int
	groupLoad  map[string]map[models.Weekday]int
}

func newTimetable() *timetable {
	return &timetable{
		bySlot:    make(map[slotKey][]int),
		groupLoad: make(map[string]map[models.Weekday]int),
	}
}

func (t *timetable) add(p models.Placement) {
	key := slotKey{Day: p.Day, Start: p.Start}
	t.bySlot[key] = append(t.bySlot[key], len(t.placements))
	t.placements = append(t.placements, p)
	if t.groupLoad[p.Group] == nil {
		t.groupLoad[p.Group] = make(map[models.Weekday]int)
	}
	t.groupLoad[p.Group][p.Day]++
}

func (t *timetable) at(day models.Weekday, start string) []models.Placement {
	idx := t.bySlot[slotKey{Day: day, Start: start}]
	result := make([]models.Placement, 0, len(idx))
	for _, i := range idx {
		result = append(result, t.placements[i])
	}
	return result
}

func (t *timetable) load(group string, day models.Weekday) int {
	return t.groupLoad[group][day]
}

// roomOccupied is the narrow check used by the fast path before full detection.
func (tt *timetable) roomOccupied(day models.Weekday, start, room string) bool {
	for _, existing := range tt.at(day, start) {
		if existing.Room == room {
			return true
		}
	}
	return false
}

// participantsFree reports whether neither teacher nor group is already placed at the slot.
func (tt *timetable) participantsFree(day models.Weekday, start, teacher, group string) bool {
	for _, existing := range tt.at(day, start) {
		if existing.Teacher == teacher || existing.Group == group {
			return false
		}
	}
	return true
}
