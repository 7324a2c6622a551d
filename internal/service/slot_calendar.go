package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/timetable-api/internal/models"
)

// SlotCalendar holds the teaching windows available on each weekday.
// Values are immutable once built; every accessor returns copies.
type SlotCalendar struct {
	windows map[models.Weekday][]models.TimeWindow
}

// DefaultSlotCalendar returns the standard week: five windows Monday to Thursday,
// Friday without the midday window and a two-window Saturday morning.
func DefaultSlotCalendar() SlotCalendar {
	full := []models.TimeWindow{
		{Start: "09:00", End: "10:30"},
		{Start: "10:45", End: "12:15"},
		{Start: "12:30", End: "14:00"},
		{Start: "14:15", End: "15:45"},
		{Start: "16:00", End: "17:30"},
	}
	friday := []models.TimeWindow{full[0], full[1], full[3], full[4]}
	saturday := []models.TimeWindow{full[0], full[1]}

	cal, _ := NewSlotCalendar(map[models.Weekday][]models.TimeWindow{
		models.Monday:    full,
		models.Tuesday:   full,
		models.Wednesday: full,
		models.Thursday:  full,
		models.Friday:    friday,
		models.Saturday:  saturday,
	})
	return cal
}

// NewSlotCalendar validates a window table. Windows must be HH:MM, ordered and
// non-overlapping within a day.
func NewSlotCalendar(table map[models.Weekday][]models.TimeWindow) (SlotCalendar, error) {
	windows := make(map[models.Weekday][]models.TimeWindow, len(table))
	for day, list := range table {
		if day < models.Monday || day > models.Sunday {
			return SlotCalendar{}, fmt.Errorf("invalid weekday %d", int(day))
		}
		var prevEnd time.Time
		for i, w := range list {
			start, err := parseClock(w.Start)
			if err != nil {
				return SlotCalendar{}, fmt.Errorf("%s window %d: %w", day, i, err)
			}
			end, err := parseClock(w.End)
			if err != nil {
				return SlotCalendar{}, fmt.Errorf("%s window %d: %w", day, i, err)
			}
			if !end.After(start) {
				return SlotCalendar{}, fmt.Errorf("%s window %s ends before it starts", day, w)
			}
			if i > 0 && start.Before(prevEnd) {
				return SlotCalendar{}, fmt.Errorf("%s window %s overlaps previous window", day, w)
			}
			prevEnd = end
		}
		windows[day] = append([]models.TimeWindow(nil), list...)
	}
	return SlotCalendar{windows: windows}, nil
}

// WindowsFor returns the ordered windows of day. Sunday and unknown days yield none.
func (c SlotCalendar) WindowsFor(day models.Weekday) []models.TimeWindow {
	list := c.windows[day]
	if len(list) == 0 {
		return nil
	}
	return append([]models.TimeWindow(nil), list...)
}

// Days lists the weekdays that have at least one window, in canonical order.
func (c SlotCalendar) Days() []models.Weekday {
	days := make([]models.Weekday, 0, len(c.windows))
	for day := models.Monday; day <= models.Sunday; day++ {
		if len(c.windows[day]) > 0 {
			days = append(days, day)
		}
	}
	return days
}

// WindowAt finds the window of day starting at start.
func (c SlotCalendar) WindowAt(day models.Weekday, start string) (models.TimeWindow, bool) {
	for _, w := range c.windows[day] {
		if w.Start == start {
			return w, true
		}
	}
	return models.TimeWindow{}, false
}

func parseClock(raw string) (time.Time, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	return t, nil
}
