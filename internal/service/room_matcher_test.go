package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/timetable-api/internal/models"
)

func roomNames(rooms []models.Room) []string {
	names := make([]string, 0, len(rooms))
	for _, r := range rooms {
		names = append(names, r.Name)
	}
	return names
}

func sampleRooms() []models.Room {
	return []models.Room{
		{Name: "AMPHI-A", Capacity: 200, Kind: models.RoomAmphitheater},
		{Name: "PREP-1", Capacity: 500, Kind: models.RoomPreparation},
		{Name: "S-101", Capacity: 60, Kind: models.RoomLecture},
		{Name: "TD-1", Capacity: 30, Kind: models.RoomTutorial},
		{Name: "TD-2", Capacity: 45, Kind: models.RoomTutorial},
		{Name: "LAB-1", Capacity: 24, Kind: models.RoomLab, Equipment: []string{"computers"}},
		{Name: "LAB-2", Capacity: 30, Kind: models.RoomLab},
		{Name: "AMPHI-B", Capacity: 120, Kind: models.RoomAmphitheater},
		{Name: "S-102", Capacity: 60, Kind: models.RoomLecture},
	}
}

func TestCandidateRoomsLectureSmallestFirst(t *testing.T) {
	m := NewRoomMatcher(sampleRooms(), RoomMatcherConfig{})

	got := m.CandidateRooms(models.SessionLecture, 55, nil)
	assert.Equal(t, []string{"S-101", "S-102", "AMPHI-B", "AMPHI-A"}, roomNames(got))
}

func TestCandidateRoomsTutorialUsesTutorialRooms(t *testing.T) {
	m := NewRoomMatcher(sampleRooms(), RoomMatcherConfig{})

	got := m.CandidateRooms(models.SessionTutorial, 25, nil)
	assert.Equal(t, []string{"TD-1", "TD-2"}, roomNames(got))
}

func TestCandidateRoomsTutorialWithoutLargeEnoughTutorialRoom(t *testing.T) {
	rooms := []models.Room{
		{Name: "TD-30", Capacity: 30, Kind: models.RoomTutorial},
		{Name: "AMPHI", Capacity: 150, Kind: models.RoomAmphitheater},
		{Name: "S-1", Capacity: 50, Kind: models.RoomLecture},
	}
	m := NewRoomMatcher(rooms, RoomMatcherConfig{})

	got := m.CandidateRooms(models.SessionTutorial, 40, nil)
	assert.Equal(t, []string{"S-1", "AMPHI"}, roomNames(got))
}

func TestCandidateRoomsTutorialAboveCeiling(t *testing.T) {
	m := NewRoomMatcher(sampleRooms(), RoomMatcherConfig{TutorialRoomCeiling: 40})

	got := m.CandidateRooms(models.SessionTutorial, 42, nil)
	assert.Equal(t, []string{"S-101", "S-102", "AMPHI-B", "AMPHI-A"}, roomNames(got))
}

func TestCandidateRoomsLabHonoursEquipment(t *testing.T) {
	m := NewRoomMatcher(sampleRooms(), RoomMatcherConfig{})

	assert.Equal(t, []string{"LAB-1", "LAB-2"}, roomNames(m.CandidateRooms(models.SessionLab, 20, nil)))
	assert.Equal(t, []string{"LAB-1"}, roomNames(m.CandidateRooms(models.SessionLab, 20, []string{"COMPUTERS"})))
	assert.Equal(t, []string{"S-101", "S-102", "AMPHI-B", "AMPHI-A"}, roomNames(m.CandidateRooms(models.SessionLab, 35, nil)))
}

func TestCandidateRoomsExamPrefersAmphitheaters(t *testing.T) {
	m := NewRoomMatcher(sampleRooms(), RoomMatcherConfig{})

	got := m.CandidateRooms(models.SessionExam, 50, nil)
	assert.Equal(t, []string{"AMPHI-B", "AMPHI-A", "S-101", "S-102"}, roomNames(got))
}

func TestCandidateRoomsNeverOffersPreparationRooms(t *testing.T) {
	m := NewRoomMatcher(sampleRooms(), RoomMatcherConfig{})

	for _, kind := range []models.SessionKind{models.SessionLecture, models.SessionTutorial, models.SessionLab, models.SessionExam} {
		assert.NotContains(t, roomNames(m.CandidateRooms(kind, 300, nil)), "PREP-1")
	}
	assert.Empty(t, m.CandidateRooms(models.SessionLecture, 300, nil))
	assert.True(t, m.Known("PREP-1"))
	assert.False(t, m.Known("nowhere"))
}
