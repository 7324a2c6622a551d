package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/timetable-api/internal/models"
)

func TestRankDaysAscendingLoadWithStableTies(t *testing.T) {
	tt := newTimetable()
	tt.add(placementAt(models.Monday, "09:00", "R1", "t1", "G1"))
	tt.add(placementAt(models.Monday, "10:45", "R1", "t1", "G1"))
	tt.add(placementAt(models.Wednesday, "09:00", "R1", "t1", "G1"))
	tt.add(placementAt(models.Tuesday, "09:00", "R1", "t2", "OTHER"))

	got := NewLoadBalancer(nil).RankDays(tt, "G1", models.TeachingDays)
	assert.Equal(t, []models.Weekday{
		models.Tuesday, models.Thursday, models.Friday, models.Saturday, models.Wednesday, models.Monday,
	}, got)
}

func TestRankDaysCountsCohortLoad(t *testing.T) {
	tt := newTimetable()
	tt.add(placementAt(models.Monday, "09:00", "AMPHI", "t1", "INFO"))
	tt.add(placementAt(models.Tuesday, "09:00", "TD-1", "t2", "INFO-G2"))

	balancer := NewLoadBalancer(map[string]string{"INFO-G1": "INFO", "INFO-G2": "INFO"})

	got := balancer.RankDays(tt, "INFO-G1", models.TeachingDays)
	assert.Equal(t, models.Monday, got[len(got)-1])
	assert.Equal(t, models.Tuesday, got[0])

	got = balancer.RankDays(tt, "INFO-G2", models.TeachingDays)
	assert.Equal(t, []models.Weekday{models.Wednesday, models.Thursday, models.Friday, models.Saturday, models.Monday, models.Tuesday}, got)
}

func TestRankDaysDoesNotMutateInput(t *testing.T) {
	days := []models.Weekday{models.Friday, models.Monday}
	tt := newTimetable()
	tt.add(placementAt(models.Friday, "09:00", "R1", "t1", "G1"))

	got := NewLoadBalancer(nil).RankDays(tt, "G1", days)
	assert.Equal(t, []models.Weekday{models.Monday, models.Friday}, got)
	assert.Equal(t, []models.Weekday{models.Friday, models.Monday}, days)
}
