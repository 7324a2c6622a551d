package service

import (
	"sort"

	"github.com/noah-isme/timetable-api/internal/models"
)

// LoadBalancer orders weekdays by how busy a group already is. Sessions of the
// group's cohort count toward the group's load.
type LoadBalancer struct {
	cohorts map[string]string
}

// NewLoadBalancer takes the group → cohort relation of the run.
func NewLoadBalancer(cohorts map[string]string) *LoadBalancer {
	copied := make(map[string]string, len(cohorts))
	for group, cohort := range cohorts {
		copied[group] = cohort
	}
	return &LoadBalancer{cohorts: copied}
}

// RankDays returns days sorted by ascending load for group. Ties keep input order.
func (b *LoadBalancer) RankDays(tt *timetable, group string, days []models.Weekday) []models.Weekday {
	ranked := append([]models.Weekday(nil), days...)
	load := make(map[models.Weekday]int, len(ranked))
	cohort := b.cohorts[group]
	for _, day := range ranked {
		load[day] = tt.load(group, day)
		if cohort != "" && cohort != group {
			load[day] += tt.load(cohort, day)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return load[ranked[i]] < load[ranked[j]]
	})
	return ranked
}
