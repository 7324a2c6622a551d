package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-api/internal/models"
)

// SessionDemandRepository persists the catalog of sessions to place.
type SessionDemandRepository struct {
	db *sqlx.DB
}

// NewSessionDemandRepository builds repository.
func NewSessionDemandRepository(db *sqlx.DB) *SessionDemandRepository {
	return &SessionDemandRepository{db: db}
}

type sessionDemandRow struct {
	models.SessionDemand
	Equipment pq.StringArray `db:"equipment"`
}

func (r *SessionDemandRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns demands in submission order.
func (r *SessionDemandRepository) List(ctx context.Context) ([]models.SessionDemand, error) {
	const query = `SELECT id, subject, kind, teacher, group_code, cohort_code, track, headcount, equipment, priority
FROM session_demands ORDER BY position ASC`
	var rows []sessionDemandRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list session demands: %w", err)
	}
	demands := make([]models.SessionDemand, 0, len(rows))
	for _, row := range rows {
		demand := row.SessionDemand
		demand.Equipment = []string(row.Equipment)
		demands = append(demands, demand)
	}
	return demands, nil
}

// ReplaceAll swaps the whole catalog for demands, keeping their order. IDs are
// assigned to demands that have none.
func (r *SessionDemandRepository) ReplaceAll(ctx context.Context, exec sqlx.ExtContext, demands []models.SessionDemand) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM session_demands`); err != nil {
		return fmt.Errorf("clear session demands: %w", err)
	}

	const query = `
INSERT INTO session_demands (id, subject, kind, teacher, group_code, cohort_code, track, headcount, equipment, priority, position)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for i := range demands {
		demand := &demands[i]
		if demand.ID == "" {
			demand.ID = uuid.NewString()
		}
		equipment := demand.Equipment
		if equipment == nil {
			equipment = []string{}
		}
		if _, err := target.ExecContext(ctx, query,
			demand.ID, demand.Subject, string(demand.Kind), demand.Teacher, demand.Group, demand.Cohort,
			demand.Track, demand.Headcount, pq.Array(equipment), demand.Priority, i,
		); err != nil {
			return fmt.Errorf("insert session demand %s: %w", demand.Subject, err)
		}
	}
	return nil
}
