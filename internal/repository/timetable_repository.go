package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-api/internal/models"
)

// TimetableRepository persists generation runs with their placements and unplaced demands.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository builds repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

const runColumns = `id, status, source, placed_count, unplaced_count, stats, error_message, created_by, created_at, completed_at`

const placementColumns = `id, run_id, demand_id, subject, kind, teacher, group_code, cohort_code, track, headcount, day_of_week, start_time, end_time, room, phase`

// CreateRun inserts a run header.
func (r *TimetableRepository) CreateRun(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = models.RunStatusPending
	}
	const query = `
INSERT INTO timetable_runs (id, status, source, placed_count, unplaced_count, stats, error_message, created_by, created_at, completed_at)
VALUES (:id, :status, :source, :placed_count, :unplaced_count, :stats, :error_message, :created_by, :created_at, :completed_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, run); err != nil {
		return fmt.Errorf("create timetable run: %w", err)
	}
	return nil
}

// UpdateRunResult stores the final status, counters and statistics of a run.
func (r *TimetableRepository) UpdateRunResult(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error {
	const query = `
UPDATE timetable_runs
SET status = :status, placed_count = :placed_count, unplaced_count = :unplaced_count,
    stats = :stats, error_message = :error_message, completed_at = :completed_at
WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, run)
	if err != nil {
		return fmt.Errorf("update timetable run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update timetable run rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// InsertPlacements stores the placements of runID.
func (r *TimetableRepository) InsertPlacements(ctx context.Context, exec sqlx.ExtContext, runID string, placements []models.Placement) error {
	target := r.exec(exec)
	const query = `
INSERT INTO timetable_placements (` + placementColumns + `)
VALUES (:id, :run_id, :demand_id, :subject, :kind, :teacher, :group_code, :cohort_code, :track, :headcount, :day_of_week, :start_time, :end_time, :room, :phase)`
	for i := range placements {
		p := &placements[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.RunID = runID
		if _, err := sqlx.NamedExecContext(ctx, target, query, p); err != nil {
			return fmt.Errorf("insert placement %s/%s: %w", p.Subject, p.Group, err)
		}
	}
	return nil
}

// InsertUnplaced stores the demands that could not be placed in runID.
func (r *TimetableRepository) InsertUnplaced(ctx context.Context, exec sqlx.ExtContext, runID string, records []models.UnplacedRecord) error {
	target := r.exec(exec)
	const query = `
INSERT INTO timetable_unplaced (id, run_id, demand_id, subject, kind, teacher, group_code, cohort_code, track, headcount, equipment, priority, reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	for _, record := range records {
		d := record.Demand
		equipment := d.Equipment
		if equipment == nil {
			equipment = []string{}
		}
		if _, err := target.ExecContext(ctx, query,
			uuid.NewString(), runID, d.ID, d.Subject, string(d.Kind), d.Teacher, d.Group, d.Cohort,
			d.Track, d.Headcount, pq.Array(equipment), d.Priority, record.Reason,
		); err != nil {
			return fmt.Errorf("insert unplaced %s/%s: %w", d.Subject, d.Group, err)
		}
	}
	return nil
}

// FindRun loads a run header.
func (r *TimetableRepository) FindRun(ctx context.Context, id string) (*models.TimetableRun, error) {
	var run models.TimetableRun
	query := "SELECT " + runColumns + " FROM timetable_runs WHERE id = $1"
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find timetable run: %w", err)
	}
	return &run, nil
}

// ListRuns returns run headers newest first with the total count.
func (r *TimetableRepository) ListRuns(ctx context.Context, limit, offset int) ([]models.TimetableRun, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM timetable_runs"); err != nil {
		return nil, 0, fmt.Errorf("count timetable runs: %w", err)
	}
	query := "SELECT " + runColumns + " FROM timetable_runs ORDER BY created_at DESC LIMIT $1 OFFSET $2"
	var runs []models.TimetableRun
	if err := r.db.SelectContext(ctx, &runs, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list timetable runs: %w", err)
	}
	return runs, total, nil
}

// ListPlacements returns the placements of runID matching filter, ordered by day and start.
func (r *TimetableRepository) ListPlacements(ctx context.Context, runID string, filter models.PlacementFilter) ([]models.Placement, error) {
	conditions := []string{"run_id = $1"}
	args := []interface{}{runID}

	if len(filter.Groups) > 0 {
		conditions = append(conditions, fmt.Sprintf("group_code = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.Groups))
	}
	if filter.Teacher != "" {
		conditions = append(conditions, fmt.Sprintf("teacher = $%d", len(args)+1))
		args = append(args, filter.Teacher)
	}
	if filter.Room != "" {
		conditions = append(conditions, fmt.Sprintf("room = $%d", len(args)+1))
		args = append(args, filter.Room)
	}
	if filter.Day != 0 {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, int(filter.Day))
	}

	query := "SELECT " + placementColumns + " FROM timetable_placements WHERE " +
		strings.Join(conditions, " AND ") + " ORDER BY day_of_week ASC, start_time ASC, room ASC"
	var placements []models.Placement
	if err := r.db.SelectContext(ctx, &placements, query, args...); err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}
	return placements, nil
}

type unplacedRow struct {
	DemandID  string             `db:"demand_id"`
	Subject   string             `db:"subject"`
	Kind      models.SessionKind `db:"kind"`
	Teacher   string             `db:"teacher"`
	Group     string             `db:"group_code"`
	Cohort    string             `db:"cohort_code"`
	Track     string             `db:"track"`
	Headcount int                `db:"headcount"`
	Equipment pq.StringArray     `db:"equipment"`
	Priority  int                `db:"priority"`
	Reason    string             `db:"reason"`
}

// ListUnplaced returns the unplaced demands of runID in placement order.
func (r *TimetableRepository) ListUnplaced(ctx context.Context, runID string) ([]models.UnplacedRecord, error) {
	const query = `SELECT demand_id, subject, kind, teacher, group_code, cohort_code, track, headcount, equipment, priority, reason
FROM timetable_unplaced WHERE run_id = $1 ORDER BY priority ASC, subject ASC`
	var rows []unplacedRow
	if err := r.db.SelectContext(ctx, &rows, query, runID); err != nil {
		return nil, fmt.Errorf("list unplaced: %w", err)
	}
	records := make([]models.UnplacedRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.UnplacedRecord{
			Demand: models.SessionDemand{
				ID: row.DemandID, Subject: row.Subject, Kind: row.Kind, Teacher: row.Teacher,
				Group: row.Group, Cohort: row.Cohort, Track: row.Track, Headcount: row.Headcount,
				Equipment: []string(row.Equipment), Priority: row.Priority,
			},
			Reason: row.Reason,
		})
	}
	return records, nil
}

// DeleteRun removes a run; placements and unplaced rows cascade.
func (r *TimetableRepository) DeleteRun(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timetable_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete timetable run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete timetable run rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
