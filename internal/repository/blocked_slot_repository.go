package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// BlockedSlotRepository persists teacher unavailability and room reservations.
type BlockedSlotRepository struct {
	db *sqlx.DB
}

// NewBlockedSlotRepository builds repository.
func NewBlockedSlotRepository(db *sqlx.DB) *BlockedSlotRepository {
	return &BlockedSlotRepository{db: db}
}

const blockedSlotColumns = `id, teacher, day_of_week, start_time, room, reason, created_at`

// List returns blocked slots matching filter ordered by day and start time.
func (r *BlockedSlotRepository) List(ctx context.Context, filter models.BlockedSlotFilter) ([]models.BlockedSlot, error) {
	query := "SELECT " + blockedSlotColumns + " FROM blocked_slots"
	var conditions []string
	var args []interface{}

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
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY day_of_week ASC, start_time ASC, created_at ASC"

	var slots []models.BlockedSlot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("list blocked slots: %w", err)
	}
	return slots, nil
}

// FindAt returns every blocked slot of a given day and start time.
func (r *BlockedSlotRepository) FindAt(ctx context.Context, day models.Weekday, start string) ([]models.BlockedSlot, error) {
	query := "SELECT " + blockedSlotColumns + " FROM blocked_slots WHERE day_of_week = $1 AND start_time = $2"
	var slots []models.BlockedSlot
	if err := r.db.SelectContext(ctx, &slots, query, int(day), start); err != nil {
		return nil, fmt.Errorf("find blocked slots at %s %s: %w", day, start, err)
	}
	return slots, nil
}

// Create inserts a blocked slot, assigning ID and timestamp when missing.
func (r *BlockedSlotRepository) Create(ctx context.Context, slot *models.BlockedSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO blocked_slots (id, teacher, day_of_week, start_time, room, reason, created_at)
VALUES (:id, :teacher, :day_of_week, :start_time, :room, :reason, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, slot); err != nil {
		return fmt.Errorf("create blocked slot: %w", err)
	}
	return nil
}

// Delete removes a blocked slot.
func (r *BlockedSlotRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blocked_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete blocked slot: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete blocked slot rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
