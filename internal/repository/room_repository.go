package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-api/internal/models"
)

// RoomRepository persists the room catalog.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository builds repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

type roomRow struct {
	Name      string          `db:"name"`
	Capacity  int             `db:"capacity"`
	Kind      models.RoomKind `db:"kind"`
	Equipment pq.StringArray  `db:"equipment"`
}

func (r roomRow) toModel() models.Room {
	return models.Room{Name: r.Name, Capacity: r.Capacity, Kind: r.Kind, Equipment: []string(r.Equipment)}
}

func (r *RoomRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns every room in catalog order.
func (r *RoomRepository) List(ctx context.Context) ([]models.Room, error) {
	const query = `SELECT name, capacity, kind, equipment FROM rooms ORDER BY created_at ASC, name ASC`
	var rows []roomRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	rooms := make([]models.Room, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, row.toModel())
	}
	return rooms, nil
}

// Upsert inserts rooms or updates capacity, kind and equipment of existing names.
func (r *RoomRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, rooms []models.Room) error {
	if len(rooms) == 0 {
		return nil
	}
	target := r.exec(exec)
	now := time.Now().UTC()

	const query = `
INSERT INTO rooms (name, capacity, kind, equipment, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
ON CONFLICT (name) DO UPDATE
SET capacity = EXCLUDED.capacity,
    kind = EXCLUDED.kind,
    equipment = EXCLUDED.equipment,
    updated_at = EXCLUDED.updated_at`

	for _, room := range rooms {
		equipment := room.Equipment
		if equipment == nil {
			equipment = []string{}
		}
		if _, err := target.ExecContext(ctx, query, room.Name, room.Capacity, string(room.Kind), pq.Array(equipment), now); err != nil {
			return fmt.Errorf("upsert room %s: %w", room.Name, err)
		}
	}
	return nil
}

// Delete removes a room by name.
func (r *RoomRepository) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE name = $1`, name)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete room rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
