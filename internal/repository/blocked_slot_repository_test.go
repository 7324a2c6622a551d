package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
)

var blockedSlotRowColumns = []string{"id", "teacher", "day_of_week", "start_time", "room", "reason", "created_at"}

func TestBlockedSlotRepositoryListWithFilter(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBlockedSlotRepository(db)

	rows := sqlmock.NewRows(blockedSlotRowColumns).
		AddRow("b-1", "alice", 1, "09:00", "", "council", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, teacher, day_of_week, start_time, room, reason, created_at FROM blocked_slots WHERE teacher = $1 AND day_of_week = $2 ORDER BY day_of_week ASC, start_time ASC, created_at ASC")).
		WithArgs("alice", 1).
		WillReturnRows(rows)

	slots, err := repo.List(context.Background(), models.BlockedSlotFilter{Teacher: "alice", Day: models.Monday})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, models.Monday, slots[0].Day)
	assert.Equal(t, "09:00", slots[0].Start)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockedSlotRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBlockedSlotRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM blocked_slots ORDER BY day_of_week ASC")).
		WillReturnRows(sqlmock.NewRows(blockedSlotRowColumns))

	slots, err := repo.List(context.Background(), models.BlockedSlotFilter{})
	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockedSlotRepositoryFindAt(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBlockedSlotRepository(db)

	rows := sqlmock.NewRows(blockedSlotRowColumns).
		AddRow("b-2", "bob", 3, "10:45", "AMPHI-A", "defence", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE day_of_week = $1 AND start_time = $2")).
		WithArgs(3, "10:45").
		WillReturnRows(rows)

	slots, err := repo.FindAt(context.Background(), models.Wednesday, "10:45")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "AMPHI-A", slots[0].Room)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockedSlotRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBlockedSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO blocked_slots")).
		WithArgs(sqlmock.AnyArg(), "carol", 5, "14:15", "LAB-1", "maintenance", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	slot := &models.BlockedSlot{Teacher: "carol", Day: models.Friday, Start: "14:15", Room: "LAB-1", Reason: "maintenance"}
	require.NoError(t, repo.Create(context.Background(), slot))
	assert.NotEmpty(t, slot.ID)
	assert.False(t, slot.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockedSlotRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBlockedSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM blocked_slots WHERE id = $1")).
		WithArgs("b-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM blocked_slots WHERE id = $1")).
		WithArgs("b-404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "b-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "b-404"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
