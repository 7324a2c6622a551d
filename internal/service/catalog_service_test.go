package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type catalogRoomStub struct {
	rooms   map[string]models.Room
	withTx  bool
	failErr error
}

func newCatalogRoomStub() *catalogRoomStub {
	return &catalogRoomStub{rooms: map[string]models.Room{}}
}

func (s *catalogRoomStub) List(ctx context.Context) ([]models.Room, error) {
	out := make([]models.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	return out, nil
}

func (s *catalogRoomStub) Upsert(ctx context.Context, exec sqlx.ExtContext, rooms []models.Room) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.withTx = exec != nil
	for _, r := range rooms {
		s.rooms[r.Name] = r
	}
	return nil
}

func (s *catalogRoomStub) Delete(ctx context.Context, name string) error {
	if _, ok := s.rooms[name]; !ok {
		return sql.ErrNoRows
	}
	delete(s.rooms, name)
	return nil
}

type catalogSessionStub struct {
	demands []models.SessionDemand
	failErr error
}

func (s *catalogSessionStub) List(ctx context.Context) ([]models.SessionDemand, error) {
	return s.demands, nil
}

func (s *catalogSessionStub) ReplaceAll(ctx context.Context, exec sqlx.ExtContext, demands []models.SessionDemand) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.demands = demands
	return nil
}

func TestCatalogServiceUpsertRooms(t *testing.T) {
	rooms := newCatalogRoomStub()
	svc := NewCatalogService(rooms, &catalogSessionStub{}, nil, nil, nil)

	stored, err := svc.UpsertRooms(context.Background(), dto.UpsertRoomsRequest{Rooms: []dto.RoomInput{
		{Name: " S-101 ", Capacity: 60, Kind: "lecture_room"},
		{Name: "LAB-2", Capacity: 20, Kind: "LAB_ROOM", Equipment: []string{"computers"}},
	}})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, models.RoomLecture, rooms.rooms["S-101"].Kind)
	assert.False(t, rooms.withTx)

	listed, err := svc.ListRooms(context.Background())
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestCatalogServiceUpsertRoomsRejectsDuplicatesAndKinds(t *testing.T) {
	svc := NewCatalogService(newCatalogRoomStub(), &catalogSessionStub{}, nil, nil, nil)

	_, err := svc.UpsertRooms(context.Background(), dto.UpsertRoomsRequest{Rooms: []dto.RoomInput{
		{Name: "S-101", Capacity: 60, Kind: "LECTURE_ROOM"},
		{Name: "S-101", Capacity: 30, Kind: "TUTORIAL_ROOM"},
	}})
	appErr := appErrors.FromError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Details, "rooms[1].name")

	_, err = svc.UpsertRooms(context.Background(), dto.UpsertRoomsRequest{Rooms: []dto.RoomInput{
		{Name: "X", Capacity: 10, Kind: "garage"},
	}})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCatalogServiceDeleteRoom(t *testing.T) {
	rooms := newCatalogRoomStub()
	rooms.rooms["S-101"] = models.Room{Name: "S-101", Capacity: 60, Kind: models.RoomLecture}
	svc := NewCatalogService(rooms, &catalogSessionStub{}, nil, nil, nil)

	require.NoError(t, svc.DeleteRoom(context.Background(), "S-101"))
	err := svc.DeleteRoom(context.Background(), "S-101")
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestCatalogServiceReplaceSessions(t *testing.T) {
	sessions := &catalogSessionStub{}
	svc := NewCatalogService(newCatalogRoomStub(), sessions, nil, nil, nil)

	stored, err := svc.ReplaceSessions(context.Background(), dto.ReplaceSessionsRequest{Sessions: []dto.SessionDemandInput{
		{Subject: "Algorithms", Kind: "lecture", Teacher: "alice", Group: "INFO-L1", Track: "INFO", Headcount: 40},
	}})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, models.SessionLecture, sessions.demands[0].Kind)
	assert.Equal(t, models.SessionLecture.DefaultPriority(), sessions.demands[0].Priority)

	_, err = svc.ReplaceSessions(context.Background(), dto.ReplaceSessionsRequest{Sessions: []dto.SessionDemandInput{
		{Subject: "Algorithms", Kind: "seminar", Teacher: "alice", Group: "INFO-L1", Track: "INFO", Headcount: 40},
	}})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Len(t, sessions.demands, 1)
}

const (
	importRoomsCSV    = "name,capacity,kind,equipment\nS-101,60,lecture_room,projector\nTD-1,25,tutorial_room,\n"
	importSessionsCSV = "id,subject,kind,teacher,group,cohort,track,headcount,equipment,priority\n" +
		"s1,Algorithms,LECTURE,alice,INFO-L1,,INFO,40,,\n"
)

func TestCatalogServiceImportCommits(t *testing.T) {
	tx, mock := newSQLTxMock(t)
	rooms := newCatalogRoomStub()
	sessions := &catalogSessionStub{}
	svc := NewCatalogService(rooms, sessions, tx, nil, nil)

	mock.ExpectBegin()
	mock.ExpectCommit()

	resp, err := svc.Import(context.Background(), CatalogImport{
		Rooms:    strings.NewReader(importRoomsCSV),
		Sessions: strings.NewReader(importSessionsCSV),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Rooms)
	assert.Equal(t, 1, resp.Sessions)
	assert.True(t, rooms.withTx)
	assert.Len(t, sessions.demands, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogServiceImportRollsBack(t *testing.T) {
	tx, mock := newSQLTxMock(t)
	sessions := &catalogSessionStub{failErr: errors.New("disk full")}
	svc := NewCatalogService(newCatalogRoomStub(), sessions, tx, nil, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := svc.Import(context.Background(), CatalogImport{
		Rooms:    strings.NewReader(importRoomsCSV),
		Sessions: strings.NewReader(importSessionsCSV),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogServiceImportValidatesBeforeTransaction(t *testing.T) {
	tx, mock := newSQLTxMock(t)
	svc := NewCatalogService(newCatalogRoomStub(), &catalogSessionStub{}, tx, nil, nil)

	_, err := svc.Import(context.Background(), CatalogImport{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Import(context.Background(), CatalogImport{
		Rooms:     strings.NewReader("name;capacity;kind;equipment\nS-101;lots;LECTURE_ROOM;\n"),
		Delimiter: ';',
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
