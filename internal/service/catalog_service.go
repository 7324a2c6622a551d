package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/pkg/catalog"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/validation"
)

type roomStore interface {
	List(ctx context.Context) ([]models.Room, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, rooms []models.Room) error
	Delete(ctx context.Context, name string) error
}

type sessionStore interface {
	List(ctx context.Context) ([]models.SessionDemand, error)
	ReplaceAll(ctx context.Context, exec sqlx.ExtContext, demands []models.SessionDemand) error
}

type roomBatch struct {
	Rooms []models.Room `json:"rooms" validate:"dive"`
}

type sessionBatch struct {
	Sessions []models.SessionDemand `json:"sessions" validate:"dive"`
}

// CatalogImport carries uploaded CSV catalogs. A nil reader leaves that catalog untouched.
type CatalogImport struct {
	Rooms     io.Reader
	Sessions  io.Reader
	Delimiter rune
}

// CatalogService manages the stored rooms and session demands used by catalog runs.
type CatalogService struct {
	rooms     roomStore
	sessions  sessionStore
	tx        txProvider
	validator *validation.Validator
	logger    *zap.Logger
}

// NewCatalogService constructs the service.
func NewCatalogService(rooms roomStore, sessions sessionStore, tx txProvider, validator *validation.Validator, logger *zap.Logger) *CatalogService {
	if validator == nil {
		validator = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{rooms: rooms, sessions: sessions, tx: tx, validator: validator, logger: logger}
}

// ListRooms returns the room catalog.
func (s *CatalogService) ListRooms(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.rooms.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, nil
}

// UpsertRooms adds or updates rooms by name.
func (s *CatalogService) UpsertRooms(ctx context.Context, req dto.UpsertRoomsRequest) ([]models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	rooms := make([]models.Room, 0, len(req.Rooms))
	for _, in := range req.Rooms {
		rooms = append(rooms, in.ToModel())
	}
	if err := s.checkRooms(rooms); err != nil {
		return nil, err
	}
	if err := s.rooms.Upsert(ctx, nil, rooms); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store rooms")
	}
	s.logger.Info("rooms upserted", zap.Int("count", len(rooms)))
	return rooms, nil
}

// DeleteRoom removes a room from the catalog.
func (s *CatalogService) DeleteRoom(ctx context.Context, name string) error {
	if err := s.rooms.Delete(ctx, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete room")
	}
	return nil
}

// ListSessions returns the stored session demands in catalog order.
func (s *CatalogService) ListSessions(ctx context.Context) ([]models.SessionDemand, error) {
	demands, err := s.sessions.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return demands, nil
}

// ReplaceSessions swaps the whole session catalog.
func (s *CatalogService) ReplaceSessions(ctx context.Context, req dto.ReplaceSessionsRequest) ([]models.SessionDemand, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	demands := make([]models.SessionDemand, 0, len(req.Sessions))
	for _, in := range req.Sessions {
		demands = append(demands, in.ToModel())
	}
	if err := s.validator.Struct(sessionBatch{Sessions: demands}); err != nil {
		return nil, err
	}
	if err := s.sessions.ReplaceAll(ctx, nil, demands); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store sessions")
	}
	s.logger.Info("session catalog replaced", zap.Int("count", len(demands)))
	return demands, nil
}

// Import parses uploaded CSV catalogs and stores them in one transaction.
// Rooms are upserted; sessions replace the stored catalog.
func (s *CatalogService) Import(ctx context.Context, in CatalogImport) (_ *dto.CatalogImportResponse, err error) {
	if in.Rooms == nil && in.Sessions == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no catalog file provided")
	}
	loader := catalog.NewLoader(in.Delimiter)

	var rooms []models.Room
	if in.Rooms != nil {
		if rooms, err = loader.Rooms(in.Rooms); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rooms file")
		}
		if err = s.checkRooms(rooms); err != nil {
			return nil, err
		}
	}
	var demands []models.SessionDemand
	if in.Sessions != nil {
		if demands, err = loader.Sessions(in.Sessions); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sessions file")
		}
		if err = s.validator.Struct(sessionBatch{Sessions: demands}); err != nil {
			return nil, err
		}
	}

	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if len(rooms) > 0 {
		if err = s.rooms.Upsert(ctx, tx, rooms); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import rooms")
		}
	}
	if in.Sessions != nil {
		if err = s.sessions.ReplaceAll(ctx, tx, demands); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import sessions")
		}
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit catalog import")
	}

	s.logger.Info("catalog imported", zap.Int("rooms", len(rooms)), zap.Int("sessions", len(demands)))
	return &dto.CatalogImportResponse{Rooms: len(rooms), Sessions: len(demands)}, nil
}

func (s *CatalogService) checkRooms(rooms []models.Room) error {
	if err := s.validator.Struct(roomBatch{Rooms: rooms}); err != nil {
		return err
	}
	seen := make(map[string]int, len(rooms))
	details := map[string]string{}
	for i, room := range rooms {
		if first, ok := seen[room.Name]; ok {
			details[fmt.Sprintf("rooms[%d].name", i)] = fmt.Sprintf("duplicate room name %q (first at rooms[%d])", room.Name, first)
			continue
		}
		seen[room.Name] = i
	}
	if len(details) > 0 {
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid rooms"), details)
	}
	return nil
}
