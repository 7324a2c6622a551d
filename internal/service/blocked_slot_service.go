package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/validation"
)

type blockedSlotStore interface {
	List(ctx context.Context, filter models.BlockedSlotFilter) ([]models.BlockedSlot, error)
	FindAt(ctx context.Context, day models.Weekday, start string) ([]models.BlockedSlot, error)
	Create(ctx context.Context, slot *models.BlockedSlot) error
	Delete(ctx context.Context, id string) error
}

// BlockedSlotService manages teacher and room unavailabilities.
type BlockedSlotService struct {
	repo      blockedSlotStore
	calendar  SlotCalendar
	validator *validation.Validator
	logger    *zap.Logger
}

// NewBlockedSlotService constructs the service. Slots are checked against calendar.
func NewBlockedSlotService(repo blockedSlotStore, calendar SlotCalendar, validator *validation.Validator, logger *zap.Logger) *BlockedSlotService {
	if len(calendar.Days()) == 0 {
		calendar = DefaultSlotCalendar()
	}
	if validator == nil {
		validator = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlockedSlotService{repo: repo, calendar: calendar, validator: validator, logger: logger}
}

// Create stores a blocked slot. The slot must match a calendar window, and a
// teacher or room may only be blocked once per window.
func (s *BlockedSlotService) Create(ctx context.Context, req dto.BlockedSlotInput) (*models.BlockedSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	slot, err := req.ToModel()
	if err != nil {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid day"), map[string]string{"day": err.Error()})
	}
	if _, ok := s.calendar.WindowAt(slot.Day, slot.Start); !ok {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "slot is not a teaching window"),
			map[string]string{"start": slot.Start + " is not a window on " + slot.Day.String()})
	}

	existing, err := s.repo.FindAt(ctx, slot.Day, slot.Start)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check blocked slots")
	}
	for _, other := range existing {
		if models.TeacherKey(other.Teacher) == models.TeacherKey(slot.Teacher) && other.Room == slot.Room {
			return nil, appErrors.Clone(appErrors.ErrConflict, "teacher already blocked at this slot")
		}
		if slot.Room != "" && other.Room == slot.Room {
			return nil, appErrors.Clone(appErrors.ErrConflict, "room already blocked at this slot")
		}
	}

	if err := s.repo.Create(ctx, &slot); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create blocked slot")
	}
	s.logger.Info("blocked slot created",
		zap.String("id", slot.ID),
		zap.String("teacher", slot.Teacher),
		zap.Stringer("day", slot.Day),
		zap.String("start", slot.Start),
		zap.String("room", slot.Room))
	return &slot, nil
}

// List returns blocked slots matching the query.
func (s *BlockedSlotService) List(ctx context.Context, query dto.BlockedSlotQuery) ([]models.BlockedSlot, error) {
	filter := models.BlockedSlotFilter{
		Teacher: strings.TrimSpace(query.Teacher),
		Room:    strings.TrimSpace(query.Room),
	}
	if query.Day != "" {
		day, err := models.ParseWeekday(query.Day)
		if err != nil {
			return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid day"), map[string]string{"day": err.Error()})
		}
		filter.Day = day
	}
	slots, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list blocked slots")
	}
	return slots, nil
}

// Delete removes a blocked slot.
func (s *BlockedSlotService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "blocked slot not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete blocked slot")
	}
	return nil
}
