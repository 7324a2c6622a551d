package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/events"
	"github.com/noah-isme/timetable-api/pkg/jobs"
	"github.com/noah-isme/timetable-api/pkg/validation"
)

const (
	defaultRunPageSize = 20
	maxRunPageSize     = 100
	runCacheKeyPrefix  = "timetable:run:"
)

type timetableRunStore interface {
	CreateRun(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error
	UpdateRunResult(ctx context.Context, exec sqlx.ExtContext, run *models.TimetableRun) error
	InsertPlacements(ctx context.Context, exec sqlx.ExtContext, runID string, placements []models.Placement) error
	InsertUnplaced(ctx context.Context, exec sqlx.ExtContext, runID string, records []models.UnplacedRecord) error
	FindRun(ctx context.Context, id string) (*models.TimetableRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]models.TimetableRun, int, error)
	ListPlacements(ctx context.Context, runID string, filter models.PlacementFilter) ([]models.Placement, error)
	ListUnplaced(ctx context.Context, runID string) ([]models.UnplacedRecord, error)
	DeleteRun(ctx context.Context, id string) error
}

type roomCatalogReader interface {
	List(ctx context.Context) ([]models.Room, error)
}

type sessionCatalogReader interface {
	List(ctx context.Context) ([]models.SessionDemand, error)
}

type blockedSlotReader interface {
	List(ctx context.Context, filter models.BlockedSlotFilter) ([]models.BlockedSlot, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// TimetableServiceConfig tunes run caching and the background queue.
type TimetableServiceConfig struct {
	ResultCacheTTL time.Duration
	QueueBuffer    int
	WorkerRetries  int
}

type generateJob struct {
	Request dto.GenerateTimetableRequest
}

// TimetableService resolves catalogs, runs the placement engine and persists
// each run. Generations are serialised: at most one engine run at a time.
type TimetableService struct {
	engine    *PlacementEngine
	runs      timetableRunStore
	rooms     roomCatalogReader
	sessions  sessionCatalogReader
	blocked   blockedSlotReader
	tx        txProvider
	cache     *CacheService
	metrics   *MetricsService
	publisher events.Publisher
	validator *validation.Validator
	logger    *zap.Logger
	cfg       TimetableServiceConfig

	mu    sync.Mutex
	queue *jobs.Queue[generateJob]
}

// NewTimetableService wires the generation pipeline.
func NewTimetableService(
	engine *PlacementEngine,
	runs timetableRunStore,
	rooms roomCatalogReader,
	sessions sessionCatalogReader,
	blocked blockedSlotReader,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	publisher events.Publisher,
	validator *validation.Validator,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validator == nil {
		validator = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = NewPlacementEngine(EngineConfig{}, validator, logger)
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if cfg.ResultCacheTTL <= 0 {
		cfg.ResultCacheTTL = 30 * time.Minute
	}
	svc := &TimetableService{
		engine:    engine,
		runs:      runs,
		rooms:     rooms,
		sessions:  sessions,
		blocked:   blocked,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		publisher: publisher,
		validator: validator,
		logger:    logger,
		cfg:       cfg,
	}
	svc.queue = jobs.NewQueue[generateJob]("timetable-generation", svc.processJob, jobs.QueueConfig{
		Workers:    1,
		BufferSize: cfg.QueueBuffer,
		MaxRetries: cfg.WorkerRetries,
		Logger:     logger,
	})
	svc.queue.OnDrop(svc.abandonJob)
	return svc
}

// Start launches the background generation worker.
func (s *TimetableService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the background worker.
func (s *TimetableService) Stop() {
	s.queue.Stop()
}

// Calendar exposes the engine's window table.
func (s *TimetableService) Calendar() SlotCalendar {
	return s.engine.Calendar()
}

// Generate runs the engine synchronously and stores the run.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	run := &models.TimetableRun{Status: models.RunStatusPending, CreatedBy: req.RequestedBy}
	result, err := s.execute(ctx, req, run, true)
	if err != nil {
		return nil, err
	}
	return &dto.GenerateTimetableResponse{
		RunID:               run.ID,
		Status:              run.Status,
		Placements:          result.Placements,
		Unplaced:            result.Unplaced,
		Stats:               result.Stats,
		IgnoredBlockedSlots: result.IgnoredBlocked,
	}, nil
}

// Enqueue records a pending run and hands it to the background worker.
func (s *TimetableService) Enqueue(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.EnqueueTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if s.runs == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "timetable repository missing")
	}
	run := &models.TimetableRun{
		ID:        uuid.NewString(),
		Status:    models.RunStatusPending,
		Source:    runSource(req),
		CreatedBy: req.RequestedBy,
		Stats:     models.RunStats{PerDay: map[string]int{}, PerWindow: map[string]int{}, RoomUsage: map[string]int{}},
	}
	if err := s.runs.CreateRun(ctx, nil, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record timetable run")
	}
	if err := s.queue.Enqueue(jobs.Job[generateJob]{ID: run.ID, Payload: generateJob{Request: req}}); err != nil {
		s.markFailed(ctx, run, err)
		return nil, appErrors.Wrap(err, appErrors.ErrQueueUnavailable.Code, appErrors.ErrQueueUnavailable.Status, appErrors.ErrQueueUnavailable.Message)
	}
	s.logger.Info("timetable run enqueued",
		zap.String("run_id", run.ID),
		zap.String("requested_by", req.RequestedBy),
		zap.Int("pending", s.queue.Pending()))
	return &dto.EnqueueTimetableResponse{RunID: run.ID, Status: run.Status}, nil
}

func (s *TimetableService) processJob(ctx context.Context, job jobs.Job[generateJob]) error {
	run, err := s.runs.FindRun(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load queued run %s: %w", job.ID, err)
	}
	if run.Status != models.RunStatusPending {
		return nil
	}
	_, err = s.execute(ctx, job.Payload.Request, run, false)
	if err == nil {
		return nil
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Code == appErrors.ErrValidation.Code {
		s.markFailed(ctx, run, err)
		return nil
	}
	if job.Attempt >= s.cfg.WorkerRetries {
		s.markFailed(ctx, run, err)
	}
	return err
}

// abandonJob fails a queued run the worker will never pick up again.
func (s *TimetableService) abandonJob(job jobs.Job[generateJob], reason error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	run, err := s.runs.FindRun(ctx, job.ID)
	if err != nil {
		s.logger.Error("load abandoned run", zap.String("run_id", job.ID), zap.Error(err))
		return
	}
	if run.Status != models.RunStatusPending {
		return
	}
	s.markFailed(ctx, run, fmt.Errorf("generation abandoned: %w", reason))
}

// execute resolves input, runs the engine and persists the outcome into run.
// A sync run row is inserted; a queued run row already exists and is updated.
func (s *TimetableService) execute(ctx context.Context, req dto.GenerateTimetableRequest, run *models.TimetableRun, create bool) (*EngineResult, error) {
	input, err := s.resolveInput(ctx, req)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	s.mu.Lock()
	result, err := s.engine.Run(input)
	s.mu.Unlock()
	elapsed := time.Since(started)
	if err != nil {
		s.metrics.ObserveGeneration(models.RunStatusFailed, elapsed, models.RunStats{})
		return nil, err
	}

	completedAt := time.Now().UTC()
	run.Status = models.RunStatusCompleted
	run.Source = runSource(req)
	run.PlacedCount = len(result.Placements)
	run.UnplacedCount = len(result.Unplaced)
	run.Stats = result.Stats
	run.ErrorMessage = nil
	run.CompletedAt = &completedAt

	if err := s.persist(ctx, run, result, create); err != nil {
		s.metrics.ObserveGeneration(models.RunStatusFailed, elapsed, result.Stats)
		return nil, err
	}
	s.metrics.ObserveGeneration(models.RunStatusCompleted, elapsed, result.Stats)

	run.Placements = result.Placements
	run.Unplaced = result.Unplaced
	_ = s.cache.Set(ctx, runCacheKey(run.ID), run, s.cfg.ResultCacheTTL)

	for _, record := range result.Unplaced {
		s.logger.Warn("unplaced session",
			zap.String("run_id", run.ID),
			zap.String("subject", record.Demand.Subject),
			zap.String("group", record.Demand.Group),
			zap.String("reason", record.Reason))
	}
	s.publish(ctx, run)
	return result, nil
}

func (s *TimetableService) persist(ctx context.Context, run *models.TimetableRun, result *EngineResult, create bool) (err error) {
	if s.runs == nil || s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if create {
		err = s.runs.CreateRun(ctx, tx, run)
	} else {
		err = s.runs.UpdateRunResult(ctx, tx, run)
	}
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store timetable run")
	}
	if err = s.runs.InsertPlacements(ctx, tx, run.ID, result.Placements); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store placements")
	}
	if err = s.runs.InsertUnplaced(ctx, tx, run.ID, result.Unplaced); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store unplaced sessions")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable run")
	}
	return nil
}

func (s *TimetableService) markFailed(ctx context.Context, run *models.TimetableRun, cause error) {
	msg := cause.Error()
	now := time.Now().UTC()
	run.Status = models.RunStatusFailed
	run.ErrorMessage = &msg
	run.CompletedAt = &now
	if err := s.runs.UpdateRunResult(ctx, nil, run); err != nil {
		s.logger.Error("failed to mark run failed", zap.String("run_id", run.ID), zap.Error(err))
	}
	s.logger.Warn("timetable run failed", zap.String("run_id", run.ID), zap.String("error", msg))
}

func (s *TimetableService) publish(ctx context.Context, run *models.TimetableRun) {
	event := events.RunCompletedEvent{
		RunID:       run.ID,
		Status:      string(run.Status),
		Placed:      run.PlacedCount,
		Unplaced:    run.UnplacedCount,
		FastPath:    run.Stats.FastPath,
		Fallback:    run.Stats.Fallback,
		PerDay:      run.Stats.PerDay,
		RequestedBy: run.CreatedBy,
	}
	if run.CompletedAt != nil {
		event.CompletedAt = *run.CompletedAt
	}
	if err := s.publisher.PublishRunCompleted(ctx, event); err != nil {
		s.logger.Warn("run event not published", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// resolveInput converts the request lists; each empty list is loaded from the stored catalog.
func (s *TimetableService) resolveInput(ctx context.Context, req dto.GenerateTimetableRequest) (EngineInput, error) {
	var input EngineInput
	var err error

	if len(req.Sessions) > 0 {
		input.Demands = make([]models.SessionDemand, 0, len(req.Sessions))
		for _, in := range req.Sessions {
			input.Demands = append(input.Demands, in.ToModel())
		}
	} else if s.sessions != nil {
		if input.Demands, err = s.sessions.List(ctx); err != nil {
			return EngineInput{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session catalog")
		}
	}

	if len(req.Rooms) > 0 {
		input.Rooms = make([]models.Room, 0, len(req.Rooms))
		for _, in := range req.Rooms {
			input.Rooms = append(input.Rooms, in.ToModel())
		}
	} else if s.rooms != nil {
		if input.Rooms, err = s.rooms.List(ctx); err != nil {
			return EngineInput{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room catalog")
		}
	}

	if len(req.BlockedSlots) > 0 {
		input.Blocked = make([]models.BlockedSlot, 0, len(req.BlockedSlots))
		details := map[string]string{}
		for i, in := range req.BlockedSlots {
			slot, convErr := in.ToModel()
			if convErr != nil {
				details[fmt.Sprintf("blockedSlots[%d].day", i)] = convErr.Error()
				continue
			}
			input.Blocked = append(input.Blocked, slot)
		}
		if len(details) > 0 {
			return EngineInput{}, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid blocked slots"), details)
		}
	} else if s.blocked != nil {
		if input.Blocked, err = s.blocked.List(ctx, models.BlockedSlotFilter{}); err != nil {
			return EngineInput{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load blocked slots")
		}
	}

	if len(input.Demands) == 0 {
		return EngineInput{}, appErrors.Clone(appErrors.ErrValidation, "no sessions to place")
	}
	return input, nil
}

// GetRun returns a run with its placements and unplaced demands.
func (s *TimetableService) GetRun(ctx context.Context, id string) (*models.TimetableRun, error) {
	var cached models.TimetableRun
	if hit, _ := s.cache.Get(ctx, runCacheKey(id), &cached); hit {
		return &cached, nil
	}

	run, err := s.findRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status != models.RunStatusCompleted {
		return run, nil
	}
	if run.Placements, err = s.runs.ListPlacements(ctx, id, models.PlacementFilter{}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load placements")
	}
	if run.Unplaced, err = s.runs.ListUnplaced(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unplaced sessions")
	}
	_ = s.cache.Set(ctx, runCacheKey(id), run, s.cfg.ResultCacheTTL)
	return run, nil
}

// ListRuns returns run headers newest first.
func (s *TimetableService) ListRuns(ctx context.Context, query dto.TimetableRunQuery) ([]models.TimetableRun, *models.Pagination, error) {
	page := query.Page
	if page <= 0 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = defaultRunPageSize
	}
	if size > maxRunPageSize {
		size = maxRunPageSize
	}
	runs, total, err := s.runs.ListRuns(ctx, size, (page-1)*size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable runs")
	}
	return runs, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Placements returns a filtered view of a run. A group view includes the
// sessions of the group's cohort.
func (s *TimetableService) Placements(ctx context.Context, id string, query dto.PlacementQuery) ([]models.Placement, error) {
	if _, err := s.findRun(ctx, id); err != nil {
		return nil, err
	}
	filter, err := placementFilter(query)
	if err != nil {
		return nil, err
	}
	if len(filter.Groups) == 1 {
		cohort, err := s.cohortOf(ctx, id, filter.Groups[0])
		if err != nil {
			return nil, err
		}
		if cohort != "" {
			filter.Groups = append(filter.Groups, cohort)
		}
	}
	placements, err := s.runs.ListPlacements(ctx, id, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load placements")
	}
	return placements, nil
}

// cohortOf finds the cohort of group within a run from its placed or unplaced
// sessions, independently of any view filter.
func (s *TimetableService) cohortOf(ctx context.Context, runID, group string) (string, error) {
	placed, err := s.runs.ListPlacements(ctx, runID, models.PlacementFilter{Groups: []string{group}})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load group placements")
	}
	for _, p := range placed {
		if p.Cohort != "" {
			return p.Cohort, nil
		}
	}
	unplaced, err := s.runs.ListUnplaced(ctx, runID)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load unplaced sessions")
	}
	for _, record := range unplaced {
		if record.Demand.Group == group && record.Demand.Cohort != "" {
			return record.Demand.Cohort, nil
		}
	}
	return "", nil
}

// DeleteRun removes a run and its cached result.
func (s *TimetableService) DeleteRun(ctx context.Context, id string) error {
	if err := s.runs.DeleteRun(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable run")
	}
	_ = s.cache.Delete(ctx, runCacheKey(id))
	return nil
}

func (s *TimetableService) findRun(ctx context.Context, id string) (*models.TimetableRun, error) {
	run, err := s.runs.FindRun(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable run")
	}
	return run, nil
}

func placementFilter(query dto.PlacementQuery) (models.PlacementFilter, error) {
	filter := models.PlacementFilter{
		Teacher: strings.TrimSpace(query.Teacher),
		Room:    strings.TrimSpace(query.Room),
	}
	if group := strings.TrimSpace(query.Group); group != "" {
		filter.Groups = []string{group}
	}
	if query.Day != "" {
		day, err := models.ParseWeekday(query.Day)
		if err != nil {
			return models.PlacementFilter{}, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid day"), map[string]string{"day": err.Error()})
		}
		filter.Day = day
	}
	return filter, nil
}

func runSource(req dto.GenerateTimetableRequest) string {
	if req.Inline() {
		return models.RunSourceInline
	}
	return models.RunSourceCatalog
}

func runCacheKey(id string) string {
	return runCacheKeyPrefix + id
}
