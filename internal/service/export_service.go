package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/export"
	"github.com/noah-isme/timetable-api/pkg/storage"
	"github.com/noah-isme/timetable-api/pkg/validation"
)

const (
	exportFormatCSV = "csv"
	exportFormatPDF = "pdf"
	exportRoot      = "timetables"
)

type runPlacementReader interface {
	FindRun(ctx context.Context, id string) (*models.TimetableRun, error)
	ListPlacements(ctx context.Context, runID string, filter models.PlacementFilter) ([]models.Placement, error)
}

type exportFileStore interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	DeletePrefix(dir string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportedFile is a stored export ready to stream.
type ExportedFile struct {
	Name        string
	ContentType string
	Body        []byte
}

// ExportServiceConfig configures download links.
type ExportServiceConfig struct {
	// DownloadPrefix is prepended to tokens, e.g. "/api/v1/exports/".
	DownloadPrefix string
	CSVDelimiter   rune
}

// ExportService renders stored runs as CSV or PDF files behind signed links.
type ExportService struct {
	runs      runPlacementReader
	calendar  SlotCalendar
	files     exportFileStore
	signer    *storage.SignedURLSigner
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	validator *validation.Validator
	logger    *zap.Logger
	cfg       ExportServiceConfig
}

// NewExportService constructs the service.
func NewExportService(runs runPlacementReader, calendar SlotCalendar, files exportFileStore, signer *storage.SignedURLSigner, validator *validation.Validator, logger *zap.Logger, cfg ExportServiceConfig) *ExportService {
	if len(calendar.Days()) == 0 {
		calendar = DefaultSlotCalendar()
	}
	if validator == nil {
		validator = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DownloadPrefix == "" {
		cfg.DownloadPrefix = "/exports/"
	}
	return &ExportService{
		runs:      runs,
		calendar:  calendar,
		files:     files,
		signer:    signer,
		csv:       export.NewCSVExporter(cfg.CSVDelimiter),
		pdf:       export.NewPDFExporter(),
		validator: validator,
		logger:    logger,
		cfg:       cfg,
	}
}

// Export renders the placements of a completed run and returns a signed download link.
func (s *ExportService) Export(ctx context.Context, runID string, req dto.ExportTimetableRequest) (*dto.ExportTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	run, err := s.runs.FindRun(ctx, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable run")
	}
	if run.Status != models.RunStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "timetable run is not completed")
	}

	filter := models.PlacementFilter{Teacher: strings.TrimSpace(req.Teacher), Room: strings.TrimSpace(req.Room)}
	if group := strings.TrimSpace(req.Group); group != "" {
		filter.Groups = []string{group}
	}
	placements, err := s.runs.ListPlacements(ctx, runID, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load placements")
	}
	if len(placements) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no placements match the export filter")
	}

	subtitle := fmt.Sprintf("Run %s, %d sessions", run.ID, len(placements))
	body, err := s.Render(req.Format, exportTitle(req), subtitle, placements)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	name := fmt.Sprintf("%s/%s/%s.%s", exportRoot, runID, exportSlug(req), req.Format)
	if _, err := s.files.Save(name, body); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(runID, name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}

	s.logger.Info("timetable exported", zap.String("run_id", runID), zap.String("format", req.Format), zap.Int("rows", len(placements)))
	return &dto.ExportTimetableResponse{
		URL:       s.cfg.DownloadPrefix + token,
		Format:    req.Format,
		Rows:      len(placements),
		ExpiresAt: expiresAt,
	}, nil
}

// Open resolves a download token to the stored file.
func (s *ExportService) Open(ctx context.Context, token string) (*ExportedFile, error) {
	_, name, _, err := s.signer.Parse(token, false)
	switch {
	case errors.Is(err, storage.ErrTokenExpired):
		return nil, appErrors.Clone(appErrors.ErrForbidden, "download link expired")
	case err != nil:
		return nil, appErrors.Clone(appErrors.ErrNotFound, "download link not found")
	}

	file, err := s.files.Open(name)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export file not found")
	}
	defer file.Close() //nolint:errcheck
	body, err := io.ReadAll(file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read export")
	}

	contentType := "text/csv"
	if strings.HasSuffix(name, "."+exportFormatPDF) {
		contentType = "application/pdf"
	}
	parts := strings.Split(name, "/")
	return &ExportedFile{Name: parts[len(parts)-1], ContentType: contentType, Body: body}, nil
}

// PurgeRun removes every export of a run.
func (s *ExportService) PurgeRun(runID string) error {
	if err := s.files.DeletePrefix(exportRoot + "/" + runID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove exports")
	}
	return nil
}

// Cleanup deletes export files whose links have expired.
func (s *ExportService) Cleanup() (int, error) {
	deleted, err := s.files.CleanupOlderThan(s.signer.TTL())
	if err != nil {
		return 0, err
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
	return len(deleted), nil
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (s *ExportService) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Cleanup(); err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
				}
			}
		}
	}()
}

// Render encodes placements as a csv table or a pdf weekly grid.
func (s *ExportService) Render(format, title, subtitle string, placements []models.Placement) ([]byte, error) {
	switch format {
	case exportFormatCSV:
		return s.csv.Render(timetableRows(placements))
	case exportFormatPDF:
		return s.pdf.Render(s.document(title, subtitle, placements))
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

func (s *ExportService) document(title, subtitle string, placements []models.Placement) export.TimetableDocument {
	doc := export.TimetableDocument{Title: title, Subtitle: subtitle}

	windowSet := map[string]models.TimeWindow{}
	for _, day := range s.calendar.Days() {
		doc.Days = append(doc.Days, day.String())
		windows := s.calendar.WindowsFor(day)
		doc.SlotsPerWeek += len(windows)
		for _, w := range windows {
			windowSet[w.String()] = w
		}
	}
	labels := make([]string, 0, len(windowSet))
	for label := range windowSet {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool { return windowSet[labels[i]].Start < windowSet[labels[j]].Start })
	doc.Windows = labels

	usage := map[string]int{}
	for _, p := range placements {
		window := models.TimeWindow{Start: p.Start, End: p.End}
		doc.Cells = append(doc.Cells, export.GridCell{
			Day:    p.Day.String(),
			Window: window.String(),
			Lines:  []string{fmt.Sprintf("%s (%s)", p.Subject, p.Kind), p.Teacher + " / " + p.Group, p.Room},
		})
		usage[p.Room]++
	}
	for room, count := range usage {
		doc.RoomUsage = append(doc.RoomUsage, export.RoomUsage{Room: room, Sessions: count})
	}
	sort.Slice(doc.RoomUsage, func(i, j int) bool { return doc.RoomUsage[i].Room < doc.RoomUsage[j].Room })
	return doc
}

func timetableRows(placements []models.Placement) []export.TimetableRow {
	rows := make([]export.TimetableRow, 0, len(placements))
	for _, p := range placements {
		rows = append(rows, export.TimetableRow{
			Day:       p.Day.String(),
			Start:     p.Start,
			End:       p.End,
			Subject:   p.Subject,
			Kind:      string(p.Kind),
			Teacher:   p.Teacher,
			Group:     p.Group,
			Track:     p.Track,
			Room:      p.Room,
			Headcount: p.Headcount,
			Phase:     string(p.Phase),
		})
	}
	return rows
}

func exportTitle(req dto.ExportTimetableRequest) string {
	switch {
	case req.Group != "":
		return "Timetable " + req.Group
	case req.Teacher != "":
		return "Timetable " + req.Teacher
	case req.Room != "":
		return "Room " + req.Room
	}
	return "Timetable"
}

func exportSlug(req dto.ExportTimetableRequest) string {
	parts := []string{}
	for _, p := range [][2]string{{"group", req.Group}, {"teacher", req.Teacher}, {"room", req.Room}} {
		if v := strings.TrimSpace(p[1]); v != "" {
			parts = append(parts, p[0]+"-"+v)
		}
	}
	if len(parts) == 0 {
		return "all"
	}
	slug := strings.ToLower(strings.Join(parts, "_"))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, slug)
}
