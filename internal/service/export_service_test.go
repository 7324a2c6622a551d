package service

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
	"github.com/noah-isme/timetable-api/pkg/storage"
)

func newExportServiceForTest(t *testing.T, ttl time.Duration) (*ExportService, *runStoreStub, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	runs := newRunStoreStub()
	runs.runs["run-1"] = models.TimetableRun{ID: "run-1", Status: models.RunStatusCompleted}
	runs.placements["run-1"] = []models.Placement{
		{ID: "p1", Subject: "Algorithms", Kind: models.SessionLecture, Teacher: "alice", Group: "INFO-L1", Track: "INFO", Headcount: 40, Day: models.Monday, Start: "09:00", End: "10:30", Room: "S-101", Phase: models.PhaseFastPath},
		{ID: "p2", Subject: "Algorithms", Kind: models.SessionTutorial, Teacher: "bob", Group: "INFO-L1-A", Track: "INFO", Headcount: 20, Day: models.Tuesday, Start: "10:45", End: "12:15", Room: "TD-1", Phase: models.PhaseFallback},
	}
	runs.runs["run-pending"] = models.TimetableRun{ID: "run-pending", Status: models.RunStatusPending}

	signer := storage.NewSignedURLSigner("secret", ttl)
	svc := NewExportService(runs, DefaultSlotCalendar(), store, signer, nil, zap.NewNop(), ExportServiceConfig{DownloadPrefix: "/api/v1/exports/"})
	return svc, runs, store
}

func tokenFromURL(t *testing.T, url string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(url, "/api/v1/exports/"))
	return strings.TrimPrefix(url, "/api/v1/exports/")
}

func TestExportServiceCSVRoundTrip(t *testing.T) {
	svc, _, store := newExportServiceForTest(t, time.Hour)

	resp, err := svc.Export(context.Background(), "run-1", dto.ExportTimetableRequest{Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Rows)
	assert.Equal(t, "csv", resp.Format)
	assert.True(t, resp.ExpiresAt.After(time.Now()))

	_, err = os.Stat(filepath.Join(store.Root(), "timetables", "run-1", "all.csv"))
	require.NoError(t, err)

	file, err := svc.Open(context.Background(), tokenFromURL(t, resp.URL))
	require.NoError(t, err)
	assert.Equal(t, "all.csv", file.Name)
	assert.Equal(t, "text/csv", file.ContentType)
	body := string(file.Body)
	assert.Contains(t, body, "Algorithms")
	assert.Contains(t, body, "S-101")
	assert.Contains(t, body, "FALLBACK")
}

func TestExportServiceGroupPDF(t *testing.T) {
	svc, _, store := newExportServiceForTest(t, time.Hour)

	resp, err := svc.Export(context.Background(), "run-1", dto.ExportTimetableRequest{Format: "pdf", Group: "INFO-L1"})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Rows)

	file, err := svc.Open(context.Background(), tokenFromURL(t, resp.URL))
	require.NoError(t, err)
	assert.Equal(t, "group-info-l1.pdf", file.Name)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Body), "%PDF"))

	_, err = os.Stat(filepath.Join(store.Root(), "timetables", "run-1", "group-info-l1.pdf"))
	require.NoError(t, err)
}

func TestExportServiceRejects(t *testing.T) {
	svc, _, _ := newExportServiceForTest(t, time.Hour)
	ctx := context.Background()

	_, err := svc.Export(ctx, "run-1", dto.ExportTimetableRequest{Format: "xlsx"})
	require.Error(t, err)

	_, err = svc.Export(ctx, "missing", dto.ExportTimetableRequest{Format: "csv"})
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)

	_, err = svc.Export(ctx, "run-pending", dto.ExportTimetableRequest{Format: "csv"})
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)

	_, err = svc.Export(ctx, "run-1", dto.ExportTimetableRequest{Format: "csv", Teacher: "nobody"})
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)

	_, err = svc.Open(ctx, "garbage")
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestExportServiceExpiredLinkAndCleanup(t *testing.T) {
	svc, _, store := newExportServiceForTest(t, time.Millisecond)

	resp, err := svc.Export(context.Background(), "run-1", dto.ExportTimetableRequest{Format: "csv"})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	_, err = svc.Open(context.Background(), tokenFromURL(t, resp.URL))
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)

	removed, err := svc.Cleanup()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	_, err = os.Stat(filepath.Join(store.Root(), "timetables", "run-1", "all.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestExportServicePurgeRun(t *testing.T) {
	svc, _, store := newExportServiceForTest(t, time.Hour)

	_, err := svc.Export(context.Background(), "run-1", dto.ExportTimetableRequest{Format: "csv", Room: "TD-1"})
	require.NoError(t, err)
	require.NoError(t, svc.PurgeRun("run-1"))

	_, err = os.Stat(filepath.Join(store.Root(), "timetables", "run-1"))
	assert.True(t, os.IsNotExist(err))
}

func TestExportSlug(t *testing.T) {
	assert.Equal(t, "all", exportSlug(dto.ExportTimetableRequest{}))
	assert.Equal(t, "teacher-j--doe_room-a-1", exportSlug(dto.ExportTimetableRequest{Teacher: "J. Doe", Room: "A-1"}))
}
