package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type tokenStub map[string]models.UserRole

func (s tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	role, ok := s[token]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.JWTClaims{UserID: token, Role: role}, nil
}

func TestRegisterRoutesGuards(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gen := &timetableGeneratorMock{}
	r := gin.New()
	RegisterRoutes(r.Group("/api/v1"), Handlers{
		Timetable:    &TimetableHandler{service: gen, exports: &timetableExporterMock{}},
		Catalog:      &CatalogHandler{service: &catalogManagerMock{}},
		BlockedSlots: &BlockedSlotHandler{service: &blockedSlotManagerMock{}},
	}, tokenStub{"admin": models.RoleAdmin, "teacher": models.RoleTeacher, "student": models.RoleStudent})

	call := func(method, path, token string) int {
		req := httptest.NewRequest(method, path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, call(http.MethodGet, "/api/v1/exports/tok", ""))
	require.Equal(t, http.StatusUnauthorized, call(http.MethodGet, "/api/v1/timetables/runs", ""))
	require.Equal(t, http.StatusOK, call(http.MethodGet, "/api/v1/timetables/runs", "teacher"))
	require.Equal(t, http.StatusForbidden, call(http.MethodGet, "/api/v1/timetables/runs", "student"))
	require.Equal(t, http.StatusForbidden, call(http.MethodDelete, "/api/v1/timetables/runs/run-1", "teacher"))
	require.Equal(t, http.StatusNoContent, call(http.MethodDelete, "/api/v1/timetables/runs/run-1", "admin"))
	require.Equal(t, http.StatusOK, call(http.MethodGet, "/api/v1/blocked-slots", "teacher"))
	require.Equal(t, http.StatusForbidden, call(http.MethodPost, "/api/v1/catalog/import", "teacher"))
}
