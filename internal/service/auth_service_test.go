package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

func TestAuthServiceIssueAndValidate(t *testing.T) {
	svc := NewAuthService(AuthConfig{Secret: "secret", Expiration: time.Hour}, nil)

	token, expiresAt, err := svc.IssueToken("admin-1", models.RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestAuthServiceRejectsForeignSignature(t *testing.T) {
	other := NewAuthService(AuthConfig{Secret: "other"}, nil)
	token, _, err := other.IssueToken("admin-1", models.RoleAdmin)
	require.NoError(t, err)

	_, err = NewAuthService(AuthConfig{Secret: "secret"}, nil).ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRejectsUnexpectedAlgorithm(t *testing.T) {
	claims := &models.JWTClaims{UserID: "x", Role: models.RoleAdmin}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = NewAuthService(AuthConfig{Secret: "secret"}, nil).ValidateToken(token)
	assert.Error(t, err)
}

func TestAuthServiceIssueRequiresUser(t *testing.T) {
	_, _, err := NewAuthService(AuthConfig{Secret: "secret"}, nil).IssueToken("", models.RoleAdmin)
	assert.Error(t, err)
}
