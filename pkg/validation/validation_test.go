package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

type roomInput struct {
	Name     string `json:"name" validate:"required"`
	Capacity int    `json:"capacity" validate:"min=1"`
}

type catalogInput struct {
	Rooms []roomInput `json:"rooms" validate:"required,dive"`
}

func TestStructReportsNestedFieldPaths(t *testing.T) {
	v := New()

	err := v.Struct(catalogInput{Rooms: []roomInput{{Name: "A1", Capacity: 10}, {Capacity: 0}}})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Details, "rooms[1].name")
	assert.Contains(t, appErr.Details, "rooms[1].capacity")
	assert.Equal(t, "name is a required field", appErr.Details["rooms[1].name"])
}

func TestStructAcceptsValidInput(t *testing.T) {
	assert.NoError(t, New().Struct(catalogInput{Rooms: []roomInput{{Name: "A1", Capacity: 10}}}))
}

func TestFieldErrorsWithPlainError(t *testing.T) {
	fields := New().FieldErrors(errors.New("unexpected EOF"))
	assert.Equal(t, map[string]string{"detail": "unexpected EOF"}, fields)
}
