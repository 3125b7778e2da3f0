package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad date"), http.StatusBadRequest},
		{"authentication", Authentication("Unauthorized"), http.StatusUnauthorized},
		{"authorization", Authorization("nope"), http.StatusForbidden},
		{"not found", NotFound("Appointment not found"), http.StatusNotFound},
		{"state", State("illegal"), http.StatusConflict},
		{"internal", Internal("Failed", errors.New("db down")), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("update status: %w", State("cannot cancel a rejected appointment"))
	assert.Equal(t, KindState, KindOf(err))
	assert.True(t, Is(err, KindState))
	assert.False(t, Is(nil, KindState))
}

func TestPublicMessage_HidesCause(t *testing.T) {
	err := Internal("Failed to assign role", errors.New("duplicate key user_roles_pkey"))
	assert.Equal(t, "Failed to assign role", PublicMessage(err))
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("raw driver error")))
	assert.ErrorContains(t, err, "duplicate key")
}
