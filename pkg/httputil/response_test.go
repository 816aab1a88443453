package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/vet-portal/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func respond(t *testing.T, err error) (int, Response) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RespondWithError(c, err)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w.Code, resp
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
		field   string
	}{
		{"not found", apperrors.NotFound("appointment", nil), http.StatusNotFound, "appointment not found", ""},
		{"validation", apperrors.Validation("email", "email is required"), http.StatusBadRequest, "email is required", "email"},
		{"forbidden", apperrors.Forbidden("nope"), http.StatusForbidden, "nope", ""},
		{"conflict", apperrors.Conflict("taken", nil), http.StatusConflict, "taken", ""},
		{"storage", apperrors.Storage(errors.New("down")), http.StatusServiceUnavailable, "storage unavailable", ""},
		{"wrapped", fmt.Errorf("update: %w", apperrors.Unauthorized(nil)), http.StatusUnauthorized, "unauthorized", ""},
		{"plain error", errors.New("secret detail"), http.StatusInternalServerError, "Internal server error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := respond(t, tt.err)
			assert.Equal(t, tt.status, status)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.status, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
			assert.Equal(t, tt.field, resp.Error.Field)
		})
	}
}

func TestInvalidTransitionCarriesDetail(t *testing.T) {
	status, resp := respond(t, apperrors.InvalidTransition(errors.New("attended -> cancelled")))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "attended -> cancelled", resp.Error.Detail)
}

func TestBindOptionalJSON(t *testing.T) {
	type body struct {
		Reason string `json:"reason"`
	}

	bind := func(raw string) (bool, body, int) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw))
		c.Request.Header.Set("Content-Type", "application/json")
		var b body
		ok := BindOptionalJSON(c, &b)
		return ok, b, w.Code
	}

	ok, b, _ := bind("")
	assert.True(t, ok)
	assert.Empty(t, b.Reason)

	ok, b, _ = bind(`{"reason":"owner travelling"}`)
	assert.True(t, ok)
	assert.Equal(t, "owner travelling", b.Reason)

	ok, _, code := bind(`{"reason":`)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, code)
}
