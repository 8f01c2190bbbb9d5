package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nivello/rewards/internal/apperr"
)

func TestFailMapsErrorsToStatusAndKind(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"taxonomy error", apperr.ErrCodeExhausted, http.StatusBadRequest, "CodeExhausted"},
		{"wrapped taxonomy error", fmt.Errorf("submit endorsement: %w", apperr.ErrSelfEndorsementForbidden), http.StatusBadRequest, "SelfEndorsementForbidden"},
		{"not found", apperr.ErrNotFound, http.StatusNotFound, "NotFound"},
		{"storage failure", errors.New("connection reset"), http.StatusInternalServerError, "StorageUnavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(recorder)

			fail(c, tc.err)

			assert.Equal(t, tc.wantStatus, recorder.Code)

			var body struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tc.wantKind, body.Error)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestBadRequestEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)

	badRequest(c, "subtotal must be a non-negative number")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "BadRequest", body["error"])
}
