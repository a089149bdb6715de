package errors

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError(t *testing.T) {
	tests := []struct {
		name       string
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{"invalid request", ErrInvalidRequest, http.StatusBadRequest, CodeInvalidRequest},
		{"resource limit", ErrResourceLimit, http.StatusUnprocessableEntity, CodeResourceLimit},
		{"not found helper", NotFoundError("analysis"), http.StatusNotFound, CodeNotFound},
		{"wrapped decode error", InvalidRequestWithError(io.ErrUnexpectedEOF), http.StatusBadRequest, CodeInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.Equal(t, tt.err.Message, tt.err.Error())

			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			require.NoError(t, render.Render(w, r, tt.err))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, ErrValidation("min_support", "must be in (0, 1]"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			ErrorCode string            `json:"error_code"`
			Details   []ValidationError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, CodeValidationFailed, body.Error.ErrorCode)
	require.Len(t, body.Error.Details, 1)
	assert.Equal(t, "min_support", body.Error.Details[0].Field)
}

func TestProblemDetailsJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusUnprocessableEntity, TypeResourceLimit, "Resource Limit Exceeded", "too many candidates", "/api/v1/basket/analyze").
		WithExtension("guidance", ResourceLimitGuidance).
		WithExtension("status", 200)

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, TypeResourceLimit, decoded["type"])
	assert.Equal(t, float64(http.StatusUnprocessableEntity), decoded["status"], "extensions never override standard members")
	assert.Equal(t, ResourceLimitGuidance, decoded["guidance"])
	assert.Equal(t, "/api/v1/basket/analyze", decoded["instance"])

	bare, err := json.Marshal(NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", ""))
	require.NoError(t, err)
	assert.NotContains(t, string(bare), "detail")
	assert.NotContains(t, string(bare), "instance")
}

func TestAppError(t *testing.T) {
	cause := stderrors.New("unexpected header")
	err := NewParsingError("read sales.csv", cause).WithContext("line", 3)

	assert.Equal(t, "[PARSING] read sales.csv: unexpected header", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, err.Context["line"])

	tests := []struct {
		err  *AppError
		want ErrorType
	}{
		{NewAppValidationError("bad"), ErrTypeValidation},
		{NewResourceLimitError("too big", nil), ErrTypeResourceLimit},
		{NewConfigError("bad port", nil), ErrTypeConfig},
		{NewStorageError("write failed", nil), ErrTypeStorage},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Type)
		assert.Equal(t, "["+string(tt.want)+"] "+tt.err.Message, tt.err.Error())
	}
}
