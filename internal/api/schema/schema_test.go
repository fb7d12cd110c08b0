package schema

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type emulatorPayload struct {
	WorkstationID *int           `json:"workstation_id" required:"true"`
	Name          *string        `json:"name" required:"true"`
	Instances     *int           `json:"instances" min:"1" max:"8"`
	Config        map[string]any `json:"config"`
}

func TestUnmarshalBody(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errors []string
	}{
		{name: "valid", body: `{"workstation_id":9,"name":"e1","instances":2}`},
		{name: "empty", body: ``, errors: []string{"validation.requestBody.missing"}},
		{name: "invalid json", body: `{"name":`, errors: []string{"validation.requestBody.invalidJSON"}},
		{name: "invalid type", body: `{"workstation_id":"nine","name":"e1"}`, errors: []string{"validation.requestBody.parameter.invalidType"}},
		{name: "missing", body: `{"instances":2}`, errors: []string{"validation.requestBody.parameter.missing", "validation.requestBody.parameter.missing"}},
		{name: "out of range", body: `{"workstation_id":9,"name":"e1","instances":9}`, errors: []string{"validation.requestBody.parameter.number.outOfRange"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodPost, "/v1/emulators", strings.NewReader(tt.body))
			payload, errs, err := UnmarshalBody[emulatorPayload](request)
			require.NoError(t, err)

			types := make([]string, 0, len(errs))
			for _, validationErr := range errs {
				types = append(types, validationErr.Type)
			}
			if len(tt.errors) == 0 {
				assert.Empty(t, types)
				require.NotNil(t, payload)
				assert.Equal(t, 9, *payload.WorkstationID)
				return
			}
			assert.Equal(t, tt.errors, types)
		})
	}
}

func TestWriteErrorsDoesNotModifySharedErrors(t *testing.T) {
	writer := &Writer{}
	recorder := httptest.NewRecorder()
	writer.WriteErrors(recorder, http.StatusNotFound, ErrNotFound)

	assert.Nil(t, ErrNotFound.Details)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	response := new(ErrorResponse)
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), response))
	assert.Equal(t, http.StatusNotFound, response.Status)
	require.Len(t, response.Errors, 1)
	assert.Equal(t, ErrNotFound.Type, response.Errors[0].Type)
	assert.NotNil(t, response.Errors[0].Details)
}

func TestWriteInternalError(t *testing.T) {
	var hooked error
	writer := &Writer{InternalErrorHook: func(err error) { hooked = err }}
	recorder := httptest.NewRecorder()

	writer.WriteInternalError(recorder, errors.New("boom"))
	assert.EqualError(t, hooked, "boom")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), ErrInternal.Type)
}

func TestPaginate(t *testing.T) {
	all := []int{1, 2, 3, 4, 5}

	page := Paginate(all, 1, 2)
	assert.Equal(t, []int{2, 3}, page.Data)
	assert.Equal(t, 5, page.Pagination.TotalCount)
	assert.Equal(t, 2, page.Pagination.IncludedCount)

	page = Paginate(all, 4, 10)
	assert.Equal(t, []int{5}, page.Data)

	page = Paginate(all, 10, 10)
	assert.Equal(t, []int{}, page.Data)

	page = Paginate[int](nil, 0, 0)
	assert.NotNil(t, page.Data)
}
