package validation

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryNumber(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		required bool
		value    int64
		errType  string
	}{
		{name: "default", query: "", value: 10},
		{name: "missing", query: "", required: true, errType: "validation.query.parameter.missing"},
		{name: "valid", query: "n=42", value: 42},
		{name: "invalid", query: "n=abc", errType: "validation.query.parameter.invalidType"},
		{name: "too small", query: "n=-1", errType: "validation.query.parameter.number.outOfRange"},
		{name: "too large", query: "n=101", errType: "validation.query.parameter.number.outOfRange"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest("GET", "/v1/operations?"+tt.query, nil)
			value, err := QueryNumber(request, "n", tt.required, 10, 0, 100)
			if tt.errType != "" {
				require.NotNil(t, err)
				assert.Equal(t, tt.errType, err.Type)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestQueryWindow(t *testing.T) {
	skip, limit, errs := QueryWindow(httptest.NewRequest("GET", "/v1/workstations?skip=5&limit=20", nil), 100, 1000)
	assert.Empty(t, errs)
	assert.Equal(t, 5, skip)
	assert.Equal(t, 20, limit)

	skip, limit, errs = QueryWindow(httptest.NewRequest("GET", "/v1/workstations", nil), 100, 1000)
	assert.Empty(t, errs)
	assert.Equal(t, 0, skip)
	assert.Equal(t, 100, limit)

	_, _, errs = QueryWindow(httptest.NewRequest("GET", "/v1/workstations?skip=-1&limit=0", nil), 100, 1000)
	assert.Len(t, errs, 2)
}
