package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("draft 7: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("field: %w", ErrValidation), http.StatusBadRequest},
		{ErrConflict, http.StatusConflict},
		{ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("csc api: %w", ErrUpstream), http.StatusBadGateway},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, tc.err)
		assert.Equal(t, tc.status, rr.Code, tc.err.Error())

		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
		assert.Equal(t, tc.status, problem.Status)
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, fmt.Errorf("pg: password authentication failed"))

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Empty(t, problem.Detail)
}

func TestProblemContentType(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondError(rr, ErrNotFound)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestDecodeJSON(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	decode := func(body string) error {
		return DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), &target)
	}

	require.NoError(t, decode(`{"name":"x"}`))
	assert.Equal(t, "x", target.Name)
	assert.ErrorIs(t, decode(``), ErrValidation)
	assert.ErrorIs(t, decode(`{"name":`), ErrValidation)
	assert.ErrorIs(t, decode(`{"name":"a"}{"name":"b"}`), ErrValidation)
	assert.ErrorIs(t, decode(`{"name":"`+strings.Repeat("a", MaxBodyBytes)+`"}`), ErrValidation)
}
