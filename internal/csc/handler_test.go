package csc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

type staticPermissions []string

func (p staticPermissions) EffectivePermissions(context.Context, int64) ([]string, error) {
	return p, nil
}

type handlerFixture struct {
	*fixture
	router http.Handler
	web    *shared.Session
}

func newHandlerFixture(t *testing.T, perms ...string) *handlerFixture {
	t.Helper()
	f := newFixture(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, f.svc, rbac.Middleware{Source: staticPermissions(perms), Logger: logger})

	web := &shared.Session{}
	web.SetUser("7")
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), web)))
		})
	})
	h.MountRoutes(r)
	return &handlerFixture{fixture: f, router: r, web: web}
}

func (hf *handlerFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rr := httptest.NewRecorder()
	hf.router.ServeHTTP(rr, httptest.NewRequest(method, "/codelists/cl-1/drafts/d-1"+path, reader))
	return rr
}

func TestHandlerQueuesAndSavesRows(t *testing.T) {
	hf := newHandlerFixture(t, shared.PermCSCEdit)

	rr := hf.do(http.MethodPost, "/rows", `{"rowId":"r1","values":{"name":"a"}}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = hf.do(http.MethodPatch, "/rows/r1", `{"values":{"name":"b"}}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = hf.do(http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var view struct {
		RowBatches []RowBatch `json:"rowBatches"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	require.Len(t, view.RowBatches, 2)

	rr = hf.do(http.MethodPost, "/rows/save", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"state":"succeeded"`)
	assert.Equal(t, []string{"add_rows", "update_rows"}, hf.backend.ops())

	notices := hf.web.PopNotices()
	require.Len(t, notices, 1)
	assert.Equal(t, shared.NoticeSuccess, notices[0].Kind)
}

func TestHandlerFailedSaveAnswersBadGateway(t *testing.T) {
	hf := newHandlerFixture(t, shared.PermCSCEdit)
	hf.backend.failOn = "delete_rows"
	hf.backend.failErr = io.ErrUnexpectedEOF

	require.Equal(t, http.StatusOK, hf.do(http.MethodDelete, "/rows/r5", "").Code)
	rr := hf.do(http.MethodPost, "/rows/save", "")

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), `"state":"rolled_back"`)
	assert.Len(t, hf.web.PopNotices(), 2)
}

func TestHandlerStructureRequiresPermission(t *testing.T) {
	hf := newHandlerFixture(t, shared.PermCSCEdit)
	rr := hf.do(http.MethodPost, "/columns", `{"index":1,"name":"A","type":"string"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestHandlerStructureEdits(t *testing.T) {
	hf := newHandlerFixture(t, shared.PermCSCStructureEdit)

	rr := hf.do(http.MethodPost, "/columns", `{"index":1,"name":"A","type":"string"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = hf.do(http.MethodPatch, "/columns/1", `{"code":"A1","defaultValue":"-"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"updated":true}`, rr.Body.String())

	rr = hf.do(http.MethodPost, "/columns/remove", `{"indexes":[]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = hf.do(http.MethodPost, "/columns", `{"index":2,"type":"string"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = hf.do(http.MethodPost, "/structure/save", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"add_columns"}, hf.backend.ops())
}

func TestHandlerDiscard(t *testing.T) {
	hf := newHandlerFixture(t, shared.PermCSCEdit)
	require.Equal(t, http.StatusCreated, hf.do(http.MethodPost, "/rows", `{"values":{}}`).Code)

	rr := hf.do(http.MethodDelete, "/", "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	sess, err := hf.svc.Session(context.Background(), hf.key)
	require.NoError(t, err)
	assert.False(t, sess.Pending())
}

func TestHandlerColumns(t *testing.T) {
	hf := newHandlerFixture(t, shared.PermCSCView)
	hf.backend.fields = []Field{{Index: 0, Name: "Code", Type: FieldString}}

	rr := hf.do(http.MethodGet, "/columns", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"fields":[{"index":0,"name":"Code","code":"","type":"string"}]}`, rr.Body.String())
}
