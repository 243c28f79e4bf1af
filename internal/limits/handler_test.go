package limits

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

type staticPermissions []string

func (p staticPermissions) EffectivePermissions(context.Context, int64) ([]string, error) {
	return p, nil
}

func newTestRouter(t *testing.T, fetcher Fetcher, perms ...string) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(logger, newTestService(t, fetcher), rbac.Middleware{Source: staticPermissions(perms), Logger: logger})
	h.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

	web := &shared.Session{}
	web.SetUser("3")
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithSession(req.Context(), web)))
		})
	})
	r.Route("/limits", h.MountRoutes)
	return r
}

func TestHandlerShowDefaultsToCurrentYear(t *testing.T) {
	fetcher := &stubFetcher{pages: pagesFixture(t)}
	router := newTestRouter(t, fetcher, shared.PermLimitsView)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/limits/8001011234", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Months  map[string]json.RawMessage `json:"months"`
		Pages   int                        `json:"pages"`
		HasMore bool                       `json:"hasMore"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Pages)
	assert.True(t, body.HasMore)
	assert.Contains(t, body.Months, "3")
}

func TestHandlerShowLoadsSeveralPages(t *testing.T) {
	fetcher := &stubFetcher{pages: pagesFixture(t)}
	router := newTestRouter(t, fetcher, shared.PermLimitsView)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/limits/8001011234?year=2024&pages=2", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"pages":2`)
	assert.Equal(t, 1, fetcher.callsFor(2))
}

func TestHandlerRejectsBadQuery(t *testing.T) {
	router := newTestRouter(t, &stubFetcher{}, shared.PermLimitsView)

	for _, path := range []string{"/limits/1?year=abc", "/limits/1?pages=0", "/limits/1?size=x"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, path)
	}
}

func TestHandlerExportNeedsExportPermission(t *testing.T) {
	fetcher := &stubFetcher{pages: pagesFixture(t)}

	rr := httptest.NewRecorder()
	newTestRouter(t, fetcher, shared.PermLimitsView).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/limits/8001011234/export.xlsx?year=2024", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	newTestRouter(t, fetcher, shared.PermLimitsView, shared.PermLimitsExport).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/limits/8001011234/export.xlsx?year=2024", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, xlsxContentType, rr.Header().Get("Content-Type"))

	f, err := excelize.OpenReader(rr.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetName("3")}, f.GetSheetList())
}

func TestHandlerInvalidateNeedsAdmin(t *testing.T) {
	fetcher := &stubFetcher{pages: pagesFixture(t)}

	rr := httptest.NewRecorder()
	newTestRouter(t, fetcher, shared.PermLimitsView).
		ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/limits/cache/invalidate", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	newTestRouter(t, fetcher, shared.PermLimitsAdmin).
		ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/limits/cache/invalidate", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
