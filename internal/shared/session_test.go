package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessions(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "odyssey_admin_session", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newTestSessions(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("42")
	sess.SetLanguage("sk")
	sess.AddNotice(Notice{Kind: NoticeError, Code: "ROW_LOCKED", Message: "locked"})

	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, sess))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)

	id, ok := loaded.UserID()
	assert.True(t, ok)
	assert.EqualValues(t, 42, id)
	assert.Equal(t, "sk", loaded.Language())
	notices := loaded.PopNotices()
	require.Len(t, notices, 1)
	assert.Equal(t, "ROW_LOCKED", notices[0].Code)
	assert.Nil(t, loaded.PopNotices())
}

func TestDestroyExpiresCookie(t *testing.T) {
	sm := newTestSessions(t)
	sess := newSession()
	sm.Destroy(sess)

	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(context.Background(), rr, sess))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestUserIDRejectsGarbage(t *testing.T) {
	sess := &Session{}
	sess.SetUser("abc")
	_, ok := sess.UserID()
	assert.False(t, ok)

	var none *Session
	_, ok = none.UserID()
	assert.False(t, ok)
}

func TestUserIDFromContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	sess := newSession()
	sess.SetUser("12")
	id, ok := UserIDFromContext(ContextWithSession(context.Background(), sess))
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
}
