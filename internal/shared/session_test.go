package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "helmdeck_session", "test-secret", time.Hour, false), mr
}

func TestSessionCommitAndReload(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	sess.SetUser("2f9d3a44-5f35-4a53-b0ce-0e9a79a4f9cf")
	sess.Set("csrf_token", "abc")

	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, req, sess))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "helmdeck_session", cookies[0].Name)

	reload := httptest.NewRequest(http.MethodGet, "/", nil)
	reload.AddCookie(cookies[0])
	restored, err := sm.Load(ctx, reload)
	require.NoError(t, err)
	require.Equal(t, "2f9d3a44-5f35-4a53-b0ce-0e9a79a4f9cf", restored.User())
	require.Equal(t, "abc", restored.Get("csrf_token"))
}

func TestSessionDestroyClearsCookieAndStore(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("someone")

	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, req, sess))
	require.True(t, mr.Exists("session:"+sess.ID))

	sm.Destroy(sess)
	rr = httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, req, sess))

	require.False(t, mr.Exists("session:"+sess.ID))
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)
}

func TestSessionRevokeByID(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("someone")

	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, req, sess))
	require.True(t, mr.Exists("session:"+sess.ID))

	require.NoError(t, sm.Revoke(ctx, sess.ID))
	require.False(t, mr.Exists("session:"+sess.ID))

	// Revoking an already-gone session is not an error.
	require.NoError(t, sm.Revoke(ctx, sess.ID))
}

func TestSessionUnknownCookieGetsFreshState(t *testing.T) {
	sm, _ := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "helmdeck_session", Value: "expired-id"})

	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "expired-id", sess.ID)
	require.Empty(t, sess.User())
}
