package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/rezzydesk/internal/internaltypes"
)

var (
	hashKey  = []byte("0123456789abcdef0123456789abcdef")
	blockKey = []byte("abcdef0123456789abcdef0123456789")
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "host",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return s
}

func TestExpiresAt(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	got, ok := ExpiresAt(signed(t, exp))
	require.True(t, ok)
	assert.True(t, got.Equal(exp))

	_, ok = ExpiresAt("not-a-jwt")
	assert.False(t, ok)

	now := time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, Expired(signed(t, exp), now))
	assert.False(t, Expired(signed(t, exp), exp.Add(-time.Minute)))
	assert.False(t, Expired("opaque-token", now))
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session")
	fs := NewFileStore(path, hashKey, blockKey)

	_, err := fs.Load(ctx)
	assert.ErrorIs(t, err, internaltypes.ErrNoSession)

	require.NoError(t, fs.Save(ctx, Session{Token: "tok", Username: "host"}))
	got, err := fs.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Session{Token: "tok", Username: "host"}, got)

	other := NewFileStore(path, []byte("ffffffffffffffffffffffffffffffff"), blockKey)
	_, err = other.Load(ctx)
	assert.ErrorIs(t, err, internaltypes.ErrNoSession)

	require.NoError(t, fs.Clear(ctx))
	require.NoError(t, fs.Clear(ctx))
	_, err = fs.Load(ctx)
	assert.ErrorIs(t, err, internaltypes.ErrNoSession)
}

func TestFileStore_RejectsEmptyToken(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "s"), hashKey, blockKey)
	assert.Error(t, fs.Save(context.Background(), Session{Username: "host"}))
}

func TestCookieStore(t *testing.T) {
	ctx := context.Background()
	codec := NewCookieCodec(hashKey, blockKey)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	st := codec.ForRequest(rec, req)
	require.NoError(t, st.Save(ctx, Session{Token: "tok", Username: "host"}))
	got, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	rec2 := httptest.NewRecorder()
	st2 := codec.ForRequest(rec2, next)
	got, err = st2.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Session{Token: "tok", Username: "host"}, got)

	require.NoError(t, st2.Clear(ctx))
	_, err = st2.Load(ctx)
	assert.ErrorIs(t, err, internaltypes.ErrNoSession)
	cleared := rec2.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore(nil)
	_, err := m.Load(ctx)
	assert.ErrorIs(t, err, internaltypes.ErrNoSession)
	require.NoError(t, m.Save(ctx, Session{Token: "a"}))
	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Token)
	require.NoError(t, m.Clear(ctx))
	_, err = m.Load(ctx)
	assert.ErrorIs(t, err, internaltypes.ErrNoSession)
}
