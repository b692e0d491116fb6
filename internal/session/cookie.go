package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/example/rezzydesk/internal/internaltypes"
)

const cookieName = "rezzydesk_session"

// CookieCodec signs and encrypts the web UI session cookie.
type CookieCodec struct {
	sc *securecookie.SecureCookie
}

func NewCookieCodec(hashKey, blockKey []byte) *CookieCodec {
	sc := securecookie.New(hashKey, blockKey)
	sc.SetSerializer(securecookie.JSONEncoder{})
	sc.MaxAge(int((14 * 24 * time.Hour).Seconds()))
	return &CookieCodec{sc: sc}
}

// ForRequest returns a Store bound to one request/response pair. Writes made during
// the request are visible to later Loads of the same request.
func (c *CookieCodec) ForRequest(w http.ResponseWriter, r *http.Request) Store {
	return &cookieStore{codec: c, w: w, r: r}
}

type cookieStore struct {
	codec   *CookieCodec
	w       http.ResponseWriter
	r       *http.Request
	pending *Session
	cleared bool
}

func (s *cookieStore) Load(context.Context) (Session, error) {
	if s.cleared {
		return Session{}, internaltypes.ErrNoSession
	}
	if s.pending != nil {
		return *s.pending, nil
	}
	ck, err := s.r.Cookie(cookieName)
	if err != nil {
		return Session{}, internaltypes.ErrNoSession
	}
	var sess Session
	if err := s.codec.sc.Decode(cookieName, ck.Value, &sess); err != nil || !sess.Valid() {
		return Session{}, internaltypes.ErrNoSession
	}
	return sess, nil
}

func (s *cookieStore) Save(_ context.Context, sess Session) error {
	if !sess.Valid() {
		return errors.New("session: empty token")
	}
	encoded, err := s.codec.sc.Encode(cookieName, sess)
	if err != nil {
		return err
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   s.r.TLS != nil,
		MaxAge:   int((14 * 24 * time.Hour).Seconds()),
	})
	s.pending = &sess
	s.cleared = false
	return nil
}

func (s *cookieStore) Clear(context.Context) error {
	http.SetCookie(s.w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	s.pending = nil
	s.cleared = true
	return nil
}
