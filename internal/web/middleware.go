package web

import (
	"context"
	"net/http"
	"time"

	"github.com/example/rezzydesk/internal/session"
)

type ctxKey struct{}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)
		s.log.Info("%s %s %d %s", r.Method, r.URL.Path, sw.code, time.Since(start))
	})
}

// requireSession redirects to the login page unless the request carries a session cookie.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.cookies.ForRequest(w, r).Load(r.Context())
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) session.Session {
	sess, _ := r.Context().Value(ctxKey{}).(session.Session)
	return sess
}
