package web

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"

	"portalkit/internal/model"
	"portalkit/internal/view"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-Id"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	userKey
)

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func userFrom(ctx context.Context) model.User {
	if u, ok := ctx.Value(userKey).(model.User); ok {
		return u
	}
	return model.GuestUser()
}

// requestLogger tags the server logger with the request id.
func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if id := requestIDFrom(r.Context()); id != "" {
		return s.log.With(zap.String("request_id", id))
	}
	return s.log
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.requestLogger(r).Error("handler panicked",
				zap.Any("panic", rec),
				zap.String("path", r.URL.Path),
				zap.ByteString("stack", debug.Stack()),
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}

// viewStack gives every request its own view stack. The stack must be empty again when the
// handler returns; leftovers are logged and dropped.
func (s *Server) viewStack(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := view.NewStack(s.requestLogger(r))
		st.ResetSize(0)
		defer func() {
			if n := st.Size(); n != 0 {
				s.requestLogger(r).Warn("view stack not empty after request", zap.Int("size", n))
			}
			st.ResetSize(0)
		}()
		next.ServeHTTP(w, r.WithContext(view.WithStack(r.Context(), st)))
	})
}

func (s *Server) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := s.userForRequest(r)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}

// requireCustomize rejects users who may not change the container's layout.
func (s *Server) requireCustomize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := s.container(r)
		if !s.perms.CanCustomize(userFrom(r.Context()), c) {
			http.Error(w, "permission denied", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
