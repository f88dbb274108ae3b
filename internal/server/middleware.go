package server

import (
	"context"
	"net/http"

	"sixtylens/internal/auth"
)

type ctxKey string

const userContextKey ctxKey = "user"

func (s *Server) authenticate(mode AccessMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if mode == AccessPublic {
				next.ServeHTTP(w, r)
				return
			}

			token := s.Cookies.AccessToken(r)
			var (
				user *auth.User
				err  error
			)
			if mode == AccessRequired {
				user, err = s.Auth.WhoAmI(r.Context(), token)
			} else {
				user, err = s.Auth.Status(r.Context(), token)
			}
			if err != nil {
				s.writeServiceError(w, r, err)
				return
			}

			ctx := r.Context()
			if user != nil {
				ctx = context.WithValue(ctx, userContextKey, user)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// clientInfo records the caller address for audit events.
func (s *Server) clientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithClientInfo(r.Context(), auth.ClientInfo{
			IP:        clientIP(r, s.trustedProxies),
			UserAgent: r.UserAgent(),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) *auth.User {
	if val, ok := ctx.Value(userContextKey).(*auth.User); ok {
		return val
	}
	return nil
}
