// Package session carries the acting user explicitly through the request context.
package session

import (
	"context"
	"net/http"
	"strings"
)

const HeaderUserID = "X-User-ID"

type ctxKey struct{}

// WithUser returns a context carrying the user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserID returns the user id stored by WithUser, or "".
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Middleware reads the user id set by the frontend after login.
// Аутентификация здесь не проверяется, это делает шлюз.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if id != "" {
			r = r.WithContext(WithUser(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
