package auth

import (
	"crypto/subtle"
	"net/http"

	"factory-dashboard/internal/middleware/session"
)

const realm = `Basic realm="Factory Dashboard Admin"`

// BasicAuth закрывает админские маршруты. Пустой логин или пароль в конфиге
// закрывает их полностью. Прошедший пользователь попадает в контекст как
// автор действий, если фронт не передал свой X-User-ID.
func BasicAuth(username, password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if username == "" || password == "" {
				requireAuth(w)
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok {
				requireAuth(w)
				return
			}

			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
			if !userOK || !passOK {
				requireAuth(w)
				return
			}

			if session.UserID(r.Context()) == "" {
				r = r.WithContext(session.WithUser(r.Context(), user))
			}

			next.ServeHTTP(w, r)
		})
	}
}

func requireAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", realm)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}
