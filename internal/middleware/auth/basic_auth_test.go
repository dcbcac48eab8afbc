package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"factory-dashboard/internal/middleware/session"
)

func TestBasicAuth(t *testing.T) {
	var user string
	h := BasicAuth("admin", "secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = session.UserID(r.Context())
	}))

	cases := []struct {
		name       string
		login, pwd string
		setAuth    bool
		want       int
	}{
		{"no header", "", "", false, http.StatusUnauthorized},
		{"wrong password", "admin", "nope", true, http.StatusUnauthorized},
		{"wrong user", "root", "secret", true, http.StatusUnauthorized},
		{"ok", "admin", "secret", true, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/api/molds/1", nil)
			if tc.setAuth {
				req.SetBasicAuth(tc.login, tc.pwd)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			assert.Equal(t, tc.want, rr.Code)
			if tc.want == http.StatusUnauthorized {
				assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))
			}
		})
	}
	assert.Equal(t, "admin", user)
}

func TestBasicAuth_EmptyConfigDeniesAll(t *testing.T) {
	h := BasicAuth("", "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("", "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestBasicAuth_KeepsSessionUser(t *testing.T) {
	var user string
	h := session.Middleware(BasicAuth("admin", "secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user = session.UserID(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("admin", "secret")
	req.Header.Set(session.HeaderUserID, "leader-3")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "leader-3", user)
}
