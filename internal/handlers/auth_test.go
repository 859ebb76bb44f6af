package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// loginAdmin authenticates the seeded test admin and returns the session
// cookies to replay on subsequent requests.
func loginAdmin(t *testing.T, r *gin.Engine) []*http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/admin/login", strings.NewReader(`{"username":"admin","password":"hunter22"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	return w.Result().Cookies()
}

func TestLoginAdmin(t *testing.T) {
	env := setupTestHandler(t)
	r := setupTestRouter(env.handler)

	t.Run("Valid credentials", func(t *testing.T) {
		cookies := loginAdmin(t, r)
		assert.NotEmpty(t, cookies)
	})

	t.Run("Wrong password", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/admin/login", strings.NewReader(`{"username":"admin","password":"wrong"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Unknown user", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/admin/login", strings.NewReader(`{"username":"ghost","password":"x"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Missing fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/admin/login", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLogoutAdmin(t *testing.T) {
	env := setupTestHandler(t)
	r := setupTestRouter(env.handler)

	cookies := loginAdmin(t, r)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/admin/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// The cleared session no longer opens the dashboard.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/admin/stats/active", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
