package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"authenticity-product/internal/model"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doForm(e *echo.Echo, method, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doWithCookie(e *echo.Echo, method, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	res := http.Response{Header: rec.Header()}
	for _, ck := range res.Cookies() {
		if ck.Name == "admin_session" && ck.Value != "" {
			return ck
		}
	}
	t.Fatal("no admin session cookie set")
	return nil
}

func TestAdminLoginSetsSessionCookie(t *testing.T) {
	e, _, _ := setupTestServer(t)
	registerUser(t, e, "root@example.com", "0550123456", "secret99", model.RoleAdmin)

	rec := doForm(e, http.MethodPost, "/admin/login",
		url.Values{"email": {"root@example.com"}, "password": {"secret99"}}, nil)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	cookie := sessionCookie(t, rec)
	assert.True(t, cookie.HttpOnly)

	rec = doWithCookie(e, http.MethodGet, "/admin", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Dashboard")
}

func TestAdminLoginMixedCaseEmail(t *testing.T) {
	e, _, _ := setupTestServer(t)
	registerUser(t, e, "root@example.com", "0550123456", "secret99", model.RoleAdmin)

	rec := doForm(e, http.MethodPost, "/admin/login",
		url.Values{"email": {"Root@Example.COM"}, "password": {"secret99"}}, nil)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	sessionCookie(t, rec)
}

func TestAdminLoginRejectsRegularUser(t *testing.T) {
	e, _, _ := setupTestServer(t)
	registerUser(t, e, "plain@example.com", "0550123456", "secret99", model.RoleUser)

	rec := doForm(e, http.MethodPost, "/admin/login",
		url.Values{"email": {"plain@example.com"}, "password": {"secret99"}}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminLoginWrongPassword(t *testing.T) {
	e, _, _ := setupTestServer(t)
	registerUser(t, e, "root@example.com", "0550123456", "secret99", model.RoleAdmin)

	rec := doForm(e, http.MethodPost, "/admin/login",
		url.Values{"email": {"root@example.com"}, "password": {"wrong"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminConsoleRedirectsWithoutSession(t *testing.T) {
	e, _, _ := setupTestServer(t)

	rec := doWithCookie(e, http.MethodGet, "/admin", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))

	rec = doWithCookie(e, http.MethodGet, "/admin/users", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestAdminConsoleRejectsUserSession(t *testing.T) {
	e, _, jwt := setupTestServer(t)
	userID := registerUser(t, e, "plain@example.com", "0550123456", "secret99", model.RoleUser)

	// A valid access token for a non-admin must not open the console.
	token, err := jwt.GenerateToken(userID, model.RoleUser)
	require.NoError(t, err)

	rec := doWithCookie(e, http.MethodGet, "/admin", &http.Cookie{Name: "admin_session", Value: token})
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestAdminEntityListAndDelete(t *testing.T) {
	e, db, _ := setupTestServer(t)
	registerUser(t, e, "root@example.com", "0550123456", "secret99", model.RoleAdmin)

	rec := doForm(e, http.MethodPost, "/admin/login",
		url.Values{"email": {"root@example.com"}, "password": {"secret99"}}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	cookie := sessionCookie(t, rec)

	require.NoError(t, db.Create(&model.Product{Name: "Serum", Description: "30ml"}).Error)

	rec = doWithCookie(e, http.MethodGet, "/admin/products", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Serum")

	rec = doForm(e, http.MethodPost, "/admin/products/1/delete", url.Values{}, cookie)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/products", rec.Header().Get("Location"))

	var count int64
	db.Model(&model.Product{}).Count(&count)
	assert.Zero(t, count)
}

func TestAdminUnknownEntity(t *testing.T) {
	e, _, _ := setupTestServer(t)
	registerUser(t, e, "root@example.com", "0550123456", "secret99", model.RoleAdmin)

	rec := doForm(e, http.MethodPost, "/admin/login",
		url.Values{"email": {"root@example.com"}, "password": {"secret99"}}, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	cookie := sessionCookie(t, rec)

	rec = doWithCookie(e, http.MethodGet, "/admin/widgets", cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminLogoutClearsCookie(t *testing.T) {
	e, _, _ := setupTestServer(t)

	rec := doWithCookie(e, http.MethodGet, "/admin/logout", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))

	res := http.Response{Header: rec.Header()}
	var cleared bool
	for _, ck := range res.Cookies() {
		if ck.Name == "admin_session" && ck.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "logout did not clear the session cookie")
}
