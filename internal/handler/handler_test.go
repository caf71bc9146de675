package handler

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"authenticity-product/internal/apierror"
	"authenticity-product/internal/middleware"
	"authenticity-product/internal/model"
	"authenticity-product/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func testJWT(t *testing.T) *jwtutil.JWTUtil {
	t.Helper()
	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = key
	})
	return jwtutil.NewFromKeys(testKey, &testKey.PublicKey, "authenticity-product", time.Hour)
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&model.Role{}, &model.User{}, &model.Product{}, &model.Article{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, name := range []string{model.RoleAdmin, model.RoleUser} {
		if err := db.Create(&model.Role{Name: name}).Error; err != nil {
			t.Fatalf("seed role %s: %v", name, err)
		}
	}
	return db
}

// setupTestServer wires the full route table against an in-memory store.
func setupTestServer(t *testing.T) (*echo.Echo, *gorm.DB, *jwtutil.JWTUtil) {
	t.Helper()
	db := setupTestDB(t)
	jwt := testJWT(t)

	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = apierror.HTTPErrorHandler

	authHandler := NewAuthHandler(db, jwt)
	userHandler := NewUserHandler(db)
	productHandler := NewProductHandler(db)
	articleHandler := NewArticleHandler(db, "17 DA")
	adminHandler := NewAdminHandler(db, jwt, "admin_session", time.Hour)

	auth := e.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/jwt/login", authHandler.Login)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)
	auth.POST("/request-verify-token", authHandler.RequestVerifyToken)
	auth.POST("/verify", authHandler.Verify)

	requireAuth := middleware.JWTAuth(jwt, db)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	users := e.Group("/users", requireAuth)
	users.GET("/me", userHandler.Me)
	users.PATCH("/me", userHandler.UpdateMe)
	users.GET("/:id", userHandler.GetUser, adminOnly)
	users.PATCH("/:id", userHandler.UpdateUser, adminOnly)
	users.DELETE("/:id", userHandler.DeleteUser, adminOnly)

	products := e.Group("/products")
	products.POST("/create-product", productHandler.CreateProduct)
	products.GET("", productHandler.ListProducts)
	products.GET("/:id", productHandler.GetProduct)
	products.PUT("/:id", productHandler.UpdateProduct)
	products.DELETE("/:id", productHandler.DeleteProduct)

	unites := e.Group("/unites")
	unites.POST("/", articleHandler.CreateArticle)
	unites.GET("/", articleHandler.ListArticles)
	unites.POST("/generate_articles", articleHandler.GenerateArticles)
	unites.GET("/:id", articleHandler.GetArticle)
	unites.PUT("/:id", articleHandler.UpdateArticle)
	unites.DELETE("/:id", articleHandler.DeleteArticle)

	e.GET("/get-etiquettes-thermiques/:id", articleHandler.GetLabel)

	e.GET("/admin/login", adminHandler.LoginForm)
	e.POST("/admin/login", adminHandler.Login)
	e.GET("/admin/logout", adminHandler.Logout)
	admin := e.Group("/admin", middleware.AdminSession(jwt, db, "admin_session"))
	admin.GET("", adminHandler.Dashboard)
	admin.GET("/:entity", adminHandler.ListEntity)
	admin.POST("/:entity/:id/delete", adminHandler.DeleteEntity)

	return e, db, jwt
}

func doJSON(e *echo.Echo, method, path, body, token string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

// registerUser creates an account through the API and returns its id.
func registerUser(t *testing.T, e *echo.Echo, email, phone, password, role string) string {
	t.Helper()
	body := `{"email":"` + email + `","password":"` + password + `","first_name":"Test","last_name":"User","phone":"` + phone + `","role":"` + role + `"}`
	rec := doJSON(e, http.MethodPost, "/auth/register", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, "register failed: %s", rec.Body.String())

	var user UserRead
	decodeBody(t, rec, &user)
	require.NotEmpty(t, user.ID)
	return user.ID
}

// loginToken logs in with the given identifier and returns the bearer token.
func loginToken(t *testing.T, e *echo.Echo, username, password string) string {
	t.Helper()
	rec := doJSON(e, http.MethodPost, "/auth/jwt/login", `{"username":"`+username+`","password":"`+password+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, "login failed: %s", rec.Body.String())

	var resp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	decodeBody(t, rec, &resp)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}
