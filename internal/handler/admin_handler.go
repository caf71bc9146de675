package handler

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"authenticity-product/internal/model"
	"authenticity-product/pkg/jwtutil"
	"authenticity-product/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AdminHandler serves the operator console: session-cookie authenticated
// read/write views over all entities, gated to the admin role.
type AdminHandler struct {
	db         *gorm.DB
	jwt        *jwtutil.JWTUtil
	cookieName string
	sessionTTL time.Duration
	templates  *template.Template
}

func NewAdminHandler(db *gorm.DB, jwt *jwtutil.JWTUtil, cookieName string, sessionTTL time.Duration) *AdminHandler {
	return &AdminHandler{
		db:         db,
		jwt:        jwt,
		cookieName: cookieName,
		sessionTTL: sessionTTL,
		templates:  template.Must(template.New("admin").Parse(adminTemplates)),
	}
}

// LoginForm renders the admin login page
func (h *AdminHandler) LoginForm(c echo.Context) error {
	return h.render(c, http.StatusOK, "login", echo.Map{"Error": ""})
}

// Login authenticates an admin and sets the session cookie
func (h *AdminHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)

	// Emails are stored lowercased at registration.
	email := strings.ToLower(c.FormValue("email"))
	password := c.FormValue("password")

	var user model.User
	if err := h.db.Where("email = ?", email).First(&user).Error; err != nil {
		return h.render(c, http.StatusUnauthorized, "login", echo.Map{"Error": "Invalid credentials"})
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return h.render(c, http.StatusUnauthorized, "login", echo.Map{"Error": "Invalid credentials"})
	}
	if user.Role != model.RoleAdmin || !user.IsActive {
		return h.render(c, http.StatusForbidden, "login", echo.Map{"Error": "Admin access required"})
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Role)
	if err != nil {
		log.Error("Failed to generate admin session token", zap.Error(err))
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/admin",
		Expires:  time.Now().Add(h.sessionTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	log.Info("Admin logged in", zap.String("user_id", user.ID))
	return c.Redirect(http.StatusFound, "/admin")
}

// Logout clears the session cookie
func (h *AdminHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return c.Redirect(http.StatusFound, "/admin/login")
}

// Dashboard shows entity counts
func (h *AdminHandler) Dashboard(c echo.Context) error {
	counts := make(map[string]int64, 4)
	for name, m := range map[string]interface{}{
		"roles":    &model.Role{},
		"users":    &model.User{},
		"products": &model.Product{},
		"articles": &model.Article{},
	} {
		var n int64
		h.db.Model(m).Count(&n)
		counts[name] = n
	}
	return h.render(c, http.StatusOK, "dashboard", echo.Map{"Counts": counts})
}

// ListEntity renders a table view over one entity
func (h *AdminHandler) ListEntity(c echo.Context) error {
	entity := c.Param("entity")

	var headers []string
	var rows [][]string

	switch entity {
	case "roles":
		var roles []model.Role
		if err := h.db.Find(&roles).Error; err != nil {
			return err
		}
		headers = []string{"ID", "Name", "Description"}
		for _, r := range roles {
			rows = append(rows, []string{strconv.FormatUint(uint64(r.ID), 10), r.Name, r.Description})
		}
	case "users":
		var users []model.User
		if err := h.db.Find(&users).Error; err != nil {
			return err
		}
		headers = []string{"ID", "Email", "Phone", "Name", "Role", "Active", "Verified"}
		for _, u := range users {
			rows = append(rows, []string{
				u.ID, u.Email, u.Phone, u.FirstName + " " + u.LastName, u.Role,
				strconv.FormatBool(u.IsActive), strconv.FormatBool(u.IsVerified),
			})
		}
	case "products":
		var products []model.Product
		if err := h.db.Find(&products).Error; err != nil {
			return err
		}
		headers = []string{"ID", "Name", "Description"}
		for _, p := range products {
			rows = append(rows, []string{strconv.FormatUint(uint64(p.ID), 10), p.Name, p.Description})
		}
	case "articles":
		var articles []model.Article
		if err := h.db.Find(&articles).Error; err != nil {
			return err
		}
		headers = []string{"ID", "Tag", "Product", "Owner"}
		for _, a := range articles {
			owner := ""
			if a.OwnerManufacturerID != nil {
				owner = *a.OwnerManufacturerID
			}
			rows = append(rows, []string{a.ID, string(a.Tag), strconv.FormatUint(uint64(a.ProductID), 10), owner})
		}
	default:
		return echo.NewHTTPError(http.StatusNotFound, "unknown entity")
	}

	return h.render(c, http.StatusOK, "list", echo.Map{
		"Entity":  entity,
		"Headers": headers,
		"Rows":    rows,
	})
}

// DeleteEntity removes one row and returns to the entity list
func (h *AdminHandler) DeleteEntity(c echo.Context) error {
	log := logger.FromContext(c)
	entity := c.Param("entity")
	id := c.Param("id")

	var err error
	switch entity {
	case "roles":
		err = h.db.Delete(&model.Role{}, "id = ?", id).Error
	case "users":
		err = h.db.Delete(&model.User{}, "id = ?", id).Error
	case "products":
		err = h.db.Delete(&model.Product{}, "id = ?", id).Error
	case "articles":
		err = h.db.Delete(&model.Article{}, "id = ?", id).Error
	default:
		return echo.NewHTTPError(http.StatusNotFound, "unknown entity")
	}
	if err != nil {
		log.Error("Admin delete failed", zap.String("entity", entity), zap.String("id", id), zap.Error(err))
		return err
	}

	log.Info("Admin deleted row", zap.String("entity", entity), zap.String("id", id))
	return c.Redirect(http.StatusFound, "/admin/"+entity)
}

func (h *AdminHandler) render(c echo.Context, status int, name string, data interface{}) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return h.templates.ExecuteTemplate(c.Response(), name, data)
}

const adminTemplates = `
{{define "head"}}<!doctype html><html><head><title>Authenticity Admin</title>
<style>body{font-family:sans-serif;margin:2em}table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:4px 8px}nav a{margin-right:1em}</style>
</head><body><nav><a href="/admin">Dashboard</a><a href="/admin/roles">Roles</a><a href="/admin/users">Users</a><a href="/admin/products">Products</a><a href="/admin/articles">Articles</a><a href="/admin/logout">Logout</a></nav>{{end}}

{{define "login"}}<!doctype html><html><head><title>Admin Login</title></head><body>
<h1>Admin Login</h1>
{{if .Error}}<p style="color:red">{{.Error}}</p>{{end}}
<form method="post" action="/admin/login">
<label>Email <input type="email" name="email" required></label><br>
<label>Password <input type="password" name="password" required></label><br>
<button type="submit">Sign in</button>
</form></body></html>{{end}}

{{define "dashboard"}}{{template "head" .}}
<h1>Dashboard</h1>
<table><tr><th>Entity</th><th>Count</th></tr>
{{range $name, $count := .Counts}}<tr><td><a href="/admin/{{$name}}">{{$name}}</a></td><td>{{$count}}</td></tr>{{end}}
</table></body></html>{{end}}

{{define "list"}}{{template "head" .}}
<h1>{{.Entity}}</h1>
<table><tr>{{range .Headers}}<th>{{.}}</th>{{end}}<th></th></tr>
{{$entity := .Entity}}
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}
<td><form method="post" action="/admin/{{$entity}}/{{index . 0}}/delete"><button type="submit">delete</button></form></td></tr>{{end}}
</table></body></html>{{end}}
`
