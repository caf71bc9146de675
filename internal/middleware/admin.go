package middleware

import (
	"net/http"

	"authenticity-product/internal/model"
	"authenticity-product/pkg/jwtutil"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// AdminSession guards the admin console. The session cookie carries a
// signed token; only active users with the admin role get through,
// everyone else is redirected to the login form.
func AdminSession(jwt *jwtutil.JWTUtil, db *gorm.DB, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				return c.Redirect(http.StatusFound, "/admin/login")
			}

			claims, err := jwt.ValidateToken(cookie.Value)
			if err != nil || claims.Role != model.RoleAdmin {
				return c.Redirect(http.StatusFound, "/admin/login")
			}

			var user model.User
			if err := db.Where("id = ?", claims.Subject).First(&user).Error; err != nil || !user.IsActive {
				return c.Redirect(http.StatusFound, "/admin/login")
			}

			c.Set(ContextUserKey, &user)
			c.Set(ContextRoleKey, user.Role)
			return next(c)
		}
	}
}
