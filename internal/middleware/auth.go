package middleware

import (
	"strings"

	"authenticity-product/internal/apierror"
	"authenticity-product/internal/model"
	"authenticity-product/pkg/jwtutil"
	"authenticity-product/pkg/logger"
	"authenticity-product/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Context keys set by the auth middleware.
const (
	ContextUserKey = "current_user"
	ContextRoleKey = "user_role"
)

// JWTAuth validates the Bearer token from the Authorization header and
// resolves its subject to an existing active user. The user is stored in
// the echo context under ContextUserKey.
func JWTAuth(jwt *jwtutil.JWTUtil, db *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				prometheus.RecordAuthError("missing_token")
				return apierror.Unauthorized("missing authorization header")
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				prometheus.RecordAuthError("invalid_auth_format")
				return apierror.Unauthorized("invalid authorization format, expected Bearer token")
			}

			claims, err := jwt.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return apierror.Unauthorized("invalid or expired token")
			}

			var user model.User
			if err := db.Where("id = ?", claims.Subject).First(&user).Error; err != nil {
				log.Warn("Token subject not found", zap.String("user_id", claims.Subject))
				prometheus.RecordAuthError("unknown_subject")
				return apierror.Unauthorized("invalid or expired token")
			}
			if !user.IsActive {
				prometheus.RecordAuthError("inactive_user")
				return apierror.Unauthorized("invalid or expired token")
			}

			c.Set(ContextUserKey, &user)
			c.Set(ContextRoleKey, claims.Role)

			return next(c)
		}
	}
}

// RequireRole allows the request only when the authenticated user carries
// one of the given roles. Must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	roleSet := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return apierror.Unauthorized("missing authentication")
			}
			if _, ok := roleSet[user.Role]; !ok {
				return apierror.Forbidden()
			}
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user stored by JWTAuth, or nil.
func CurrentUser(c echo.Context) *model.User {
	user, _ := c.Get(ContextUserKey).(*model.User)
	return user
}
