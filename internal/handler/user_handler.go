package handler

import (
	"net/http"
	"strings"

	"authenticity-product/internal/apierror"
	"authenticity-product/internal/middleware"
	"authenticity-product/internal/model"
	"authenticity-product/pkg/logger"
	"authenticity-product/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserHandler serves the user management routes
type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// UserUpdate is a partial profile update; nil fields are left untouched
type UserUpdate struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	Password  *string `json:"password" validate:"omitempty,min=6"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Civility  *string `json:"civility"`
}

// Me returns the authenticated user's profile
func (h *UserHandler) Me(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apierror.Unauthorized("missing authentication")
	}
	return c.JSON(http.StatusOK, userRead(user))
}

// UpdateMe applies a partial update to the authenticated user's profile
func (h *UserHandler) UpdateMe(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return apierror.Unauthorized("missing authentication")
	}
	return h.patchUser(c, user)
}

// GetUser returns any user's profile, admin only
func (h *UserHandler) GetUser(c echo.Context) error {
	var user model.User
	if err := h.db.Where("id = ?", c.Param("id")).First(&user).Error; err != nil {
		return apierror.FromDB(err, "user not found")
	}
	return c.JSON(http.StatusOK, userRead(&user))
}

// UpdateUser applies a partial update to any user, admin only
func (h *UserHandler) UpdateUser(c echo.Context) error {
	var user model.User
	if err := h.db.Where("id = ?", c.Param("id")).First(&user).Error; err != nil {
		return apierror.FromDB(err, "user not found")
	}
	return h.patchUser(c, &user)
}

// DeleteUser removes a user, admin only
func (h *UserHandler) DeleteUser(c echo.Context) error {
	log := logger.FromContext(c)

	var user model.User
	if err := h.db.Where("id = ?", c.Param("id")).First(&user).Error; err != nil {
		return apierror.FromDB(err, "user not found")
	}

	if err := h.db.Delete(&user).Error; err != nil {
		log.Error("Failed to delete user", zap.String("user_id", user.ID), zap.Error(err))
		return apierror.FromDB(err, "")
	}

	prometheus.RecordEntityOperation("user", "delete")
	log.Info("User deleted", zap.String("user_id", user.ID))
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) patchUser(c echo.Context, user *model.User) error {
	log := logger.FromContext(c)

	var req UserUpdate
	if err := c.Bind(&req); err != nil {
		return apierror.BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if req.Email != nil {
		email := strings.ToLower(*req.Email)
		var other model.User
		if err := h.db.Where("email = ? AND id <> ?", email, user.ID).First(&other).Error; err == nil {
			return apierror.Conflict("a user with this email already exists")
		}
		user.Email = email
	}
	if req.Phone != nil {
		var other model.User
		if err := h.db.Where("phone = ? AND id <> ?", *req.Phone, user.ID).First(&other).Error; err == nil {
			return apierror.Conflict("a user with this phone already exists")
		}
		user.Phone = *req.Phone
	}
	if req.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user.HashedPassword = string(hashed)
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Civility != nil {
		user.Civility = *req.Civility
	}

	if err := h.db.Save(user).Error; err != nil {
		log.Error("Failed to update user", zap.String("user_id", user.ID), zap.Error(err))
		return apierror.FromDB(err, "")
	}

	prometheus.RecordEntityOperation("user", "update")
	log.Info("User updated", zap.String("user_id", user.ID))
	return c.JSON(http.StatusOK, userRead(user))
}
