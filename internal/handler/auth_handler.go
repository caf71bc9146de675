package handler

import (
	"net/http"
	"strings"
	"time"

	"authenticity-product/internal/apierror"
	"authenticity-product/internal/identity"
	"authenticity-product/internal/model"
	"authenticity-product/pkg/jwtutil"
	"authenticity-product/pkg/logger"
	"authenticity-product/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler serves registration, login and the token-based password
// reset / email verification flows.
type AuthHandler struct {
	db  *gorm.DB
	jwt *jwtutil.JWTUtil
}

func NewAuthHandler(db *gorm.DB, jwt *jwtutil.JWTUtil) *AuthHandler {
	return &AuthHandler{db: db, jwt: jwt}
}

// UserCreate is the registration request body
type UserCreate struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
	Civility  string `json:"civility"`
	Role      string `json:"role" validate:"required"`
}

// UserRead is the public representation of a user
type UserRead struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Civility    string `json:"civility,omitempty"`
	Role        string `json:"role"`
	IsActive    bool   `json:"is_active"`
	IsSuperuser bool   `json:"is_superuser"`
	IsVerified  bool   `json:"is_verified"`
}

func userRead(u *model.User) UserRead {
	return UserRead{
		ID:          u.ID,
		Email:       u.Email,
		Phone:       u.Phone,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Civility:    u.Civility,
		Role:        u.Role,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		IsVerified:  u.IsVerified,
	}
}

// Register creates a new user account
func (h *AuthHandler) Register(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.RegisterCounter.Inc()

	var req UserCreate
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return apierror.BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return err
	}
	if identity.Classify(req.Phone) != identity.Phone {
		prometheus.RecordAuthError("invalid_phone")
		return apierror.Validation(map[string]string{"phone": "must be a valid phone number"})
	}

	req.Email = strings.ToLower(req.Email)

	// The role must name an existing tier.
	var role model.Role
	if err := h.db.Where("name = ?", req.Role).First(&role).Error; err != nil {
		prometheus.RecordAuthError("unknown_role")
		return apierror.Validation(map[string]string{"role": "unknown role " + req.Role})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var existing model.User
	if err := h.db.Where("email = ? OR phone = ?", req.Email, req.Phone).First(&existing).Error; err == nil {
		log.Warn("User already exists", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_already_exists")
		return apierror.Conflict("a user with this email or phone already exists")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return err
	}

	user := model.User{
		Email:          req.Email,
		Phone:          req.Phone,
		HashedPassword: string(hashedPassword),
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Civility:       req.Civility,
		Role:           role.Name,
		IsActive:       true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := h.db.Create(&user).Error; err != nil {
		// A racing registration can still hit the unique constraint.
		log.Error("Failed to create user", zap.Error(err))
		prometheus.RecordAuthError("user_creation_failed")
		return apierror.FromDB(err, "")
	}

	log.Info("User registered", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, userRead(&user))
}

// LoginRequest carries the login credentials. The username is either an
// email address or a phone number.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// Login authenticates a user by email or phone and issues a bearer token
func (h *AuthHandler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.LoginCounter.Inc()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return apierror.BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return err
	}

	var user model.User
	var err error
	switch identity.Classify(req.Username) {
	case identity.Phone:
		err = h.db.Where("phone = ?", req.Username).First(&user).Error
	case identity.Email:
		err = h.db.Where("email = ?", strings.ToLower(req.Username)).First(&user).Error
	default:
		prometheus.RecordAuthError("invalid_identifier")
		return apierror.InvalidCredentials()
	}
	if err != nil {
		log.Warn("Login identifier not found", zap.String("identifier_kind", identity.Classify(req.Username).String()))
		prometheus.RecordAuthError("user_not_found")
		return apierror.InvalidCredentials()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("user_id", user.ID))
		prometheus.RecordAuthError("invalid_password")
		return apierror.InvalidCredentials()
	}
	if !user.IsActive {
		prometheus.RecordAuthError("inactive_user")
		return apierror.InvalidCredentials()
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return err
	}

	prometheus.IncreaseActiveTokens()
	log.Info("User logged in", zap.String("user_id", user.ID), zap.String("role", user.Role))

	return c.JSON(http.StatusOK, echo.Map{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// ForgotPassword issues a single-use reset token. The response is the
// same whether or not the email is registered.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.Bind(&req); err != nil {
		return apierror.BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var user model.User
	if err := h.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err == nil {
		token, err := h.jwt.GenerateResetToken(user.ID, user.HashedPassword)
		if err != nil {
			log.Error("Failed to generate reset token", zap.Error(err))
			return err
		}
		// Delivery is out of scope; the token is only logged.
		log.Info("Password reset requested",
			zap.String("user_id", user.ID),
			zap.String("reset_token", token))
	}

	return c.NoContent(http.StatusAccepted)
}

// ResetPassword sets a new password from a valid reset token
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Token    string `json:"token" validate:"required"`
		Password string `json:"password" validate:"required,min=6"`
	}
	if err := c.Bind(&req); err != nil {
		return apierror.BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	claims, err := h.jwt.ValidateResetToken(req.Token)
	if err != nil {
		prometheus.RecordAuthError("bad_reset_token")
		return apierror.BadRequest("RESET_PASSWORD_BAD_TOKEN")
	}

	var user model.User
	if err := h.db.Where("id = ?", claims.Subject).First(&user).Error; err != nil {
		prometheus.RecordAuthError("bad_reset_token")
		return apierror.BadRequest("RESET_PASSWORD_BAD_TOKEN")
	}
	if !jwtutil.MatchesFingerprint(user.HashedPassword, claims.Fingerprint) {
		prometheus.RecordAuthError("bad_reset_token")
		return apierror.BadRequest("RESET_PASSWORD_BAD_TOKEN")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := h.db.Model(&user).Update("hashed_password", string(hashedPassword)).Error; err != nil {
		return apierror.FromDB(err, "")
	}

	log.Info("Password reset", zap.String("user_id", user.ID))
	return c.NoContent(http.StatusOK)
}

// RequestVerifyToken issues an email verification token. Responds 202
// regardless of whether the email exists or is already verified.
func (h *AuthHandler) RequestVerifyToken(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.Bind(&req); err != nil {
		return apierror.BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var user model.User
	if err := h.db.Where("email = ?", strings.ToLower(req.Email)).First(&user).Error; err == nil && !user.IsVerified {
		token, err := h.jwt.GenerateVerifyToken(user.ID, user.Email)
		if err != nil {
			log.Error("Failed to generate verify token", zap.Error(err))
			return err
		}
		log.Info("Verification requested",
			zap.String("user_id", user.ID),
			zap.String("verify_token", token))
	}

	return c.NoContent(http.StatusAccepted)
}

// Verify marks a user as verified from a valid verification token
func (h *AuthHandler) Verify(c echo.Context) error {
	log := logger.FromContext(c)

	var req struct {
		Token string `json:"token" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return apierror.BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	userID, email, err := h.jwt.ValidateVerifyToken(req.Token)
	if err != nil {
		prometheus.RecordAuthError("bad_verify_token")
		return apierror.BadRequest("VERIFY_USER_BAD_TOKEN")
	}

	var user model.User
	if err := h.db.Where("id = ?", userID).First(&user).Error; err != nil || user.Email != email {
		prometheus.RecordAuthError("bad_verify_token")
		return apierror.BadRequest("VERIFY_USER_BAD_TOKEN")
	}
	if user.IsVerified {
		return apierror.BadRequest("VERIFY_USER_ALREADY_VERIFIED")
	}

	if err := h.db.Model(&user).Update("is_verified", true).Error; err != nil {
		return apierror.FromDB(err, "")
	}
	user.IsVerified = true

	log.Info("User verified", zap.String("user_id", user.ID))
	return c.JSON(http.StatusOK, userRead(&user))
}
