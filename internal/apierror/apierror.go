// Package apierror defines the error taxonomy shared by all handlers and
// the echo error handler that maps it to HTTP responses.
package apierror

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// Error is a machine-readable API error with a fixed HTTP status.
type Error struct {
	Status int               `json:"-"`
	Code   string            `json:"error"`
	Detail string            `json:"detail,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Code + ": " + e.Detail
	}
	return e.Code
}

// NotFound reports a missing entity by id or name.
func NotFound(detail string) *Error {
	return &Error{Status: http.StatusNotFound, Code: "NOT_FOUND", Detail: detail}
}

// Conflict reports a unique-constraint violation.
func Conflict(detail string) *Error {
	return &Error{Status: http.StatusConflict, Code: "CONFLICT", Detail: detail}
}

// InvalidCredentials reports a login failure. The detail is fixed so the
// response does not reveal whether the identifier exists.
func InvalidCredentials() *Error {
	return &Error{Status: http.StatusUnauthorized, Code: "LOGIN_BAD_CREDENTIALS"}
}

// Unauthorized reports a missing, invalid or expired token.
func Unauthorized(detail string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: "UNAUTHORIZED", Detail: detail}
}

// Forbidden reports an authenticated user lacking the required role.
func Forbidden() *Error {
	return &Error{Status: http.StatusForbidden, Code: "FORBIDDEN"}
}

// BadRequest reports a malformed request.
func BadRequest(detail string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "BAD_REQUEST", Detail: detail}
}

// Validation reports a structured field-path to message mapping.
func Validation(fields map[string]string) *Error {
	return &Error{Status: http.StatusUnprocessableEntity, Code: "VALIDATION_ERROR", Fields: fields}
}

// FromDB translates storage errors into taxonomy members so raw driver
// errors never reach clients. Unrecognized errors are returned as-is and
// end up as a 500 in the error handler.
func FromDB(err error, notFoundDetail string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(notFoundDetail)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Conflict("duplicate value for a unique field")
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return Validation(map[string]string{"reference": "referenced record does not exist"})
	default:
		return err
	}
}

// FromValidator converts go-playground validation errors into the
// Validation taxonomy member.
func FromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return BadRequest(err.Error())
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = "failed on rule " + fe.Tag()
	}
	return Validation(fields)
}

// HTTPErrorHandler is the central echo error handler. Taxonomy members keep
// their status and body; echo's own HTTP errors keep their status; anything
// else becomes an opaque 500.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		_ = c.JSON(apiErr.Status, apiErr)
		return
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		_ = c.JSON(echoErr.Code, echo.Map{"error": echoErr.Message})
		return
	}

	_ = c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL_ERROR"})
}
