package http

import (
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	domainErrors "github.com/b2aeddine/backend-collabmarket-sub000/internal/domain/errors"
	"github.com/b2aeddine/backend-collabmarket-sub000/internal/middleware/auth"
)

// RequestValidator plugs go-playground/validator into echo's Validate hook.
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a validator for request bodies
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *RequestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return domainErrors.InvalidArgument(err.Error())
	}
	return nil
}

// bind decodes and validates the request body into req.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return domainErrors.InvalidArgument("malformed request body")
	}
	return c.Validate(req)
}

func currentUser(c echo.Context) (uuid.UUID, error) {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return uuid.Nil, err
	}
	return user.UserID, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, domainErrors.InvalidArgument(name + " must be a valid UUID")
	}
	return id, nil
}
