package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

// WorkerSecretHeader carries the shared secret of scheduler invocations.
const WorkerSecretHeader = "X-Worker-Secret"

// SharedSecretMiddleware admits requests whose X-Worker-Secret header equals
// secret. An empty secret rejects every request.
func SharedSecretMiddleware(secret string, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			given := c.Request().Header.Get(WorkerSecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(secret)) != 1 {
				logger.Warn("Rejected worker invocation",
					zap.String("path", c.Request().URL.Path),
					zap.String("remote_ip", c.RealIP()),
					zap.Bool("header_present", given != ""))
				return c.JSON(http.StatusUnauthorized, apperrors.ErrorResponse{
					Code:    apperrors.ErrUnauthenticated,
					Message: "invalid worker secret",
				})
			}
			return next(c)
		}
	}
}
