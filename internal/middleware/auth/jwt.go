package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	apperrors "github.com/b2aeddine/backend-collabmarket-sub000/pkg/errors"
)

// AuthUser represents an authenticated buyer, seller or agent
type AuthUser struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

type contextKey string

const (
	userContextKey contextKey = "authenticated_user"
)

// JWTConfig holds the configuration for JWT middleware
type JWTConfig struct {
	Secret string
	// Issuer is checked against the iss claim when set.
	Issuer    string
	Logger    *zap.Logger
	SkipPaths []string
}

func unauthorized(c echo.Context, code, message string) error {
	return c.JSON(http.StatusUnauthorized, apperrors.ErrorResponse{Code: code, Message: message})
}

// JWTMiddleware validates HS256 bearer tokens and stores the subject as the
// acting user.
func JWTMiddleware(config JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			for _, skipPath := range config.SkipPaths {
				if strings.HasPrefix(path, skipPath) {
					return next(c)
				}
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				config.Logger.Warn("Missing authorization header",
					zap.String("path", path),
					zap.String("method", c.Request().Method))
				return unauthorized(c, "MISSING_AUTH_HEADER", "Authorization header required")
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				config.Logger.Warn("Invalid authorization header format",
					zap.String("path", path))
				return unauthorized(c, "INVALID_AUTH_FORMAT", "Invalid authorization header format. Expected: Bearer <token>")
			}

			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				return []byte(config.Secret), nil
			})
			if err != nil || !token.Valid {
				config.Logger.Warn("JWT validation failed",
					zap.Error(err),
					zap.String("path", path))
				return unauthorized(c, "INVALID_TOKEN", "Invalid or expired token")
			}

			subject, err := claims.GetSubject()
			if err != nil || subject == "" {
				return unauthorized(c, "INVALID_CLAIMS", "Token subject required")
			}
			userID, err := uuid.Parse(subject)
			if err != nil {
				config.Logger.Warn("Invalid subject format",
					zap.String("sub", subject),
					zap.String("path", path))
				return unauthorized(c, "INVALID_CLAIMS", "Token subject must be a valid UUID")
			}

			email, _ := claims["email"].(string)
			role, _ := claims["role"].(string)
			authUser := &AuthUser{
				UserID: userID,
				Email:  email,
				Role:   role,
			}

			c.SetRequest(c.Request().WithContext(ContextWithUser(c.Request().Context(), authUser)))
			c.Set("user_id", userID.String())

			config.Logger.Debug("User authenticated successfully",
				zap.String("user_id", userID.String()),
				zap.String("path", path))

			return next(c)
		}
	}
}

// ContextWithUser returns a copy of ctx carrying user
func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext extracts the authenticated user from the request context
func GetUserFromContext(c echo.Context) (*AuthUser, error) {
	user, ok := c.Request().Context().Value(userContextKey).(*AuthUser)
	if !ok || user == nil {
		return nil, fmt.Errorf("no authenticated user found in context")
	}
	return user, nil
}

// RequireAuth returns the authenticated user or an UNAUTHENTICATED error
func RequireAuth(c echo.Context) (*AuthUser, error) {
	user, err := GetUserFromContext(c)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrUnauthenticated, "authentication required", err)
	}
	return user, nil
}
