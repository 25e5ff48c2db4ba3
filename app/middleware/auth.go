package middleware

import (
	"net/http"
	"strings"

	"github.com/safestats/ms-account/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type tokenVerifier interface {
	Verify(tokenString string) (*service.Claims, error)
}

type AuthMiddleware struct {
	tokens tokenVerifier
}

func NewAuthMiddleware(tokens tokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth rejects requests without a valid bearer token and resolves
// the caller's identity into the request context.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := m.resolve(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid or expired token",
			})
		}

		setIdentity(c, claims)
		return next(c)
	}
}

// OptionalAuth resolves the identity when a valid bearer token is
// present but never rejects. Endpoints that tolerate anonymous callers
// use this and simply see no user_id in the context.
func (m *AuthMiddleware) OptionalAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if claims, ok := m.resolve(c); ok {
			setIdentity(c, claims)
		}
		return next(c)
	}
}

func (m *AuthMiddleware) resolve(c echo.Context) (*service.Claims, bool) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		logrus.Debug("Missing authorization header")
		return nil, false
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		logrus.Debug("Invalid authorization header format")
		return nil, false
	}

	claims, err := m.tokens.Verify(parts[1])
	if err != nil {
		logrus.Debug("Invalid or expired access token")
		return nil, false
	}
	return claims, true
}

func setIdentity(c echo.Context, claims *service.Claims) {
	c.Set("user_id", claims.User.ID)
	c.Set("user_email", claims.User.Email)
	c.Set("user_claims", claims)
}
