package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Middleware rejects requests without a valid bearer token and stores the
// caller's claims in the request context.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			claims, err := ParseAccessToken(token, secret)
			if err != nil {
				slog.Debug("auth: rejected token", "path", c.Path(), "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid bearer token")
			}
			req := c.Request()
			c.SetRequest(req.WithContext(SetUserClaims(req.Context(), claims)))
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
