package middleware

import (
	"net/http"
	"stockwatch-service/pkg/jwtutil"
	"stockwatch-service/pkg/logger"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// AuthMiddleware validates the session JWT and extracts the shop domain
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Warn("Missing Authorization header")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Warn("Invalid Authorization header format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Extract the token
		tokenString := parts[1]

		// Validate the token
		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// Every settings row and audit row is keyed by shop, so a session
		// without one is unusable.
		if claims.Shop == "" {
			log.Warn("JWT token does not contain a shop domain")
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "shop is required in the token"})
		}

		c.Set("shop", claims.Shop)
		c.Set("user_id", claims.UserID)
		log.Info("Request authenticated",
			zap.String("shop", claims.Shop),
			zap.Uint("user_id", claims.UserID))

		// Token is valid, proceed with the request
		return next(c)
	}
}

// GetShopFromContext retrieves the shop domain from the context.
// Returns "", false if no shop is present.
func GetShopFromContext(c echo.Context) (string, bool) {
	shop, ok := c.Get("shop").(string)
	return shop, ok && shop != ""
}
