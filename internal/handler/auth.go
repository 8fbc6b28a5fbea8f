package handler

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	adminRole          = "admin"
	adminSubjectLocal  = "adminSubject"
	bearerPrefix       = "Bearer "
	unauthorizedReason = "Unauthorized"
)

// AdminAuth accepts HS256 bearer tokens signed with secret that carry an
// expiry and role=admin.
func AdminAuth(secret string) fiber.Handler {
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		tokenString, found := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), bearerPrefix)
		if !found || strings.TrimSpace(tokenString) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, unauthorizedReason)
		}

		claims := jwt.MapClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), claims,
			func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected method: %s", token.Header["alg"])
				}
				return key, nil
			},
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		)
		if err != nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, unauthorizedReason)
		}

		if role, _ := claims["role"].(string); role != adminRole {
			return fiber.NewError(fiber.StatusForbidden, "admin role required")
		}

		subject, _ := claims.GetSubject()
		c.Locals(adminSubjectLocal, subject)
		return c.Next()
	}
}
