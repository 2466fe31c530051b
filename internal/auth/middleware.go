package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWTMiddleware validates bearer tokens and stores user_id in locals.
func JWTMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		parsed, err := parseMiddlewareClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
			return secretBytes, nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		claims, ok := parsed.Claims.(*Claims)
		if !ok || !parsed.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "token invalid")
		}

		c.Locals("user_id", claims.UserID)
		return c.Next()
	}
}

// OptionalJWTMiddleware resolves a user identity when a valid bearer token
// is present and lets anonymous callers through. Used by join_session where
// guests are allowed.
func OptionalJWTMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return c.Next()
		}

		parsed, err := parseMiddlewareClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
			return secretBytes, nil
		})
		if err == nil {
			if claims, ok := parsed.Claims.(*Claims); ok && parsed.Valid {
				c.Locals("user_id", claims.UserID)
			}
		}
		return c.Next()
	}
}

// ParticipantMiddleware validates participant tokens issued on join and
// stores the membership identity in locals.
func ParticipantMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := participantTokenFromRequest(c)
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing participant token")
		}

		parsed, err := parseMiddlewareClaimsFn(token, &ParticipantClaims{}, func(_ *jwt.Token) (interface{}, error) {
			return secretBytes, nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		claims, ok := parsed.Claims.(*ParticipantClaims)
		if !ok || !parsed.Valid || claims.ParticipantID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "participant token invalid")
		}

		c.Locals("participant_id", claims.ParticipantID)
		c.Locals("participant_session", claims.SessionCode)
		c.Locals("participant_name", claims.Name)
		if claims.UserID != "" {
			c.Locals("user_id", claims.UserID)
		}
		return c.Next()
	}
}

var parseMiddlewareClaimsFn = jwt.ParseWithClaims

func participantTokenFromRequest(c *fiber.Ctx) string {
	if token := c.Get("X-Participant-Token"); token != "" {
		return token
	}
	return bearerFromHeader(c.Get("Authorization"))
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
