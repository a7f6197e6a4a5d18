package middleware

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/smilee3998/partyroom-server/internal/errcodes"
	"github.com/smilee3998/partyroom-server/internal/models"
	"github.com/smilee3998/partyroom-server/internal/storage"
)

const userLocalKey = "current_user"

// tokenTTL keeps sessions alive for a week; password changes cut them off
// earlier via the token version.
const tokenTTL = 7 * 24 * time.Hour

type sessionClaims struct {
	UserUID      string `json:"uid"`
	TokenVersion int    `json:"tkv"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "partyroom-dev-secret"
	}
	return []byte(secret)
}

// IssueToken creates a signed session token for the user. The embedded
// token version must match the user's current one at verification time.
func IssueToken(user *models.User) (string, error) {
	claims := sessionClaims{
		UserUID:      user.UID,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret())
}

func parseToken(raw string) (*sessionClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// RequireAuth resolves the bearer token to a user and stores it in locals.
func RequireAuth(store storage.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == "" || raw == header {
			return unauthorized(c)
		}

		claims, err := parseToken(raw)
		if err != nil {
			return unauthorized(c)
		}

		user, err := store.GetUserByUID(claims.UserUID)
		if err != nil {
			return unauthorized(c)
		}
		if user.TokenVersion != claims.TokenVersion {
			// Password changed since this token was issued.
			return unauthorized(c)
		}

		c.Locals(userLocalKey, user)
		return c.Next()
	}
}

// RequireVerified rejects users who have not completed email verification.
// Must run after RequireAuth.
func RequireVerified() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return unauthorized(c)
		}
		if !user.IsVerified {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error_code_list": []string{errcodes.NonVerifiedUser},
			})
		}
		return c.Next()
	}
}

// RequireRoomer restricts room management to roomer (or staff) accounts.
func RequireRoomer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return unauthorized(c)
		}
		if !user.IsRoomer && !user.IsStaff {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error_code_list": []string{errcodes.CredentialsInvalid},
			})
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated user set by RequireAuth, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocalKey).(*models.User)
	return user
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error_code_list": []string{errcodes.CredentialsInvalid},
	})
}
