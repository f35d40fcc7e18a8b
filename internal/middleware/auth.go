package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"advanced-todo/internal/models"
	"advanced-todo/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LocalUserID is the fiber.Ctx local holding the authenticated user id.
const LocalUserID = "userID"

var ErrInvalidToken = errors.New("invalid token")

// SessionSource reports the user currently logged in.
type SessionSource interface {
	CurrentUser() (models.User, bool)
}

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(userID uuid.UUID) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     t.now().Add(t.ttl).Unix(),
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of raw and returns its user id.
func (t *Tokens) Verify(raw string) (uuid.UUID, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: unexpected claims", ErrInvalidToken)
	}
	if exp, ok := claims["exp"].(float64); !ok || int64(exp) < t.now().Unix() {
		return uuid.Nil, fmt.Errorf("%w: expired", ErrInvalidToken)
	}
	rawID, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed user id", ErrInvalidToken)
	}
	return id, nil
}

// UseToken only lets through requests carrying a valid token for the user of
// the current session. The token comes from the Authorization bearer header
// or, for websocket upgrades, the token query parameter.
func UseToken(tokens *Tokens, sessions SessionSource, log *logger.Loggers) fiber.Handler {
	reject := func(c *fiber.Ctx, message string) error {
		log.Security.Warn("Unauthorized request",
			zap.String("reason", message),
			zap.String("ip", c.IP()),
			zap.String("url", c.OriginalURL()))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": message,
			"success": false,
			"status":  fiber.StatusUnauthorized,
		})
	}

	return func(c *fiber.Ctx) error {
		raw := c.Query("token")
		if authHeader := c.Get("Authorization"); authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return reject(c, "Invalid token format")
			}
			raw = parts[1]
		}
		if raw == "" {
			return reject(c, "No token provided")
		}

		userID, err := tokens.Verify(raw)
		if err != nil {
			return reject(c, "Invalid token")
		}
		current, ok := sessions.CurrentUser()
		if !ok || current.ID != userID {
			return reject(c, "Session expired")
		}

		c.Locals(LocalUserID, userID)
		return c.Next()
	}
}
