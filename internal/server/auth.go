package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rotisserie/eris"
)

const ownerKey = "owner_id"

// TokenManager issues and verifies HS256 bearer tokens. The subject claim
// identifies the lead owner.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a TokenManager. A non-positive ttl defaults to 24h.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Generate signs a token for ownerID.
func (m *TokenManager) Generate(ownerID string) (string, error) {
	if len(m.secret) == 0 {
		return "", eris.New("server: jwt secret must not be empty")
	}
	if ownerID == "" {
		return "", eris.New("server: token subject must not be empty")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   ownerID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", eris.Wrap(err, "server: sign token")
	}
	return signed, nil
}

// Parse verifies token and returns its owner.
func (m *TokenManager) Parse(token string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", eris.Wrap(err, "server: parse token")
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", eris.New("server: invalid token claims")
	}
	return claims.Subject, nil
}

// requireOwner rejects requests without a valid bearer token and stores the
// token subject on the context.
func requireOwner(tokens *TokenManager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return failure(c, http.StatusUnauthorized, "Not authorized, no token", nil)
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return failure(c, http.StatusUnauthorized, "Not authorized, malformed token", nil)
			}
			owner, err := tokens.Parse(strings.TrimSpace(parts[1]))
			if err != nil {
				return failure(c, http.StatusUnauthorized, "Not authorized, token failed", nil)
			}
			c.Set(ownerKey, owner)
			return next(c)
		}
	}
}

func ownerFrom(c echo.Context) string {
	owner, _ := c.Get(ownerKey).(string)
	return owner
}
