package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrNoSecret     = errors.New("jwt secret not configured")
)

// ScopeRefresh allows triggering an immediate poll through the API
const ScopeRefresh = "refresh"

// Claims represents the JWT claims of an API operator
type Claims struct {
	Operator string   `json:"operator"`
	Scopes   []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// HasScope reports whether the token grants scope
func (c *Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// Service issues and validates API tokens
type Service struct {
	jwtSecret     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

// NewService creates a new auth service
func NewService(jwtSecret string, tokenDuration time.Duration) *Service {
	if tokenDuration == 0 {
		tokenDuration = 24 * time.Hour
	}
	return &Service{
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: tokenDuration,
		now:           time.Now,
	}
}

// Enabled reports whether a secret is configured. Without one no token is
// ever valid.
func (s *Service) Enabled() bool {
	return len(s.jwtSecret) > 0
}

// GenerateToken creates a signed JWT for operator
func (s *Service) GenerateToken(operator string, scopes ...string) (string, error) {
	if !s.Enabled() {
		return "", ErrNoSecret
	}
	now := s.now()
	claims := Claims{
		Operator: operator,
		Scopes:   scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			Issuer:    "bot30",
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a JWT and returns the claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	if !s.Enabled() {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer("bot30"),
		jwt.WithTimeFunc(s.now),
	)

	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
