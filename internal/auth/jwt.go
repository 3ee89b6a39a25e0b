// Package auth issues and validates the access tokens used by the admin
// dashboard to manage transport rates and the route cache.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenExpiry is how long access tokens are valid unless configured.
// Tokens cannot be refreshed; the dashboard asks its identity backend for a
// new one when they expire.
const AccessTokenExpiry = 1 * time.Hour

// Dashboard roles.
const (
	// RoleAdmin may edit rates and invalidate the route cache.
	RoleAdmin = "admin"

	// RoleViewer may read rates.
	RoleViewer = "viewer"
)

// Token errors.
var (
	ErrInvalidAccessToken = errors.New("invalid access token")
	ErrAccessTokenExpired = errors.New("access token has expired")
	ErrMissingSubject     = errors.New("token subject is required")
	ErrUnknownRole        = errors.New("unknown role")
)

// ValidRole reports whether role is one the API grants access to.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleViewer
}

// JWTClaims are the claims carried by an access token.
type JWTClaims struct {
	jwt.RegisteredClaims

	Role string `json:"role"`
}

// JWTConfig holds configuration for the JWT service.
type JWTConfig struct {
	SigningKey string
	Issuer     string // e.g. https://api.foodiemap.vn
	Audience   string // e.g. foodiemap-admin

	// Expiry overrides AccessTokenExpiry.
	Expiry time.Duration

	// Leeway tolerates clock skew between the dashboard and the API.
	Leeway time.Duration
}

// JWTService signs and verifies HS256 access tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	expiry     time.Duration
	parser     *jwt.Parser
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg JWTConfig) *JWTService {
	expiry := cfg.Expiry
	if expiry == 0 {
		expiry = AccessTokenExpiry
	}
	return &JWTService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		expiry:     expiry,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(cfg.Leeway),
		),
	}
}

// GenerateAccessToken signs a token for subject with the given role.
func (s *JWTService) GenerateAccessToken(subject, role string) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, ErrMissingSubject
	}
	if !ValidRole(role) {
		return "", time.Time{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}

	now := time.Now()
	expiresAt := now.Add(s.expiry)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken verifies signature, issuer, audience and expiry, and
// returns the claims. Tokens without a subject or with an unknown role are
// rejected.
func (s *JWTService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrAccessTokenExpired
	case err != nil:
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccessToken, err.Error())
	case claims.Subject == "":
		return nil, fmt.Errorf("%w: %s", ErrInvalidAccessToken, ErrMissingSubject.Error())
	case !ValidRole(claims.Role):
		return nil, fmt.Errorf("%w: %w %q", ErrInvalidAccessToken, ErrUnknownRole, claims.Role)
	}
	return claims, nil
}
