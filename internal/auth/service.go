package auth

import (
	"errors"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/clipscribe/clipscribe/internal/apperrors"
)

// Claims is the session token payload.
type Claims struct {
	gojwt.RegisteredClaims
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Identity is the authenticated caller as seen by handlers.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// IsAdmin reports whether the caller has the admin role.
func (id Identity) IsAdmin() bool {
	return id.Role == "admin"
}

// Service issues and verifies session tokens.
type Service struct {
	cfg Config
}

// NewService creates a token service. Config defaults are applied; a
// missing or short secret is an error.
func NewService(cfg Config) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Service{cfg: cfg}, nil
}

// Issue signs a session token for the user.
func (s *Service) Issue(userID, email, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
		UserID: userID,
		Email:  email,
		Role:   role,
	}
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", apperrors.Internal("sign session token", err)
	}
	return signed, nil
}

// TokenTTL returns the configured session token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.cfg.TokenTTL
}

// Verify parses and validates a session token, returning the caller's
// identity. Expired tokens map to a distinct error code so clients can
// prompt for re-login rather than generic failure.
func (s *Service) Verify(tokenString string) (Identity, error) {
	var claims Claims
	token, err := gojwt.ParseWithClaims(tokenString, &claims, s.keyFunc,
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithIssuer(s.cfg.Issuer),
	)
	if err != nil {
		if errors.Is(err, gojwt.ErrTokenExpired) {
			return Identity{}, apperrors.TokenExpired()
		}
		return Identity{}, apperrors.InvalidToken()
	}
	if !token.Valid {
		return Identity{}, apperrors.InvalidToken()
	}
	return Identity{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}

func (s *Service) keyFunc(token *gojwt.Token) (interface{}, error) {
	return []byte(s.cfg.Secret), nil
}
