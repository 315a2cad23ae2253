// Package auth provides the building blocks of the identity services: JWT
// access tokens, bcrypt password hashing and the identity event hub.
//
// ACCESS TOKENS:
// Both backends hand the browser a JWT access token. The local backend signs
// its own (HS256, issuer "fitness-hub"); Supabase's GoTrue issues tokens we
// only inspect, never verify, to learn when they expire.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"sub":"userID","email":"jane@example.com","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "fitness-hub"

	// DefaultTokenLifetime matches GoTrue's default access-token lifetime.
	DefaultTokenLifetime = time.Hour
)

// TokenService handles JWT creation and validation for the local backend.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret), lifetime: DefaultTokenLifetime}, nil
}

// claims is the JWT payload. "sub" holds the user ID; "email" mirrors the
// claim GoTrue puts in its own tokens.
type claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Claims is what a valid token tells us about its holder.
type Claims struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// Generate creates and signs a new access token for the user.
func (s *TokenService) Generate(userID, email string) (string, error) {
	return s.GenerateWithDuration(userID, email, s.lifetime)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID, email string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches "fitness-hub"
//   - Algorithm is HS256 (jwt.WithValidMethods rejects "none" and friends)
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return &Claims{UserID: c.Subject, Email: c.Email, ExpiresAt: c.ExpiresAt.Time}, nil
}

// ErrTokenExpired is returned for well-formed tokens past their expiry.
var ErrTokenExpired = errors.New("auth: token expired")

// PeekExpiry reads the "exp" claim of a token WITHOUT verifying its
// signature. Only use it on tokens the server itself just received from the
// identity provider, to decide when to refresh them.
func PeekExpiry(tokenStr string) (time.Time, error) {
	var c jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &c); err != nil {
		return time.Time{}, fmt.Errorf("auth: parsing token: %w", err)
	}
	if c.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("auth: token has no expiry")
	}
	return c.ExpiresAt.Time, nil
}
