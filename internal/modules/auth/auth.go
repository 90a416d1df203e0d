// Package auth issues and verifies the bearer tokens that bind HTTP callers
// to principals.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/georgemunganga/traceability-backend/internal/modules/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// Token audiences. A refresh token is never accepted as an access token.
const (
	audienceAccess  = "access"
	audienceRefresh = "refresh"
)

// Config controls token signing.
type Config struct {
	Secret     []byte
	TTL        time.Duration
	RefreshTTL time.Duration
	Issuer     string
}

// Tokens is the pair handed out on register, login and refresh.
type Tokens struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Service defines the interface for authentication-related business logic.
type Service interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (*user.User, *Tokens, error)
	Login(ctx context.Context, email, password string) (*user.User, *Tokens, error)
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
	Logout(ctx context.Context, accessToken, refreshToken string) error
	Authenticate(ctx context.Context, accessToken string) (*jwt.StandardClaims, error)
	CurrentUser(ctx context.Context) (*user.User, error)
}
