package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/traceability-backend/internal/modules/identity"
	"github.com/georgemunganga/traceability-backend/internal/modules/user"
)

var loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "traceability_auth_logins_total",
	Help: "Login attempts by outcome.",
}, []string{"result"})

type service struct {
	userRepo user.Repository
	users    user.Service
	cfg      Config
	revoked  *denylist
}

// NewService creates a new auth service.
func NewService(userRepo user.Repository, users user.Service, cfg Config) Service {
	if cfg.Issuer == "" {
		cfg.Issuer = "traceability"
	}
	return &service{userRepo: userRepo, users: users, cfg: cfg, revoked: newDenylist()}
}

func (s *service) Register(ctx context.Context, email, password, firstName, lastName string) (*user.User, *Tokens, error) {
	u, err := s.users.RegisterUser(ctx, email, password, firstName, lastName)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := s.issue(u.Principal())
	if err != nil {
		return nil, nil, err
	}
	return u, tokens, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*user.User, *Tokens, error) {
	u, err := s.userRepo.GetUserByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		loginAttempts.WithLabelValues("rejected").Inc()
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		loginAttempts.WithLabelValues("rejected").Inc()
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issue(u.Principal())
	if err != nil {
		return nil, nil, err
	}
	loginAttempts.WithLabelValues("accepted").Inc()
	return u, tokens, nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	claims, err := s.parse(refreshToken, audienceRefresh)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetUser(ctx, claims.Subject); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	s.revoke(claims)
	return s.issue(identity.Principal(claims.Subject))
}

func (s *service) Logout(_ context.Context, accessToken, refreshToken string) error {
	claims, err := s.parse(accessToken, audienceAccess)
	if err != nil {
		return err
	}
	if refreshToken != "" {
		refresh, err := s.parse(refreshToken, audienceRefresh)
		if err != nil {
			return err
		}
		if refresh.Subject != claims.Subject {
			return ErrInvalidToken
		}
		s.revoke(refresh)
	}
	s.revoke(claims)
	return nil
}

func (s *service) Authenticate(_ context.Context, accessToken string) (*jwt.StandardClaims, error) {
	return s.parse(accessToken, audienceAccess)
}

func (s *service) CurrentUser(ctx context.Context) (*user.User, error) {
	caller := identity.Caller(ctx)
	if caller.IsAnonymous() {
		return nil, ErrInvalidToken
	}
	return s.users.GetUser(ctx, caller.String())
}

func (s *service) issue(p identity.Principal) (*Tokens, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.TTL)

	access, err := s.sign(p, audienceAccess, now, expiresAt)
	if err != nil {
		return nil, err
	}
	refresh, err := s.sign(p, audienceRefresh, now, now.Add(s.cfg.RefreshTTL))
	if err != nil {
		return nil, err
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: expiresAt.UTC()}, nil
}

func (s *service) sign(p identity.Principal, audience string, issuedAt, expiresAt time.Time) (string, error) {
	claims := &jwt.StandardClaims{
		Id:        uuid.NewString(),
		Subject:   p.String(),
		Audience:  audience,
		Issuer:    s.cfg.Issuer,
		IssuedAt:  issuedAt.Unix(),
		ExpiresAt: expiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

func (s *service) parse(tokenString, audience string) (*jwt.StandardClaims, error) {
	claims := &jwt.StandardClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.cfg.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !claims.VerifyAudience(audience, true) || !claims.VerifyIssuer(s.cfg.Issuer, true) {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || s.revoked.revoked(claims.Id) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *service) revoke(claims *jwt.StandardClaims) {
	s.revoked.revoke(claims.Id, time.Unix(claims.ExpiresAt, 0))
}
