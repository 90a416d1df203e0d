package user

import (
	"context"
	"errors"
)

// ErrInvalidInput marks registration data that failed validation.
var ErrInvalidInput = errors.New("invalid input")

// Service defines the interface for user-related business logic.
type Service interface {
	RegisterUser(ctx context.Context, email, password, firstName, lastName string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
}
