package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/traceability-backend/internal/modules/identity"
)

// User is a registered account. Its id doubles as the account's principal.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"first_name,omitempty" db:"first_name"`
	LastName     string    `json:"last_name,omitempty" db:"last_name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Principal returns the identity the user acts as.
func (u *User) Principal() identity.Principal {
	return identity.Principal(u.ID.String())
}
