// Package identity models the calling party of an operation.
//
// A Principal is an opaque token; the only operation the rest of the system
// performs on it is equality. The caller of a request travels in the
// context.Context, set by the auth middleware.
package identity

import (
	"context"

	"github.com/google/uuid"
)

// Principal identifies a calling party.
type Principal string

// Anonymous is the principal of an unauthenticated caller.
const Anonymous Principal = "2vxsx-fae"

func (p Principal) String() string { return string(p) }

// IsAnonymous reports whether p carries no identity.
func (p Principal) IsAnonymous() bool { return p == "" || p == Anonymous }

// New returns a fresh random principal.
func New() Principal { return Principal(uuid.NewString()) }

type callerKey struct{}

// WithCaller returns a copy of ctx carrying p as the caller.
func WithCaller(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, callerKey{}, p)
}

// Caller returns the principal stored in ctx, or Anonymous.
func Caller(ctx context.Context) Principal {
	p, ok := ctx.Value(callerKey{}).(Principal)
	if !ok || p == "" {
		return Anonymous
	}
	return p
}

// Whoami echoes the caller's own identity. It has no side effects.
func Whoami(ctx context.Context) Principal { return Caller(ctx) }
