package provenance

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrProductNotFound = errors.New("product not found")
	ErrUnauthorized    = errors.New("unauthorized")

	// ErrDuplicateID is returned by repositories when the id is taken.
	ErrDuplicateID = fmt.Errorf("%w: product id already exists", ErrInvalidInput)
)

// Kind names the error variant of err as declared on the canister
// interface, or "" when err is nil or not a registry error.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, ErrProductNotFound):
		return "ProductNotFound"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	default:
		return ""
	}
}
