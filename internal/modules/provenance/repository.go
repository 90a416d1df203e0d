package provenance

import (
	"context"

	"github.com/georgemunganga/traceability-backend/internal/modules/identity"
)

// Repository defines product storage. Every method is atomic with respect to
// the others; returned products are copies owned by the caller.
type Repository interface {
	// Create stores a new product. ErrDuplicateID if the id is taken.
	Create(ctx context.Context, p *Product) error
	// GetByID returns ErrProductNotFound when no record matches.
	GetByID(ctx context.Context, id string) (*Product, error)
	// List returns every product in creation order.
	List(ctx context.Context) ([]*Product, error)
	// ListByManufacturer returns the products currently owned by m, in creation order.
	ListByManufacturer(ctx context.Context, m identity.Principal) ([]*Product, error)
	// Update loads the product, applies fn and stores the result in one
	// atomic step. If fn fails nothing is written and its error is returned.
	Update(ctx context.Context, id string, fn func(p *Product) error) (*Product, error)
	// Count returns the number of stored products.
	Count(ctx context.Context) (int, error)
}
