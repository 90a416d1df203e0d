package provenance

import (
	"context"
	"sync"

	"github.com/georgemunganga/traceability-backend/internal/modules/identity"
)

type memoryRepo struct {
	mu       sync.RWMutex
	products map[string]*Product
	order    []string
}

// NewMemoryRepository returns a process-local repository guarded by a
// single lock.
func NewMemoryRepository() Repository {
	return &memoryRepo{products: make(map[string]*Product)}
}

func (r *memoryRepo) Create(_ context.Context, p *Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[p.ID]; ok {
		return ErrDuplicateID
	}
	r.products[p.ID] = p.Clone()
	r.order = append(r.order, p.ID)
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return p.Clone(), nil
}

func (r *memoryRepo) List(_ context.Context) ([]*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Product, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.products[id].Clone())
	}
	return out, nil
}

func (r *memoryRepo) ListByManufacturer(_ context.Context, m identity.Principal) ([]*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Product
	for _, id := range r.order {
		if p := r.products[id]; p.Manufacturer == m {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (r *memoryRepo) Update(_ context.Context, id string, fn func(p *Product) error) (*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	// fn works on a copy so a failed mutation leaves the stored record untouched.
	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.ID = cur.ID
	r.products[id] = next
	return next.Clone(), nil
}

func (r *memoryRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order), nil
}
