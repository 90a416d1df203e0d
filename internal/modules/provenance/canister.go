package provenance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/georgemunganga/traceability-backend/internal/modules/identity"
)

// Result mirrors the Ok/Err variant returned by the canister interface.
type Result struct {
	Ok  any    `json:"Ok,omitempty"`
	Err string `json:"Err,omitempty"`
}

// Canister serves the declared canister surface on top of Service for
// clients built against it. Registry failures travel in-band (empty id,
// false, empty list or Result.Err); the error return is reserved for
// storage faults.
type Canister struct {
	svc Service
}

func NewCanister(svc Service) *Canister { return &Canister{svc: svc} }

// AddProduct returns the new id, or "" when the product was rejected.
func (c *Canister) AddProduct(ctx context.Context, name, description string) (string, error) {
	id, err := c.svc.AddProduct(ctx, name, description)
	if Kind(err) != "" {
		return "", nil
	}
	return id, err
}

// AddStage returns false when the product is missing or not owned by the caller.
func (c *Canister) AddStage(ctx context.Context, productID, location, description string, certifications []string, handler string) (bool, error) {
	_, err := c.svc.AddStage(ctx, AddStageRequest{
		ProductID:      productID,
		Location:       location,
		Description:    description,
		Certifications: certifications,
		Handler:        handler,
	})
	if Kind(err) != "" {
		return false, nil
	}
	return err == nil, err
}

func (c *Canister) CreateProduct(ctx context.Context, p Product) (Result, error) {
	return result(c.svc.CreateProduct(ctx, p))
}

func (c *Canister) GetProduct(ctx context.Context, id string) (Result, error) {
	return result(c.svc.GetProduct(ctx, id))
}

// GetProductHistory returns an empty list for unknown products.
func (c *Canister) GetProductHistory(ctx context.Context, id string) ([]ProductStage, error) {
	stages, err := c.svc.GetProductHistory(ctx, id)
	if errors.Is(err, ErrProductNotFound) {
		return []ProductStage{}, nil
	}
	return stages, err
}

func (c *Canister) GetProducts(ctx context.Context) ([]*Product, error) {
	return c.svc.GetProducts(ctx)
}

func (c *Canister) TransferProduct(ctx context.Context, req TransferRequest) (Result, error) {
	return result(c.svc.TransferProduct(ctx, req))
}

func (c *Canister) Whoami(ctx context.Context) identity.Principal {
	return identity.Whoami(ctx)
}

func result[T any](v T, err error) (Result, error) {
	if kind := Kind(err); kind != "" {
		return Result{Err: kind}, nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Ok: v}, nil
}

var (
	errBadArgs       = errors.New("bad arguments")
	errUnknownMethod = errors.New("unknown method")
)

// Call invokes method with JSON-encoded positional arguments.
func (c *Canister) Call(ctx context.Context, method string, args []json.RawMessage) (any, error) {
	switch method {
	case "add_product":
		var name, description string
		if err := bind(args, &name, &description); err != nil {
			return nil, err
		}
		return c.AddProduct(ctx, name, description)
	case "add_stage":
		var productID, location, description, handler string
		var certifications []string
		if err := bind(args, &productID, &location, &description, &certifications, &handler); err != nil {
			return nil, err
		}
		return c.AddStage(ctx, productID, location, description, certifications, handler)
	case "create_product":
		var p Product
		if err := bind(args, &p); err != nil {
			return nil, err
		}
		return c.CreateProduct(ctx, p)
	case "get_product":
		var id string
		if err := bind(args, &id); err != nil {
			return nil, err
		}
		return c.GetProduct(ctx, id)
	case "get_product_history":
		var id string
		if err := bind(args, &id); err != nil {
			return nil, err
		}
		return c.GetProductHistory(ctx, id)
	case "get_products":
		if err := bind(args); err != nil {
			return nil, err
		}
		return c.GetProducts(ctx)
	case "transfer_product":
		var req TransferRequest
		if err := bind(args, &req); err != nil {
			return nil, err
		}
		return c.TransferProduct(ctx, req)
	case "whoami":
		if err := bind(args); err != nil {
			return nil, err
		}
		return c.Whoami(ctx), nil
	default:
		return nil, errUnknownMethod
	}
}

func bind(args []json.RawMessage, targets ...any) error {
	if len(args) != len(targets) {
		return fmt.Errorf("%w: want %d arguments, got %d", errBadArgs, len(targets), len(args))
	}
	for i, t := range targets {
		if err := json.Unmarshal(args[i], t); err != nil {
			return fmt.Errorf("%w: argument %d: %v", errBadArgs, i, err)
		}
	}
	return nil
}
