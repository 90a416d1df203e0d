package provenance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/georgemunganga/traceability-backend/internal/modules/identity"
)

// Service defines the provenance registry operations. The caller is read
// from ctx (see identity.WithCaller).
type Service interface {
	CreateProduct(ctx context.Context, p Product) (string, error)
	AddProduct(ctx context.Context, name, description string) (string, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetProducts(ctx context.Context) ([]*Product, error)
	GetProductsByOwner(ctx context.Context, owner identity.Principal) ([]*Product, error)
	AddStage(ctx context.Context, req AddStageRequest) (*ProductStage, error)
	GetProductHistory(ctx context.Context, id string) ([]ProductStage, error)
	TransferProduct(ctx context.Context, req TransferRequest) (string, error)
}

// Option configures the service.
type Option func(*service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

type service struct {
	repo       Repository
	dispatcher EventDispatcher
	now        func() time.Time
}

// NewService creates the registry service. A nil dispatcher drops events.
func NewService(repo Repository, dispatcher EventDispatcher, opts ...Option) Service {
	if dispatcher == nil {
		dispatcher = noopDispatcher{}
	}
	s := &service{repo: repo, dispatcher: dispatcher, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) CreateProduct(ctx context.Context, p Product) (string, error) {
	caller := identity.Caller(ctx)
	if caller.IsAnonymous() {
		return "", ErrUnauthorized
	}
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = StatusActive
	}

	now := s.now().UTC()
	p.Manufacturer = caller
	p.Stages = nil
	p.CreatedAt = now
	p.UpdatedAt = now
	p.Timeline = append(cloneSlice(p.Timeline), TimelineEvent{
		Date:  now.Format(time.RFC3339),
		Event: EventCreated,
	})

	if err := s.repo.Create(ctx, &p); err != nil {
		return "", err
	}
	_ = s.dispatcher.Dispatch(ProductCreated{ProductID: p.ID, Name: p.Name, Manufacturer: caller})
	return p.ID, nil
}

func (s *service) AddProduct(ctx context.Context, name, description string) (string, error) {
	return s.CreateProduct(ctx, Product{Name: name, Description: description})
}

func (s *service) GetProduct(ctx context.Context, id string) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) GetProducts(ctx context.Context) ([]*Product, error) {
	return s.repo.List(ctx)
}

func (s *service) GetProductsByOwner(ctx context.Context, owner identity.Principal) ([]*Product, error) {
	return s.repo.ListByManufacturer(ctx, owner)
}

func (s *service) AddStage(ctx context.Context, req AddStageRequest) (*ProductStage, error) {
	if req.ProductID == "" {
		return nil, fmt.Errorf("%w: product_id is required", ErrInvalidInput)
	}
	caller := identity.Caller(ctx)

	var stage ProductStage
	_, err := s.repo.Update(ctx, req.ProductID, func(p *Product) error {
		if p.Manufacturer != caller {
			return ErrUnauthorized
		}
		now := s.now().UTC()
		ts := uint64(now.UnixNano())
		if last := p.lastStageTimestamp(); ts < last {
			ts = last
		}
		stage = ProductStage{
			StageID:        uuid.NewString(),
			Location:       req.Location,
			Description:    req.Description,
			Handler:        req.Handler,
			Timestamp:      ts,
			Certifications: cloneSlice(req.Certifications),
		}
		p.Stages = append(p.Stages, stage)
		p.Timeline = append(p.Timeline, TimelineEvent{
			Date:     now.Format(time.RFC3339),
			Event:    eventStage + req.Description,
			Location: req.Location,
		})
		p.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	_ = s.dispatcher.Dispatch(StageAdded{
		ProductID: req.ProductID,
		StageID:   stage.StageID,
		Location:  stage.Location,
		Handler:   stage.Handler,
	})
	return &stage, nil
}

func (s *service) GetProductHistory(ctx context.Context, id string) ([]ProductStage, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Stages == nil {
		return []ProductStage{}, nil
	}
	return p.Stages, nil
}

func (s *service) TransferProduct(ctx context.Context, req TransferRequest) (string, error) {
	if req.ProductID == "" {
		return "", fmt.Errorf("%w: product_id is required", ErrInvalidInput)
	}
	if req.Recipient.IsAnonymous() {
		return "", fmt.Errorf("%w: recipient is required", ErrInvalidInput)
	}
	caller := identity.Caller(ctx)

	_, err := s.repo.Update(ctx, req.ProductID, func(p *Product) error {
		if p.Manufacturer != caller {
			return ErrUnauthorized
		}
		now := s.now().UTC()
		p.Manufacturer = req.Recipient
		p.Status = "Transferred to " + req.Location
		p.Timeline = append(p.Timeline, TimelineEvent{
			Date:     now.Format(time.RFC3339),
			Event:    EventTransfer,
			Location: req.Location,
		})
		p.UpdatedAt = now
		return nil
	})
	if err != nil {
		return "", err
	}

	_ = s.dispatcher.Dispatch(ProductTransferred{
		ProductID: req.ProductID,
		From:      caller,
		To:        req.Recipient,
		Location:  req.Location,
		Notes:     req.Notes,
	})
	return req.ProductID, nil
}
