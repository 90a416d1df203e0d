package provenance

import (
	"context"

	"github.com/georgemunganga/traceability-backend/internal/modules/identity"
)

// DemoProduct is the record installed by Seed.
func DemoProduct() Product {
	return Product{
		Name:         "Organic Cotton T-Shirt",
		Description:  "Made from 100% organic cotton",
		Status:       "In Production",
		EthicalScore: 85,
		Materials: []Material{
			{Name: "Organic Cotton", Percentage: 100, Source: "India"},
		},
		Certifications: []string{"GOTS Certified"},
		Timeline: []TimelineEvent{
			{Date: "2024-03-15", Event: "Production Started", Location: "Bangladesh"},
		},
	}
}

// Seed creates the demo product owned by owner when the repository is empty.
// It returns the new id, or "" if the repository already held products.
func Seed(ctx context.Context, repo Repository, svc Service, owner identity.Principal) (string, error) {
	n, err := repo.Count(ctx)
	if err != nil || n > 0 {
		return "", err
	}
	return svc.CreateProduct(identity.WithCaller(ctx, owner), DemoProduct())
}
