// Package dashboard summarises the registry for the web front end.
package dashboard

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/georgemunganga/traceability-backend/internal/modules/provenance"
)

const (
	// ComplianceThreshold is the lowest ethical score counted as compliant.
	ComplianceThreshold = 50
	recentLimit         = 5
	statMonths          = 4
)

type Summary struct {
	TotalProducts   int `json:"totalProducts"`
	ActiveSuppliers int `json:"activeSuppliers"`
	ComplianceRate  int `json:"complianceRate"`
}

type MonthlyStat struct {
	Month      string `json:"month"`
	Products   int    `json:"products"`
	Violations int    `json:"violations"`
}

type RecentProduct struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Supplier    string    `json:"supplier"`
	Status      string    `json:"status"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type Data struct {
	Summary        Summary         `json:"summary"`
	MonthlyStats   []MonthlyStat   `json:"monthlyStats"`
	RecentProducts []RecentProduct `json:"recentProducts"`
}

// Service defines the interface for dashboard queries.
type Service interface {
	Get(ctx context.Context) (*Data, error)
}

type service struct {
	products provenance.Service
	now      func() time.Time
}

func NewService(products provenance.Service) Service {
	return &service{products: products, now: time.Now}
}

func (s *service) Get(ctx context.Context) (*Data, error) {
	products, err := s.products.GetProducts(ctx)
	if err != nil {
		return nil, err
	}
	return build(products, s.now().UTC()), nil
}

func build(products []*provenance.Product, now time.Time) *Data {
	data := &Data{
		MonthlyStats:   monthly(products, now),
		RecentProducts: []RecentProduct{},
	}

	suppliers := make(map[string]struct{})
	compliant := 0
	for _, p := range products {
		suppliers[p.Manufacturer.String()] = struct{}{}
		if p.EthicalScore >= ComplianceThreshold {
			compliant++
		}
	}
	data.Summary = Summary{
		TotalProducts:   len(products),
		ActiveSuppliers: len(suppliers),
	}
	if len(products) > 0 {
		data.Summary.ComplianceRate = int(math.Round(100 * float64(compliant) / float64(len(products))))
	}

	recent := append([]*provenance.Product(nil), products...)
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].UpdatedAt.After(recent[j].UpdatedAt) })
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	for _, p := range recent {
		data.RecentProducts = append(data.RecentProducts, RecentProduct{
			ID:          p.ID,
			Name:        p.Name,
			Supplier:    p.Manufacturer.String(),
			Status:      p.Status,
			LastUpdated: p.UpdatedAt,
		})
	}
	return data
}

// monthly counts products created, and non-compliant products created, in
// each of the last statMonths calendar months, oldest first.
func monthly(products []*provenance.Product, now time.Time) []MonthlyStat {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1-statMonths, 0)
	stats := make([]MonthlyStat, statMonths)
	for i := range stats {
		stats[i].Month = start.AddDate(0, i, 0).Format("Jan")
	}
	for _, p := range products {
		created := p.CreatedAt.UTC()
		if created.Before(start) {
			continue
		}
		i := (created.Year()-start.Year())*12 + int(created.Month()) - int(start.Month())
		if i >= statMonths {
			continue
		}
		stats[i].Products++
		if p.EthicalScore < ComplianceThreshold {
			stats[i].Violations++
		}
	}
	return stats
}
