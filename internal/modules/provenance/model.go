package provenance

import (
	"time"

	"github.com/georgemunganga/traceability-backend/internal/modules/identity"
)

// Default status of a freshly created product.
const StatusActive = "active"

// Timeline event labels appended by the registry.
const (
	EventCreated  = "Product Created"
	EventTransfer = "Transfer"
	eventStage    = "Stage: "
)

// Product is a tracked item with provenance metadata and an owning principal.
type Product struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Description    string             `json:"description"`
	Manufacturer   identity.Principal `json:"manufacturer"`
	Status         string             `json:"status"`
	EthicalScore   uint32             `json:"ethical_score"`
	Materials      []Material         `json:"materials"`
	Certifications []string           `json:"certifications"`
	Timeline       []TimelineEvent    `json:"timeline"`
	Stages         []ProductStage     `json:"stages"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Material is one input of a product. Percentages are not checked to sum to 100.
type Material struct {
	Name       string `json:"name"`
	Source     string `json:"source"`
	Percentage uint32 `json:"percentage"`
}

// TimelineEvent is one lifecycle entry of a product.
type TimelineEvent struct {
	Date     string `json:"date"`
	Event    string `json:"event"`
	Location string `json:"location"`
}

// ProductStage is one step of a product's supply-chain journey.
// Timestamp is Unix nanoseconds and never decreases within a product.
type ProductStage struct {
	StageID        string   `json:"stage_id"`
	Location       string   `json:"location"`
	Description    string   `json:"description"`
	Handler        string   `json:"handler"`
	Timestamp      uint64   `json:"timestamp"`
	Certifications []string `json:"certifications"`
}

// TransferRequest hands a product to a new owner.
type TransferRequest struct {
	ProductID string             `json:"product_id"`
	Recipient identity.Principal `json:"recipient"`
	Location  string             `json:"location"`
	Notes     string             `json:"notes"`
}

// AddStageRequest appends a stage to a product's journey.
type AddStageRequest struct {
	ProductID      string   `json:"product_id"`
	Location       string   `json:"location"`
	Description    string   `json:"description"`
	Certifications []string `json:"certifications"`
	Handler        string   `json:"handler"`
}

// Clone returns a deep copy of p.
func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	c.Materials = cloneSlice(p.Materials)
	c.Certifications = cloneSlice(p.Certifications)
	c.Timeline = cloneSlice(p.Timeline)
	c.Stages = cloneSlice(p.Stages)
	for i := range c.Stages {
		c.Stages[i].Certifications = cloneSlice(c.Stages[i].Certifications)
	}
	return &c
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

// lastStageTimestamp returns the timestamp of the newest stage, or zero.
func (p *Product) lastStageTimestamp() uint64 {
	if len(p.Stages) == 0 {
		return 0
	}
	return p.Stages[len(p.Stages)-1].Timestamp
}
