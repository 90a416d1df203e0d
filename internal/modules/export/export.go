// Package export writes point-in-time snapshots of the registry to a Sink.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/georgemunganga/traceability-backend/internal/modules/provenance"
)

// Snapshot is the document written by Export.
type Snapshot struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Count       int                   `json:"count"`
	Products    []*provenance.Product `json:"products"`
}

type Exporter struct {
	products provenance.Service
	sink     Sink
	logger   log.FieldLogger
	now      func() time.Time
}

func NewExporter(products provenance.Service, sink Sink, logger log.FieldLogger) *Exporter {
	return &Exporter{products: products, sink: sink, logger: logger, now: time.Now}
}

// Key names the object a snapshot taken at t is stored under.
func Key(t time.Time) string {
	return "snapshots/registry-" + t.UTC().Format("20060102T150405Z") + ".json"
}

// Export snapshots every product and returns the sink location.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	products, err := e.products.GetProducts(ctx)
	if err != nil {
		return "", fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []*provenance.Product{}
	}
	now := e.now().UTC()
	body, err := json.MarshalIndent(Snapshot{GeneratedAt: now, Count: len(products), Products: products}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	location, err := e.sink.Put(ctx, Key(now), body, "application/json")
	if err != nil {
		return "", err
	}
	e.logger.WithFields(log.Fields{
		"location": location,
		"products": len(products),
	}).Info("registry exported")
	return location, nil
}
