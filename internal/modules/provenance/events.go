package provenance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/georgemunganga/traceability-backend/internal/modules/identity"
)

type Event interface{ Type() string }
type EventDispatcher interface{ Dispatch(event Event) error }

type ProductCreated struct {
	ProductID    string
	Name         string
	Manufacturer identity.Principal
}

func (e ProductCreated) Type() string { return "ProductCreated" }

type StageAdded struct {
	ProductID string
	StageID   string
	Location  string
	Handler   string
}

func (e StageAdded) Type() string { return "StageAdded" }

type ProductTransferred struct {
	ProductID string
	From      identity.Principal
	To        identity.Principal
	Location  string
	Notes     string
}

func (e ProductTransferred) Type() string { return "ProductTransferred" }

var eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "traceability",
	Subsystem: "provenance",
	Name:      "events_total",
	Help:      "Registry mutations by event type.",
}, []string{"type"})

// logDispatcher writes every event to the log and counts it.
type logDispatcher struct {
	logger log.FieldLogger
}

// NewLogDispatcher returns the dispatcher used in production.
func NewLogDispatcher(logger log.FieldLogger) EventDispatcher {
	return &logDispatcher{logger: logger}
}

func (d *logDispatcher) Dispatch(event Event) error {
	eventsTotal.WithLabelValues(event.Type()).Inc()
	d.logger.WithFields(log.Fields{
		"event":   event.Type(),
		"payload": event,
	}).Info("provenance event")
	return nil
}

type noopDispatcher struct{}

func (noopDispatcher) Dispatch(Event) error { return nil }
