// Package promsink exposes bridge activity as prometheus metrics.
package promsink

import (
	"context"

	"github.com/goliatone/go-roomsync/pkg/activity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hook counts activity events by verb and source, the number of observed room
// changes, and whether a room is currently present.
type Hook struct {
	events  *prometheus.CounterVec
	changes prometheus.Counter
	present *prometheus.GaugeVec
}

// New registers the metrics on reg under namespace. It panics when the
// metrics are already registered, mirroring promauto.
func New(reg prometheus.Registerer, namespace string) *Hook {
	if namespace == "" {
		namespace = "roomsync"
	}
	factory := promauto.With(reg)
	return &Hook{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of bridge activity events",
		}, []string{"verb", "source"}),
		changes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "room_changes_total",
			Help:      "Total number of reconciliations that changed the room id",
		}),
		present: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "room_present",
			Help:      "1 when the last reconciliation resolved a room id",
		}, []string{"bridge"}),
	}
}

// Notify implements activity.ActivityHook.
func (h *Hook) Notify(_ context.Context, event activity.Event) error {
	if h == nil {
		return nil
	}
	source := event.Source
	if source == "" {
		source = "unknown"
	}
	h.events.WithLabelValues(event.Verb, source).Inc()
	switch event.Verb {
	case activity.VerbRoomChanged:
		h.changes.Inc()
	case activity.VerbRoomReconciled:
		value := 0.0
		if event.HasRoom {
			value = 1
		}
		h.present.WithLabelValues(event.BridgeID).Set(value)
	}
	return nil
}
