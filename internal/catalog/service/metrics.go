package service

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeApplied = "applied"
	outcomeStale   = "stale"
	outcomeFailed  = "failed"

	actionAdded   = "added"
	actionRemoved = "removed"
)

type Metrics struct {
	PageFetches      *prometheus.CounterVec
	FavoritesToggled *prometheus.CounterVec
	Created          prometheus.Counter
	Updated          prometheus.Counter
	Deleted          prometheus.Counter
}

// NewMetrics builds unregistered collectors; namespace is prefixed to every name.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		PageFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_fetches_total",
			Help:      "Product page fetches by outcome (applied, stale, failed)",
		}, []string{"outcome"}),
		FavoritesToggled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "favorites_toggled_total",
			Help:      "Favorite toggles by action (added, removed)",
		}, []string{"action"}),
		Created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_created_total",
			Help:      "Total number of products created",
		}),
		Updated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_updated_total",
			Help:      "Total number of products updated",
		}),
		Deleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_deleted_total",
			Help:      "Total number of products deleted",
		}),
	}
}

func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.PageFetches, m.FavoritesToggled, m.Created, m.Updated, m.Deleted}
}
