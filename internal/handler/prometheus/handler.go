package prometheus

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/vet-portal/pkg/metrics"
)

// Handler serves the application metrics from a dedicated registry.
type Handler struct {
	registry *prometheus.Registry
}

// New registers m and the Go runtime collectors on a fresh registry.
func New(m *metrics.Metrics) (*Handler, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}
	if err := m.Register(registry); err != nil {
		return nil, err
	}
	return &Handler{registry: registry}, nil
}

func (h *Handler) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
}
